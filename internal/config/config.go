package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

var ErrUnknownStorage = errors.New("unknown storage")

type Config struct {
	LogLevel          string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort          string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort        string `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	Storage           string `yaml:"storage" env:"STORAGE" env-default:"redis"`
	Redis             Redis  `yaml:"redis" env-prefix:"REDIS_"`
	SQLiteStoragePath string `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH"`
	Game              Game   `yaml:"game" env-prefix:"GAME_"`
	OTel              OTel   `yaml:"otel" env-prefix:"OTEL_"`
}

type Redis struct {
	Host string `yaml:"host" env:"HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"PORT" env-default:"6379"`
}

type Game struct {
	TurnCheckTimeout  time.Duration `yaml:"turn-check-timeout" env:"TURN_CHECK_TIMEOUT" env-default:"15s"`
	TurnChangeTimeout time.Duration `yaml:"turn-change-timeout" env:"TURN_CHANGE_TIMEOUT" env-default:"60s"`
}

// OTel - tracing is off while Endpoint is empty.
type OTel struct {
	Endpoint    string `yaml:"endpoint" env:"ENDPOINT"`
	ServiceName string `yaml:"service-name" env:"SERVICE_NAME" env-default:"othello-backend"`
}

// Load reads path, falling back to the environment alone when the file does not exist.
func Load(path string) (*Config, error) {
	config := &Config{}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		err = cleanenv.ReadConfig(path, config)
	case errors.Is(err, fs.ErrNotExist):
		err = cleanenv.ReadEnv(config)
	}

	if err != nil {
		return nil, fmt.Errorf("unable to load config: %w", err)
	}

	if err = config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func (that *Config) validate() error {
	switch that.Storage {
	case StorageRedis, StorageMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorage, that.Storage)
	}

	if that.Game.TurnCheckTimeout <= 0 || that.Game.TurnChangeTimeout <= 0 {
		return fmt.Errorf("game timeouts must be positive, got %s and %s",
			that.Game.TurnCheckTimeout, that.Game.TurnChangeTimeout)
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
