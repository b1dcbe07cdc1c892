package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Run("Defaults without a file", func(t *testing.T) {
		// When: the config file does not exist
		config, err := Load(filepath.Join(t.TempDir(), "missing.yml"))

		// Then: every default is applied
		require.NoError(t, err)
		assert.Equal(t, "info", config.LogLevel)
		assert.Equal(t, "9090", config.HTTPPort)
		assert.Equal(t, "9091", config.SocketPort)
		assert.Equal(t, StorageRedis, config.Storage)
		assert.Equal(t, "localhost:6379", config.Redis.GetRedisAddr())
		assert.Equal(t, 15*time.Second, config.Game.TurnCheckTimeout)
		assert.Equal(t, time.Minute, config.Game.TurnChangeTimeout)
		assert.Empty(t, config.OTel.Endpoint)
	})

	t.Run("Values from the file", func(t *testing.T) {
		path := writeConfig(t, `
log-level: debug
http-port: "8080"
storage: memory
redis:
  host: redis
  port: "6380"
sqlite-storage-path: results.db
game:
  turn-check-timeout: 5s
  turn-change-timeout: 30s
otel:
  endpoint: http://collector:4318
`)

		config, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, "debug", config.LogLevel)
		assert.Equal(t, "8080", config.HTTPPort)
		assert.Equal(t, StorageMemory, config.Storage)
		assert.Equal(t, "redis:6380", config.Redis.GetRedisAddr())
		assert.Equal(t, "results.db", config.SQLiteStoragePath)
		assert.Equal(t, 5*time.Second, config.Game.TurnCheckTimeout)
		assert.Equal(t, 30*time.Second, config.Game.TurnChangeTimeout)
		assert.Equal(t, "http://collector:4318", config.OTel.Endpoint)
	})

	t.Run("Environment overrides the file", func(t *testing.T) {
		path := writeConfig(t, "http-port: \"8080\"\n")
		t.Setenv("HTTP_PORT", "7070")
		t.Setenv("GAME_TURN_CHANGE_TIMEOUT", "2m")

		config, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, "7070", config.HTTPPort)
		assert.Equal(t, 2*time.Minute, config.Game.TurnChangeTimeout)
	})

	t.Run("Unknown storage", func(t *testing.T) {
		path := writeConfig(t, "storage: postgres\n")

		_, err := Load(path)

		require.ErrorIs(t, err, ErrUnknownStorage)
	})

	t.Run("Non-positive timeout", func(t *testing.T) {
		path := writeConfig(t, "log-level: info\n")
		t.Setenv("GAME_TURN_CHECK_TIMEOUT", "-1s")

		_, err := Load(path)

		require.Error(t, err)
	})

	t.Run("MustLoad panics on bad input", func(t *testing.T) {
		path := writeConfig(t, "storage: postgres\n")

		assert.Panics(t, func() { MustLoad(path) })
	})
}
