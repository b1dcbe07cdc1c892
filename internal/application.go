package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/othello-backend/internal/config"
	"github.com/rocketscienceinc/othello-backend/internal/entity"
	"github.com/rocketscienceinc/othello-backend/internal/repository"
	"github.com/rocketscienceinc/othello-backend/internal/repository/storage"
	"github.com/rocketscienceinc/othello-backend/internal/repository/storage/sqlite"
	"github.com/rocketscienceinc/othello-backend/internal/telemetry"
	"github.com/rocketscienceinc/othello-backend/internal/usecase"
	"github.com/rocketscienceinc/othello-backend/transport/rest"
	"github.com/rocketscienceinc/othello-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

type repositories struct {
	players repository.PlayerRepository
	games   repository.GameRepository
	close   func()
}

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	shutdownTracing, err := telemetry.Setup(ctx, conf.OTel.Endpoint, conf.OTel.ServiceName)
	if err != nil {
		return fmt.Errorf("could not set up tracing: %w", err)
	}

	defer func() {
		if err = shutdownTracing(context.Background()); err != nil {
			log.Error("could not flush traces", "error", err)
		}
	}()

	repos, err := openRepositories(ctx, log, conf)
	if err != nil {
		return err
	}
	defer repos.close()

	managerOpts := []usecase.Option{
		usecase.WithTimeouts(entity.Timeouts{
			TurnCheck:  conf.Game.TurnCheckTimeout,
			TurnChange: conf.Game.TurnChangeTimeout,
		}),
	}
	var restOpts []rest.Option

	if conf.SQLiteStoragePath != "" {
		archive, archiveErr := sqlite.New(conf.SQLiteStoragePath)
		if archiveErr != nil {
			return fmt.Errorf("could not open results archive: %w", archiveErr)
		}

		defer func() {
			if closeErr := archive.Close(); closeErr != nil {
				log.Error("could not close results archive", "error", closeErr)
			}
		}()

		if err = archive.Init(ctx); err != nil {
			return fmt.Errorf("could not initialise results archive: %w", err)
		}

		results := repository.NewResultRepository(archive.Connection)
		managerOpts = append(managerOpts, usecase.WithResults(results))
		restOpts = append(restOpts, rest.WithResults(results))
	}

	gameUseCase := usecase.NewGameManager(logger, repos.players, repos.games, managerOpts...)
	wsServer := websocket.New(logger, gameUseCase)
	restServer := rest.New(logger, gameUseCase, append(restOpts, rest.WithNotifier(wsServer))...)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := restServer.Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

func openRepositories(ctx context.Context, log *slog.Logger, conf *config.Config) (*repositories, error) {
	if conf.Storage == config.StorageMemory {
		log.Warn("Using in-memory storage, games are lost on restart")

		return &repositories{
			players: repository.NewMemoryPlayerRepository(),
			games:   repository.NewMemoryGameRepository(),
			close:   func() {},
		}, nil
	}

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return nil, ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	return &repositories{
		players: repository.NewPlayerRepository(redisStorage.Connection),
		games:   repository.NewGameRepository(redisStorage.Connection),
		close: func() {
			if closeErr := redisStorage.Close(); closeErr != nil {
				log.Error("could not close redis storage", "error", closeErr)
			}
		},
	}, nil
}
