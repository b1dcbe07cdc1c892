package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rocketscienceinc/othello-backend/internal/entity"
	"github.com/rocketscienceinc/othello-backend/internal/othello"
)

const (
	shutdownTimeout = 5 * time.Second

	gamePath = "/games/{player1}/{player2}/{seq:[0-9]+}"
)

type gameUseCase interface {
	CreateAndPair(ctx context.Context, player1Name, player2Name string) (*entity.Game, error)
	OpenGame(ctx context.Context, player1Name, player2Name string) (*entity.Game, error)
	GetGame(ctx context.Context, ref entity.GameRef) (*entity.Game, error)
	GetBoard(ctx context.Context, ref entity.GameRef) (string, error)
	PollTurn(ctx context.Context, ref entity.GameRef, playerName string) (bool, error)
	SubmitMove(ctx context.Context, ref entity.GameRef, playerName string, p entity.Position) (*entity.Game, othello.TurnResult, error)
}

type resultLister interface {
	List(ctx context.Context, limit int) ([]entity.GameResult, error)
}

// gameNotifier receives every game a move changed, so websocket subscribers see REST moves too.
type gameNotifier interface {
	NotifyGame(game *entity.Game)
}

type Option func(*Server)

func WithResults(results resultLister) Option {
	return func(that *Server) {
		that.results = results
	}
}

func WithNotifier(notifier gameNotifier) Option {
	return func(that *Server) {
		that.notifier = notifier
	}
}

type Server struct {
	logger   *slog.Logger
	games    gameUseCase
	results  resultLister
	notifier gameNotifier
	router   *mux.Router
}

func New(logger *slog.Logger, games gameUseCase, opts ...Option) *Server {
	server := &Server{
		logger: logger.With("component", "rest"),
		games:  games,
		router: mux.NewRouter(),
	}

	for _, opt := range opts {
		opt(server)
	}

	server.setupRoutes()

	return server
}

func (that *Server) setupRoutes() {
	that.router.Use(that.logRequests)

	that.router.HandleFunc("/ping", NewPingHandler().PingHandler).Methods(http.MethodGet)
	that.router.HandleFunc("/connect", that.handleConnect)
	that.router.HandleFunc("/results", that.handleResults).Methods(http.MethodGet)

	that.router.HandleFunc("/games", that.handleOpenGame).Methods(http.MethodPost)

	that.router.HandleFunc(gamePath, that.handleGetGame).Methods(http.MethodGet)
	that.router.HandleFunc(gamePath+"/board", that.handleGetBoard).Methods(http.MethodGet)
	that.router.HandleFunc(gamePath+"/turn", that.handlePollTurn).Methods(http.MethodGet)
	that.router.HandleFunc(gamePath+"/move", that.handleMove).Methods(http.MethodPost)
}

func (that *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	that.router.ServeHTTP(w, r)
}

// Start serves on port until ctx is cancelled.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down HTTP server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (that *statusRecorder) WriteHeader(status int) {
	that.status = status
	that.ResponseWriter.WriteHeader(status)
}

func (that *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		that.logger.Debug("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration", time.Since(started))
	})
}
