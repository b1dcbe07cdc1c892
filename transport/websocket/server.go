package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/othello-backend/internal/entity"
	"github.com/rocketscienceinc/othello-backend/internal/othello"
	"github.com/rocketscienceinc/othello-backend/transport/dto"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	shutdownTimeout = 5 * time.Second
)

type gameUseCase interface {
	CreateAndPair(ctx context.Context, player1Name, player2Name string) (*entity.Game, error)
	OpenGame(ctx context.Context, player1Name, player2Name string) (*entity.Game, error)
	GetGame(ctx context.Context, ref entity.GameRef) (*entity.Game, error)
	GetBoard(ctx context.Context, ref entity.GameRef) (string, error)
	PollTurn(ctx context.Context, ref entity.GameRef, playerName string) (bool, error)
	SubmitMove(ctx context.Context, ref entity.GameRef, playerName string, p entity.Position) (*entity.Game, othello.TurnResult, error)
}

type handlerFunc func(ctx context.Context, msg *Message, client *client) error

type Server struct {
	logger   *slog.Logger
	games    gameUseCase
	upgrader websocket.Upgrader

	handlers map[string]handlerFunc

	subscribersMutex sync.RWMutex
	subscribers      map[string]map[*client]struct{}
}

func New(logger *slog.Logger, games gameUseCase) *Server {
	server := &Server{
		logger: logger.With("component", "websocket"),
		games:  games,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},

		handlers:    make(map[string]handlerFunc),
		subscribers: make(map[string]map[*client]struct{}),
	}

	server.handlers[actionConnect] = server.handleConnect
	server.handlers[actionGameNew] = server.handleNewGame
	server.handlers[actionGameJoin] = server.handleJoinGame
	server.handlers[actionGameTurn] = server.handleGameTurn
	server.handlers[actionGameMove] = server.handleGameMove
	server.handlers[actionGameBoard] = server.handleGameBoard

	return server
}

// Start - serves /ws on port until ctx is cancelled.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", that)

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down WebSocket server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// ServeHTTP upgrades the request and serves the connection until the peer leaves.
func (that *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "ServeHTTP")

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	c := newClient(conn)
	defer func() {
		that.unsubscribe(c)
		c.close()
	}()

	log.Debug("WebSocket connection established", "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go c.keepAlive(ctx)

	if err = that.handleMessages(ctx, c); err != nil {
		log.Error("error handling messages", "error", err)
	}
}

// handleMessages - processes messages from the client.
func (that *Server) handleMessages(ctx context.Context, c *client) error {
	log := that.logger.With("method", "handleMessages")

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return fmt.Errorf("failed to read message: %w", err)
			}
			return nil
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Warn("failed to unmarshal message", "error", err)
			_ = c.send(actionError, Response{Error: "malformed message"})
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			_ = c.send(message.Action, Response{Error: "unknown action"})
			continue
		}

		if err = handler(ctx, &message, c); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

func (that *Server) subscribe(gameID string, c *client) {
	that.subscribersMutex.Lock()
	defer that.subscribersMutex.Unlock()

	clients, ok := that.subscribers[gameID]
	if !ok {
		clients = make(map[*client]struct{})
		that.subscribers[gameID] = clients
	}
	clients[c] = struct{}{}
}

func (that *Server) unsubscribe(c *client) {
	that.subscribersMutex.Lock()
	defer that.subscribersMutex.Unlock()

	for gameID, clients := range that.subscribers {
		delete(clients, c)
		if len(clients) == 0 {
			delete(that.subscribers, gameID)
		}
	}
}

// NotifyGame pushes the game to every connection watching it.
func (that *Server) NotifyGame(game *entity.Game) {
	that.subscribersMutex.RLock()
	clients := make([]*client, 0, len(that.subscribers[game.ID]))
	for c := range that.subscribers[game.ID] {
		clients = append(clients, c)
	}
	that.subscribersMutex.RUnlock()

	response := Response{Game: dto.NewGame(game)}
	for _, c := range clients {
		if err := c.send(actionGameUpdate, response); err != nil {
			that.logger.Warn("failed to push game update", "method", "NotifyGame", "game_id", game.ID, "error", err)
		}
	}
}
