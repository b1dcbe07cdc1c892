package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rocketscienceinc/othello-backend/internal/apperror"
	"github.com/rocketscienceinc/othello-backend/internal/entity"
	"github.com/rocketscienceinc/othello-backend/internal/othello"
	"github.com/rocketscienceinc/othello-backend/internal/repository"
)

const tracerName = "github.com/rocketscienceinc/othello-backend/internal/usecase"

type playerRepo interface {
	GetOrCreateByName(ctx context.Context, name string) (*entity.Player, error)
	GetByName(ctx context.Context, name string) (*entity.Player, error)
}

type gameRepo interface {
	Create(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	Update(ctx context.Context, id string, fn repository.UpdateFunc) (*entity.Game, error)
	LastSeq(ctx context.Context, pairKey string) (int, error)
	NextSeq(ctx context.Context, pairKey string) (int, error)
}

type resultRepo interface {
	Save(ctx context.Context, result entity.GameResult) error
}

type Option func(*GameManager)

// WithResults archives every finished game into repo.
func WithResults(repo resultRepo) Option {
	return func(that *GameManager) {
		that.resultRepo = repo
	}
}

func WithTimeouts(timeouts entity.Timeouts) Option {
	return func(that *GameManager) {
		that.timeouts = timeouts
	}
}

func WithClock(now func() time.Time) Option {
	return func(that *GameManager) {
		that.now = now
	}
}

// GameManager runs Othello sessions on top of the repositories. Operations on one session
// never interleave within a process; the game repository guards against other processes.
type GameManager struct {
	logger     *slog.Logger
	playerRepo playerRepo
	gameRepo   gameRepo
	resultRepo resultRepo

	timeouts entity.Timeouts
	now      func() time.Time
	locks    *sessionLocks
	tracer   trace.Tracer
}

func NewGameManager(logger *slog.Logger, playerRepo playerRepo, gameRepo gameRepo, opts ...Option) *GameManager {
	manager := &GameManager{
		logger: logger.With("component", "game_manager"),

		playerRepo: playerRepo,
		gameRepo:   gameRepo,

		timeouts: entity.DefaultTimeouts(),
		now:      time.Now,
		locks:    newSessionLocks(),
		tracer:   otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(manager)
	}

	return manager
}

// CreateAndPair returns a started game for the ordered pair. The pair's latest game is reused
// when it has not started yet, otherwise a new game with the next number is opened.
func (that *GameManager) CreateAndPair(ctx context.Context, player1Name, player2Name string) (_ *entity.Game, err error) {
	ctx, span := that.startSpan(ctx, "GameManager.CreateAndPair",
		attribute.String("player1", player1Name),
		attribute.String("player2", player2Name))
	defer func() { endSpan(span, err) }()

	log := that.logger.With("method", "CreateAndPair")

	player1, player2, err := that.pair(ctx, player1Name, player2Name)
	if err != nil {
		return nil, err
	}

	ref := entity.GameRef{Player1: player1.Name, Player2: player2.Name}

	unlock := that.locks.lock(ref.PairKey())
	defer unlock()

	game, err := that.startLatest(ctx, ref)
	if err != nil {
		return nil, err
	}

	if game == nil {
		game, err = that.openGame(ctx, ref, player1, player2)
		if err != nil {
			return nil, err
		}

		if err = game.Start(that.now()); err != nil {
			return nil, fmt.Errorf("failed to start game: %w", err)
		}

		if err = that.gameRepo.Create(ctx, game); err != nil {
			return nil, fmt.Errorf("failed to create game: %w", err)
		}
	}

	log.Info("game paired", "game_id", game.ID, "seq", game.Ref.Seq)

	return game, nil
}

// OpenGame creates an unstarted game for the ordered pair. CreateAndPair starts it later.
func (that *GameManager) OpenGame(ctx context.Context, player1Name, player2Name string) (_ *entity.Game, err error) {
	ctx, span := that.startSpan(ctx, "GameManager.OpenGame",
		attribute.String("player1", player1Name),
		attribute.String("player2", player2Name))
	defer func() { endSpan(span, err) }()

	player1, player2, err := that.pair(ctx, player1Name, player2Name)
	if err != nil {
		return nil, err
	}

	ref := entity.GameRef{Player1: player1.Name, Player2: player2.Name}

	unlock := that.locks.lock(ref.PairKey())
	defer unlock()

	game, err := that.openGame(ctx, ref, player1, player2)
	if err != nil {
		return nil, err
	}

	if err = that.gameRepo.Create(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	that.logger.Info("game opened", "method", "OpenGame", "game_id", game.ID)

	return game, nil
}

func (that *GameManager) GetGame(ctx context.Context, ref entity.GameRef) (_ *entity.Game, err error) {
	ctx, span := that.startSpan(ctx, "GameManager.GetGame", attribute.String("game.id", ref.Key()))
	defer func() { endSpan(span, err) }()

	game, err := that.gameRepo.GetByID(ctx, ref.Key())
	if err != nil {
		return nil, fmt.Errorf("failed to get game %s: %w", ref, err)
	}

	return game, nil
}

// GetBoard returns the 64-symbol board snapshot.
func (that *GameManager) GetBoard(ctx context.Context, ref entity.GameRef) (string, error) {
	game, err := that.GetGame(ctx, ref)
	if err != nil {
		return "", err
	}

	return game.Board.String(), nil
}

// PollTurn reports whether it is playerName's move. The first true answer of a turn
// starts the shorter turn-check timeout.
func (that *GameManager) PollTurn(ctx context.Context, ref entity.GameRef, playerName string) (_ bool, err error) {
	ctx, span := that.startSpan(ctx, "GameManager.PollTurn",
		attribute.String("game.id", ref.Key()),
		attribute.String("player", playerName))
	defer func() { endSpan(span, err) }()

	player, err := that.lookupPlayer(ctx, playerName)
	if err != nil {
		return false, err
	}

	unlock := that.locks.lock(ref.Key())
	defer unlock()

	var yourTurn bool
	_, err = that.gameRepo.Update(ctx, ref.Key(), func(game *entity.Game) error {
		var pollErr error
		yourTurn, pollErr = game.PollTurn(player.ID, that.now())
		return pollErr
	})
	if err != nil {
		return false, fmt.Errorf("failed to poll turn: %w", err)
	}

	return yourTurn, nil
}

// SubmitMove plays playerName's move. The returned game reflects any change the attempt made,
// including turns lost to timeouts and invalid moves; it is nil only when the game could not be loaded.
func (that *GameManager) SubmitMove(
	ctx context.Context, ref entity.GameRef, playerName string, p entity.Position,
) (_ *entity.Game, _ othello.TurnResult, err error) {
	ctx, span := that.startSpan(ctx, "GameManager.SubmitMove",
		attribute.String("game.id", ref.Key()),
		attribute.String("player", playerName),
		attribute.String("move", p.String()))
	defer func() { endSpan(span, err) }()

	log := that.logger.With("method", "SubmitMove", "game_id", ref.Key(), "player", playerName)

	var result othello.TurnResult

	player, err := that.lookupPlayer(ctx, playerName)
	if err != nil {
		return nil, result, err
	}

	unlock := that.locks.lock(ref.Key())
	defer unlock()

	var finishedNow bool
	game, moveErr := that.gameRepo.Update(ctx, ref.Key(), func(game *entity.Game) error {
		wasFinished := game.IsFinished()

		var err error
		result, err = othello.MakeTurn(game, player.ID, p, that.now())

		finishedNow = !wasFinished && game.IsFinished()

		return err
	})
	if game == nil {
		return nil, result, fmt.Errorf("failed to submit move: %w", moveErr)
	}

	span.SetAttributes(
		attribute.Int("flipped", result.Flipped),
		attribute.Bool("skipped", result.Skipped),
		attribute.String("active_color", game.ActiveColor().String()),
	)

	if finishedNow {
		log.Info("game finished",
			"score_white", game.ScoreWhite,
			"score_black", game.ScoreBlack,
			"winner", game.Winner.String())

		that.archive(ctx, game)
	}

	if moveErr != nil {
		log.Debug("move rejected", "error", moveErr)
		return game, result, moveErr
	}

	log.Debug("move applied", "flipped", result.Flipped, "skipped", result.Skipped)

	return game, result, nil
}

func (that *GameManager) pair(ctx context.Context, player1Name, player2Name string) (*entity.Player, *entity.Player, error) {
	player1Name, player2Name = strings.TrimSpace(player1Name), strings.TrimSpace(player2Name)
	if player1Name == "" || player2Name == "" || player1Name == player2Name {
		return nil, nil, apperror.ErrInvalidPairing
	}

	player1, err := that.playerRepo.GetOrCreateByName(ctx, player1Name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get or create player %s: %w", player1Name, err)
	}

	player2, err := that.playerRepo.GetOrCreateByName(ctx, player2Name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get or create player %s: %w", player2Name, err)
	}

	return player1, player2, nil
}

// startLatest starts the pair's latest game if it is still waiting. A nil game means there is
// nothing to reuse.
func (that *GameManager) startLatest(ctx context.Context, ref entity.GameRef) (*entity.Game, error) {
	last, err := that.gameRepo.LastSeq(ctx, ref.PairKey())
	if err != nil {
		return nil, fmt.Errorf("failed to get last game number: %w", err)
	}

	if last == 0 {
		return nil, nil
	}

	ref.Seq = last

	var started bool
	game, err := that.gameRepo.Update(ctx, ref.Key(), func(game *entity.Game) error {
		if !game.IsWaiting() {
			return nil
		}

		started = true
		return game.Start(that.now())
	})

	switch {
	case errors.Is(err, repository.ErrGameNotFound):
		// numbered but never stored
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to start game %s: %w", ref, err)
	case !started:
		return nil, nil
	}

	return game, nil
}

func (that *GameManager) openGame(ctx context.Context, ref entity.GameRef, player1, player2 *entity.Player) (*entity.Game, error) {
	seq, err := that.gameRepo.NextSeq(ctx, ref.PairKey())
	if err != nil {
		return nil, fmt.Errorf("failed to get next game number: %w", err)
	}

	ref.Seq = seq

	return entity.NewGame(ref, player1, player2, that.timeouts, that.now()), nil
}

func (that *GameManager) lookupPlayer(ctx context.Context, name string) (*entity.Player, error) {
	player, err := that.playerRepo.GetByName(ctx, name)
	if errors.Is(err, repository.ErrPlayerNotFound) {
		return nil, fmt.Errorf("%w: %s", apperror.ErrUnknownPlayer, name)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get player %s: %w", name, err)
	}

	return player, nil
}

func (that *GameManager) archive(ctx context.Context, game *entity.Game) {
	if that.resultRepo == nil {
		return
	}

	if err := that.resultRepo.Save(ctx, game.Result()); err != nil {
		that.logger.Error("failed to archive result", "method", "archive", "game_id", game.ID, "error", err)
	}
}

func (that *GameManager) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return that.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan marks the span failed only for errors the caller did not cause.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)

		if !apperror.IsDomain(err) {
			span.SetStatus(codes.Error, err.Error())
		}
	}

	span.End()
}
