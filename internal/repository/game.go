package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/othello-backend/internal/apperror"
	"github.com/rocketscienceinc/othello-backend/internal/entity"
)

const maxUpdateAttempts = 16

var (
	ErrGameNotFound      = apperror.ErrGameNotFound
	ErrGameAlreadyExists = apperror.ErrGameAlreadyExists
	ErrUpdateConflict    = errors.New("game changed concurrently too many times")
)

// UpdateFunc mutates a game inside a transaction. Its changes are saved even when it returns
// an error, unless the error is apperror.ErrInternal.
type UpdateFunc func(game *entity.Game) error

type GameRepository interface {
	Create(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	Update(ctx context.Context, id string, fn UpdateFunc) (*entity.Game, error)
	DeleteByID(ctx context.Context, id string) error

	// LastSeq - highest game number handed out for the pair, 0 when none.
	LastSeq(ctx context.Context, pairKey string) (int, error)
	NextSeq(ctx context.Context, pairKey string) (int, error)
}

type dbGame struct {
	client *redis.Client
}

func NewGameRepository(client *redis.Client) GameRepository {
	return &dbGame{
		client: client,
	}
}

func gameKey(id string) string {
	return "game:" + id
}

func seqKey(pairKey string) string {
	return "pair:" + pairKey + ":seq"
}

func (that *dbGame) Create(ctx context.Context, game *entity.Game) error {
	gameJSON, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("could not marshal game: %w", err)
	}

	created, err := that.client.SetNX(ctx, gameKey(game.ID), gameJSON, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to set game: %w", err)
	}

	if !created {
		return fmt.Errorf("%w: %s", ErrGameAlreadyExists, game.ID)
	}

	return nil
}

func (that *dbGame) GetByID(ctx context.Context, id string) (*entity.Game, error) {
	response, err := that.client.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrGameNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	var existingGame entity.Game
	if err = json.Unmarshal(response, &existingGame); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}

	return &existingGame, nil
}

// Update runs fn under WATCH on the game key and retries when another writer got there first,
// so two moves can never both be judged against the same board.
func (that *dbGame) Update(ctx context.Context, id string, fn UpdateFunc) (*entity.Game, error) {
	key := gameKey(id)

	var (
		updated *entity.Game
		fnErr   error
	)

	txf := func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrGameNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to get game: %w", err)
		}

		var game entity.Game
		if err = json.Unmarshal(response, &game); err != nil {
			return fmt.Errorf("failed to unmarshal game: %w", err)
		}

		fnErr = fn(&game)
		if errors.Is(fnErr, apperror.ErrInternal) {
			return fnErr
		}

		gameJSON, err := json.Marshal(&game)
		if err != nil {
			return fmt.Errorf("could not marshal game: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, gameJSON, 0)
			return nil
		})
		if err != nil {
			return err
		}

		updated = &game

		return nil
	}

	for range maxUpdateAttempts {
		err := that.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to update game %s: %w", id, err)
		}

		return updated, fnErr
	}

	return nil, fmt.Errorf("%w: %s", ErrUpdateConflict, id)
}

func (that *dbGame) DeleteByID(ctx context.Context, id string) error {
	deleted, err := that.client.Del(ctx, gameKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete game by ID: %w", err)
	}

	if deleted == 0 {
		return ErrGameNotFound
	}

	return nil
}

func (that *dbGame) LastSeq(ctx context.Context, pairKey string) (int, error) {
	seq, err := that.client.Get(ctx, seqKey(pairKey)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("failed to get pair sequence: %w", err)
	}

	return seq, nil
}

func (that *dbGame) NextSeq(ctx context.Context, pairKey string) (int, error) {
	seq, err := that.client.Incr(ctx, seqKey(pairKey)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment pair sequence: %w", err)
	}

	return int(seq), nil
}
