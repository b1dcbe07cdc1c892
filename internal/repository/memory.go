package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/othello-backend/internal/apperror"
	"github.com/rocketscienceinc/othello-backend/internal/entity"
)

// memoryGame keeps games in process. Stored values are copies, so callers never share
// a *entity.Game with the store.
type memoryGame struct {
	mu    sync.Mutex
	games map[string]entity.Game
	seqs  map[string]int
}

func NewMemoryGameRepository() GameRepository {
	return &memoryGame{
		games: make(map[string]entity.Game),
		seqs:  make(map[string]int),
	}
}

func (that *memoryGame) Create(_ context.Context, game *entity.Game) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.games[game.ID]; ok {
		return fmt.Errorf("%w: %s", ErrGameAlreadyExists, game.ID)
	}

	that.games[game.ID] = *game

	return nil
}

func (that *memoryGame) GetByID(_ context.Context, id string) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	game, ok := that.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}

	return &game, nil
}

func (that *memoryGame) Update(_ context.Context, id string, fn UpdateFunc) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	game, ok := that.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}

	err := fn(&game)
	if errors.Is(err, apperror.ErrInternal) {
		return nil, err
	}

	that.games[id] = game

	return &game, err
}

func (that *memoryGame) DeleteByID(_ context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.games[id]; !ok {
		return ErrGameNotFound
	}

	delete(that.games, id)

	return nil
}

func (that *memoryGame) LastSeq(_ context.Context, pairKey string) (int, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.seqs[pairKey], nil
}

func (that *memoryGame) NextSeq(_ context.Context, pairKey string) (int, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.seqs[pairKey]++

	return that.seqs[pairKey], nil
}

type memoryPlayer struct {
	mu      sync.Mutex
	players map[string]entity.Player
}

func NewMemoryPlayerRepository() PlayerRepository {
	return &memoryPlayer{
		players: make(map[string]entity.Player),
	}
}

func (that *memoryPlayer) GetOrCreateByName(_ context.Context, name string) (*entity.Player, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	player, ok := that.players[name]
	if !ok {
		player = entity.Player{
			ID:   uuid.NewString(),
			Name: name,
		}
		that.players[name] = player
	}

	return &player, nil
}

func (that *memoryPlayer) GetByName(_ context.Context, name string) (*entity.Player, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	player, ok := that.players[name]
	if !ok {
		return nil, ErrPlayerNotFound
	}

	return &player, nil
}
