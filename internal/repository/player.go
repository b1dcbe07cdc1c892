package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/othello-backend/internal/entity"
)

var ErrPlayerNotFound = errors.New("player not found")

type PlayerRepository interface {
	GetOrCreateByName(ctx context.Context, name string) (*entity.Player, error)
	GetByName(ctx context.Context, name string) (*entity.Player, error)
}

type dbPlayer struct {
	client *redis.Client
}

func NewPlayerRepository(client *redis.Client) PlayerRepository {
	return &dbPlayer{
		client: client,
	}
}

func playerKey(name string) string {
	return "player:" + name
}

func (that *dbPlayer) GetOrCreateByName(ctx context.Context, name string) (*entity.Player, error) {
	player := &entity.Player{
		ID:   uuid.NewString(),
		Name: name,
	}

	playerJSON, err := json.Marshal(player)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal player: %w", err)
	}

	created, err := that.client.SetNX(ctx, playerKey(name), playerJSON, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to set player: %w", err)
	}

	if created {
		return player, nil
	}

	return that.GetByName(ctx, name)
}

func (that *dbPlayer) GetByName(ctx context.Context, name string) (*entity.Player, error) {
	response, err := that.client.Get(ctx, playerKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrPlayerNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get player by name: %w", err)
	}

	var existingPlayer entity.Player
	if err = json.Unmarshal(response, &existingPlayer); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player: %w", err)
	}

	return &existingPlayer, nil
}
