package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"

	"github.com/benallfree/vibescale-sub000/internal/player"
)

var tracer = otel.Tracer("repository.player")

// PlayerRepository persists last-known player state so it can survive a room
// restart. Every call is best effort: the room functions fully in-memory
// when the store is absent or slow, and never waits on it in the broadcast
// path.
type PlayerRepository interface {
	LoadPlayer(ctx context.Context, id string) (*player.State, error)
	SavePlayer(ctx context.Context, state player.State) error
	DeletePlayer(ctx context.Context, id string) error
}

type redisPlayerRepository struct {
	rdb *redis.Client
}

// NewPlayerRepository creates a new Redis-based PlayerRepository.
func NewPlayerRepository(rdb *redis.Client) PlayerRepository {
	return &redisPlayerRepository{rdb: rdb}
}

func playerKey(id string) string {
	return fmt.Sprintf("player:%s", id)
}

// LoadPlayer retrieves a player's last saved state.
func (r *redisPlayerRepository) LoadPlayer(ctx context.Context, id string) (*player.State, error) {
	ctx, span := tracer.Start(ctx, "PlayerRepository.LoadPlayer")
	defer span.End()

	data, err := r.rdb.Get(ctx, playerKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load player state from redis: %w", err)
	}

	var st player.State
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player state: %w", err)
	}
	return &st, nil
}

// SavePlayer writes a player's current state. The isLocal projection is
// stripped before persisting; it is never part of canonical state.
func (r *redisPlayerRepository) SavePlayer(ctx context.Context, state player.State) error {
	ctx, span := tracer.Start(ctx, "PlayerRepository.SavePlayer")
	defer span.End()

	state.IsLocal = false
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal player state: %w", err)
	}
	return r.rdb.Set(ctx, playerKey(state.ID), data, 0).Err()
}

// DeletePlayer removes a player's saved state after disconnect.
func (r *redisPlayerRepository) DeletePlayer(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "PlayerRepository.DeletePlayer")
	defer span.End()

	return r.rdb.Del(ctx, playerKey(id)).Err()
}

// NoopPlayerRepository is used when no Redis instance is configured. The
// server runs purely in-memory.
type NoopPlayerRepository struct{}

func (NoopPlayerRepository) LoadPlayer(ctx context.Context, id string) (*player.State, error) {
	return nil, nil
}

func (NoopPlayerRepository) SavePlayer(ctx context.Context, state player.State) error { return nil }

func (NoopPlayerRepository) DeletePlayer(ctx context.Context, id string) error { return nil }
