package db

import (
	"context"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient connects to the Redis server named by the REDIS_CONNSTRING
// environment variable. An empty variable means no store is configured and
// (nil, nil) is returned; the server then runs purely in-memory.
func NewRedisClient(ctx context.Context) (*redis.Client, error) {
	redisAddr := os.Getenv("REDIS_CONNSTRING")
	if redisAddr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}
