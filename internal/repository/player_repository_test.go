package repository

import (
	"context"
	"testing"

	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/benallfree/vibescale-sub000/internal/geo"
	"github.com/benallfree/vibescale-sub000/internal/player"
)

func TestRedisPlayerRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(ctx) })

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := goredis.ParseURL(uri)
	require.NoError(t, err)
	rdb := goredis.NewClient(opts)
	t.Cleanup(func() { rdb.Close() })

	repo := NewPlayerRepository(rdb)

	t.Run("Load missing player", func(t *testing.T) {
		st, err := repo.LoadPlayer(ctx, "nope")
		require.NoError(t, err)
		require.Nil(t, st)
	})

	t.Run("Save and load round trip", func(t *testing.T) {
		in := player.State{
			ID:          "p1",
			Position:    geo.Vector3{X: 1.5, Z: -2},
			Color:       "hsl(200, 80%, 50%)",
			Username:    "kira",
			IsConnected: true,
			IsLocal:     true, // must be stripped on save
		}
		require.NoError(t, repo.SavePlayer(ctx, in))

		out, err := repo.LoadPlayer(ctx, "p1")
		require.NoError(t, err)
		require.NotNil(t, out)
		require.Equal(t, in.Position, out.Position)
		require.Equal(t, in.Color, out.Color)
		require.False(t, out.IsLocal, "isLocal is a projection and must not be persisted")
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.DeletePlayer(ctx, "p1"))
		st, err := repo.LoadPlayer(ctx, "p1")
		require.NoError(t, err)
		require.Nil(t, st)
	})
}
