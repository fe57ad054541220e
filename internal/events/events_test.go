package events

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(connStr)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestBus_PublishSubscribe(t *testing.T) {
	rdb := newRedisClient(t)
	bus := NewBus(rdb)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sub, err := bus.SubscribeGame(ctx, "g1")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, bus.PublishGameUpdated(ctx, "other", 1))
	require.NoError(t, rdb.Publish(ctx, channel("g1"), "not json").Err())
	require.NoError(t, bus.PublishGameUpdated(ctx, "g1", 3))

	select {
	case got := <-sub.Updates():
		assert.Equal(t, GameUpdatedPayload{GameID: "g1", Moves: 3}, got)
	case <-ctx.Done():
		t.Fatal("timed out waiting for update")
	}
}

func TestSubscription_CloseEndsUpdates(t *testing.T) {
	bus := NewBus(newRedisClient(t))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sub, err := bus.SubscribeGame(ctx, "g1")
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	select {
	case _, ok := <-sub.Updates():
		assert.False(t, ok)
	case <-ctx.Done():
		t.Fatal("updates channel was not closed")
	}
}
