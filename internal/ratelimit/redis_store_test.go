package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	client.FlushDB(ctx)

	t.Cleanup(func() {
		client.FlushDB(ctx)
		client.Close()
	})

	return client
}

func TestRedisStore_Acquire(t *testing.T) {
	client := setupTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	allowed, _, err := store.Acquire(ctx, "user-1", time.Now(), time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "first acquire should pass")

	allowed, retryAfter, err := store.Acquire(ctx, "user-1", time.Now(), time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed, "second acquire inside the window should be denied")
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.LessOrEqual(t, retryAfter, time.Minute)
}

func TestRedisStore_ShortWindowExpires(t *testing.T) {
	client := setupTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	allowed, _, err := store.Acquire(ctx, "user-1", time.Now(), 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, allowed)

	time.Sleep(80 * time.Millisecond)

	allowed, _, err = store.Acquire(ctx, "user-1", time.Now(), 50*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed, "the key must expire with the window")
}
