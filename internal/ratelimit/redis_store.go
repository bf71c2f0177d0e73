package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements the cooldown on Redis so multiple bot instances share
// one window per user.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore constructs a store on an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "ticket_cooldown:"}
}

func (s *RedisStore) Acquire(ctx context.Context, userID string, _ time.Time, window time.Duration) (bool, time.Duration, error) {
	key := s.prefix + userID

	set, err := s.client.SetNX(ctx, key, 1, window).Result()
	if err != nil {
		return false, 0, err
	}
	if set {
		return true, 0, nil
	}

	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		return false, window, err
	}
	return false, ttl, nil
}
