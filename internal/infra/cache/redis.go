package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/akashdesaidev/Threadspire/internal/domain"
)

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Load returns nil without error on a miss. Corrupt entries are dropped
// and reported as misses.
func (c *RedisCache) Load(ctx context.Context, userID string) (*domain.Analytics, error) {
	data, err := c.client.Get(ctx, key(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get")
	}
	a, err := decode(data)
	if errors.Is(err, errCorrupt) {
		return nil, c.Invalidate(ctx, userID)
	}
	return a, err
}

func (c *RedisCache) Store(ctx context.Context, userID string, analytics domain.Analytics) error {
	data, err := encode(analytics)
	if err != nil {
		return err
	}
	return errors.Wrap(c.client.Set(ctx, key(userID), data, c.ttl).Err(), "redis set")
}

func (c *RedisCache) Invalidate(ctx context.Context, userID string) error {
	return errors.Wrap(c.client.Del(ctx, key(userID)).Err(), "redis del")
}
