package cache

import (
	"context"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"

	"github.com/akashdesaidev/Threadspire/internal/domain"
)

type MemcachedCache struct {
	client *memcache.Client
	ttl    time.Duration
}

func NewMemcachedCache(client *memcache.Client, ttl time.Duration) *MemcachedCache {
	return &MemcachedCache{client: client, ttl: ttl}
}

func (c *MemcachedCache) Load(ctx context.Context, userID string) (*domain.Analytics, error) {
	item, err := c.client.Get(key(userID))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "memcached get")
	}
	a, err := decode(item.Value)
	if errors.Is(err, errCorrupt) {
		return nil, c.Invalidate(ctx, userID)
	}
	return a, err
}

func (c *MemcachedCache) Store(ctx context.Context, userID string, analytics domain.Analytics) error {
	data, err := encode(analytics)
	if err != nil {
		return err
	}
	return errors.Wrap(c.client.Set(&memcache.Item{
		Key:        key(userID),
		Value:      data,
		Expiration: int32(c.ttl / time.Second),
	}), "memcached set")
}

func (c *MemcachedCache) Invalidate(ctx context.Context, userID string) error {
	err := c.client.Delete(key(userID))
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return errors.Wrap(err, "memcached delete")
	}
	return nil
}
