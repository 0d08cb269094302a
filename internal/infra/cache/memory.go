package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/akashdesaidev/Threadspire/internal/domain"
)

// MemoryCache keeps summaries in process. It is the default for single
// instance deployments.
type MemoryCache struct {
	cache *gocache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{cache: gocache.New(ttl, 2*ttl)}
}

func (c *MemoryCache) Load(_ context.Context, userID string) (*domain.Analytics, error) {
	cached, found := c.cache.Get(key(userID))
	if !found {
		return nil, nil
	}
	a := cached.(domain.Analytics)
	return &a, nil
}

func (c *MemoryCache) Store(_ context.Context, userID string, analytics domain.Analytics) error {
	c.cache.Set(key(userID), analytics, gocache.DefaultExpiration)
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, userID string) error {
	c.cache.Delete(key(userID))
	return nil
}
