package database

import (
	"github.com/bradfitz/gomemcache/memcache"

	"github.com/akashdesaidev/Threadspire/internal/config"
)

func NewMemcached(cfg config.Server) *memcache.Client {
	client := memcache.New(cfg.MemcachedAddr)
	if cfg.CacheTimeout > 0 {
		client.Timeout = cfg.CacheTimeout
	}
	return client
}
