package database

import (
	"github.com/redis/go-redis/v9"

	"github.com/akashdesaidev/Threadspire/internal/config"
)

// NewRedis opens a client for the analytics cache. CacheTimeout bounds
// dialing as well as every read and write.
func NewRedis(cfg config.Server) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  cfg.CacheTimeout,
		ReadTimeout:  cfg.CacheTimeout,
		WriteTimeout: cfg.CacheTimeout,
	})
}
