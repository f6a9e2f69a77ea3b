package cache

import (
	"github.com/brfledger/utilitybilling/internal/config"
	"github.com/brfledger/utilitybilling/internal/logger"
	redisClient "github.com/brfledger/utilitybilling/internal/redis"
)

// CacheType represents the type of cache to use
type CacheType string

const (
	// CacheTypeInMemory represents an in-memory cache
	CacheTypeInMemory CacheType = "inmemory"

	// CacheTypeRedis represents a Redis-backed cache
	CacheTypeRedis CacheType = "redis"
)

// Initialize picks the cache backend from configuration.
// The redis client is only required when cache.type is redis; a nil client falls back to memory.
func Initialize(cfg *config.Configuration, log *logger.Logger, rc *redisClient.Client) Cache {
	var c Cache

	switch CacheType(cfg.Cache.Type) {
	case CacheTypeRedis:
		if rc == nil {
			log.Warnw("redis cache requested without a redis client, using in-memory cache")
			c = GetInMemoryCache()
			break
		}
		c = NewRedisCache(rc.GetClient(), log, cfg.Cache)
	case CacheTypeInMemory:
		fallthrough
	default:
		c = GetInMemoryCache()
	}

	log.Infow("cache system initialized", "type", cfg.Cache.Type, "enabled", cfg.Cache.Enabled)
	return c
}
