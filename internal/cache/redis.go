package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/brfledger/utilitybilling/internal/config"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

const (
	scanCount      = 100
	unlinkBatch    = 500
	deleteAttempts = 3
	deleteWait     = 100 * time.Millisecond
)

// RedisCache stores JSON encoded values under a per-deployment key prefix.
// Failures are logged and treated as misses: the cache never fails a billing read.
type RedisCache struct {
	client     redis.Cmdable
	log        *logger.Logger
	enabled    bool
	prefix     string
	defaultTTL time.Duration
}

func NewRedisCache(client redis.Cmdable, log *logger.Logger, cfg config.CacheConfig) *RedisCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = ExpiryDefaultRedis
	}
	return &RedisCache{
		client:     client,
		log:        log,
		enabled:    cfg.Enabled,
		prefix:     cfg.KeyPrefix,
		defaultTTL: ttl,
	}
}

// Get returns the raw JSON string; UnmarshalCacheValue decodes it
func (c *RedisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	if !c.enabled {
		return nil, false
	}

	value, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Errorw("redis get failed", "key", key, "error", err)
		}
		return nil, false
	}
	return value, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) {
	if !c.enabled {
		return
	}
	if expiration <= 0 || expiration > c.defaultTTL {
		expiration = c.defaultTTL
	}

	encoded, ok := value.(string)
	if !ok {
		raw, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(value)
		if err != nil {
			c.log.Errorw("failed to encode cache value", "key", key, "error", err)
			return
		}
		encoded = string(raw)
	}

	if err := c.client.Set(ctx, c.prefix+key, encoded, expiration).Err(); err != nil {
		c.log.Errorw("redis set failed", "key", key, "error", err)
	}
}

// Delete invalidates key, retrying briefly. A stale pricing history must not outlive a pricing write.
func (c *RedisCache) Delete(ctx context.Context, key string) {
	// the write that triggered the invalidation is already committed
	ctx = context.WithoutCancel(ctx)
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(deleteWait), deleteAttempts-1),
		ctx,
	)
	err := backoff.Retry(func() error {
		return c.client.Unlink(ctx, c.prefix+key).Err()
	}, policy)
	if err != nil {
		c.log.Errorw("redis delete failed", "key", key, "attempts", deleteAttempts, "error", err)
	}
}

// DeleteByPrefix unlinks every key under prefix, in batches
func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) {
	c.unlinkMatching(ctx, c.prefix+prefix)
}

// Flush drops this deployment's keys only; other tenants of the database are untouched
func (c *RedisCache) Flush(ctx context.Context) {
	if c.prefix == "" {
		c.log.Warnw("refusing to flush redis cache without a key prefix")
		return
	}
	c.unlinkMatching(ctx, c.prefix)
}

func (c *RedisCache) unlinkMatching(ctx context.Context, prefix string) {
	pattern := escapeGlob(prefix) + "*"
	iter := c.client.Scan(ctx, 0, pattern, scanCount).Iterator()

	batch := make([]string, 0, unlinkBatch)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
			c.log.Errorw("redis batch unlink failed", "prefix", prefix, "keys", len(batch), "error", err)
		}
		batch = batch[:0]
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= unlinkBatch {
			flush()
		}
	}
	flush()

	if err := iter.Err(); err != nil {
		c.log.Errorw("redis scan failed", "prefix", prefix, "error", err)
	}
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// escapeGlob quotes the SCAN MATCH metacharacters in a literal prefix
func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
