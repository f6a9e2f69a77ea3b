package cache

import (
	"context"
	"strings"
	"time"
)

// Cache is implemented by the in-memory and redis caches
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)
	Delete(ctx context.Context, key string)
	DeleteByPrefix(ctx context.Context, prefix string)
	Flush(ctx context.Context)
}

const (
	PrefixPricingHistory = "pricing_history:v1:"
	PrefixActiveCount    = "active_households:v1:"
)

// GenerateKey joins a prefix and its parts with ':'
func GenerateKey(prefix string, parts ...string) string {
	return prefix + strings.Join(parts, ":")
}
