package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"registrar/pkg/domain"
)

const (
	// Redis key prefix for cached rent quotes
	quoteKeyPrefix = "quote:"

	// DefaultQuoteTTL bounds staleness after a pricing config change.
	DefaultQuoteTTL = 5 * time.Minute
)

// QuoteCache caches rent quotes keyed by name length and lease duration.
// Pricing depends only on those two inputs, so the keyspace stays small.
type QuoteCache interface {
	Get(ctx context.Context, nameLen int, duration time.Duration) (domain.Amount, bool, error)
	Set(ctx context.Context, nameLen int, duration time.Duration, cost domain.Amount) error
}

// RedisQuoteCache is a Redis-backed QuoteCache for distributed deployments
// where multiple instances share one pricing table.
type RedisQuoteCache struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisQuoteCacheOption configures a RedisQuoteCache instance.
type RedisQuoteCacheOption func(*RedisQuoteCache)

// WithTTL overrides the default quote expiry.
func WithTTL(ttl time.Duration) RedisQuoteCacheOption {
	return func(c *RedisQuoteCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// NewRedisQuoteCache constructs a Redis-backed quote cache.
func NewRedisQuoteCache(client *redis.Client, opts ...RedisQuoteCacheOption) *RedisQuoteCache {
	c := &RedisQuoteCache{
		client: client,
		ttl:    DefaultQuoteTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func quoteKey(nameLen int, duration time.Duration) string {
	return fmt.Sprintf("%s%d:%d", quoteKeyPrefix, nameLen, int64(duration.Seconds()))
}

// Get returns the cached quote for the given name length and duration.
// The second return value reports whether a cached value was found.
func (c *RedisQuoteCache) Get(ctx context.Context, nameLen int, duration time.Duration) (domain.Amount, bool, error) {
	raw, err := c.client.Get(ctx, quoteKey(nameLen, duration)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	cost, err := domain.ParseAmount(raw)
	if err != nil {
		// Treat an unparsable entry as a miss; it will be overwritten.
		return 0, false, nil
	}
	return cost, true, nil
}

// Set stores a quote with the configured TTL.
func (c *RedisQuoteCache) Set(ctx context.Context, nameLen int, duration time.Duration, cost domain.Amount) error {
	return c.client.Set(ctx, quoteKey(nameLen, duration), cost.String(), c.ttl).Err()
}
