package fx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "fx:rates:"

// Resolver is the read surface of the rate client.
type Resolver interface {
	RatesForDate(ctx context.Context, date time.Time) Table
}

// CachedResolver decorates a Resolver with a Redis cache. The underlying
// resolver keeps its per-date semantics; the cache only avoids refetching the
// same date inside the TTL window, mirroring the hourly revalidation the
// product has always used. Empty tables are never cached, so a feed outage
// does not shadow a later recovery.
type CachedResolver struct {
	source Resolver
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedResolver wraps source with a Redis cache.
func NewCachedResolver(source Resolver, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedResolver{source: source, client: client, ttl: ttl, logger: logger}
}

// RatesForDate serves from cache when possible, falling through to the
// source on any cache miss or Redis failure.
func (c *CachedResolver) RatesForDate(ctx context.Context, date time.Time) Table {
	key := cacheKeyPrefix + date.Format("2006-01-02")

	if c.client != nil {
		raw, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			var table Table
			if err := json.Unmarshal(raw, &table); err == nil {
				return table
			}
		} else if !errors.Is(err, redis.Nil) {
			c.logger.Warn("fx cache read", slog.Any("error", err))
		}
	}

	table := c.source.RatesForDate(ctx, date)
	if len(table) == 0 || c.client == nil {
		return table
	}

	raw, err := json.Marshal(table)
	if err != nil {
		return table
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("fx cache write", slog.Any("error", err))
	}
	return table
}
