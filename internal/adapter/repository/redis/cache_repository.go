package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/V4T54L/floor-sync/internal/adapter/metrics"
	"github.com/redis/go-redis/v9"
)

// CacheRepository implements domain.Cache on top of Redis. Values are stored as
// JSON. Failures never reach the caller: reads become misses, writes are dropped.
type CacheRepository struct {
	client      *redis.Client
	logger      *slog.Logger
	metrics     *metrics.SyncMetrics
	isAvailable atomic.Bool
}

// NewCacheRepository creates a new Redis-backed cache.
func NewCacheRepository(client *redis.Client, logger *slog.Logger, m *metrics.SyncMetrics) *CacheRepository {
	c := &CacheRepository{
		client:  client,
		logger:  logger.With("component", "redis_cache"),
		metrics: m,
	}
	c.setAvailable(true) // Assume available initially
	return c
}

// Available reports the last known state of the Redis connection.
func (c *CacheRepository) Available() bool {
	return c.isAvailable.Load()
}

// StartHealthCheck pings Redis every interval and flips the availability flag.
// While unavailable, reads and writes return immediately without touching the
// network. Deletes are always attempted.
func (c *CacheRepository) StartHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info("Starting Redis cache health check")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Stopping Redis cache health check")
			return
		case <-ticker.C:
			c.probe(ctx)
		}
	}
}

func (c *CacheRepository) probe(ctx context.Context) {
	if err := c.client.Ping(ctx).Err(); err != nil {
		if c.isAvailable.CompareAndSwap(true, false) {
			c.logger.Error("Redis connection lost", "error", err)
			c.setAvailable(false)
		}
		return
	}
	if c.Available() {
		return
	}
	// Invalidations may have been lost while Redis was unreachable.
	if err := c.flush(ctx); err != nil {
		c.logger.Error("Failed to flush cache after reconnect", "error", err)
		return
	}
	if c.isAvailable.CompareAndSwap(false, true) {
		c.logger.Info("Redis connection recovered")
		c.setAvailable(true)
	}
}

// flush deletes every key of every cache family.
func (c *CacheRepository) flush(ctx context.Context) error {
	for _, prefix := range cacheFamilies {
		var cursor uint64
		for {
			keys, next, err := c.client.Scan(ctx, cursor, prefix+"*", 100).Result()
			if err != nil {
				return fmt.Errorf("failed to scan keys matching %s*: %w", prefix, err)
			}
			if len(keys) > 0 {
				if err := c.client.Del(ctx, keys...).Err(); err != nil {
					return fmt.Errorf("failed to delete keys matching %s*: %w", prefix, err)
				}
			}
			if next == 0 {
				break
			}
			cursor = next
		}
	}
	return nil
}

// Get decodes the value at key into dest and reports whether it was found.
func (c *CacheRepository) Get(ctx context.Context, key string, dest any) bool {
	if !c.Available() {
		c.miss()
		return false
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.miss()
		return false
	}
	if err != nil {
		c.fail("get", key, err)
		c.miss()
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn("Failed to decode cached value, treating as miss", "key", key, "error", err)
		c.miss()
		return false
	}

	if c.metrics != nil {
		c.metrics.CacheHits.Inc()
	}
	return true
}

// Set stores value at key for ttl.
func (c *CacheRepository) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if !c.Available() {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("Failed to marshal cache value", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		c.fail("set", key, err)
	}
}

// Delete removes every key in one round trip. It runs even while the flag is
// down, since a skipped invalidation would outlive the outage.
func (c *CacheRepository) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.fail("delete", keys[0], err)
	}
}

func (c *CacheRepository) miss() {
	if c.metrics != nil {
		c.metrics.CacheMisses.Inc()
	}
}

func (c *CacheRepository) fail(op, key string, err error) {
	if c.metrics != nil {
		c.metrics.CacheErrors.Inc()
	}
	if isNetworkError(err) && c.isAvailable.CompareAndSwap(true, false) {
		c.logger.Error("Redis connection lost during cache "+op, "key", key, "error", err)
		c.setAvailable(false)
		return
	}
	c.logger.Warn("Cache operation failed", "op", op, "key", key, "error", err)
}

func (c *CacheRepository) setAvailable(ok bool) {
	c.isAvailable.Store(ok)
	if c.metrics == nil {
		return
	}
	if ok {
		c.metrics.CacheAvailable.Set(1)
	} else {
		c.metrics.CacheAvailable.Set(0)
	}
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed)
}
