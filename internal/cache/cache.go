// Package cache provides a read-mostly TTL response cache for adapter
// results, keyed by (symbol, source, minute bucket) per the integrator's
// staleness rule, adapted from the prior cache.CacheService: same
// Redis-backed circuit breaker with graceful degradation, generalized from
// settings blobs to adapter JSON payloads.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"fusionquant/internal/config"
	"fusionquant/internal/logging"
)

// Cache wraps a Redis client with the prior circuit-breaker shape: once
// enough consecutive operations fail, it marks itself unhealthy and refuses
// further calls until a periodic health check succeeds again, so a stalled
// Redis never adds latency to the adapter fan-out.
type Cache struct {
	client *redis.Client
	ttl    time.Duration

	mu           sync.RWMutex
	healthy      bool
	failureCount int
	lastCheck    time.Time

	maxFailures   int
	checkInterval time.Duration
}

var log = logging.Default().Named("cache")

// New builds a Cache from cfg. If Redis is disabled or the initial ping
// fails, it returns a Cache in degraded mode: every Get is a guaranteed
// miss and every Set is a silent no-op, so callers never need a separate
// "is caching enabled" branch.
func New(cfg config.RedisConfig) *Cache {
	c := &Cache{
		ttl:           time.Duration(cfg.TTLSecs) * time.Second,
		maxFailures:   3,
		checkInterval: 30 * time.Second,
	}
	if c.ttl <= 0 {
		c.ttl = 60 * time.Second
	}
	if !cfg.Enabled {
		return c
	}

	c.client = redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.client.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("redis ping failed at startup, caching starts in degraded mode")
		return c
	}
	c.healthy = true
	c.lastCheck = time.Now()
	return c
}

// Key builds the (symbol, source, minute_bucket) cache key from's design
// notes: the minute bucket makes the key itself the staleness boundary,
// instead of comparing a stored timestamp on every read.
func Key(symbol, source string, at time.Time) string {
	bucket := at.UTC().Unix() / 60
	return fmt.Sprintf("adapter:%s:%s:%d", source, symbol, bucket)
}

func (c *Cache) isHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client != nil && c.healthy
}

func (c *Cache) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureCount++
	if c.failureCount >= c.maxFailures && c.healthy {
		log.Warn("cache circuit breaker open after repeated redis failures")
		c.healthy = false
	}
}

func (c *Cache) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.healthy && c.client != nil {
		log.Info("cache circuit breaker closed, redis recovered")
	}
	c.healthy = true
	c.failureCount = 0
	c.lastCheck = time.Now()
}

func (c *Cache) checkHealth(ctx context.Context) {
	c.mu.RLock()
	due := c.client != nil && !c.healthy && time.Since(c.lastCheck) >= c.checkInterval
	c.mu.RUnlock()
	if !due {
		return
	}
	go func() {
		pctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.client.Ping(pctx).Err(); err == nil {
			c.recordSuccess()
		}
	}()
}

// GetJSON retrieves and unmarshals a cached value into dest. It returns
// false on any miss, decode failure, or degraded circuit breaker state:
// callers treat a cache miss and a cache outage identically, by falling
// back to fetching fresh.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if !c.isHealthy() {
		c.checkHealth(ctx)
		return false
	}
	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.recordFailure()
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false
	}
	c.recordSuccess()
	return true
}

// SetJSON marshals and stores value under key with the cache's configured
// TTL. Failures are logged, never returned: a failed write degrades to a
// cache miss on the next read, nothing more.
func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}) {
	if !c.isHealthy() {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.recordFailure()
		return
	}
	c.recordSuccess()
}

// Close releases the underlying Redis connection, if any.
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
