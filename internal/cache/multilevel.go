package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"
)

type Cache interface {
	Set(key string, value interface{}, ttl time.Duration) error
	Get(key string, dest interface{}) error
	Delete(key string) error
	DeletePattern(pattern string) error
	Exists(key string) (bool, error)
	Stats() map[string]interface{}
	Health() error
	Close() error
}

// DefaultL1TTL bounds how long a value promoted from redis stays in memory.
const DefaultL1TTL = 30 * time.Second

// MultiLevelCache keeps JSON snapshots in process memory and, when a redis
// tier is configured, writes through to it behind a circuit breaker. Every
// value is encoded once on Set and decoded on each Get, so readers never
// share memory with each other or with the writer. L1 entries are per
// process; another instance's invalidation reaches this one through L1
// expiry.
type MultiLevelCache struct {
	l1      *MemoryCache
	l2      *RedisCache
	l1TTL   time.Duration
	metrics *CacheMetrics
	breaker *CircuitBreaker
	warmer  *CacheWarmer
}

func NewMultiLevelCache(redisCache *RedisCache, strategy *WarmupStrategy) *MultiLevelCache {
	return &MultiLevelCache{
		l1:      NewMemoryCache(),
		l2:      redisCache,
		l1TTL:   DefaultL1TTL,
		metrics: NewCacheMetrics(),
		breaker: NewCircuitBreaker(DefaultCircuitBreakerConfig()),
		warmer:  NewCacheWarmer(strategy),
	}
}

// Set never fails because redis is down; the memory tier still holds the
// value for min(ttl, l1TTL).
func (c *MultiLevelCache) Set(key string, value interface{}, ttl time.Duration) error {
	snapshot, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value for %s: %w", key, err)
	}

	c.l1.Set(key, snapshot, c.memoryTTL(ttl))
	c.metrics.RecordSet()

	_ = c.remote(func() error {
		return c.l2.Set(key, json.RawMessage(snapshot), ttl)
	})
	return nil
}

func (c *MultiLevelCache) Get(key string, dest interface{}) error {
	if err := checkDest(dest); err != nil {
		return err
	}

	if snapshot, ok := c.l1.Get(key); ok {
		c.metrics.RecordHit()
		return json.Unmarshal(snapshot, dest)
	}

	if c.l2 == nil {
		c.metrics.RecordMiss()
		return ErrCacheMiss
	}
	var raw json.RawMessage
	if err := c.remote(func() error { return c.l2.Get(key, &raw) }); err != nil {
		c.metrics.RecordMiss()
		return ErrCacheMiss
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.metrics.RecordError()
		return fmt.Errorf("decode cached %s: %w", key, err)
	}

	c.l1.Set(key, raw, c.l1TTL)
	c.metrics.RecordHit()
	return nil
}

func (c *MultiLevelCache) Delete(key string) error {
	c.l1.Delete(key)
	c.metrics.RecordDelete()
	return c.remote(func() error { return c.l2.Delete(key) })
}

func (c *MultiLevelCache) DeletePattern(pattern string) error {
	c.l1.DeletePattern(pattern)
	return c.remote(func() error { return c.l2.DeletePattern(pattern) })
}

func (c *MultiLevelCache) Exists(key string) (bool, error) {
	if _, ok := c.l1.Get(key); ok {
		return true, nil
	}
	if c.l2 == nil {
		return false, nil
	}
	return c.l2.Exists(key)
}

func (c *MultiLevelCache) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"l1":               c.l1.Stats(),
		"metrics":          c.metrics.GetStats(),
		"hit_rate_percent": c.metrics.HitRate(),
		"circuit_breaker":  c.breaker.GetStats(),
		"warmer":           c.warmer.GetStats(),
	}
	if c.l2 != nil {
		stats["l2"] = c.l2.Stats()
	}
	return stats
}

func (c *MultiLevelCache) Health() error {
	if c.l2 == nil {
		return nil
	}
	return c.l2.Health()
}

func (c *MultiLevelCache) Close() error {
	c.warmer.Stop()
	c.l1.Close()
	if c.l2 == nil {
		return nil
	}
	return c.l2.Close()
}

func (c *MultiLevelCache) GetWarmer() *CacheWarmer {
	return c.warmer
}

// memoryTTL caps the L1 lifetime only when redis holds the authoritative copy.
func (c *MultiLevelCache) memoryTTL(ttl time.Duration) time.Duration {
	if c.l2 != nil && c.l1TTL < ttl {
		return c.l1TTL
	}
	return ttl
}

// remote runs op against redis through the breaker and is a no-op without a
// redis tier. Failures other than a miss are counted.
func (c *MultiLevelCache) remote(op func() error) error {
	if c.l2 == nil {
		return nil
	}
	err := c.breaker.Execute(op)
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		c.metrics.RecordError()
	}
	return err
}

func checkDest(dest interface{}) error {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Ptr {
		return fmt.Errorf("destination must be a pointer, got %T", dest)
	}
	if v.IsNil() {
		return fmt.Errorf("destination pointer is nil")
	}
	return nil
}
