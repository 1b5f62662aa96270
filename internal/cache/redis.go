package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

type CacheConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	KeyPrefix    string
	OpTimeout    time.Duration
}

func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		KeyPrefix:    "taskboard:",
		OpTimeout:    2 * time.Second,
	}
}

// RedisCache is the shared L2 tier. Values are stored as JSON.
type RedisCache struct {
	client *redis.Client
	config *CacheConfig
}

func NewRedisCache(config *CacheConfig) (*RedisCache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	rc := &RedisCache{client: client, config: config}
	if err := rc.Health(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.Addr, err)
	}
	return rc, nil
}

func (r *RedisCache) key(k string) string {
	return r.config.KeyPrefix + k
}

func (r *RedisCache) ctx() (context.Context, context.CancelFunc) {
	timeout := r.config.OpTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

func (r *RedisCache) Set(key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value for %s: %w", key, err)
	}

	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.Set(ctx, r.key(key), data, ttl).Err()
}

func (r *RedisCache) Get(key string, dest interface{}) error {
	ctx, cancel := r.ctx()
	defer cancel()

	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (r *RedisCache) Delete(key string) error {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *RedisCache) DeletePattern(pattern string) error {
	ctx, cancel := r.ctx()
	defer cancel()

	iter := r.client.Scan(ctx, 0, r.key(pattern), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisCache) Exists(key string) (bool, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisCache) Stats() map[string]interface{} {
	ps := r.client.PoolStats()
	return map[string]interface{}{
		"type":        "redis",
		"addr":        r.config.Addr,
		"hits":        ps.Hits,
		"misses":      ps.Misses,
		"timeouts":    ps.Timeouts,
		"total_conns": ps.TotalConns,
		"idle_conns":  ps.IdleConns,
		"stale_conns": ps.StaleConns,
	}
}

func (r *RedisCache) Health() error {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
