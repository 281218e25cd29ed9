package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultNamespace = "issuebridge"

// RedisOption is a functional option for configuring the Redis cache.
type RedisOption func(*Redis)

// WithNamespace sets the key namespace prefix for Redis keys.
func WithNamespace(ns string) RedisOption {
	return func(r *Redis) {
		if ns != "" {
			r.namespace = ns
		}
	}
}

// Redis is a Cache shared between processes, with expiry handled by
// Redis itself.
type Redis struct {
	client    *redis.Client
	namespace string
	closed    atomic.Bool
}

// NewRedis connects to redisURL (e.g. "redis://localhost:6379/0").
// Returns an error if the connection cannot be established.
func NewRedis(ctx context.Context, redisURL string, opts ...RedisOption) (*Redis, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	r := &Redis{
		client:    redis.NewClient(redisOpts),
		namespace: defaultNamespace,
	}
	for _, opt := range opts {
		opt(r)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.client.Ping(pingCtx).Err(); err != nil {
		_ = r.client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return r, nil
}

func (r *Redis) key(k string) string {
	return r.namespace + ":" + k
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	if r.closed.Load() {
		return "", false, fmt.Errorf("redis cache is closed")
	}
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

// Set implements Cache.
func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if r.closed.Load() {
		return fmt.Errorf("redis cache is closed")
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	return r.client.Close()
}
