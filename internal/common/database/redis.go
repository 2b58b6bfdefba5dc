// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"shopping-agent-gateway/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the Redis client
type RedisClient struct {
	Client *redis.Client
}

// NewRedis creates a new Redis client
func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	return &RedisClient{Client: rdb}, nil
}

// Ping tests the Redis connection
func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

// AppendBounded pushes values onto a list, keeps only the newest maxLen
// entries and refreshes the key TTL in one round trip.
func (c *RedisClient) AppendBounded(ctx context.Context, key string, maxLen int, ttl time.Duration, values ...interface{}) error {
	pipe := c.Client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	if maxLen > 0 {
		pipe.LTrim(ctx, key, int64(-maxLen), -1)
	}
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append %s: %w", key, err)
	}
	return nil
}

// Tail returns the last n list entries, oldest first.
func (c *RedisClient) Tail(ctx context.Context, key string, n int) ([]string, error) {
	start := int64(0)
	if n > 0 {
		start = int64(-n)
	}
	values, err := c.Client.LRange(ctx, key, start, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("redis lrange %s: %w", key, err)
	}
	return values, nil
}

// Del deletes one or more keys
func (c *RedisClient) Del(ctx context.Context, keys ...string) error {
	return c.Client.Del(ctx, keys...).Err()
}

// GetClient returns the underlying *redis.Client for compatibility
func (c *RedisClient) GetClient() *redis.Client {
	return c.Client
}
