// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"nest-readiness/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the Redis client together with the key TTL taken from
// config.
type RedisClient struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewRedis creates a new Redis client. It does not dial; call Ping to
// check the connection.
func NewRedis(cfg config.RedisConfig) *RedisClient {
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

	return &RedisClient{
		Client: rdb,
		TTL:    time.Duration(cfg.TTL) * time.Second,
	}
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
