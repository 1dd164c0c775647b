package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"nest-readiness/internal/common/database"
	apperrors "nest-readiness/internal/common/errors"
)

// RedisKV stores values as plain redis strings. A non-zero TTL is
// refreshed on every write.
type RedisKV struct {
	client *redis.Client
	ttl    time.Duration
	closer func() error
}

func NewRedisKV(c *database.RedisClient) *RedisKV {
	return &RedisKV{client: c.Client, ttl: c.TTL, closer: c.Close}
}

// NewRedisKVFromClient wraps an existing client, e.g. one from redismock.
func NewRedisKVFromClient(client *redis.Client, ttl time.Duration) *RedisKV {
	return &RedisKV{client: client, ttl: ttl, closer: client.Close}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.NewStorageReadError(key, err)
	}
	return v, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, r.ttl).Err(); err != nil {
		return apperrors.NewStorageWriteError(key, err)
	}
	return nil
}

func (r *RedisKV) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return apperrors.NewStorageWriteError(keys[0], err)
	}
	return nil
}

func (r *RedisKV) Name() string { return "redis" }

func (r *RedisKV) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return apperrors.NewStorageUnavailableError(r.Name(), err)
	}
	return nil
}

func (r *RedisKV) Close() error {
	return r.closer()
}
