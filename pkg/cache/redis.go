package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix namespaces page entries in a shared Redis.
const RedisKeyPrefix = "airtable-proxy:"

// RedisBackend stores entries as plain Redis strings without TTL.
type RedisBackend struct {
	redis *redis.Client
}

// NewRedisBackend creates a backend on an existing Redis client.
func NewRedisBackend(redisClient *redis.Client) *RedisBackend {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisBackend{redis: redisClient}
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) Read(ctx context.Context, key Key) ([]byte, error) {
	data, err := b.redis.Get(ctx, RedisKeyPrefix+key.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

func (b *RedisBackend) Write(ctx context.Context, key Key, data []byte) error {
	if err := b.redis.Set(ctx, RedisKeyPrefix+key.String(), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, key Key) error {
	n, err := b.redis.Del(ctx, RedisKeyPrefix+key.String()).Result()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.redis.Ping(ctx).Err()
}

func (b *RedisBackend) Close() error {
	return b.redis.Close()
}
