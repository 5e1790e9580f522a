package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Supported backend drivers.
const (
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverS3     = "s3"
	DriverLibsql = "libsql"
	DriverMemory = "memory"
)

// Config selects and configures a backend. Field tags are read by
// caarlos0/env with the CACHE_ prefix.
type Config struct {
	Driver string `env:"DRIVER" envDefault:"file"`
	Dir    string `env:"DIR" envDefault:".newcache"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	S3 S3Config `envPrefix:"S3_"`

	LibsqlPath      string `env:"LIBSQL_PATH" envDefault:".newcache/pages.db"`
	LibsqlAuthToken string `env:"LIBSQL_AUTH_TOKEN"`
}

// Open creates the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverFile:
		return NewFileBackend(cfg.Dir)
	case DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return NewRedisBackend(client), nil
	case DriverS3:
		return NewS3Backend(ctx, cfg.S3)
	case DriverLibsql:
		return OpenLibsql(ctx, cfg.LibsqlPath, cfg.LibsqlAuthToken)
	case DriverMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported cache driver: %s (supported: file, redis, s3, libsql, memory)", cfg.Driver)
	}
}
