// Package cache stores serialized snapshots with a TTL, in Redis when one is
// reachable and in process memory otherwise.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/fleetpower/internal/config"
	"github.com/okian/fleetpower/pkg/logger"
)

// Backend names reported by Name and used as metric labels.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache is a byte-valued TTL cache.
type Cache interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

const pingTimeout = 5 * time.Second

// New picks the backend from configuration. An unreachable Redis falls back to
// memory so a cache outage never stops scoring.
func New(ctx context.Context, cfg *config.Config) Cache {
	log := logger.Get().Named("cache")
	if cfg.RedisAddr == "" {
		log.Info(ctx, "redis address not configured, using in-memory cache")
		return NewMemory()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  pingTimeout,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		MaxRetries:   2,
	})

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		log.Warn(ctx, "redis unreachable, using in-memory cache",
			logger.String("addr", cfg.RedisAddr), logger.Error(err))
		_ = client.Close()
		return NewMemory()
	}

	log.Info(ctx, "redis cache connected", logger.String("addr", cfg.RedisAddr))
	return NewRedis(client)
}
