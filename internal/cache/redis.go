// Package cache provides Redis caching utilities for the application.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"minifeed/internal/middleware"

	"github.com/redis/go-redis/v9"
)

var (
	mu     sync.RWMutex
	client *redis.Client
)

type metricsHook struct{}

func (metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			middleware.RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			middleware.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// NewClient builds a Redis client from a host:port address or a redis:// URL.
func NewClient(addr string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	rdb := redis.NewClient(opts)
	rdb.AddHook(metricsHook{})
	return rdb, nil
}

// InitRedis connects to Redis and installs the client as the process cache. When Redis
// is unreachable the application keeps running without a cache and InitRedis returns nil.
func InitRedis(addr string) *redis.Client {
	rdb, err := NewClient(addr)
	if err != nil {
		middleware.Logger.Warn("Invalid REDIS_URL, continuing without cache",
			slog.String("addr", addr), slog.String("error", err.Error()))
		SetClient(nil)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("Redis unreachable, continuing without cache", slog.String("error", err.Error()))
		_ = rdb.Close()
		SetClient(nil)
		return nil
	}

	middleware.Logger.Info("Redis connected successfully")
	SetClient(rdb)
	return rdb
}

// SetClient replaces the process cache client. nil disables caching.
func SetClient(rdb *redis.Client) {
	mu.Lock()
	client = rdb
	mu.Unlock()
}

// GetClient returns the current Redis client instance.
func GetClient() *redis.Client {
	mu.RLock()
	defer mu.RUnlock()
	return client
}
