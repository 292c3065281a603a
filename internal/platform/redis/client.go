// Package redis owns the shared Redis connection used by read caches.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"cac/internal/platform/config"
)

// Client wraps go-redis so cache constructors take the underlying client
// while main owns the connection lifecycle.
type Client struct {
	*redis.Client
}

// New connects using the configured URL. An empty URL returns a nil client
// with no error; callers treat nil as "caching disabled".
func New(cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{Client: client}, nil
}
