// Package rediscache wraps a profile store with a Redis read cache. Profile
// reads gate every transfer and surrender, so they dominate store traffic;
// the cache bounds that load while mutations invalidate eagerly.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"cac/internal/registry/models"
	"cac/internal/registry/store"
	"cac/pkg/domain"
)

// CachedStore layers Redis over an underlying Store. Cache failures degrade
// to the underlying store, never to an error.
type CachedStore struct {
	inner  store.Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func New(inner store.Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	return &CachedStore{inner: inner, client: client, ttl: ttl, logger: logger}
}

func key(account domain.Address) string {
	return "cac:profile:" + account.String()
}

func (c *CachedStore) Get(ctx context.Context, account domain.Address) (*models.Profile, error) {
	raw, err := c.client.Get(ctx, key(account)).Bytes()
	if err == nil {
		var p models.Profile
		if err := json.Unmarshal(raw, &p); err == nil {
			return &p, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.WarnContext(ctx, "profile cache read failed", "error", err)
	}

	p, err := c.inner.Get(ctx, account)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, p)
	return p, nil
}

func (c *CachedStore) Put(ctx context.Context, profile *models.Profile) error {
	if err := c.inner.Put(ctx, profile); err != nil {
		return err
	}
	c.invalidate(ctx, profile.Account)
	return nil
}

func (c *CachedStore) Execute(ctx context.Context, account domain.Address, fn func(*models.Profile) error) error {
	if err := c.inner.Execute(ctx, account, fn); err != nil {
		return err
	}
	c.invalidate(ctx, account)
	return nil
}

func (c *CachedStore) fill(ctx context.Context, profile *models.Profile) {
	raw, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(profile.Account), raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "profile cache fill failed", "error", err)
	}
}

func (c *CachedStore) invalidate(ctx context.Context, account domain.Address) {
	if err := c.client.Del(ctx, key(account)).Err(); err != nil {
		c.logger.WarnContext(ctx, "profile cache invalidation failed",
			"account", account,
			"error", fmt.Errorf("del: %w", err),
		)
	}
}
