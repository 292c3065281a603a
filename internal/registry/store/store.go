// Package store defines the profile persistence interface shared by the
// memory, postgres and cached implementations.
package store

import (
	"context"

	"cac/internal/registry/models"
	"cac/pkg/domain"
)

// Store persists profiles. Implementations return sentinel.ErrNotFound for
// missing accounts; services translate to coded errors.
type Store interface {
	// Get returns the profile for account.
	Get(ctx context.Context, account domain.Address) (*models.Profile, error)

	// Put upserts a profile. Used for first registration and bootstrap.
	Put(ctx context.Context, profile *models.Profile) error

	// Execute atomically applies fn to the stored profile. The store holds
	// its lock (mutex or FOR UPDATE) across validation and mutation; a fn
	// error aborts with no observable change.
	Execute(ctx context.Context, account domain.Address, fn func(*models.Profile) error) error
}
