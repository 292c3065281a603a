// Package store defines persistence for marketplace listings.
package store

import (
	"context"

	"cac/internal/market/models"
	"cac/pkg/domain"
)

// Store persists listings. Create assigns ids monotonically from 0; ids are
// never reused. Execute applies fn to the stored listing atomically: if fn
// returns an error nothing is committed. Missing ids surface as
// sentinel.ErrNotFound.
type Store interface {
	Create(ctx context.Context, listing *models.Listing) (int64, error)
	Get(ctx context.Context, id int64) (*models.Listing, error)
	Execute(ctx context.Context, id int64, fn func(*models.Listing) error) error

	// NextID returns the id the next Create will assign.
	NextID(ctx context.Context) (int64, error)

	// Active returns all listings still in the Created state, ordered by id.
	Active(ctx context.Context) ([]*models.Listing, error)

	// BySeller returns all listings for seller, any state, ordered by id.
	BySeller(ctx context.Context, seller domain.Address) ([]*models.Listing, error)
}
