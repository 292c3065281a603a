package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cac/internal/market/models"
	"cac/pkg/domain"
	"cac/pkg/platform/sentinel"
)

// PostgresStore persists listings in the listings table. Id assignment goes
// through the market_meta singleton row so ids start at 0 and only increase,
// independent of any sequence semantics.
type PostgresStore struct {
	db *sql.DB
}

func New(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectListing = `
	SELECT id, seller, amount, price_wei, status, created_at, closed_at
	FROM listings
	WHERE id = $1
`

func (s *PostgresStore) Create(ctx context.Context, listing *models.Listing) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin listing tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx,
		`UPDATE market_meta SET next_id = next_id + 1 WHERE singleton RETURNING next_id - 1`,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("assign listing id: %w", err)
	}

	const insert = `
		INSERT INTO listings (id, seller, amount, price_wei, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = tx.ExecContext(ctx, insert,
		id, listing.Seller.String(), listing.Amount, listing.PriceWei,
		string(listing.Status), listing.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert listing: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	listing.ID = id
	return id, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*models.Listing, error) {
	row := s.db.QueryRowContext(ctx, selectListing, id)
	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return l, nil
}

// Execute locks the row FOR UPDATE across validation and mutation; a fn error
// rolls the transaction back with no observable change.
func (s *PostgresStore) Execute(ctx context.Context, id int64, fn func(*models.Listing) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin listing tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, selectListing+" FOR UPDATE", id)
	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("lock listing: %w", err)
	}

	if err := fn(l); err != nil {
		return err
	}

	const update = `
		UPDATE listings SET status = $2, closed_at = $3 WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, update, l.ID, string(l.Status), l.ClosedAt); err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	return tx.Commit()
}

func (s *PostgresStore) NextID(ctx context.Context) (int64, error) {
	var next int64
	err := s.db.QueryRowContext(ctx, `SELECT next_id FROM market_meta WHERE singleton`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("read next listing id: %w", err)
	}
	return next, nil
}

func (s *PostgresStore) Active(ctx context.Context) ([]*models.Listing, error) {
	const query = `
		SELECT id, seller, amount, price_wei, status, created_at, closed_at
		FROM listings
		WHERE status = $1
		ORDER BY id
	`
	return s.queryListings(ctx, query, string(models.StatusCreated))
}

func (s *PostgresStore) BySeller(ctx context.Context, seller domain.Address) ([]*models.Listing, error) {
	const query = `
		SELECT id, seller, amount, price_wei, status, created_at, closed_at
		FROM listings
		WHERE seller = $1
		ORDER BY id
	`
	return s.queryListings(ctx, query, seller.String())
}

func (s *PostgresStore) queryListings(ctx context.Context, query string, arg any) ([]*models.Listing, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	var out []*models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*models.Listing, error) {
	var l models.Listing
	var seller, status string
	err := row.Scan(&l.ID, &seller, &l.Amount, &l.PriceWei, &status, &l.CreatedAt, &l.ClosedAt)
	if err != nil {
		return nil, err
	}
	l.Seller = domain.Address(seller)
	l.Status = models.Status(status)
	return &l, nil
}
