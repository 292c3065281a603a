package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cac/internal/registry/models"
	"cac/pkg/domain"
	"cac/pkg/platform/sentinel"
)

// PostgresStore persists profiles in the profiles table.
type PostgresStore struct {
	db *sql.DB
}

func New(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectProfile = `
	SELECT account, display_name, tax_id_hash, metadata_uri, docs_uri,
	       kyc_approved, kyc_note, registered_at, updated_at
	FROM profiles
	WHERE account = $1
`

func (s *PostgresStore) Get(ctx context.Context, account domain.Address) (*models.Profile, error) {
	row := s.db.QueryRowContext(ctx, selectProfile, account.String())
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Put(ctx context.Context, profile *models.Profile) error {
	const upsert = `
		INSERT INTO profiles (
			account, display_name, tax_id_hash, metadata_uri, docs_uri,
			kyc_approved, kyc_note, registered_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (account) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			tax_id_hash = EXCLUDED.tax_id_hash,
			metadata_uri = EXCLUDED.metadata_uri,
			docs_uri = EXCLUDED.docs_uri,
			kyc_approved = EXCLUDED.kyc_approved,
			kyc_note = EXCLUDED.kyc_note,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, upsert,
		profile.Account.String(), profile.DisplayName, profile.TaxIDHash.String(),
		profile.MetadataURI, profile.DocsURI, profile.KycApproved, profile.KycNote,
		profile.RegisteredAt, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

// Execute locks the row FOR UPDATE across validation and mutation; a fn error
// rolls the transaction back with no observable change.
func (s *PostgresStore) Execute(ctx context.Context, account domain.Address, fn func(*models.Profile) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin profile tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, selectProfile+" FOR UPDATE", account.String())
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("lock profile: %w", err)
	}

	if err := fn(p); err != nil {
		return err
	}

	const update = `
		UPDATE profiles SET
			display_name = $2, tax_id_hash = $3, metadata_uri = $4,
			docs_uri = $5, kyc_approved = $6, kyc_note = $7, updated_at = $8
		WHERE account = $1
	`
	_, err = tx.ExecContext(ctx, update,
		p.Account.String(), p.DisplayName, p.TaxIDHash.String(), p.MetadataURI,
		p.DocsURI, p.KycApproved, p.KycNote, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	var p models.Profile
	var account, taxIDHash string
	err := row.Scan(
		&account, &p.DisplayName, &taxIDHash, &p.MetadataURI, &p.DocsURI,
		&p.KycApproved, &p.KycNote, &p.RegisteredAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Account = domain.Address(account)
	p.TaxIDHash = domain.Hash32(taxIDHash)
	p.Exists = true
	return &p, nil
}
