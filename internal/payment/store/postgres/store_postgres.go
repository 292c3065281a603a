package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cac/pkg/domain"
	dErrors "cac/pkg/domain-errors"
)

// PostgresStore persists wei balances in payment_accounts, one transaction
// with FOR UPDATE locks per mutation.
type PostgresStore struct {
	db *sql.DB
}

func New(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Credit(ctx context.Context, account domain.Address, wei int64) error {
	if wei <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "wei amount must be positive")
	}
	const upsert = `
		INSERT INTO payment_accounts (account, balance_wei)
		VALUES ($1, $2)
		ON CONFLICT (account) DO UPDATE SET balance_wei = payment_accounts.balance_wei + EXCLUDED.balance_wei
	`
	if _, err := s.db.ExecContext(ctx, upsert, account.String(), wei); err != nil {
		return fmt.Errorf("credit payment account: %w", err)
	}
	return nil
}

func (s *PostgresStore) Debit(ctx context.Context, account domain.Address, wei int64) error {
	if wei <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "wei amount must be positive")
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return debit(ctx, tx, account, wei)
	})
}

func (s *PostgresStore) Transfer(ctx context.Context, from, to domain.Address, wei int64) error {
	if wei <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "wei amount must be positive")
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := debit(ctx, tx, from, wei); err != nil {
			return err
		}
		const upsert = `
			INSERT INTO payment_accounts (account, balance_wei)
			VALUES ($1, $2)
			ON CONFLICT (account) DO UPDATE SET balance_wei = payment_accounts.balance_wei + EXCLUDED.balance_wei
		`
		if _, err := tx.ExecContext(ctx, upsert, to.String(), wei); err != nil {
			return fmt.Errorf("credit payment account: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) BalanceOf(ctx context.Context, account domain.Address) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx,
		`SELECT balance_wei FROM payment_accounts WHERE account = $1`, account.String(),
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read payment account: %w", err)
	}
	return balance, nil
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin payment tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func debit(ctx context.Context, tx *sql.Tx, account domain.Address, wei int64) error {
	const lock = `SELECT balance_wei FROM payment_accounts WHERE account = $1 FOR UPDATE`
	var balance int64
	err := tx.QueryRowContext(ctx, lock, account.String()).Scan(&balance)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lock payment account: %w", err)
	}
	if balance < wei {
		return dErrors.New(dErrors.CodeInsufficientPayment, "payment balance does not cover amount")
	}
	const update = `UPDATE payment_accounts SET balance_wei = balance_wei - $2 WHERE account = $1`
	if _, err := tx.ExecContext(ctx, update, account.String(), wei); err != nil {
		return fmt.Errorf("debit payment account: %w", err)
	}
	return nil
}
