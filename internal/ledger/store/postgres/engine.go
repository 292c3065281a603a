package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cac/pkg/domain"
	dErrors "cac/pkg/domain-errors"
)

// PostgresEngine persists accounting state in ledger_accounts and
// ledger_allowances. Each operation runs in one transaction with FOR UPDATE
// row locks, so concurrent mutations serialize per account and commit in
// full or not at all. This is the SQL analogue of the in-memory engine's
// single write lock.
//
// Total supply is not stored; it is SUM(balance), which keeps conservation
// true by construction.
type PostgresEngine struct {
	db *sql.DB
}

func New(db *sql.DB) *PostgresEngine {
	return &PostgresEngine{db: db}
}

func (e *PostgresEngine) Mint(ctx context.Context, account domain.Address, amount int64) error {
	if amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "mint amount must be positive")
	}
	return e.inTx(ctx, func(tx *sql.Tx) error {
		return credit(ctx, tx, account, amount)
	})
}

func (e *PostgresEngine) MintFromQuota(ctx context.Context, account domain.Address, amount int64) error {
	if amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "mint amount must be positive")
	}
	return e.inTx(ctx, func(tx *sql.Tx) error {
		row, err := lockAccount(ctx, tx, account)
		if err != nil {
			return err
		}
		if row.quota < amount {
			return dErrors.New(dErrors.CodeQuotaExceeded, "amount exceeds remaining quota")
		}
		const update = `
			UPDATE ledger_accounts
			SET balance = balance + $2, quota = quota - $2
			WHERE account = $1
		`
		_, err = tx.ExecContext(ctx, update, account.String(), amount)
		return err
	})
}

func (e *PostgresEngine) SetQuota(ctx context.Context, account domain.Address, remaining int64) error {
	if remaining < 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "quota cannot be negative")
	}
	return e.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := lockAccount(ctx, tx, account); err != nil {
			return err
		}
		const update = `UPDATE ledger_accounts SET quota = $2 WHERE account = $1`
		_, err := tx.ExecContext(ctx, update, account.String(), remaining)
		return err
	})
}

func (e *PostgresEngine) Transfer(ctx context.Context, from, to domain.Address, amount int64) error {
	if amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "transfer amount must be positive")
	}
	return e.inTx(ctx, func(tx *sql.Tx) error {
		return move(ctx, tx, from, to, amount)
	})
}

func (e *PostgresEngine) Approve(ctx context.Context, owner, spender domain.Address, amount int64) error {
	if amount < 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "allowance cannot be negative")
	}
	const upsert = `
		INSERT INTO ledger_allowances (owner_account, spender_account, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_account, spender_account) DO UPDATE SET amount = EXCLUDED.amount
	`
	_, err := e.db.ExecContext(ctx, upsert, owner.String(), spender.String(), amount)
	if err != nil {
		return fmt.Errorf("approve allowance: %w", err)
	}
	return nil
}

func (e *PostgresEngine) TransferFrom(ctx context.Context, spender, from, to domain.Address, amount int64) error {
	if amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "transfer amount must be positive")
	}
	return e.inTx(ctx, func(tx *sql.Tx) error {
		const lockAllowance = `
			SELECT amount FROM ledger_allowances
			WHERE owner_account = $1 AND spender_account = $2
			FOR UPDATE
		`
		var allowance int64
		err := tx.QueryRowContext(ctx, lockAllowance, from.String(), spender.String()).Scan(&allowance)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("lock allowance: %w", err)
		}
		if allowance < amount {
			return dErrors.New(dErrors.CodeInsufficientAllowance, "allowance does not cover amount")
		}
		if err := move(ctx, tx, from, to, amount); err != nil {
			return err
		}
		const update = `
			UPDATE ledger_allowances SET amount = amount - $3
			WHERE owner_account = $1 AND spender_account = $2
		`
		_, err = tx.ExecContext(ctx, update, from.String(), spender.String(), amount)
		return err
	})
}

func (e *PostgresEngine) Burn(ctx context.Context, account domain.Address, amount int64) error {
	if amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "burn amount must be positive")
	}
	return e.inTx(ctx, func(tx *sql.Tx) error {
		row, err := lockAccount(ctx, tx, account)
		if err != nil {
			return err
		}
		if row.balance < amount {
			return dErrors.New(dErrors.CodeInsufficientBalance, "balance does not cover amount")
		}
		const update = `UPDATE ledger_accounts SET balance = balance - $2 WHERE account = $1`
		_, err = tx.ExecContext(ctx, update, account.String(), amount)
		return err
	})
}

func (e *PostgresEngine) BalanceOf(ctx context.Context, account domain.Address) (int64, error) {
	return e.readColumn(ctx, account, "balance")
}

func (e *PostgresEngine) QuotaOf(ctx context.Context, account domain.Address) (int64, error) {
	return e.readColumn(ctx, account, "quota")
}

func (e *PostgresEngine) Allowance(ctx context.Context, owner, spender domain.Address) (int64, error) {
	const query = `
		SELECT amount FROM ledger_allowances
		WHERE owner_account = $1 AND spender_account = $2
	`
	var amount int64
	err := e.db.QueryRowContext(ctx, query, owner.String(), spender.String()).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read allowance: %w", err)
	}
	return amount, nil
}

func (e *PostgresEngine) TotalSupply(ctx context.Context) (int64, error) {
	var total sql.NullInt64
	err := e.db.QueryRowContext(ctx, `SELECT SUM(balance) FROM ledger_accounts`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("read total supply: %w", err)
	}
	return total.Int64, nil
}

func (e *PostgresEngine) readColumn(ctx context.Context, account domain.Address, column string) (int64, error) {
	query := fmt.Sprintf(`SELECT %s FROM ledger_accounts WHERE account = $1`, column)
	var value int64
	err := e.db.QueryRowContext(ctx, query, account.String()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read ledger account: %w", err)
	}
	return value, nil
}

func (e *PostgresEngine) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

type accountRow struct {
	balance int64
	quota   int64
}

// lockAccount upserts the row so new accounts exist, then locks it.
func lockAccount(ctx context.Context, tx *sql.Tx, account domain.Address) (accountRow, error) {
	const ensure = `
		INSERT INTO ledger_accounts (account, balance, quota)
		VALUES ($1, 0, 0)
		ON CONFLICT (account) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, ensure, account.String()); err != nil {
		return accountRow{}, fmt.Errorf("ensure ledger account: %w", err)
	}
	const lock = `SELECT balance, quota FROM ledger_accounts WHERE account = $1 FOR UPDATE`
	var row accountRow
	if err := tx.QueryRowContext(ctx, lock, account.String()).Scan(&row.balance, &row.quota); err != nil {
		return accountRow{}, fmt.Errorf("lock ledger account: %w", err)
	}
	return row, nil
}

func credit(ctx context.Context, tx *sql.Tx, account domain.Address, amount int64) error {
	if _, err := lockAccount(ctx, tx, account); err != nil {
		return err
	}
	const update = `UPDATE ledger_accounts SET balance = balance + $2 WHERE account = $1`
	if _, err := tx.ExecContext(ctx, update, account.String(), amount); err != nil {
		return fmt.Errorf("credit ledger account: %w", err)
	}
	return nil
}

// move locks both rows in address order to avoid deadlocks, then transfers.
func move(ctx context.Context, tx *sql.Tx, from, to domain.Address, amount int64) error {
	first, second := from, to
	if second.String() < first.String() {
		first, second = second, first
	}
	fromRow := accountRow{}
	for _, account := range []domain.Address{first, second} {
		row, err := lockAccount(ctx, tx, account)
		if err != nil {
			return err
		}
		if account == from {
			fromRow = row
		}
	}
	if fromRow.balance < amount {
		return dErrors.New(dErrors.CodeInsufficientBalance, "balance does not cover amount")
	}
	const debit = `UPDATE ledger_accounts SET balance = balance - $2 WHERE account = $1`
	if _, err := tx.ExecContext(ctx, debit, from.String(), amount); err != nil {
		return fmt.Errorf("debit ledger account: %w", err)
	}
	const creditQ = `UPDATE ledger_accounts SET balance = balance + $2 WHERE account = $1`
	if _, err := tx.ExecContext(ctx, creditQ, to.String(), amount); err != nil {
		return fmt.Errorf("credit ledger account: %w", err)
	}
	return nil
}
