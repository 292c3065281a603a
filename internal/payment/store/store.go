// Package store defines persistence for native-currency payment balances.
package store

import (
	"context"

	"cac/pkg/domain"
)

// Store holds per-account wei balances. Implementations enforce that no
// debit overdraws and that transfers are atomic.
type Store interface {
	// Credit adds wei to account. wei > 0.
	Credit(ctx context.Context, account domain.Address, wei int64) error

	// Debit removes wei from account. Fails with CodeInsufficientPayment
	// when the balance does not cover it.
	Debit(ctx context.Context, account domain.Address, wei int64) error

	// Transfer moves wei between accounts atomically.
	Transfer(ctx context.Context, from, to domain.Address, wei int64) error

	BalanceOf(ctx context.Context, account domain.Address) (int64, error)
}
