// Package ports defines shared interfaces for the ledger module.
package ports

import (
	"context"

	regmodels "cac/internal/registry/models"
	"cac/pkg/domain"
	audit "cac/pkg/platform/audit"
)

// Engine is the credit accounting core. Every method is atomic: on any
// failing precondition no balance, quota or allowance change is observable.
// Engines enforce the arithmetic invariants (no negative balances, allowance
// decrement on delegated transfer, sum(balance) == totalSupply) and return
// coded errors from pkg/domain-errors; compliance gating lives in the
// service on top.
type Engine interface {
	// Mint creates amount credits for account. amount > 0.
	Mint(ctx context.Context, account domain.Address, amount int64) error

	// MintFromQuota creates amount credits for account and decrements its
	// remaining quota. Fails with CodeQuotaExceeded when amount exceeds the
	// remaining quota, leaving state unchanged.
	MintFromQuota(ctx context.Context, account domain.Address, amount int64) error

	// SetQuota sets (not adds) the remaining issuance entitlement.
	SetQuota(ctx context.Context, account domain.Address, remaining int64) error

	// Transfer moves amount credits from one account to another.
	Transfer(ctx context.Context, from, to domain.Address, amount int64) error

	// Approve sets the spender allowance. amount >= 0; zero clears it.
	Approve(ctx context.Context, owner, spender domain.Address, amount int64) error

	// TransferFrom moves amount credits from `from` to `to` on behalf of
	// spender, decrementing spender's allowance.
	TransferFrom(ctx context.Context, spender, from, to domain.Address, amount int64) error

	// Burn permanently retires amount credits from account, reducing total
	// supply.
	Burn(ctx context.Context, account domain.Address, amount int64) error

	BalanceOf(ctx context.Context, account domain.Address) (int64, error)
	Allowance(ctx context.Context, owner, spender domain.Address) (int64, error)
	QuotaOf(ctx context.Context, account domain.Address) (int64, error)
	TotalSupply(ctx context.Context) (int64, error)
}

// Registry is the compliance dependency the ledger gates through. Satisfied
// by the registry service; swappable at runtime via SetRegistry.
type Registry interface {
	Profile(ctx context.Context, account domain.Address) (*regmodels.Profile, error)
}

// AuditPublisher emits audit events for ledger operations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// AuditLog answers materialized queries over past events (surrender history)
// without replaying anything.
type AuditLog interface {
	ListByActor(ctx context.Context, addr string, action string) ([]audit.Event, error)
}
