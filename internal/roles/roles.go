// Package roles centralizes privileged-capability checks. Instead of ad hoc
// address comparisons scattered across components, every privileged operation
// asks this store whether the acting account holds the required role, so role
// changes and audits have one home.
package roles

import (
	"context"

	"cac/pkg/domain"
)

// Role is a typed capability.
type Role string

const (
	// RoleAdmin may mint unconditionally, set quotas, repoint the registry,
	// and manage role grants.
	RoleAdmin Role = "admin"
	// RoleOperator decides KYC approvals and rejections.
	RoleOperator Role = "operator"
)

// IsValid checks the role against the supported set.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleOperator
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Store persists role grants.
type Store interface {
	// Has reports whether addr holds role.
	Has(ctx context.Context, addr domain.Address, role Role) (bool, error)

	// Grant assigns role to addr. Granting an already-held role is a no-op.
	Grant(ctx context.Context, addr domain.Address, role Role) error

	// Revoke removes role from addr. Revoking an absent role is a no-op.
	Revoke(ctx context.Context, addr domain.Address, role Role) error

	// Holders returns all addresses holding role.
	Holders(ctx context.Context, role Role) ([]domain.Address, error)
}
