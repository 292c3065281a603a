package audit

import "context"

// Store is an append-only audit log with materialized queries. The log is
// kept for audit; current state is never reconstructed by replaying it.
type Store interface {
	// Append writes an event. Implementations must be atomic: either the
	// event is durably recorded or an error is returned.
	Append(ctx context.Context, event Event) error

	// ListByActor returns events whose Actor or Account matches addr, oldest
	// first, optionally filtered by action ("" matches all).
	ListByActor(ctx context.Context, addr string, action string) ([]Event, error)

	// ListRecent returns the most recent events across all accounts, newest
	// first, capped at limit.
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
