// Package publisher provides the audit publisher services emit through.
//
// Emit is synchronous and fail-closed: the event is written to the audit
// store (and, when the store is outbox-backed, queued for Kafka) before Emit
// returns. If the write fails the calling operation must fail; compliance
// events are never dropped silently.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	audit "cac/pkg/platform/audit"
)

// Publisher writes audit events to a Store.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a publisher backed by the given store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit synchronously appends an audit event.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Action == "" {
		return fmt.Errorf("audit event requires Action")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if err := p.store.Append(ctx, event); err != nil {
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "audit append failed",
				"action", event.Action,
				"actor", event.Actor,
				"error", err,
			)
		}
		return fmt.Errorf("audit persistence failed: %w", err)
	}
	return nil
}

// List returns events for an account, oldest first.
func (p *Publisher) List(ctx context.Context, addr string, action string) ([]audit.Event, error) {
	return p.store.ListByActor(ctx, addr, action)
}

// Close is a no-op for the synchronous publisher.
func (p *Publisher) Close() error {
	return nil
}
