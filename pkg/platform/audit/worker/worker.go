// Package worker drains the audit outbox to Kafka. Rows are published oldest
// first and marked with published_at; a crash between publish and mark means
// at-least-once delivery, which downstream consumers deduplicate by event ID.
package worker

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Sink is where drained outbox payloads go. Satisfied by kafka.Producer.
type Sink interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// Worker polls the outbox table and forwards pending rows to the sink.
type Worker struct {
	db       *sql.DB
	sink     Sink
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

// Option configures the Worker.
type Option func(*Worker)

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		w.interval = d
	}
}

// WithBatchSize overrides how many rows are drained per poll.
func WithBatchSize(n int) Option {
	return func(w *Worker) {
		w.batch = n
	}
}

func New(db *sql.DB, sink Sink, logger *slog.Logger, opts ...Option) *Worker {
	w := &Worker{
		db:       db,
		sink:     sink,
		logger:   logger,
		interval: time.Second,
		batch:    100,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is cancelled. Publish failures are logged and retried
// on the next tick; the outbox row stays pending.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drainOnce(ctx); err != nil {
				w.logger.WarnContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drainOnce(ctx context.Context) error {
	const pending = `
		SELECT id, aggregate_id, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := w.db.QueryContext(ctx, pending, w.batch)
	if err != nil {
		return fmt.Errorf("select pending outbox rows: %w", err)
	}
	defer rows.Close()

	type entry struct {
		id          string
		aggregateID string
		payload     []byte
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.id, &e.aggregateID, &e.payload); err != nil {
			return fmt.Errorf("scan outbox row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, e := range entries {
		if err := w.sink.Publish(ctx, e.aggregateID, e.payload); err != nil {
			return fmt.Errorf("publish outbox row %s: %w", e.id, err)
		}
		const mark = `UPDATE outbox SET published_at = $1 WHERE id = $2`
		if _, err := w.db.ExecContext(ctx, mark, time.Now(), e.id); err != nil {
			return fmt.Errorf("mark outbox row %s published: %w", e.id, err)
		}
	}
	return nil
}
