package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cac/pkg/domain"
	audit "cac/pkg/platform/audit"
	txcontext "cac/pkg/platform/tx"
)

// Store implements audit.Store with a transactional outbox. Every append
// lands in two tables in one transaction: audit_events (the materialized
// query table) and outbox (drained to Kafka by the outbox worker). Queries
// never replay the outbox; audit_events is the read model.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// payload is the JSON structure published to Kafka. Field names match
// audit.Event for deserialization by downstream indexers.
type payload struct {
	ID           string `json:"ID"`
	Category     string `json:"Category"`
	Timestamp    string `json:"Timestamp"`
	Actor        string `json:"Actor"`
	Action       string `json:"Action"`
	RequestID    string `json:"RequestID,omitempty"`
	Account      string `json:"Account,omitempty"`
	Counterparty string `json:"Counterparty,omitempty"`
	Amount       int64  `json:"Amount,omitempty"`
	PriceWei     int64  `json:"PriceWei,omitempty"`
	PaymentWei   int64  `json:"PaymentWei,omitempty"`
	ListingID    int64  `json:"ListingID,omitempty"`
	PeriodID     int64  `json:"PeriodID,omitempty"`
	EvidenceURI  string `json:"EvidenceURI,omitempty"`
	VCHash       string `json:"VCHash,omitempty"`
	Reason       string `json:"Reason,omitempty"`
	DisplayName  string `json:"DisplayName,omitempty"`
	TaxIDHash    string `json:"TaxIDHash,omitempty"`
	MetadataURI  string `json:"MetadataURI,omitempty"`
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()
	category := audit.AuditEvent(event.Action).Category()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	body := payload{
		ID:           eventID.String(),
		Category:     string(category),
		Timestamp:    event.Timestamp.Format(time.RFC3339Nano),
		Actor:        event.Actor.String(),
		Action:       event.Action,
		RequestID:    event.RequestID,
		Account:      event.Account.String(),
		Counterparty: event.Counterparty.String(),
		Amount:       event.Amount,
		PriceWei:     event.PriceWei,
		PaymentWei:   event.PaymentWei,
		ListingID:    event.ListingID,
		PeriodID:     event.PeriodID,
		EvidenceURI:  event.EvidenceURI,
		VCHash:       event.VCHash.String(),
		Reason:       event.Reason,
		DisplayName:  event.DisplayName,
		TaxIDHash:    event.TaxIDHash.String(),
		MetadataURI:  event.MetadataURI,
	}
	payloadBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	exec := s.execer(ctx)

	const insertEvent = `
		INSERT INTO audit_events (
			id, category, ts, actor, action, request_id,
			account, counterparty, amount, price_wei, payment_wei,
			listing_id, period_id, evidence_uri, vc_hash, reason,
			display_name, tax_id_hash, metadata_uri
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`
	_, err = exec.ExecContext(ctx, insertEvent,
		eventID, string(category), event.Timestamp, event.Actor.String(),
		event.Action, event.RequestID, event.Account.String(),
		event.Counterparty.String(), event.Amount, event.PriceWei,
		event.PaymentWei, event.ListingID, event.PeriodID, event.EvidenceURI,
		event.VCHash.String(), event.Reason, event.DisplayName,
		event.TaxIDHash.String(), event.MetadataURI,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	const insertOutbox = `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	aggregateID := event.Actor.String()
	if aggregateID == "" {
		aggregateID = eventID.String()
	}
	_, err = exec.ExecContext(ctx, insertOutbox,
		uuid.New(), "account", aggregateID, event.Action, payloadBytes, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *Store) ListByActor(ctx context.Context, addr string, action string) ([]audit.Event, error) {
	query := `
		SELECT category, ts, actor, action, request_id,
		       account, counterparty, amount, price_wei, payment_wei,
		       listing_id, period_id, evidence_uri, vc_hash, reason,
		       display_name, tax_id_hash, metadata_uri
		FROM audit_events
		WHERE (actor = $1 OR account = $1) AND ($2 = '' OR action = $2)
		ORDER BY ts ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, addr, action)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT category, ts, actor, action, request_id,
		       account, counterparty, amount, price_wei, payment_wei,
		       listing_id, period_id, evidence_uri, vc_hash, reason,
		       display_name, tax_id_hash, metadata_uri
		FROM audit_events
		ORDER BY ts DESC
		LIMIT $1
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var out []audit.Event
	for rows.Next() {
		var e audit.Event
		var category, actor, account, counterparty, vcHash, taxIDHash string
		err := rows.Scan(
			&category, &e.Timestamp, &actor, &e.Action, &e.RequestID,
			&account, &counterparty, &e.Amount, &e.PriceWei, &e.PaymentWei,
			&e.ListingID, &e.PeriodID, &e.EvidenceURI, &vcHash, &e.Reason,
			&e.DisplayName, &taxIDHash, &e.MetadataURI,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		e.Actor = domain.Address(actor)
		e.Account = domain.Address(account)
		e.Counterparty = domain.Address(counterparty)
		e.VCHash = domain.Hash32(vcHash)
		e.TaxIDHash = domain.Hash32(taxIDHash)
		out = append(out, e)
	}
	return out, rows.Err()
}
