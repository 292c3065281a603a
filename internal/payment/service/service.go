// Package service implements the native-currency payment vault. Buyers fund
// their vault balance ahead of a purchase; marketplace settlement moves wei
// from buyer to seller through Pay.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"cac/internal/payment/store"
	"cac/pkg/domain"
	audit "cac/pkg/platform/audit"
	"cac/pkg/requestcontext"
)

// AuditPublisher emits audit events for vault movements.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service wraps the balance store with auditing.
type Service struct {
	balances store.Store
	audit    AuditPublisher
	logger   *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

func New(balances store.Store, opts ...Option) (*Service, error) {
	if balances == nil {
		return nil, fmt.Errorf("payment store is required")
	}
	svc := &Service{balances: balances}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Deposit credits the caller's vault balance.
func (s *Service) Deposit(ctx context.Context, actor domain.Address, wei int64) error {
	if err := s.balances.Credit(ctx, actor, wei); err != nil {
		return err
	}
	s.emit(ctx, audit.Event{
		Actor:      actor,
		Account:    actor,
		Action:     string(audit.EventDeposited),
		PaymentWei: wei,
	})
	return nil
}

// Withdraw debits the caller's vault balance.
func (s *Service) Withdraw(ctx context.Context, actor domain.Address, wei int64) error {
	if err := s.balances.Debit(ctx, actor, wei); err != nil {
		return err
	}
	s.emit(ctx, audit.Event{
		Actor:      actor,
		Account:    actor,
		Action:     string(audit.EventWithdrawn),
		PaymentWei: wei,
	})
	return nil
}

// Pay moves wei from payer to payee. Used by marketplace settlement; the
// caller records its own audit event for the trade.
func (s *Service) Pay(ctx context.Context, payer, payee domain.Address, wei int64) error {
	return s.balances.Transfer(ctx, payer, payee, wei)
}

func (s *Service) BalanceOf(ctx context.Context, account domain.Address) (int64, error) {
	return s.balances.BalanceOf(ctx, account)
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.audit.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit payment audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
