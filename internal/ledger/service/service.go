package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	lmetrics "cac/internal/ledger/metrics"
	"cac/internal/ledger/ports"
	"cac/pkg/domain"
	dErrors "cac/pkg/domain-errors"
	audit "cac/pkg/platform/audit"
	"cac/pkg/requestcontext"
)

// Roles answers authorization questions for admin-gated operations.
type Roles interface {
	RequireAdmin(ctx context.Context, actor domain.Address) error
}

// Service wraps the accounting engine with compliance gating, authorization
// and auditing. Gating applies to the account whose balance decreases:
// transfer gates the sender, transferFrom gates the funds owner, surrender
// gates the caller. Issuance and approvals are not gated.
//
// The registry reference is swappable at runtime (migrations); swapping never
// reinterprets past events.
type Service struct {
	engine  ports.Engine
	roles   Roles
	audit   ports.AuditPublisher
	history ports.AuditLog
	logger  *slog.Logger
	metrics *lmetrics.Metrics

	regMu    sync.RWMutex
	registry ports.Registry
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

func WithAuditLog(log ports.AuditLog) Option {
	return func(s *Service) {
		s.history = log
	}
}

func WithMetrics(m *lmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(engine ports.Engine, registry ports.Registry, roles Roles, opts ...Option) (*Service, error) {
	if engine == nil {
		return nil, fmt.Errorf("ledger engine is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if roles == nil {
		return nil, fmt.Errorf("role service is required")
	}
	svc := &Service{engine: engine, registry: registry, roles: roles}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Mint issues amount credits to `to` unconditionally. Admin-only.
func (s *Service) Mint(ctx context.Context, actor, to domain.Address, amount int64) error {
	if err := s.roles.RequireAdmin(ctx, actor); err != nil {
		return err
	}
	if err := s.engine.Mint(ctx, to, amount); err != nil {
		s.count("mint", err)
		return err
	}
	s.count("mint", nil)
	if s.metrics != nil {
		s.metrics.CreditsMinted.WithLabelValues("direct").Add(float64(amount))
	}
	s.emit(ctx, audit.Event{
		Actor:   actor,
		Account: to,
		Action:  string(audit.EventMinted),
		Amount:  amount,
	})
	return nil
}

// MintFromQuota issues amount credits to the caller, consuming their
// remaining quota.
func (s *Service) MintFromQuota(ctx context.Context, actor domain.Address, amount int64) error {
	if err := s.engine.MintFromQuota(ctx, actor, amount); err != nil {
		s.count("mint_from_quota", err)
		return err
	}
	s.count("mint_from_quota", nil)
	if s.metrics != nil {
		s.metrics.CreditsMinted.WithLabelValues("quota").Add(float64(amount))
	}
	s.emit(ctx, audit.Event{
		Actor:  actor,
		Action: string(audit.EventMinted),
		Amount: amount,
		Reason: "quota",
	})
	return nil
}

// SetQuota sets (not adds) the remaining issuance entitlement for account.
// Admin-only; the quota value itself is decided by an external policy.
func (s *Service) SetQuota(ctx context.Context, actor, account domain.Address, remaining int64) error {
	if err := s.roles.RequireAdmin(ctx, actor); err != nil {
		return err
	}
	if err := s.engine.SetQuota(ctx, account, remaining); err != nil {
		s.count("set_quota", err)
		return err
	}
	s.count("set_quota", nil)
	s.emit(ctx, audit.Event{
		Actor:   actor,
		Account: account,
		Action:  string(audit.EventQuotaSet),
		Amount:  remaining,
	})
	return nil
}

// Transfer moves credits from the caller to `to`. The caller must be
// registered and KYC-approved.
func (s *Service) Transfer(ctx context.Context, actor, to domain.Address, amount int64) error {
	if err := s.requireCompliant(ctx, actor); err != nil {
		return err
	}
	if err := s.engine.Transfer(ctx, actor, to, amount); err != nil {
		s.count("transfer", err)
		return err
	}
	s.count("transfer", nil)
	s.emit(ctx, audit.Event{
		Actor:        actor,
		Account:      actor,
		Counterparty: to,
		Action:       string(audit.EventTransferred),
		Amount:       amount,
	})
	return nil
}

// Approve sets the caller's allowance for spender.
func (s *Service) Approve(ctx context.Context, actor, spender domain.Address, amount int64) error {
	if err := s.engine.Approve(ctx, actor, spender, amount); err != nil {
		s.count("approve", err)
		return err
	}
	s.count("approve", nil)
	s.emit(ctx, audit.Event{
		Actor:        actor,
		Counterparty: spender,
		Action:       string(audit.EventApproved),
		Amount:       amount,
	})
	return nil
}

// TransferFrom moves credits from `from` to `to` on the caller's allowance.
// The funds owner must be registered and KYC-approved.
func (s *Service) TransferFrom(ctx context.Context, actor, from, to domain.Address, amount int64) error {
	if err := s.requireCompliant(ctx, from); err != nil {
		return err
	}
	if err := s.engine.TransferFrom(ctx, actor, from, to, amount); err != nil {
		s.count("transfer_from", err)
		return err
	}
	s.count("transfer_from", nil)
	s.emit(ctx, audit.Event{
		Actor:        actor,
		Account:      from,
		Counterparty: to,
		Action:       string(audit.EventTransferred),
		Amount:       amount,
	})
	return nil
}

// Surrender permanently retires amount credits from the caller's balance.
// The caller must be KYC-approved. Two events are produced: the compact
// Surrendered record and the detailed SurrenderLogged record carrying a
// snapshot of the caller's profile and a server-assigned timestamp, so
// downstream reporting never needs a second lookup.
//
// SurrenderLogged is a compliance record and must not be lost: if appending
// it fails, the burn is compensated by a re-mint and the call fails.
func (s *Service) Surrender(ctx context.Context, actor domain.Address, amount int64, periodID int64, evidenceURI string, vcHash domain.Hash32) error {
	profile, err := s.currentRegistry().Profile(ctx, actor)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return dErrors.New(dErrors.CodeNotRegistered, "account is not registered")
		}
		return err
	}
	if !profile.KycApproved {
		return dErrors.New(dErrors.CodeNotCompliant, "account is not KYC approved")
	}

	if err := s.engine.Burn(ctx, actor, amount); err != nil {
		s.count("surrender", err)
		return err
	}

	now := requestcontext.Now(ctx)
	logged := audit.Event{
		Timestamp:   now,
		Actor:       actor,
		Account:     actor,
		Action:      string(audit.EventSurrenderLogged),
		Amount:      amount,
		PeriodID:    periodID,
		EvidenceURI: evidenceURI,
		VCHash:      vcHash,
		DisplayName: profile.DisplayName,
		TaxIDHash:   profile.TaxIDHash,
		MetadataURI: profile.MetadataURI,
		RequestID:   requestcontext.RequestID(ctx),
	}
	if s.audit != nil {
		if err := s.audit.Emit(ctx, logged); err != nil {
			if mintErr := s.engine.Mint(ctx, actor, amount); mintErr != nil && s.logger != nil {
				s.logger.ErrorContext(ctx, "failed to compensate surrender after audit failure",
					"account", actor,
					"amount", amount,
					"error", mintErr,
				)
			}
			s.count("surrender", err)
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record surrender")
		}
	}

	s.count("surrender", nil)
	if s.metrics != nil {
		s.metrics.CreditsSurrendered.Add(float64(amount))
	}
	s.emit(ctx, audit.Event{
		Actor:    actor,
		Account:  actor,
		Action:   string(audit.EventSurrendered),
		Amount:   amount,
		PeriodID: periodID,
	})
	return nil
}

// SetRegistry repoints the compliance dependency. Admin-only.
func (s *Service) SetRegistry(ctx context.Context, actor domain.Address, registry ports.Registry) error {
	if err := s.roles.RequireAdmin(ctx, actor); err != nil {
		return err
	}
	if registry == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "registry is required")
	}
	s.regMu.Lock()
	s.registry = registry
	s.regMu.Unlock()

	s.emit(ctx, audit.Event{
		Actor:  actor,
		Action: string(audit.EventRegistrySet),
	})
	if s.logger != nil {
		s.logger.InfoContext(ctx, "ledger registry repointed", "actor", actor)
	}
	return nil
}

func (s *Service) BalanceOf(ctx context.Context, account domain.Address) (int64, error) {
	return s.engine.BalanceOf(ctx, account)
}

func (s *Service) Allowance(ctx context.Context, owner, spender domain.Address) (int64, error) {
	return s.engine.Allowance(ctx, owner, spender)
}

func (s *Service) QuotaOf(ctx context.Context, account domain.Address) (int64, error) {
	return s.engine.QuotaOf(ctx, account)
}

func (s *Service) TotalSupply(ctx context.Context) (int64, error) {
	return s.engine.TotalSupply(ctx)
}

// Surrenders returns the account's surrender history from the materialized
// audit log.
func (s *Service) Surrenders(ctx context.Context, account domain.Address) ([]audit.Event, error) {
	if s.history == nil {
		return nil, nil
	}
	events, err := s.history.ListByActor(ctx, account.String(), string(audit.EventSurrenderLogged))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load surrender history")
	}
	return events, nil
}

func (s *Service) requireCompliant(ctx context.Context, account domain.Address) error {
	profile, err := s.currentRegistry().Profile(ctx, account)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return dErrors.New(dErrors.CodeNotRegistered, "account is not registered")
		}
		return err
	}
	if !profile.KycApproved {
		return dErrors.New(dErrors.CodeNotCompliant, "account is not KYC approved")
	}
	return nil
}

func (s *Service) currentRegistry() ports.Registry {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.registry
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.audit.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit ledger audit event",
			"action", event.Action,
			"error", err,
		)
	}
}

func (s *Service) count(operation string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.OperationsTotal.WithLabelValues(operation, outcome).Inc()
}
