package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	regmetrics "cac/internal/registry/metrics"
	"cac/internal/registry/models"
	"cac/internal/registry/store"
	"cac/pkg/domain"
	dErrors "cac/pkg/domain-errors"
	audit "cac/pkg/platform/audit"
	"cac/pkg/platform/sentinel"
	"cac/pkg/requestcontext"
)

// AuditPublisher emits audit events for compliance-relevant operations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the single source of truth for "is this account allowed to
// transact". The operator address is fixed for the service lifetime; there
// is no rotation operation.
type Service struct {
	profiles store.Store
	operator domain.Address
	audit    AuditPublisher
	logger   *slog.Logger
	metrics  *regmetrics.Metrics
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

func WithMetrics(m *regmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(profiles store.Store, operator domain.Address, opts ...Option) (*Service, error) {
	if profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	if operator.IsZero() {
		return nil, fmt.Errorf("operator address is required")
	}
	svc := &Service{profiles: profiles, operator: operator}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register creates or overwrites the caller's profile. Re-registration
// preserves the standing KYC decision (see models.Profile).
func (s *Service) Register(ctx context.Context, actor domain.Address, taxIDHash domain.Hash32, metadataURI, displayName string) (*models.Profile, error) {
	displayName = strings.TrimSpace(displayName)
	now := requestcontext.Now(ctx)

	existing, err := s.profiles.Get(ctx, actor)
	switch {
	case err == nil:
		err = s.profiles.Execute(ctx, actor, func(p *models.Profile) error {
			fresh, err := models.NewProfile(actor, taxIDHash, metadataURI, displayName, now)
			if err != nil {
				return err
			}
			p.ApplyRegistration(fresh.TaxIDHash, fresh.MetadataURI, fresh.DisplayName, now)
			return nil
		})
		if err != nil {
			return nil, wrapProfileErr(err)
		}
		existing, err = s.profiles.Get(ctx, actor)
		if err != nil {
			return nil, wrapProfileErr(err)
		}
	case errors.Is(err, sentinel.ErrNotFound):
		existing, err = models.NewProfile(actor, taxIDHash, metadataURI, displayName, now)
		if err != nil {
			return nil, err
		}
		if err := s.profiles.Put(ctx, existing); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store profile")
		}
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}

	s.emit(ctx, audit.Event{
		Actor:       actor,
		Action:      string(audit.EventRegistered),
		DisplayName: existing.DisplayName,
		TaxIDHash:   existing.TaxIDHash,
		MetadataURI: existing.MetadataURI,
	})
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.Inc()
	}
	return existing, nil
}

// UpdateMetadata replaces the caller's metadata reference. The URI is opaque
// and never dereferenced.
func (s *Service) UpdateMetadata(ctx context.Context, actor domain.Address, metadataURI string) error {
	return s.updateOwn(ctx, actor, func(p *models.Profile) {
		p.MetadataURI = metadataURI
	})
}

// UpdateDocs replaces the caller's documents reference.
func (s *Service) UpdateDocs(ctx context.Context, actor domain.Address, docsURI string) error {
	return s.updateOwn(ctx, actor, func(p *models.Profile) {
		p.DocsURI = docsURI
	})
}

func (s *Service) updateOwn(ctx context.Context, actor domain.Address, apply func(*models.Profile)) error {
	now := requestcontext.Now(ctx)
	err := s.profiles.Execute(ctx, actor, func(p *models.Profile) error {
		apply(p)
		p.UpdatedAt = now
		return nil
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotRegistered, "account is not registered")
	}
	return wrapProfileErr(err)
}

// ApproveKyc sets the KYC decision for an account. Operator-only. Approval
// clears any standing rejection note.
func (s *Service) ApproveKyc(ctx context.Context, actor, account domain.Address, approved bool) error {
	if actor != s.operator {
		return dErrors.New(dErrors.CodeUnauthorized, "only the operator may decide KYC")
	}
	now := requestcontext.Now(ctx)
	err := s.profiles.Execute(ctx, account, func(p *models.Profile) error {
		p.ApplyKycDecision(approved, "", now)
		return nil
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotRegistered, "account is not registered")
	}
	if err != nil {
		return wrapProfileErr(err)
	}

	decision := "revoked"
	if approved {
		decision = "approved"
	}
	s.emit(ctx, audit.Event{
		Actor:   actor,
		Account: account,
		Action:  string(audit.EventKycApproved),
		Reason:  decision,
	})
	if s.metrics != nil {
		s.metrics.KycDecisionsTotal.WithLabelValues(decision).Inc()
	}
	return nil
}

// RejectKyc revokes approval and stores the operator's reason. Operator-only.
func (s *Service) RejectKyc(ctx context.Context, actor, account domain.Address, reason string) error {
	if actor != s.operator {
		return dErrors.New(dErrors.CodeUnauthorized, "only the operator may decide KYC")
	}
	now := requestcontext.Now(ctx)
	err := s.profiles.Execute(ctx, account, func(p *models.Profile) error {
		p.ApplyKycDecision(false, reason, now)
		return nil
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotRegistered, "account is not registered")
	}
	if err != nil {
		return wrapProfileErr(err)
	}

	s.emit(ctx, audit.Event{
		Actor:   actor,
		Account: account,
		Action:  string(audit.EventKycDecision),
		Reason:  reason,
	})
	if s.metrics != nil {
		s.metrics.KycDecisionsTotal.WithLabelValues("rejected").Inc()
	}
	return nil
}

// IsRegistered reports whether the account has ever registered.
func (s *Service) IsRegistered(ctx context.Context, account domain.Address) (bool, error) {
	_, err := s.profiles.Get(ctx, account)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	return true, nil
}

// Profile returns the stored profile for account.
func (s *Service) Profile(ctx context.Context, account domain.Address) (*models.Profile, error) {
	p, err := s.profiles.Get(ctx, account)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "account is not registered")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	return p, nil
}

// KycNote returns the operator's rejection note, empty when approved or none
// was left.
func (s *Service) KycNote(ctx context.Context, account domain.Address) (string, error) {
	p, err := s.Profile(ctx, account)
	if err != nil {
		return "", err
	}
	return p.KycNote, nil
}

// Operator returns the fixed operator address.
func (s *Service) Operator() domain.Address {
	return s.operator
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.audit.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit registry audit event",
			"action", event.Action,
			"error", err,
		)
	}
}

func wrapProfileErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "profile store failure")
}
