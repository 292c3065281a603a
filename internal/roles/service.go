package roles

import (
	"context"
	"fmt"
	"log/slog"

	"cac/pkg/domain"
	dErrors "cac/pkg/domain-errors"
	audit "cac/pkg/platform/audit"
	"cac/pkg/requestcontext"
)

// AuditPublisher emits audit events for role changes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service wraps the role store with authorization and auditing. Role changes
// are themselves admin-gated; bootstrap grants go through Store directly in
// main.
type Service struct {
	store  Store
	audit  AuditPublisher
	logger *slog.Logger
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

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("role store is required")
	}
	svc := &Service{store: store}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Has reports whether addr holds role.
func (s *Service) Has(ctx context.Context, addr domain.Address, role Role) (bool, error) {
	held, err := s.store.Has(ctx, addr, role)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check role")
	}
	return held, nil
}

// RequireAdmin returns Unauthorized unless actor holds the admin role.
func (s *Service) RequireAdmin(ctx context.Context, actor domain.Address) error {
	held, err := s.Has(ctx, actor, RoleAdmin)
	if err != nil {
		return err
	}
	if !held {
		return dErrors.New(dErrors.CodeUnauthorized, "admin role required")
	}
	return nil
}

// Grant assigns role to addr. Admin-only.
func (s *Service) Grant(ctx context.Context, actor, addr domain.Address, role Role) error {
	if !role.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	if err := s.RequireAdmin(ctx, actor); err != nil {
		return err
	}
	if err := s.store.Grant(ctx, addr, role); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to grant role")
	}
	s.emit(ctx, actor, addr, audit.EventRoleGranted, role)
	return nil
}

// Revoke removes role from addr. Admin-only.
func (s *Service) Revoke(ctx context.Context, actor, addr domain.Address, role Role) error {
	if !role.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	if err := s.RequireAdmin(ctx, actor); err != nil {
		return err
	}
	if err := s.store.Revoke(ctx, addr, role); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke role")
	}
	s.emit(ctx, actor, addr, audit.EventRoleRevoked, role)
	return nil
}

// Holders returns all addresses holding role. Admin-only.
func (s *Service) Holders(ctx context.Context, actor domain.Address, role Role) ([]domain.Address, error) {
	if err := s.RequireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	holders, err := s.store.Holders(ctx, role)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list role holders")
	}
	return holders, nil
}

func (s *Service) emit(ctx context.Context, actor, addr domain.Address, action audit.AuditEvent, role Role) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Actor:     actor,
		Account:   addr,
		Action:    string(action),
		Reason:    role.String(),
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.audit.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit role audit event", "action", action, "error", err)
	}
}
