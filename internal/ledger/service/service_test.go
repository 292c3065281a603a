package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	ledgermemory "cac/internal/ledger/store/memory"
	regmodels "cac/internal/registry/models"
	"cac/pkg/domain"
	dErrors "cac/pkg/domain-errors"
	audit "cac/pkg/platform/audit"
	auditmemory "cac/pkg/platform/audit/store/memory"
	"cac/pkg/platform/audit/publisher"
	"cac/pkg/requestcontext"
)

const (
	admin    = domain.Address("0x00000000000000000000000000000000000000ad")
	approved = domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	pending  = domain.Address("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	stranger = domain.Address("0xcccccccccccccccccccccccccccccccccccccccc")
)

// fakeRegistry serves canned profiles; accounts not present read as never
// registered.
type fakeRegistry struct {
	profiles map[domain.Address]*regmodels.Profile
}

func (f *fakeRegistry) Profile(_ context.Context, account domain.Address) (*regmodels.Profile, error) {
	p, ok := f.profiles[account]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "account is not registered")
	}
	return p, nil
}

type fakeRoles struct {
	admins map[domain.Address]bool
}

func (f *fakeRoles) RequireAdmin(_ context.Context, actor domain.Address) error {
	if !f.admins[actor] {
		return dErrors.New(dErrors.CodeUnauthorized, "admin role required")
	}
	return nil
}

// failingPublisher rejects every emit; used to drive the surrender
// compensation path.
type failingPublisher struct{}

func (failingPublisher) Emit(context.Context, audit.Event) error {
	return errors.New("audit store unavailable")
}

type LedgerServiceSuite struct {
	suite.Suite
	engine     *ledgermemory.InMemoryEngine
	auditStore *auditmemory.InMemoryStore
	service    *Service
	ctx        context.Context
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) SetupTest() {
	s.engine = ledgermemory.New()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	registry := &fakeRegistry{profiles: map[domain.Address]*regmodels.Profile{
		approved: {Account: approved, DisplayName: "Farm A", KycApproved: true, Exists: true},
		pending:  {Account: pending, DisplayName: "Farm B", KycApproved: false, Exists: true},
	}}

	var err error
	s.service, err = New(s.engine, registry, &fakeRoles{admins: map[domain.Address]bool{admin: true}},
		WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
		WithAuditLog(s.auditStore),
	)
	s.Require().NoError(err)
}

func (s *LedgerServiceSuite) TestNew() {
	s.Run("nil engine returns error", func() {
		_, err := New(nil, &fakeRegistry{}, &fakeRoles{})
		s.Error(err)
	})
	s.Run("nil registry returns error", func() {
		_, err := New(s.engine, nil, &fakeRoles{})
		s.Error(err)
	})
}

func (s *LedgerServiceSuite) TestMint() {
	s.Run("admin mints unconditionally", func() {
		s.Require().NoError(s.service.Mint(s.ctx, admin, pending, 500))
		balance, err := s.service.BalanceOf(s.ctx, pending)
		s.Require().NoError(err)
		s.Equal(int64(500), balance)
	})

	s.Run("non-admin rejected", func() {
		err := s.service.Mint(s.ctx, approved, approved, 500)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *LedgerServiceSuite) TestSetQuotaAndMintFromQuota() {
	s.Run("set quota is admin only", func() {
		err := s.service.SetQuota(s.ctx, stranger, approved, 100)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("quota mint consumes entitlement", func() {
		s.Require().NoError(s.service.SetQuota(s.ctx, admin, approved, 100))
		s.Require().NoError(s.service.MintFromQuota(s.ctx, approved, 70))

		quota, err := s.service.QuotaOf(s.ctx, approved)
		s.Require().NoError(err)
		s.Equal(int64(30), quota)

		err = s.service.MintFromQuota(s.ctx, approved, 31)
		s.True(dErrors.HasCode(err, dErrors.CodeQuotaExceeded))
	})
}

func (s *LedgerServiceSuite) TestTransferGating() {
	s.Require().NoError(s.service.Mint(s.ctx, admin, approved, 100))
	s.Require().NoError(s.service.Mint(s.ctx, admin, pending, 100))

	s.Run("approved sender transfers", func() {
		s.Require().NoError(s.service.Transfer(s.ctx, approved, pending, 25))
	})

	s.Run("unapproved sender fails NotCompliant, balances unchanged", func() {
		err := s.service.Transfer(s.ctx, pending, approved, 10)
		s.True(dErrors.HasCode(err, dErrors.CodeNotCompliant))

		balance, err2 := s.service.BalanceOf(s.ctx, pending)
		s.Require().NoError(err2)
		s.Equal(int64(125), balance)
	})

	s.Run("unregistered sender fails NotRegistered", func() {
		err := s.service.Transfer(s.ctx, stranger, approved, 1)
		s.True(dErrors.HasCode(err, dErrors.CodeNotRegistered))
	})
}

func (s *LedgerServiceSuite) TestTransferFromGatesOwner() {
	s.Require().NoError(s.service.Mint(s.ctx, admin, pending, 100))
	s.Require().NoError(s.service.Approve(s.ctx, pending, approved, 50))

	// The funds owner is unapproved, so even a compliant spender cannot move
	// their balance.
	err := s.service.TransferFrom(s.ctx, approved, pending, approved, 10)
	s.True(dErrors.HasCode(err, dErrors.CodeNotCompliant))
}

func (s *LedgerServiceSuite) TestSurrender() {
	s.Require().NoError(s.service.Mint(s.ctx, admin, approved, 1000))
	s.Require().NoError(s.service.Mint(s.ctx, admin, pending, 1000))

	s.Run("approved account retires credits", func() {
		err := s.service.Surrender(s.ctx, approved, 250, 2026, "ipfs://evidence", domain.ZeroHash)
		s.Require().NoError(err)

		balance, err := s.service.BalanceOf(s.ctx, approved)
		s.Require().NoError(err)
		s.Equal(int64(750), balance)

		total, err := s.service.TotalSupply(s.ctx)
		s.Require().NoError(err)
		s.Equal(int64(1750), total)
	})

	s.Run("detailed record carries the profile snapshot", func() {
		events, err := s.service.Surrenders(s.ctx, approved)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(int64(250), events[0].Amount)
		s.Equal(int64(2026), events[0].PeriodID)
		s.Equal("Farm A", events[0].DisplayName)
		s.False(events[0].Timestamp.IsZero())
	})

	s.Run("unapproved account fails NotCompliant unchanged", func() {
		err := s.service.Surrender(s.ctx, pending, 1, 2026, "", domain.ZeroHash)
		s.True(dErrors.HasCode(err, dErrors.CodeNotCompliant))

		balance, err2 := s.service.BalanceOf(s.ctx, pending)
		s.Require().NoError(err2)
		s.Equal(int64(1000), balance)
	})

	s.Run("over-surrender fails InsufficientBalance", func() {
		err := s.service.Surrender(s.ctx, approved, 751, 2026, "", domain.ZeroHash)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientBalance))
	})
}

// A surrender whose detailed audit record cannot be persisted must not retire
// credits: the burn is compensated and the call fails.
func (s *LedgerServiceSuite) TestSurrenderCompensatesOnAuditFailure() {
	registry := &fakeRegistry{profiles: map[domain.Address]*regmodels.Profile{
		approved: {Account: approved, DisplayName: "Farm A", KycApproved: true, Exists: true},
	}}
	svc, err := New(s.engine, registry, &fakeRoles{admins: map[domain.Address]bool{admin: true}},
		WithAuditPublisher(failingPublisher{}),
	)
	s.Require().NoError(err)

	s.Require().NoError(s.engine.Mint(s.ctx, approved, 1000))

	err = svc.Surrender(s.ctx, approved, 250, 2026, "", domain.ZeroHash)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	balance, err := s.engine.BalanceOf(s.ctx, approved)
	s.Require().NoError(err)
	s.Equal(int64(1000), balance)

	total, err := s.engine.TotalSupply(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1000), total)
}

func (s *LedgerServiceSuite) TestSetRegistry() {
	s.Run("non-admin rejected", func() {
		err := s.service.SetRegistry(s.ctx, stranger, &fakeRegistry{})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("swapped registry drives gating", func() {
		// stranger becomes compliant under the replacement registry
		replacement := &fakeRegistry{profiles: map[domain.Address]*regmodels.Profile{
			stranger: {Account: stranger, DisplayName: "Farm C", KycApproved: true, Exists: true},
		}}
		s.Require().NoError(s.service.SetRegistry(s.ctx, admin, replacement))

		s.Require().NoError(s.service.Mint(s.ctx, admin, stranger, 10))
		s.Require().NoError(s.service.Transfer(s.ctx, stranger, admin, 5))
	})
}
