package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cac/internal/registry/store/memory"
	"cac/pkg/domain"
	dErrors "cac/pkg/domain-errors"
	audit "cac/pkg/platform/audit"
	auditmemory "cac/pkg/platform/audit/store/memory"
	"cac/pkg/platform/audit/publisher"
	"cac/pkg/requestcontext"
)

const (
	operator = domain.Address("0x00000000000000000000000000000000000000ff")
	farmer   = domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	other    = domain.Address("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

var taxHash = domain.Hash32("0x1111111111111111111111111111111111111111111111111111111111111111")

type RegistryServiceSuite struct {
	suite.Suite
	store      *memory.InMemoryStore
	auditStore *auditmemory.InMemoryStore
	service    *Service
	ctx        context.Context
}

func TestRegistryServiceSuite(t *testing.T) {
	suite.Run(t, new(RegistryServiceSuite))
}

func (s *RegistryServiceSuite) SetupTest() {
	s.store = memory.New()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC))

	var err error
	s.service, err = New(s.store, operator,
		WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
	)
	s.Require().NoError(err)
}

func (s *RegistryServiceSuite) register(account domain.Address) {
	_, err := s.service.Register(s.ctx, account, taxHash, "ipfs://meta", "Farm A")
	s.Require().NoError(err)
}

func (s *RegistryServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil, operator)
		s.Error(err)
	})
	s.Run("zero operator returns error", func() {
		_, err := New(s.store, domain.ZeroAddress)
		s.Error(err)
	})
}

func (s *RegistryServiceSuite) TestRegister() {
	s.Run("creates profile and emits event", func() {
		p, err := s.service.Register(s.ctx, farmer, taxHash, "ipfs://meta", "Farm A")
		s.Require().NoError(err)
		s.True(p.Exists)
		s.False(p.KycApproved)

		events, err := s.auditStore.ListByActor(s.ctx, farmer.String(), string(audit.EventRegistered))
		s.Require().NoError(err)
		s.Len(events, 1)
	})

	s.Run("re-registration preserves standing approval", func() {
		s.register(farmer)
		s.Require().NoError(s.service.ApproveKyc(s.ctx, operator, farmer, true))

		p, err := s.service.Register(s.ctx, farmer, taxHash, "ipfs://meta2", "Farm A2")
		s.Require().NoError(err)
		s.True(p.KycApproved, "operator decision survives re-registration")
		s.Equal("Farm A2", p.DisplayName)
	})

	s.Run("invalid display name rejected", func() {
		_, err := s.service.Register(s.ctx, farmer, taxHash, "", "   ")
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *RegistryServiceSuite) TestUpdateOwnProfile() {
	s.Run("unregistered account fails NotRegistered", func() {
		err := s.service.UpdateMetadata(s.ctx, farmer, "ipfs://new")
		s.True(dErrors.HasCode(err, dErrors.CodeNotRegistered))
	})

	s.Run("updates own metadata and docs", func() {
		s.register(farmer)
		s.Require().NoError(s.service.UpdateMetadata(s.ctx, farmer, "ipfs://new"))
		s.Require().NoError(s.service.UpdateDocs(s.ctx, farmer, "ipfs://docs"))

		p, err := s.service.Profile(s.ctx, farmer)
		s.Require().NoError(err)
		s.Equal("ipfs://new", p.MetadataURI)
		s.Equal("ipfs://docs", p.DocsURI)
	})
}

func (s *RegistryServiceSuite) TestKycDecisions() {
	s.register(farmer)

	s.Run("non-operator rejected", func() {
		err := s.service.ApproveKyc(s.ctx, other, farmer, true)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unregistered target fails NotRegistered", func() {
		err := s.service.ApproveKyc(s.ctx, operator, other, true)
		s.True(dErrors.HasCode(err, dErrors.CodeNotRegistered))
	})

	s.Run("reject stores the reason as the note", func() {
		s.Require().NoError(s.service.RejectKyc(s.ctx, operator, farmer, "docs incomplete"))
		note, err := s.service.KycNote(s.ctx, farmer)
		s.Require().NoError(err)
		s.Equal("docs incomplete", note)
	})

	s.Run("approval clears the note", func() {
		s.Require().NoError(s.service.ApproveKyc(s.ctx, operator, farmer, true))
		note, err := s.service.KycNote(s.ctx, farmer)
		s.Require().NoError(err)
		s.Empty(note)

		p, err := s.service.Profile(s.ctx, farmer)
		s.Require().NoError(err)
		s.True(p.IsCompliant())
	})
}

func (s *RegistryServiceSuite) TestReads() {
	s.Run("isRegistered false then true", func() {
		registered, err := s.service.IsRegistered(s.ctx, farmer)
		s.Require().NoError(err)
		s.False(registered)

		s.register(farmer)
		registered, err = s.service.IsRegistered(s.ctx, farmer)
		s.Require().NoError(err)
		s.True(registered)
	})

	s.Run("profile for unknown account fails NotFound", func() {
		_, err := s.service.Profile(s.ctx, other)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("operator is fixed", func() {
		s.Equal(operator, s.service.Operator())
	})
}
