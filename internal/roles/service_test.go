package roles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"cac/pkg/domain"
	dErrors "cac/pkg/domain-errors"
)

const (
	adminAddr = domain.Address("0x00000000000000000000000000000000000000ad")
	userAddr  = domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
)

type RolesSuite struct {
	suite.Suite
	service *Service
	ctx     context.Context
}

func TestRolesSuite(t *testing.T) {
	suite.Run(t, new(RolesSuite))
}

func (s *RolesSuite) SetupTest() {
	s.ctx = context.Background()
	store := NewInMemoryStore()
	s.Require().NoError(store.Grant(s.ctx, adminAddr, RoleAdmin))

	var err error
	s.service, err = New(store)
	s.Require().NoError(err)
}

func (s *RolesSuite) TestRequireAdmin() {
	s.NoError(s.service.RequireAdmin(s.ctx, adminAddr))

	err := s.service.RequireAdmin(s.ctx, userAddr)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *RolesSuite) TestGrantRevoke() {
	s.Run("non-admin cannot grant", func() {
		err := s.service.Grant(s.ctx, userAddr, userAddr, RoleOperator)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("admin grants and revokes", func() {
		s.Require().NoError(s.service.Grant(s.ctx, adminAddr, userAddr, RoleOperator))
		held, err := s.service.Has(s.ctx, userAddr, RoleOperator)
		s.Require().NoError(err)
		s.True(held)

		s.Require().NoError(s.service.Revoke(s.ctx, adminAddr, userAddr, RoleOperator))
		held, err = s.service.Has(s.ctx, userAddr, RoleOperator)
		s.Require().NoError(err)
		s.False(held)
	})

	s.Run("invalid role rejected", func() {
		err := s.service.Grant(s.ctx, adminAddr, userAddr, Role("superuser"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *RolesSuite) TestHolders() {
	_, err := s.service.Holders(s.ctx, userAddr, RoleAdmin)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	holders, err := s.service.Holders(s.ctx, adminAddr, RoleAdmin)
	s.Require().NoError(err)
	s.Equal([]domain.Address{adminAddr}, holders)
}
