//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cac/internal/registry/models"
	"cac/internal/registry/store/postgres"
	"cac/pkg/domain"
	"cac/pkg/platform/sentinel"
	"cac/pkg/testutil/containers"
)

const (
	accountA = domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	accountB = domain.Address("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

var taxHash = domain.Hash32("0x1111111111111111111111111111111111111111111111111111111111111111")

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background()))
}

func (s *PostgresStoreSuite) newProfile(account domain.Address) *models.Profile {
	p, err := models.NewProfile(account, taxHash, "ipfs://meta", "Farm A", time.Now().UTC())
	s.Require().NoError(err)
	return p
}

func (s *PostgresStoreSuite) TestPutAndGet() {
	ctx := context.Background()

	p := s.newProfile(accountA)
	s.Require().NoError(s.store.Put(ctx, p))

	got, err := s.store.Get(ctx, accountA)
	s.Require().NoError(err)
	s.Equal(accountA, got.Account)
	s.Equal("Farm A", got.DisplayName)
	s.Equal(taxHash, got.TaxIDHash)
	s.False(got.KycApproved)
	s.WithinDuration(p.RegisteredAt, got.RegisteredAt, time.Second)
}

func (s *PostgresStoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), accountB)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestPutUpserts() {
	ctx := context.Background()

	p := s.newProfile(accountA)
	s.Require().NoError(s.store.Put(ctx, p))

	p.ApplyRegistration(taxHash, "ipfs://meta-v2", "Farm A Renamed", time.Now().UTC())
	s.Require().NoError(s.store.Put(ctx, p))

	got, err := s.store.Get(ctx, accountA)
	s.Require().NoError(err)
	s.Equal("Farm A Renamed", got.DisplayName)
	s.Equal("ipfs://meta-v2", got.MetadataURI)
}

func (s *PostgresStoreSuite) TestExecute() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, s.newProfile(accountA)))

	s.Run("commits the mutation", func() {
		err := s.store.Execute(ctx, accountA, func(p *models.Profile) error {
			p.ApplyKycDecision(true, "", time.Now().UTC())
			return nil
		})
		s.Require().NoError(err)

		got, err := s.store.Get(ctx, accountA)
		s.Require().NoError(err)
		s.True(got.KycApproved)
	})

	s.Run("rolls back on fn error", func() {
		boom := errors.New("boom")
		err := s.store.Execute(ctx, accountA, func(p *models.Profile) error {
			p.ApplyKycDecision(false, "revoked", time.Now().UTC())
			return boom
		})
		s.Require().ErrorIs(err, boom)

		got, err := s.store.Get(ctx, accountA)
		s.Require().NoError(err)
		s.True(got.KycApproved, "failed mutation must not commit")
	})

	s.Run("missing profile", func() {
		err := s.store.Execute(ctx, accountB, func(*models.Profile) error { return nil })
		s.True(errors.Is(err, sentinel.ErrNotFound))
	})
}
