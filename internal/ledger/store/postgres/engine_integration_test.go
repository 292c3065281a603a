//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"cac/internal/ledger/store/postgres"
	"cac/pkg/domain"
	dErrors "cac/pkg/domain-errors"
	"cac/pkg/testutil/containers"
)

const (
	alice = domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob   = domain.Address("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	carol = domain.Address("0xcccccccccccccccccccccccccccccccccccccccc")
)

type PostgresEngineSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	engine   *postgres.PostgresEngine
	ctx      context.Context
}

func TestPostgresEngineSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresEngineSuite))
}

func (s *PostgresEngineSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.engine = postgres.New(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresEngineSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(s.ctx))
}

func (s *PostgresEngineSuite) balance(account domain.Address) int64 {
	balance, err := s.engine.BalanceOf(s.ctx, account)
	s.Require().NoError(err)
	return balance
}

func (s *PostgresEngineSuite) supply() int64 {
	total, err := s.engine.TotalSupply(s.ctx)
	s.Require().NoError(err)
	return total
}

func (s *PostgresEngineSuite) TestMintAndTransfer() {
	s.Require().NoError(s.engine.Mint(s.ctx, alice, 100))
	s.Equal(int64(100), s.balance(alice))
	s.Equal(int64(100), s.supply())

	s.Require().NoError(s.engine.Transfer(s.ctx, alice, bob, 30))
	s.Equal(int64(70), s.balance(alice))
	s.Equal(int64(30), s.balance(bob))
	s.Equal(int64(100), s.supply(), "transfer must not change total supply")

	err := s.engine.Transfer(s.ctx, alice, bob, 71)
	s.True(dErrors.HasCode(err, dErrors.CodeInsufficientBalance))
	s.Equal(int64(70), s.balance(alice), "failed transfer must leave balances unchanged")
}

func (s *PostgresEngineSuite) TestQuota() {
	s.Require().NoError(s.engine.SetQuota(s.ctx, alice, 50))

	s.Require().NoError(s.engine.MintFromQuota(s.ctx, alice, 20))
	s.Equal(int64(20), s.balance(alice))

	quota, err := s.engine.QuotaOf(s.ctx, alice)
	s.Require().NoError(err)
	s.Equal(int64(30), quota)

	err = s.engine.MintFromQuota(s.ctx, alice, 31)
	s.True(dErrors.HasCode(err, dErrors.CodeQuotaExceeded))
	s.Equal(int64(20), s.balance(alice), "failed quota mint must leave state unchanged")
}

func (s *PostgresEngineSuite) TestAllowance() {
	s.Require().NoError(s.engine.Mint(s.ctx, alice, 100))
	s.Require().NoError(s.engine.Approve(s.ctx, alice, bob, 40))

	s.Require().NoError(s.engine.TransferFrom(s.ctx, bob, alice, carol, 25))
	s.Equal(int64(75), s.balance(alice))
	s.Equal(int64(25), s.balance(carol))

	allowance, err := s.engine.Allowance(s.ctx, alice, bob)
	s.Require().NoError(err)
	s.Equal(int64(15), allowance)

	err = s.engine.TransferFrom(s.ctx, bob, alice, carol, 16)
	s.True(dErrors.HasCode(err, dErrors.CodeInsufficientAllowance))

	allowance, err = s.engine.Allowance(s.ctx, alice, bob)
	s.Require().NoError(err)
	s.Equal(int64(15), allowance, "failed delegated transfer must not consume allowance")
}

func (s *PostgresEngineSuite) TestBurn() {
	s.Require().NoError(s.engine.Mint(s.ctx, alice, 100))
	s.Require().NoError(s.engine.Burn(s.ctx, alice, 60))
	s.Equal(int64(40), s.balance(alice))
	s.Equal(int64(40), s.supply())

	err := s.engine.Burn(s.ctx, alice, 41)
	s.True(dErrors.HasCode(err, dErrors.CodeInsufficientBalance))
}

// TestConcurrentTransfersConserveSupply drives opposing transfers between two
// accounts from many goroutines; row locks in address order must serialize
// them without deadlock or lost updates.
func (s *PostgresEngineSuite) TestConcurrentTransfersConserveSupply() {
	s.Require().NoError(s.engine.Mint(s.ctx, alice, 1000))
	s.Require().NoError(s.engine.Mint(s.ctx, bob, 1000))

	const goroutines = 40
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = s.engine.Transfer(s.ctx, alice, bob, 3)
			} else {
				_ = s.engine.Transfer(s.ctx, bob, alice, 3)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int64(2000), s.supply())
	s.Equal(int64(2000), s.balance(alice)+s.balance(bob))
}
