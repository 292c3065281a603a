package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"cac/pkg/domain"
	dErrors "cac/pkg/domain-errors"
)

type EngineSuite struct {
	suite.Suite
	engine *InMemoryEngine
	ctx    context.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.engine = New()
	s.ctx = context.Background()
}

const (
	alice = domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob   = domain.Address("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	carol = domain.Address("0xcccccccccccccccccccccccccccccccccccccccc")
)

func (s *EngineSuite) totalSupply() int64 {
	total, err := s.engine.TotalSupply(s.ctx)
	s.Require().NoError(err)
	return total
}

func (s *EngineSuite) balance(a domain.Address) int64 {
	b, err := s.engine.BalanceOf(s.ctx, a)
	s.Require().NoError(err)
	return b
}

func (s *EngineSuite) TestMint() {
	s.Run("positive amount credits balance and supply", func() {
		s.Require().NoError(s.engine.Mint(s.ctx, alice, 1000))
		s.Equal(int64(1000), s.balance(alice))
		s.Equal(int64(1000), s.totalSupply())
	})

	s.Run("zero amount rejected", func() {
		err := s.engine.Mint(s.ctx, alice, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	})

	s.Run("negative amount rejected", func() {
		err := s.engine.Mint(s.ctx, alice, -5)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	})
}

func (s *EngineSuite) TestMintFromQuota() {
	s.Require().NoError(s.engine.SetQuota(s.ctx, alice, 100))

	s.Run("within quota mints and decrements", func() {
		s.Require().NoError(s.engine.MintFromQuota(s.ctx, alice, 60))
		s.Equal(int64(60), s.balance(alice))

		quota, err := s.engine.QuotaOf(s.ctx, alice)
		s.Require().NoError(err)
		s.Equal(int64(40), quota)
	})

	s.Run("exceeding quota fails and leaves state unchanged", func() {
		err := s.engine.MintFromQuota(s.ctx, alice, 41)
		s.True(dErrors.HasCode(err, dErrors.CodeQuotaExceeded))

		quota, err := s.engine.QuotaOf(s.ctx, alice)
		s.Require().NoError(err)
		s.Equal(int64(40), quota)
		s.Equal(int64(60), s.balance(alice))
		s.Equal(int64(60), s.totalSupply())
	})

	s.Run("set replaces rather than adds", func() {
		s.Require().NoError(s.engine.SetQuota(s.ctx, alice, 10))
		quota, err := s.engine.QuotaOf(s.ctx, alice)
		s.Require().NoError(err)
		s.Equal(int64(10), quota)
	})
}

func (s *EngineSuite) TestTransfer() {
	s.Require().NoError(s.engine.Mint(s.ctx, alice, 100))

	s.Run("moves balance between accounts", func() {
		s.Require().NoError(s.engine.Transfer(s.ctx, alice, bob, 30))
		s.Equal(int64(70), s.balance(alice))
		s.Equal(int64(30), s.balance(bob))
		s.Equal(int64(100), s.totalSupply())
	})

	s.Run("insufficient balance fails without partial effect", func() {
		err := s.engine.Transfer(s.ctx, alice, bob, 71)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientBalance))
		s.Equal(int64(70), s.balance(alice))
		s.Equal(int64(30), s.balance(bob))
	})
}

func (s *EngineSuite) TestTransferFrom() {
	s.Require().NoError(s.engine.Mint(s.ctx, alice, 100))
	s.Require().NoError(s.engine.Approve(s.ctx, alice, bob, 50))

	s.Run("decrements allowance with the move", func() {
		s.Require().NoError(s.engine.TransferFrom(s.ctx, bob, alice, carol, 20))
		s.Equal(int64(80), s.balance(alice))
		s.Equal(int64(20), s.balance(carol))

		allowance, err := s.engine.Allowance(s.ctx, alice, bob)
		s.Require().NoError(err)
		s.Equal(int64(30), allowance)
	})

	s.Run("exceeding allowance fails before balance check", func() {
		err := s.engine.TransferFrom(s.ctx, bob, alice, carol, 31)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientAllowance))
		s.Equal(int64(80), s.balance(alice))
	})

	s.Run("exceeding balance fails without allowance decrement", func() {
		s.Require().NoError(s.engine.Approve(s.ctx, alice, bob, 500))
		err := s.engine.TransferFrom(s.ctx, bob, alice, carol, 81)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientBalance))

		allowance, err2 := s.engine.Allowance(s.ctx, alice, bob)
		s.Require().NoError(err2)
		s.Equal(int64(500), allowance)
	})

	s.Run("approve zero clears the allowance", func() {
		s.Require().NoError(s.engine.Approve(s.ctx, alice, bob, 0))
		allowance, err := s.engine.Allowance(s.ctx, alice, bob)
		s.Require().NoError(err)
		s.Zero(allowance)
	})
}

func (s *EngineSuite) TestBurn() {
	s.Require().NoError(s.engine.Mint(s.ctx, alice, 100))

	s.Run("reduces balance and supply", func() {
		s.Require().NoError(s.engine.Burn(s.ctx, alice, 40))
		s.Equal(int64(60), s.balance(alice))
		s.Equal(int64(60), s.totalSupply())
	})

	s.Run("over-burn fails unchanged", func() {
		err := s.engine.Burn(s.ctx, alice, 61)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientBalance))
		s.Equal(int64(60), s.balance(alice))
		s.Equal(int64(60), s.totalSupply())
	})
}

// Conservation: sum(balance) == totalSupply after any interleaving of
// concurrent mutations.
func (s *EngineSuite) TestConservationUnderConcurrency() {
	s.Require().NoError(s.engine.Mint(s.ctx, alice, 10_000))
	s.Require().NoError(s.engine.SetQuota(s.ctx, bob, 10_000))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_ = s.engine.Transfer(s.ctx, alice, bob, 10)
		}()
		go func() {
			defer wg.Done()
			_ = s.engine.MintFromQuota(s.ctx, bob, 5)
		}()
		go func() {
			defer wg.Done()
			_ = s.engine.Burn(s.ctx, bob, 3)
		}()
	}
	wg.Wait()

	sum := s.balance(alice) + s.balance(bob) + s.balance(carol)
	s.Equal(s.totalSupply(), sum)
}
