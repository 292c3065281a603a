package memory

import (
	"context"
	"sync"

	"cac/pkg/domain"
	dErrors "cac/pkg/domain-errors"
)

// InMemoryStore keeps wei balances behind one RWMutex.
type InMemoryStore struct {
	mu       sync.RWMutex
	balances map[domain.Address]int64
}

func New() *InMemoryStore {
	return &InMemoryStore{balances: make(map[domain.Address]int64)}
}

func (s *InMemoryStore) Credit(_ context.Context, account domain.Address, wei int64) error {
	if wei <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "wei amount must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[account] += wei
	return nil
}

func (s *InMemoryStore) Debit(_ context.Context, account domain.Address, wei int64) error {
	if wei <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "wei amount must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.balances[account] < wei {
		return dErrors.New(dErrors.CodeInsufficientPayment, "payment balance does not cover amount")
	}
	s.balances[account] -= wei
	return nil
}

func (s *InMemoryStore) Transfer(_ context.Context, from, to domain.Address, wei int64) error {
	if wei <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "wei amount must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.balances[from] < wei {
		return dErrors.New(dErrors.CodeInsufficientPayment, "payment balance does not cover amount")
	}
	s.balances[from] -= wei
	s.balances[to] += wei
	return nil
}

func (s *InMemoryStore) BalanceOf(_ context.Context, account domain.Address) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[account], nil
}
