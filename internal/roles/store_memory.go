package roles

import (
	"context"
	"sync"

	"cac/pkg/domain"
)

// InMemoryStore holds role grants in process memory.
type InMemoryStore struct {
	mu     sync.RWMutex
	grants map[Role]map[domain.Address]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{grants: make(map[Role]map[domain.Address]bool)}
}

func (s *InMemoryStore) Has(_ context.Context, addr domain.Address, role Role) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grants[role][addr], nil
}

func (s *InMemoryStore) Grant(_ context.Context, addr domain.Address, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grants[role] == nil {
		s.grants[role] = make(map[domain.Address]bool)
	}
	s.grants[role][addr] = true
	return nil
}

func (s *InMemoryStore) Revoke(_ context.Context, addr domain.Address, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.grants[role], addr)
	return nil
}

func (s *InMemoryStore) Holders(_ context.Context, role Role) ([]domain.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Address
	for addr := range s.grants[role] {
		out = append(out, addr)
	}
	return out, nil
}
