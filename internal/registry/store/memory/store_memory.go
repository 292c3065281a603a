package memory

import (
	"context"
	"sync"

	"cac/internal/registry/models"
	"cac/pkg/domain"
	"cac/pkg/platform/sentinel"
)

// InMemoryStore keeps profiles in process memory. Default backend for
// development and unit tests.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[domain.Address]*models.Profile
}

func New() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[domain.Address]*models.Profile)}
}

func (s *InMemoryStore) Get(_ context.Context, account domain.Address) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[account]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *InMemoryStore) Put(_ context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *profile
	s.profiles[profile.Account] = &copied
	return nil
}

// Execute applies fn to a copy and commits only when fn succeeds, so a
// failing precondition leaves no observable change.
func (s *InMemoryStore) Execute(_ context.Context, account domain.Address, fn func(*models.Profile) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[account]
	if !ok {
		return sentinel.ErrNotFound
	}
	working := *p
	if err := fn(&working); err != nil {
		return err
	}
	s.profiles[account] = &working
	return nil
}
