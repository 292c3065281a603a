package memory

import (
	"context"
	"sync"

	"cac/internal/market/models"
	"cac/pkg/domain"
	"cac/pkg/platform/sentinel"
)

// InMemoryStore keeps listings in process memory. Ids start at 0 and only
// increase.
type InMemoryStore struct {
	mu       sync.RWMutex
	listings map[int64]*models.Listing
	nextID   int64
}

func New() *InMemoryStore {
	return &InMemoryStore{listings: make(map[int64]*models.Listing)}
}

func (s *InMemoryStore) Create(_ context.Context, listing *models.Listing) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	copied := *listing
	copied.ID = id
	s.listings[id] = &copied
	listing.ID = id
	return id, nil
}

func (s *InMemoryStore) Get(_ context.Context, id int64) (*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *l
	return &copied, nil
}

// Execute applies fn to a copy and commits only when fn succeeds, so a
// failing precondition leaves no observable change.
func (s *InMemoryStore) Execute(_ context.Context, id int64, fn func(*models.Listing) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	working := *l
	if err := fn(&working); err != nil {
		return err
	}
	s.listings[id] = &working
	return nil
}

func (s *InMemoryStore) NextID(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID, nil
}

func (s *InMemoryStore) Active(_ context.Context) ([]*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []*models.Listing
	for id := int64(0); id < s.nextID; id++ {
		l, ok := s.listings[id]
		if !ok || !l.Active() {
			continue
		}
		copied := *l
		active = append(active, &copied)
	}
	return active, nil
}

func (s *InMemoryStore) BySeller(_ context.Context, seller domain.Address) ([]*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Listing
	for id := int64(0); id < s.nextID; id++ {
		l, ok := s.listings[id]
		if !ok || l.Seller != seller {
			continue
		}
		copied := *l
		out = append(out, &copied)
	}
	return out, nil
}
