package memory

import (
	"context"
	"sync"

	audit "registrar/pkg/platform/audit"

	"registrar/pkg/domain"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[domain.OwnerAddress][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[domain.OwnerAddress][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[domain.OwnerAddress][]audit.Event)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.Owner] = append(s.events[event.Owner], event)
	return nil
}

func (s *InMemoryStore) ListByOwner(_ context.Context, owner domain.OwnerAddress) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[owner]...), nil
}

// ListAll returns all audit events across all owners.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var allEvents []audit.Event
	for _, ownerEvents := range s.events {
		allEvents = append(allEvents, ownerEvents...)
	}
	return allEvents, nil
}
