package account

import (
	"context"
	"sync"
	"time"

	"registrar/pkg/domain"
	"registrar/pkg/platform/sentinel"
)

// InMemoryStore tracks initialized accounts in a map.
type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[domain.OwnerAddress]time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{accounts: make(map[domain.OwnerAddress]time.Time)}
}

func (s *InMemoryStore) InitAccount(_ context.Context, owner domain.OwnerAddress, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[owner]; exists {
		return sentinel.ErrConflict
	}
	s.accounts[owner] = at
	return nil
}

func (s *InMemoryStore) IsInitialized(_ context.Context, owner domain.OwnerAddress) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.accounts[owner]
	return exists, nil
}
