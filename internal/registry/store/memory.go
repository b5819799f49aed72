package store

import (
	"context"
	"sync"
	"time"

	"registrar/internal/registry/models"
	"registrar/pkg/domain"
	"registrar/pkg/platform/sentinel"
)

// InMemory keeps the whole registry under one RWMutex. Allocation and
// Execute take the write lock, which serializes them per the store
// contract; reads take the read lock and copy records out so callers never
// observe concurrent mutation.
type InMemory struct {
	mu         sync.RWMutex
	byHash     map[domain.NameHash]domain.DomainID
	byID       map[domain.DomainID]*models.Domain
	ownerIndex map[domain.OwnerAddress]map[domain.DomainID]struct{}
	nextID     domain.DomainID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byHash:     make(map[domain.NameHash]domain.DomainID),
		byID:       make(map[domain.DomainID]*models.Domain),
		ownerIndex: make(map[domain.OwnerAddress]map[domain.DomainID]struct{}),
		nextID:     1,
	}
}

func (s *InMemory) Allocate(_ context.Context, record *models.Domain, now time.Time, grace time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if currentID, held := s.byHash[record.NameHash]; held {
		current := s.byID[currentID]
		if !current.IsReclaimableAt(now, grace) {
			return sentinel.ErrAlreadyUsed
		}
		// Lapsed beyond grace: the slot moves to the new record. The old
		// record survives under its id and in its owner's index.
	}

	record.ID = s.nextID
	s.nextID++

	stored := *record
	s.byID[stored.ID] = &stored
	s.byHash[stored.NameHash] = stored.ID
	s.indexOwner(stored.Owner, stored.ID)
	return nil
}

func (s *InMemory) indexOwner(owner domain.OwnerAddress, id domain.DomainID) {
	ids, ok := s.ownerIndex[owner]
	if !ok {
		ids = make(map[domain.DomainID]struct{})
		s.ownerIndex[owner] = ids
	}
	ids[id] = struct{}{}
}

func (s *InMemory) ResolveHash(_ context.Context, hash domain.NameHash) (*models.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byHash[hash]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *s.byID[id]
	return &copied, nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.DomainID) (*models.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *InMemory) OwnerOf(_ context.Context, id domain.DomainID) (domain.OwnerAddress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.byID[id]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return record.Owner, nil
}

func (s *InMemory) ListAll(_ context.Context) ([]*models.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*models.Domain, 0, len(s.byHash))
	for _, id := range s.byHash {
		copied := *s.byID[id]
		records = append(records, &copied)
	}
	return records, nil
}

func (s *InMemory) ListByOwner(_ context.Context, owner domain.OwnerAddress) ([]*models.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.ownerIndex[owner]
	records := make([]*models.Domain, 0, len(ids))
	for id := range ids {
		copied := *s.byID[id]
		records = append(records, &copied)
	}
	return records, nil
}

func (s *InMemory) Execute(_ context.Context, id domain.DomainID, validate func(*models.Domain) error, mutate func(*models.Domain)) (*models.Domain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(record); err != nil {
		return nil, err
	}

	previousOwner := record.Owner
	mutate(record)
	if record.Owner != previousOwner {
		delete(s.ownerIndex[previousOwner], id)
		s.indexOwner(record.Owner, id)
	}

	copied := *record
	return &copied, nil
}

func (s *InMemory) Health(context.Context) error {
	return nil
}
