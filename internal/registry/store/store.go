// Package store owns the registry's persistent state: the name-hash index,
// the record rows, and the derived owner index. Two implementations share
// one contract: InMemory for tests and development, Postgres for production.
//
// Concurrency contract: Allocate is the single source of truth for name
// uniqueness and is serialized per name-hash; a pre-checked availability
// read never authorizes a registration. Execute serializes mutations
// per-record. Reads return point-in-time copies and never block writers.
package store

import (
	"context"
	"time"

	"registrar/internal/registry/models"
	"registrar/pkg/domain"
)

// Store is the registry index and record store.
type Store interface {
	// Allocate reserves a fresh id for the record and installs the
	// byHash entry, atomically deciding availability at call time: if a
	// live record holds the hash and is not reclaimable at now (expiry
	// plus grace), Allocate fails with sentinel.ErrAlreadyUsed. On
	// success the record's ID field is assigned; ids are never reused.
	// Reclaiming a lapsed name supersedes the old record rather than
	// destroying it.
	Allocate(ctx context.Context, record *models.Domain, now time.Time, grace time.Duration) error

	// ResolveHash returns the record currently holding the hash, or
	// sentinel.ErrNotFound. Expired records still resolve; expiry is a
	// derived predicate, not a deletion.
	ResolveHash(ctx context.Context, hash domain.NameHash) (*models.Domain, error)

	// FindByID returns the record with the given id, superseded or not,
	// or sentinel.ErrNotFound.
	FindByID(ctx context.Context, id domain.DomainID) (*models.Domain, error)

	// OwnerOf returns the owner of the record with the given id, or
	// sentinel.ErrNotFound.
	OwnerOf(ctx context.Context, id domain.DomainID) (domain.OwnerAddress, error)

	// ListAll returns the live (non-superseded) records.
	ListAll(ctx context.Context) ([]*models.Domain, error)

	// ListByOwner returns all records owned by the address, including
	// expired ones; expiry is the caller's predicate to apply.
	ListByOwner(ctx context.Context, owner domain.OwnerAddress) ([]*models.Domain, error)

	// Execute atomically validates and mutates one record under the
	// store's per-record lock, returning the updated record. The
	// validate error aborts with no state change.
	Execute(ctx context.Context, id domain.DomainID, validate func(*models.Domain) error, mutate func(*models.Domain)) (*models.Domain, error)

	// Health reports whether the backing store is reachable.
	Health(ctx context.Context) error
}
