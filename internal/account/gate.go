// Package account implements the registry's capability gate.
//
// Reads are public: anyone who knows an owner's address can fetch the
// read-only projection of their records once the owner has initialized a
// collection. Writes require an OwnerCapability, which only Authorize can
// construct, and only for the record's current owner. Handing the service a
// capability is the proof that the ownership check already happened.
package account

import (
	"context"
	"errors"
	"time"

	"registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
	"registrar/pkg/platform/sentinel"
)

// Store persists which owners have initialized their collection.
type Store interface {
	// InitAccount records the one-time initialization. Returns
	// sentinel.ErrConflict if the owner already initialized.
	InitAccount(ctx context.Context, owner domain.OwnerAddress, at time.Time) error
	// IsInitialized reports whether the owner has a collection.
	IsInitialized(ctx context.Context, owner domain.OwnerAddress) (bool, error)
}

// OwnerResolver answers who currently owns a record.
type OwnerResolver interface {
	OwnerOf(ctx context.Context, id domain.DomainID) (domain.OwnerAddress, error)
}

// OwnerCapability is unforgeable proof that the holder passed the ownership
// check for one record. The fields are unexported so nothing outside this
// package can construct one.
type OwnerCapability struct {
	id    domain.DomainID
	owner domain.OwnerAddress
}

// DomainID returns the record this capability is scoped to.
func (c OwnerCapability) DomainID() domain.DomainID {
	return c.id
}

// Owner returns the address the capability was issued to.
func (c OwnerCapability) Owner() domain.OwnerAddress {
	return c.owner
}

// Gate issues and validates capabilities over registry records.
type Gate struct {
	store   Store
	records OwnerResolver
}

func NewGate(store Store, records OwnerResolver) *Gate {
	return &Gate{store: store, records: records}
}

// Initialize sets up the caller's collection. One-time: re-initializing an
// already-initialized owner is an explicit conflict, mirroring storage that
// refuses to overwrite an existing collection.
func (g *Gate) Initialize(ctx context.Context, owner domain.OwnerAddress, at time.Time) error {
	if owner.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if err := g.store.InitAccount(ctx, owner, at); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "account is already initialized")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to initialize account")
	}
	return nil
}

// IsInitialized reports whether the owner has set up a collection.
func (g *Gate) IsInitialized(ctx context.Context, owner domain.OwnerAddress) (bool, error) {
	ok, err := g.store.IsInitialized(ctx, owner)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check account")
	}
	return ok, nil
}

// Authorize issues an owner capability for the record iff the caller is its
// current owner.
func (g *Gate) Authorize(ctx context.Context, caller domain.OwnerAddress, id domain.DomainID) (OwnerCapability, error) {
	if caller.IsZero() {
		return OwnerCapability{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	owner, err := g.records.OwnerOf(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return OwnerCapability{}, dErrors.New(dErrors.CodeNotFound, "domain not found")
		}
		return OwnerCapability{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve owner")
	}
	if owner != caller {
		return OwnerCapability{}, dErrors.New(dErrors.CodeNotOwner, "caller does not own this domain")
	}
	return OwnerCapability{id: id, owner: caller}, nil
}
