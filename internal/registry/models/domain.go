package models

import (
	"strings"
	"time"

	"registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
)

// Domain is the aggregate root for one registered name.
//
// Invariants:
//   - Name and NameHash are immutable after construction
//   - ID is registry-assigned, immutable, never reused
//   - CreatedAt is immutable after construction
//   - ExpiresAt only ever moves forward (renewal extends from current expiry)
//   - ResolvedAddress and Bio are mutable only through an owner capability
//
// Expiry is a derived predicate, not a deletion event: an expired record
// stays readable, resolves nothing, and its name-hash slot is reclaimed by a
// fresh registration that allocates a new ID.
type Domain struct {
	ID              domain.DomainID     `json:"id"`
	Name            string              `json:"name"`
	NameHash        domain.NameHash     `json:"name_hash"`
	Owner           domain.OwnerAddress `json:"owner"`
	CreatedAt       time.Time           `json:"created_at"`
	ExpiresAt       time.Time           `json:"expires_at"`
	ResolvedAddress domain.OwnerAddress `json:"resolved_address,omitempty"`
	Bio             string              `json:"bio,omitempty"`
}

// IsExpiredAt reports whether the lease has lapsed at the given instant.
func (d *Domain) IsExpiredAt(now time.Time) bool {
	return now.After(d.ExpiresAt)
}

// IsReclaimableAt reports whether the name slot can be taken by a fresh
// registration: the lease has lapsed and the grace period has passed.
func (d *Domain) IsReclaimableAt(now time.Time, grace time.Duration) bool {
	return now.After(d.ExpiresAt.Add(grace))
}

// CanExtend checks that a renewal would move expiry strictly forward.
// Use with ApplyExtension in Execute callbacks.
func (d *Domain) CanExtend(newExpiry time.Time) error {
	if !newExpiry.After(d.ExpiresAt) {
		return dErrors.New(dErrors.CodeInvalidExtension, "renewal must extend the current expiry")
	}
	return nil
}

// ApplyExtension advances the expiry. Call CanExtend first.
func (d *Domain) ApplyExtension(newExpiry time.Time) {
	d.ExpiresAt = newExpiry
}

// ApplyBio replaces the owner-writable bio field.
func (d *Domain) ApplyBio(bio string) {
	d.Bio = bio
}

// ApplyResolvedAddress replaces the owner-writable resolved address.
func (d *Domain) ApplyResolvedAddress(addr domain.OwnerAddress) {
	d.ResolvedAddress = addr
}

// Info returns the public read-only projection of the record. This is the
// only view handed out without an ownership check; the mutation methods
// above are reached exclusively through an owner capability.
func (d *Domain) Info() DomainInfo {
	return DomainInfo{
		ID:              d.ID,
		Name:            d.Name,
		NameHash:        d.NameHash,
		Owner:           d.Owner,
		ResolvedAddress: d.ResolvedAddress,
		Bio:             d.Bio,
		CreatedAt:       d.CreatedAt,
		ExpiresAt:       d.ExpiresAt,
	}
}

// DomainInfo is the public projection of a record: everything a caller can
// learn without holding any capability.
type DomainInfo struct {
	ID              domain.DomainID     `json:"id"`
	Name            string              `json:"name"`
	NameHash        domain.NameHash     `json:"name_hash"`
	Owner           domain.OwnerAddress `json:"owner"`
	ResolvedAddress domain.OwnerAddress `json:"resolved_address,omitempty"`
	Bio             string              `json:"bio,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	ExpiresAt       time.Time           `json:"expires_at"`
}

// NamePolicy bounds what counts as a registerable name. The forbidden
// character set matches the registry's historical policy; length bounds are
// operator configuration.
type NamePolicy struct {
	MinLength int
	MaxLength int
}

const forbiddenNameChars = `!@#$%^&*()<>? ./`

// CanonicalName validates a requested name against the policy and returns
// its canonical (lowercase) form. The canonical form is what gets hashed
// and stored; validation always runs before hashing.
func CanonicalName(name string, policy NamePolicy) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(name) < policy.MinLength {
		return "", dErrors.Newf(dErrors.CodeValidation, "name must be at least %d characters", policy.MinLength)
	}
	if len(name) > policy.MaxLength {
		return "", dErrors.Newf(dErrors.CodeValidation, "name must be at most %d characters", policy.MaxLength)
	}
	for _, c := range name {
		if c < '!' || c > '~' {
			return "", dErrors.New(dErrors.CodeValidation, "name contains non-printable or non-ASCII characters")
		}
		if strings.ContainsRune(forbiddenNameChars, c) {
			return "", dErrors.Newf(dErrors.CodeValidation, "name contains forbidden character %q", c)
		}
	}
	return strings.ToLower(name), nil
}
