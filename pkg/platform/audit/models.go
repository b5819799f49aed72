// Package audit defines the registry's event trail: every successful write
// operation emits one event. Events mirror what the surrounding system
// observes on-chain (registrations, renewals, metadata changes) and are the
// input to any downstream indexer or viewer.
package audit

import (
	"context"
	"time"

	"registrar/pkg/domain"
)

// RegistryEvent enumerates the event actions the registry emits.
type RegistryEvent string

const (
	EventAccountInitialized   RegistryEvent = "account.initialized"
	EventDomainRegistered     RegistryEvent = "domain.registered"
	EventDomainRenewed        RegistryEvent = "domain.renewed"
	EventDomainBioChanged     RegistryEvent = "domain.bio_changed"
	EventDomainAddressChanged RegistryEvent = "domain.address_changed"
)

// Event is one audit record. Fields not relevant to an action stay zero;
// consumers switch on Action.
type Event struct {
	ID        string              `json:"id"`
	Action    string              `json:"action"`
	Owner     domain.OwnerAddress `json:"owner"`
	DomainID  domain.DomainID     `json:"domain_id,omitempty"`
	Name      string              `json:"name,omitempty"`
	NameHash  domain.NameHash     `json:"name_hash,omitempty"`
	Cost      domain.Amount       `json:"cost,omitempty"`
	ExpiresAt time.Time           `json:"expires_at,omitzero"`
	RequestID string              `json:"request_id,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// Store persists audit events. Implementations must be safe for concurrent
// use; Append is called on every successful write operation.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByOwner(ctx context.Context, owner domain.OwnerAddress) ([]Event, error)
}
