package handler

import (
	"time"

	"registrar/internal/registry/models"
	"registrar/pkg/domain"
)

// DomainResponse is the public projection of a record on the wire.
type DomainResponse struct {
	ID              domain.DomainID     `json:"id"`
	Name            string              `json:"name"`
	NameHash        domain.NameHash     `json:"name_hash"`
	Owner           domain.OwnerAddress `json:"owner"`
	ResolvedAddress domain.OwnerAddress `json:"resolved_address,omitempty"`
	Bio             string              `json:"bio,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	ExpiresAt       time.Time           `json:"expires_at"`
}

// FromDomainInfo converts a public projection to its wire form.
func FromDomainInfo(info models.DomainInfo) DomainResponse {
	return DomainResponse{
		ID:              info.ID,
		Name:            info.Name,
		NameHash:        info.NameHash,
		Owner:           info.Owner,
		ResolvedAddress: info.ResolvedAddress,
		Bio:             info.Bio,
		CreatedAt:       info.CreatedAt,
		ExpiresAt:       info.ExpiresAt,
	}
}

// FromDomainInfos converts a list of projections.
func FromDomainInfos(infos []models.DomainInfo) []DomainResponse {
	out := make([]DomainResponse, 0, len(infos))
	for _, info := range infos {
		out = append(out, FromDomainInfo(info))
	}
	return out
}

// FromDomain converts a full record to the public wire form. Used on write
// paths where the service returns the mutated record.
func FromDomain(d *models.Domain) DomainResponse {
	return FromDomainInfo(d.Info())
}

// QuoteResponse is the HTTP response for GET /quote.
type QuoteResponse struct {
	Name            string        `json:"name"`
	DurationSeconds int64         `json:"duration_seconds"`
	Cost            domain.Amount `json:"cost"`
}

// InitializedResponse is the HTTP response for GET /owners/{address}/initialized.
type InitializedResponse struct {
	Address     domain.OwnerAddress `json:"address"`
	Initialized bool                `json:"initialized"`
}

// StatusResponse is a minimal acknowledgement body.
type StatusResponse struct {
	Status string `json:"status"`
}
