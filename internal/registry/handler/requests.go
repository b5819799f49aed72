package handler

import (
	"strings"
	"time"

	"registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
)

// RegisterRequest is the HTTP request body for POST /domains.
type RegisterRequest struct {
	Name            string         `json:"name"`
	DurationSeconds int64          `json:"duration_seconds"`
	Payment         *domain.Amount `json:"payment,omitempty"`
}

// Prepare validates the request shape. Name policy and pricing rules are
// enforced by the service.
func (r *RegisterRequest) Prepare() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.DurationSeconds <= 0 {
		return dErrors.New(dErrors.CodeValidation, "duration_seconds must be a positive integer")
	}
	return nil
}

// Duration returns the requested lease duration.
func (r *RegisterRequest) Duration() time.Duration {
	return time.Duration(r.DurationSeconds) * time.Second
}

// RenewRequest is the HTTP request body for POST /domains/{nameHash}/renew.
type RenewRequest struct {
	DurationSeconds int64          `json:"duration_seconds"`
	Payment         *domain.Amount `json:"payment,omitempty"`
}

func (r *RenewRequest) Prepare() error {
	if r.DurationSeconds <= 0 {
		return dErrors.New(dErrors.CodeValidation, "duration_seconds must be a positive integer")
	}
	return nil
}

// Duration returns the requested extension.
func (r *RenewRequest) Duration() time.Duration {
	return time.Duration(r.DurationSeconds) * time.Second
}

// UpdateBioRequest is the HTTP request body for PUT /domains/{nameHash}/bio.
type UpdateBioRequest struct {
	Bio string `json:"bio"`
}

// UpdateAddressRequest is the HTTP request body for
// PUT /domains/{nameHash}/address.
type UpdateAddressRequest struct {
	Address string `json:"address"`

	parsedAddress domain.OwnerAddress
}

func (r *UpdateAddressRequest) Prepare() error {
	addr, err := domain.ParseOwnerAddress(r.Address)
	if err != nil {
		return err
	}
	r.parsedAddress = addr
	return nil
}

// ParsedAddress returns the validated resolution target.
func (r *UpdateAddressRequest) ParsedAddress() domain.OwnerAddress {
	return r.parsedAddress
}
