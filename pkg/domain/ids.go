// Package domain defines the typed identifiers and value types shared by
// every layer of the registry. Parsing happens once, at trust boundaries;
// everything past the handler works with these types, never raw strings.
package domain

import (
	"fmt"
	"strconv"
	"strings"

	dErrors "registrar/pkg/domain-errors"
)

// DomainID is the registry-assigned identifier of a name record. IDs are
// allocated monotonically and never reused, so a fresh registration of a
// lapsed name always yields a new ID.
type DomainID uint64

func (d DomainID) String() string {
	return strconv.FormatUint(uint64(d), 10)
}

// ParseDomainID parses a decimal record ID.
func ParseDomainID(s string) (DomainID, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "domain id is required")
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInvalidInput, "domain id must be a positive integer")
	}
	if v == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "domain id must be non-zero")
	}
	return DomainID(v), nil
}

// OwnerAddress identifies an account in the surrounding execution
// environment: 0x-prefixed, 16 lowercase hex digits (an 8-byte account
// address). The registry treats it as opaque beyond format validation.
type OwnerAddress string

func (a OwnerAddress) String() string {
	return string(a)
}

// IsZero reports whether the address is unset.
func (a OwnerAddress) IsZero() bool {
	return a == ""
}

// ParseOwnerAddress validates and canonicalizes an account address.
// Input is case-insensitive; the canonical form is lowercase.
func ParseOwnerAddress(s string) (OwnerAddress, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "owner address is required")
	}
	hexPart, ok := strings.CutPrefix(s, "0x")
	if !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "owner address must start with 0x")
	}
	if len(hexPart) != 16 {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "owner address must be 16 hex digits, got %d", len(hexPart))
	}
	for _, c := range hexPart {
		if !isHexDigit(c) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "owner address contains non-hex characters")
		}
	}
	return OwnerAddress(s), nil
}

// NameHash is the canonical lookup key for a name: the lowercase hex
// encoding of a SHA3-256 digest (64 characters). Hashes are produced by
// internal/registry/namehash; this type only validates shape at boundaries.
type NameHash string

func (h NameHash) String() string {
	return string(h)
}

// ParseNameHash validates a hex-encoded name hash.
func ParseNameHash(s string) (NameHash, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "name hash is required")
	}
	if len(s) != 64 {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "name hash must be 64 hex characters, got %d", len(s))
	}
	for _, c := range s {
		if !isHexDigit(c) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "name hash contains non-hex characters")
		}
	}
	return NameHash(s), nil
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}

// MustOwnerAddress is a test helper; it panics on invalid input.
func MustOwnerAddress(s string) OwnerAddress {
	a, err := ParseOwnerAddress(s)
	if err != nil {
		panic(fmt.Sprintf("invalid owner address %q: %v", s, err))
	}
	return a
}
