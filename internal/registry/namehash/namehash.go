// Package namehash maps a canonical name to its fixed-width lookup key.
//
// The function is SHA3-256 over the canonical (lowercase, validated) name,
// hex encoded. It is part of the registry's persistent format: changing it
// would orphan every stored byHash entry, so it is defined once and never
// versioned. Malformed names are rejected by validation before they reach
// this package.
package namehash

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"

	"registrar/pkg/domain"
)

// Hash returns the canonical lookup key for a name.
func Hash(name string) domain.NameHash {
	sum := sha3.Sum256([]byte(name))
	return domain.NameHash(hex.EncodeToString(sum[:]))
}
