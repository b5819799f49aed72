// Package identity verifies the bearer tokens minted by the external
// identity provider. The registry never runs an auth flow itself; it only
// needs the caller's account address, asserted by a token signature.
package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
)

// Claims represents the JWT claims carried by caller identity tokens.
type Claims struct {
	Address string `json:"address"`
	jwt.RegisteredClaims
}

// Verifier validates identity tokens and extracts the caller address.
type Verifier struct {
	signingKey []byte
	issuer     string
}

func NewVerifier(signingKey string, issuer string) *Verifier {
	return &Verifier{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// MintToken signs an identity token for the given address. Used by tests
// and development tooling; production tokens come from the identity provider.
func (v *Verifier) MintToken(addr domain.OwnerAddress, expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Address: addr.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    v.issuer,
			ID:        uuid.NewString(),
		},
	})
	return newToken.SignedString(v.signingKey)
}

// ValidateToken checks the signature and expiry and returns the caller's
// validated account address.
func (v *Verifier) ValidateToken(tokenString string) (domain.OwnerAddress, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	addr, err := domain.ParseOwnerAddress(claims.Address)
	if err != nil {
		return "", dErrors.New(dErrors.CodeUnauthorized, "token carries an invalid address")
	}
	return addr, nil
}
