package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(CodeConflict, "name is not available")
	assert.Equal(t, CodeConflict, err.Code)
	assert.Equal(t, "name is not available", err.Message)
	assert.EqualError(t, err, "name is not available")
	assert.Nil(t, err.Unwrap())
}

func TestNewf(t *testing.T) {
	err := Newf(CodeValidation, "name must be at least %d characters", 3)
	assert.Equal(t, CodeValidation, err.Code)
	assert.EqualError(t, err, "name must be at least 3 characters")
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "failed to load domain")

	assert.Equal(t, CodeInternal, err.Code)
	assert.Equal(t, "failed to load domain", err.Message)
	assert.EqualError(t, err, "failed to load domain: connection refused")
	assert.ErrorIs(t, err, cause)
}

func TestCodeOf(t *testing.T) {
	t.Run("coded error", func(t *testing.T) {
		assert.Equal(t, CodeNotFound, CodeOf(New(CodeNotFound, "domain not found")))
	})

	t.Run("coded error behind fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", New(CodeNotOwner, "caller does not own this domain"))
		assert.Equal(t, CodeNotOwner, CodeOf(err))
	})

	t.Run("uncoded error classifies as internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestHasCode(t *testing.T) {
	inner := New(CodeInsufficientPayment, "insufficient funds for rent")
	outer := Wrap(inner, CodeInternal, "registration failed")

	assert.True(t, HasCode(outer, CodeInternal))
	assert.True(t, HasCode(outer, CodeInsufficientPayment))
	assert.False(t, HasCode(outer, CodeConflict))
	assert.False(t, HasCode(nil, CodeConflict))
	assert.False(t, HasCode(errors.New("boom"), CodeInternal))
}

// The code strings are wire format: clients match on them, so they are part
// of the package contract.
func TestCodeStrings(t *testing.T) {
	codes := map[Code]string{
		CodeValidation:          "validation",
		CodeInvalidInput:        "invalid_input",
		CodeBadRequest:          "bad_request",
		CodeUnauthorized:        "unauthorized",
		CodeNotOwner:            "not_owner",
		CodeNotFound:            "not_found",
		CodeConflict:            "conflict",
		CodeInsufficientPayment: "insufficient_payment",
		CodeInvalidExtension:    "invalid_extension",
		CodeInvariantViolation:  "invariant_violation",
		CodeInternal:            "internal_error",
	}
	for code, want := range codes {
		require.Equal(t, want, string(code))
	}
}
