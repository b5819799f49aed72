package domain

import (
	"fmt"
	"strconv"
	"strings"

	dErrors "registrar/pkg/domain-errors"
)

// Amount is a monetary value in the registry's native fungible unit,
// stored as an integer count of deci-units (one decimal digit of sub-unit
// precision). Integer arithmetic keeps quote and charge bit-identical for
// identical inputs; never convert through floating point.
type Amount int64

// AmountPerUnit is the number of deci-units in one whole unit.
const AmountPerUnit = 10

// AmountFromDeci builds an Amount from a raw deci-unit count.
func AmountFromDeci(deci int64) Amount {
	return Amount(deci)
}

// Deci returns the raw deci-unit count.
func (a Amount) Deci() int64 {
	return int64(a)
}

// Add returns a + b, failing on overflow.
func (a Amount) Add(b Amount) (Amount, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, dErrors.New(dErrors.CodeInvariantViolation, "amount overflow")
	}
	return sum, nil
}

// Sub returns a - b, failing if the result would be negative.
func (a Amount) Sub(b Amount) (Amount, error) {
	if b > a {
		return 0, dErrors.New(dErrors.CodeInvariantViolation, "amount underflow")
	}
	return a - b, nil
}

// Cmp compares a against b: -1 if a < b, 0 if equal, 1 if a > b.
func (a Amount) Cmp(b Amount) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool {
	return a == 0
}

// String formats the amount with exactly one decimal digit, e.g. "12.3".
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%d", sign, v/AmountPerUnit, v%AmountPerUnit)
}

// MarshalJSON encodes the amount as its decimal string form. Amounts travel
// as strings on the wire so clients never round them through floats.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.String())), nil
}

// UnmarshalJSON decodes an amount from its decimal string form.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "amount must be a JSON string")
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAmount parses a decimal amount string with at most one fractional
// digit ("5", "5.0", "12.3"). Negative amounts are rejected; nothing in the
// registry owes money.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "amount is required")
	}
	if strings.HasPrefix(s, "-") {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "amount must not be negative")
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInvalidInput, "amount has an invalid whole part")
	}
	var f int64
	if hasFrac {
		if len(frac) != 1 {
			return 0, dErrors.New(dErrors.CodeInvalidInput, "amount supports exactly one decimal digit")
		}
		f, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeInvalidInput, "amount has an invalid fractional part")
		}
	}
	if w > (1<<62)/AmountPerUnit {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "amount out of range")
	}
	return Amount(w*AmountPerUnit + f), nil
}
