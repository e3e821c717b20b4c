// Package money provides an exact decimal amount type for currency values.
package money

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// CurrencyPrecision is the number of decimal places kept for amounts
// submitted to the payment processor.
const CurrencyPrecision = 8

// divisionPrecision is the number of guard digits kept during intermediate
// division before the final rounding to CurrencyPrecision.
const divisionPrecision = 16

// ErrInvalidNumber is returned for non-finite, negative or unparseable inputs.
var ErrInvalidNumber = errors.New("invalid number")

// PreciseNumber is an immutable exact decimal amount. Arithmetic never
// silently loses precision; rounding happens only at the explicit points
// documented on each operation.
type PreciseNumber struct {
	dec decimal.Decimal
}

// ParseFloat converts a float into a PreciseNumber, rounding deterministically
// to CurrencyPrecision decimal places. Non-finite and negative values are
// rejected.
func ParseFloat(v float64) (PreciseNumber, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return PreciseNumber{}, fmt.Errorf("%w: %v is not finite", ErrInvalidNumber, v)
	}
	if v < 0 {
		return PreciseNumber{}, fmt.Errorf("%w: negative amount %v", ErrInvalidNumber, v)
	}
	return PreciseNumber{dec: decimal.NewFromFloat(v).Round(CurrencyPrecision)}, nil
}

// Parse converts a decimal string into a PreciseNumber.
func Parse(s string) (PreciseNumber, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return PreciseNumber{}, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	if d.IsNegative() {
		return PreciseNumber{}, fmt.Errorf("%w: negative amount %q", ErrInvalidNumber, s)
	}
	return PreciseNumber{dec: d.Round(CurrencyPrecision)}, nil
}

// Div divides n by the given divisor, keeping divisionPrecision guard digits
// before rounding the result to CurrencyPrecision.
func (n PreciseNumber) Div(by PreciseNumber) (PreciseNumber, error) {
	if by.dec.IsZero() {
		return PreciseNumber{}, fmt.Errorf("%w: division by zero", ErrInvalidNumber)
	}
	return PreciseNumber{dec: n.dec.DivRound(by.dec, divisionPrecision).Round(CurrencyPrecision)}, nil
}

// IsZero reports whether the amount is exactly zero.
func (n PreciseNumber) IsZero() bool {
	return n.dec.IsZero()
}

// String returns the canonical fixed-point representation: no scientific
// notation, no thousands separators, no trailing zeros. This is the exact
// form submitted as the processor's amount field.
func (n PreciseNumber) String() string {
	return n.dec.String()
}
