// Package core provides money parsing and handling utilities.
//
// This file contains the Money type used for every amount exchanged with the
// ledger API and the parser applied to amounts typed by the user.
package core

import (
	"bytes"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a decimal amount that travels as a bare JSON number.
type Money struct {
	decimal.Decimal
}

// NewMoney wraps a decimal.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

// MoneyFromInt is a convenience for whole amounts.
func MoneyFromInt(v int64) Money {
	return Money{Decimal: decimal.NewFromInt(v)}
}

// ParseAmount converts user input to a positive amount.
//
// The input must be a finite decimal number greater than zero. Empty strings,
// signs producing non-positive values, non-numeric text, and exponents that
// overflow or underflow a float64 are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("5000")  -> 5000, nil
//	ParseAmount(" 2.50") -> 2.5, nil
//	ParseAmount("0")     -> ErrInvalidAmount
//	ParseAmount("abc")   -> ErrInvalidAmount
//	ParseAmount("1e400") -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m := Money{Decimal: d}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// Decimal magnitudes outside these bounds are not finite non-zero float64
// values. The ledger API reads amounts as JSON numbers.
const (
	maxMagnitude = 309
	minMagnitude = -323
)

// Validate reports whether m is a usable transaction amount: positive and
// representable as a finite non-zero float64.
func (m Money) Validate() error {
	if m.Sign() <= 0 {
		return ErrInvalidAmount
	}
	// Checked on the coefficient and exponent first; converting a value
	// like 1e200000000 to float would expand it in full.
	mag := int64(len(m.Coefficient().String())) + int64(m.Exponent())
	if mag > maxMagnitude || mag < minMagnitude {
		return ErrInvalidAmount
	}
	if f := m.InexactFloat64(); math.IsInf(f, 0) || f == 0 {
		return ErrInvalidAmount
	}
	return nil
}

// MarshalJSON writes the amount as a number, which is what the ledger API expects.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// UnmarshalJSON accepts both numbers and quoted numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		m.Decimal = decimal.Zero
		return nil
	}
	return m.Decimal.UnmarshalJSON(data)
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Decimal: m.Decimal.Add(o.Decimal)}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{Decimal: m.Decimal.Sub(o.Decimal)}
}
