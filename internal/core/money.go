// Package core provides money parsing and handling utilities.
//
// Amounts are decimal values with two fractional digits. Storage keeps
// them as integer minor units so aggregate sums stay exact.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to an amount rounded half-up to two places.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Zero is a
// valid amount; negative values and malformed input return ErrInvalidAmount.
// Amounts whose minor units overflow int64 return ErrAmountTooLarge.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("0")      -> 0
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if _, err := CentsOf(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

var maxCents = decimal.NewFromInt(math.MaxInt64)

// CentsOf converts an amount to integer minor units and returns
// ErrAmountTooLarge when they do not fit an int64.
func CentsOf(d decimal.Decimal) (int64, error) {
	c := d.Shift(2).Round(0)
	if c.Abs().GreaterThan(maxCents) {
		return 0, ErrAmountTooLarge
	}
	return c.IntPart(), nil
}

// ToCents converts an amount to integer minor units, rounding half away from zero.
// Callers must have checked the amount with CentsOf.
func ToCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// FromCents converts integer minor units back to an amount.
func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}
