// Package core provides the expense domain: canonical records, the category
// registry, input normalization and aggregation.
//
// This file contains parsing of monetary amounts from loosely typed input.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest amount or saving a record may carry.
const MaxAmount = 1e12

var maxDecimal = decimal.NewFromFloat(MaxAmount)

// ParseAmount converts a decimal string into a non-negative amount.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted. A comma
// is only treated as the separator when the input has no dot. Empty input,
// anything that is not a plain decimal number, and negative values fail with
// a ValidationError on field.
//
// Values above MaxAmount fail too, so accepted amounts and their sums stay
// finite floats.
//
// Examples:
//
//	ParseAmount("amount", "12.34") -> 12.34, nil
//	ParseAmount("amount", "12,34") -> 12.34, nil
//	ParseAmount("amount", "-1")    -> 0, ValidationError
//	ParseAmount("amount", "1e400") -> 0, ValidationError
func ParseAmount(field, s string) (float64, error) {
	d, err := parseDecimal(field, s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, invalid(field, "", "is required")
	}
	norm := s
	if !strings.Contains(norm, ".") {
		norm = strings.ReplaceAll(norm, ",", ".")
	}
	d, err := decimal.NewFromString(norm)
	if err != nil {
		return decimal.Zero, invalid(field, s, "must be a number")
	}
	if d.IsNegative() {
		return decimal.Zero, invalid(field, s, "must not be negative")
	}
	if d.GreaterThan(maxDecimal) {
		return decimal.Zero, invalid(field, s, "must be a finite number")
	}
	return d, nil
}

// finiteAmount reports whether v is a storable amount.
func finiteAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v <= MaxAmount
}
