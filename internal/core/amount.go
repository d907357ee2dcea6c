// Package core provides the domain types and amount parsing shared by the
// parser, budget evaluation and reporting layers.
//
// This file contains the free-text amount parser. Amounts accept either a dot
// or a comma as the fractional separator; when a dot appears before a comma it
// is treated as a thousands separator and stripped.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal literal to a non-negative amount.
//
// Accepted forms:
//
//	ParseAmount("75000")     -> 75000
//	ParseAmount("12.34")     -> 12.34
//	ParseAmount("12,34")     -> 12.34
//	ParseAmount("1.250,50")  -> 1250.50 (dot is grouping before a comma decimal)
//
// Signs, empty strings and anything non-numeric fail with ErrInvalidAmount.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only unsigned values allowed; type carries the direction.
		return decimal.Zero, ErrInvalidAmount
	}

	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0 && dot < comma:
		// "1.250,50": dots are grouping, comma is the decimal point.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case dot >= 0 && comma >= 0:
		// "1,250.50": commas are grouping, dot is the decimal point.
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, part := range parts {
		for _, r := range part {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	if parts[0] == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
