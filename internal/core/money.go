// Package core provides the bank transaction domain model.
//
// This file contains amount parsing and display formatting. All arithmetic is
// done on decimal.Decimal; formatting to two places happens only at the edge.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount parses a signed decimal amount as sent by the bank API.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted.
// The value is kept exact, no rounding is applied.
//
// Examples:
//
//	ParseAmount("-12.34") -> -12.34, nil
//	ParseAmount("12,5")   -> 12.5, nil
//	ParseAmount("abc")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders d with two decimal places and an optional currency
// suffix, e.g. "-10.00 EUR".
func FormatAmount(d decimal.Decimal, currency string) string {
	s := d.StringFixed(2)
	if currency == "" {
		return s
	}
	return s + " " + currency
}

func (m Money) String() string {
	return FormatAmount(m.Amount, m.Currency)
}
