// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// Quantity is a weight or count amount. Stored as NUMERIC(15,4).
type Quantity = decimal.Decimal

const (
	// QuantityScale is the number of fractional digits kept for quantities.
	QuantityScale int32 = 4
	// MoneyScale is the number of fractional digits kept for money.
	MoneyScale int32 = 2
)

// MustDecimal parses s, panics on error.
// Use only for constants and tests.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// RoundQty rounds a quantity to QuantityScale digits.
func RoundQty(q Quantity) Quantity {
	return q.Round(QuantityScale)
}

// RoundMoney rounds a monetary value to MoneyScale digits.
func RoundMoney(m Money) Money {
	return m.Round(MoneyScale)
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ValueOr returns the wrapped decimal of n, or fallback when n is not valid.
func ValueOr(n decimal.NullDecimal, fallback decimal.Decimal) decimal.Decimal {
	if n.Valid {
		return n.Decimal
	}
	return fallback
}

// Positive reports whether n is set and strictly greater than zero.
func Positive(n decimal.NullDecimal) bool {
	return n.Valid && n.Decimal.IsPositive()
}

// Null wraps d into a valid NullDecimal.
func Null(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// NullIfZero wraps d, leaving the result invalid when d is zero.
func NullIfZero(d decimal.Decimal) decimal.NullDecimal {
	if d.IsZero() {
		return decimal.NullDecimal{}
	}
	return Null(d)
}
