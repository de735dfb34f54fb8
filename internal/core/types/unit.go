package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Unit is a measurement unit for ordered and purchased goods.
type Unit string

const (
	UnitKg    Unit = "kg"
	UnitCount Unit = "unit"
)

// ParseUnit normalizes and validates a unit string.
func ParseUnit(s string) (Unit, error) {
	u := Unit(strings.ToLower(strings.TrimSpace(s)))
	if !u.Valid() {
		return "", fmt.Errorf("invalid unit %q: must be kg or unit", s)
	}
	return u, nil
}

// Valid reports whether u is one of the known units.
func (u Unit) Valid() bool {
	return u == UnitKg || u == UnitCount
}

// Other returns the opposite unit system.
func (u Unit) Other() Unit {
	if u == UnitKg {
		return UnitCount
	}
	return UnitKg
}

func (u Unit) String() string { return string(u) }

// Measure holds a quantity expressed in both unit systems.
type Measure struct {
	Kg    Quantity `json:"kg"`
	Count Quantity `json:"unit"`
}

// MeasureOf returns a Measure with q placed in the bucket of unit u.
func MeasureOf(u Unit, q Quantity) Measure {
	if u == UnitKg {
		return Measure{Kg: q, Count: decimal.Zero}
	}
	return Measure{Kg: decimal.Zero, Count: q}
}

// In returns the bucket of unit u.
func (m Measure) In(u Unit) Quantity {
	if u == UnitKg {
		return m.Kg
	}
	return m.Count
}

// Add returns the bucket-wise sum.
func (m Measure) Add(o Measure) Measure {
	return Measure{Kg: m.Kg.Add(o.Kg), Count: m.Count.Add(o.Count)}
}

// Sub returns the bucket-wise difference clamped at zero.
func (m Measure) Sub(o Measure) Measure {
	return Measure{Kg: NonNegative(m.Kg.Sub(o.Kg)), Count: NonNegative(m.Count.Sub(o.Count))}
}

// IsZero reports whether both buckets are zero.
func (m Measure) IsZero() bool {
	return m.Kg.IsZero() && m.Count.IsZero()
}

// Rounded rounds both buckets to QuantityScale.
func (m Measure) Rounded() Measure {
	return Measure{Kg: RoundQty(m.Kg), Count: RoundQty(m.Count)}
}
