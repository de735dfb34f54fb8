package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnit(t *testing.T) {
	tests := []struct {
		in      string
		want    Unit
		wantErr bool
	}{
		{"kg", UnitKg, false},
		{" KG ", UnitKg, false},
		{"unit", UnitCount, false},
		{"box", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUnit(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMeasure_Arithmetic(t *testing.T) {
	a := Measure{Kg: MustDecimal("3"), Count: MustDecimal("10")}
	b := MeasureOf(UnitKg, MustDecimal("5"))

	sum := a.Add(b)
	assert.True(t, sum.Kg.Equal(MustDecimal("8")))
	assert.True(t, sum.Count.Equal(MustDecimal("10")))

	diff := a.Sub(b)
	assert.True(t, diff.Kg.IsZero(), "subtraction clamps at zero")
	assert.True(t, diff.Count.Equal(MustDecimal("10")))

	assert.True(t, a.In(UnitCount).Equal(MustDecimal("10")))
	assert.Equal(t, UnitCount, UnitKg.Other())
	assert.True(t, Measure{Kg: decimal.Zero, Count: decimal.Zero}.IsZero())
}

func TestNullHelpers(t *testing.T) {
	assert.False(t, Positive(decimal.NullDecimal{}))
	assert.False(t, Positive(Null(decimal.Zero)))
	assert.True(t, Positive(Null(MustDecimal("0.5"))))
	assert.False(t, NullIfZero(decimal.Zero).Valid)
	assert.True(t, ValueOr(decimal.NullDecimal{}, MustDecimal("7")).Equal(MustDecimal("7")))
	assert.True(t, RoundQty(MustDecimal("3.333333")).Equal(MustDecimal("3.3333")))
	assert.True(t, RoundMoney(MustDecimal("10.005")).Equal(MustDecimal("10.01")))
}
