package purchasing

import (
	"github.com/shopspring/decimal"

	"freshledger/internal/core/types"
)

// DeriveRatio returns count units per kg from the purchase's declared
// equivalents. The pair matching the charged unit is preferred: for kg,
// qtyUnit/eqQtyKg; for unit, eqQtyUnit/qtyKg. When that pair is incomplete
// the complementary declared pair is used. Both describe the same batch.
func DeriveRatio(p *Purchase) (decimal.Decimal, bool) {
	kgPair := func() (decimal.Decimal, bool) { return ratio(p.QtyUnit, p.EqQtyKg) }
	unitPair := func() (decimal.Decimal, bool) { return ratio(p.EqQtyUnit, p.QtyKg) }

	first, second := kgPair, unitPair
	if p.ChargedUnit == types.UnitCount {
		first, second = unitPair, kgPair
	}
	if r, ok := first(); ok {
		return r, true
	}
	return second()
}

func ratio(count, kg decimal.NullDecimal) (decimal.Decimal, bool) {
	if !types.Positive(count) || !types.Positive(kg) {
		return decimal.Zero, false
	}
	return count.Decimal.Div(kg.Decimal), true
}

// Convert expresses qty given in from as the unit to, with unitsPerKg count
// units per kg. Same-unit conversion returns qty unchanged.
func Convert(qty types.Quantity, from, to types.Unit, unitsPerKg decimal.Decimal) (types.Quantity, bool) {
	if from == to {
		return qty, true
	}
	if !unitsPerKg.IsPositive() {
		return qty, false
	}
	if from == types.UnitCount {
		return types.RoundQty(qty.Div(unitsPerKg)), true
	}
	return types.RoundQty(qty.Mul(unitsPerKg)), true
}
