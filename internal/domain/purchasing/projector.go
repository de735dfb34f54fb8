package purchasing

import (
	"github.com/shopspring/decimal"

	"freshledger/internal/core/id"
	"freshledger/internal/core/types"
	"freshledger/internal/domain/orders"
)

// ProjectionInput is what ChargeProjector needs for one (order, product) pair.
type ProjectionInput struct {
	// ChargedUnit is the unit of the purchase that triggered the run.
	ChargedUnit types.Unit
	// Ratio is the most recent ratio of the pair; nil when none is known.
	Ratio   *ConversionRatio
	Lines   []orders.Line
	Charges []orders.Charge
}

// ChargeChange is one charge rewritten by the projector.
type ChargeChange struct {
	Before orders.Charge
	After  orders.Charge
}

// Projection is the outcome of a projector run. Only rows whose values
// changed are listed in ChangedLines and ChangedCharges.
type Projection struct {
	Lines          []orders.Line
	ChangedLines   []orders.Line
	ChangedCharges []ChargeChange
	Fallbacks      []Fallback
}

// Project recomputes the billable quantity of every line in the charged unit
// and copies it onto the line's charges. Running it twice on the same input
// yields no further changes.
func Project(in ProjectionInput) Projection {
	var unitsPerKg decimal.Decimal
	if in.Ratio != nil {
		unitsPerKg = in.Ratio.UnitsPerKg
	}

	byLine := make(map[id.ID][]int, len(in.Lines))
	for i := range in.Charges {
		c := &in.Charges[i]
		if c.LineID == nil || c.Status == orders.ChargeCancelled {
			continue
		}
		byLine[*c.LineID] = append(byLine[*c.LineID], i)
	}

	out := Projection{Lines: make([]orders.Line, 0, len(in.Lines))}
	for _, line := range in.Lines {
		qty, ok := Convert(line.RequestedQty, line.RequestedUnit, in.ChargedUnit, unitsPerKg)
		if !ok {
			qty = line.RequestedQty
			out.Fallbacks = append(out.Fallbacks, newFallback(FallbackRatio,
				"no conversion ratio available, billing the requested quantity 1:1",
				map[string]any{
					"line_id":        line.ID,
					"product_id":     line.ProductID,
					"requested_unit": line.RequestedUnit,
					"charged_unit":   in.ChargedUnit,
				}))
		}
		qty = types.RoundQty(qty)

		changed := line.ChargedUnit != in.ChargedUnit || !line.ChargedQty.Valid || !line.ChargedQty.Decimal.Equal(qty)
		line.ChargedUnit = in.ChargedUnit
		line.ChargedQty = types.Null(qty)
		if changed {
			out.ChangedLines = append(out.ChangedLines, line)
		}
		out.Lines = append(out.Lines, line)

		for _, ci := range byLine[line.ID] {
			before := in.Charges[ci]
			after := before
			after.ChargedQty = types.Null(qty)
			after.Unit = in.ChargedUnit
			after.Recompute()
			if chargeDiffers(before, after) {
				out.ChangedCharges = append(out.ChangedCharges, ChargeChange{Before: before, After: after})
			}
		}
	}
	return out
}

func chargeDiffers(a, b orders.Charge) bool {
	return a.Unit != b.Unit ||
		a.ChargedQty.Valid != b.ChargedQty.Valid ||
		!a.ChargedQty.Decimal.Equal(b.ChargedQty.Decimal) ||
		!a.Total.Equal(b.Total)
}

// auditChanges describes a charge change for the audit log.
func (c ChargeChange) auditChanges(purchaseID id.ID) map[string]any {
	return map[string]any{
		"purchase_id": purchaseID,
		"charged_qty": map[string]any{"old": c.Before.ChargedQty, "new": c.After.ChargedQty},
		"unit":        map[string]any{"old": c.Before.Unit, "new": c.After.Unit},
		"total":       map[string]any{"old": c.Before.Total, "new": c.After.Total},
	}
}
