package purchasing

import (
	"github.com/shopspring/decimal"

	"freshledger/internal/core/id"
	"freshledger/internal/core/types"
	"freshledger/internal/domain/orders"
)

// AllocationInput is the state AllocationLedger looks at for one purchase.
type AllocationInput struct {
	Purchase *Purchase
	// Lines are the order lines of the purchase's product.
	Lines []orders.Line
	// Allocated is the quantity already allocated per line.
	Allocated map[id.ID]types.Quantity
	// CustomerOrder lists resolved customers in the order the buyer named them.
	CustomerOrder []id.ID
	// Named is set when the buyer listed customers, even if none resolved.
	Named bool
}

// PlanAllocation decides which lines the purchase satisfies. With named
// customers it walks their lines in that order and consumes the purchase
// greedily. When the buyer named nobody, it allocates every line in full if
// the purchase covers the whole outstanding need. Only lines requested in the purchase's
// charged unit take part.
func PlanAllocation(in AllocationInput) []AllocationRecord {
	unit := in.Purchase.ChargedUnit
	available := in.Purchase.QtyIn(unit)
	if !available.IsPositive() {
		return nil
	}

	type slot struct {
		line *orders.Line
		need types.Quantity
	}
	var slots []slot
	total := decimal.Zero
	for i := range in.Lines {
		l := &in.Lines[i]
		if l.RequestedUnit != unit {
			continue
		}
		need := types.NonNegative(l.RequestedQty.Sub(in.Allocated[l.ID]))
		if !need.IsPositive() {
			continue
		}
		slots = append(slots, slot{line: l, need: need})
		total = total.Add(need)
	}
	if len(slots) == 0 {
		return nil
	}

	record := func(l *orders.Line, qty types.Quantity) AllocationRecord {
		return AllocationRecord{
			PurchaseID:  in.Purchase.ID,
			OrderLineID: l.ID,
			Qty:         types.RoundQty(qty),
			Unit:        unit,
		}
	}

	var out []AllocationRecord
	if in.Named || len(in.CustomerOrder) > 0 {
		for _, customerID := range in.CustomerOrder {
			for i := range slots {
				s := &slots[i]
				if s.line.CustomerID != customerID || !s.need.IsPositive() {
					continue
				}
				take := decimal.Min(s.need, available)
				if !take.IsPositive() {
					return out
				}
				out = append(out, record(s.line, take))
				s.need = s.need.Sub(take)
				available = available.Sub(take)
			}
		}
		return out
	}

	if available.GreaterThanOrEqual(total) {
		for _, s := range slots {
			out = append(out, record(s.line, s.need))
		}
	}
	return out
}
