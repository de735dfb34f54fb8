package purchasing

import (
	"github.com/shopspring/decimal"

	"freshledger/internal/core/types"
)

// SurplusInput is the state SurplusBinner looks at for one purchase.
type SurplusInput struct {
	Purchase *Purchase
	// Demand is what the order asks for the product.
	Demand types.Measure
	// PrevSupply is the aggregated supply of the pair's earlier purchases.
	PrevSupply types.Measure
}

// PlanSurplus returns the part of the purchase not needed by outstanding
// demand. Only demanded units yield surplus, unless the product has no demand
// in the order at all; then, as for orderless purchases, the whole directly
// bought quantity is surplus. The result is never negative.
func PlanSurplus(in SurplusInput) types.Measure {
	p := in.Purchase
	if p.OrderID == nil || in.Demand.IsZero() {
		return p.Direct().Rounded()
	}

	now := p.Supply()
	excess := func(u types.Unit) types.Quantity {
		need := in.Demand.In(u)
		if !need.IsPositive() {
			return decimal.Zero
		}
		remBefore := types.NonNegative(need.Sub(in.PrevSupply.In(u)))
		return types.NonNegative(now.In(u).Sub(remBefore))
	}

	return types.Measure{Kg: excess(types.UnitKg), Count: excess(types.UnitCount)}.Rounded()
}
