package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"freshledger/internal/core/id"
	"freshledger/internal/core/types"
)

// PriceRequest describes the line being priced.
type PriceRequest struct {
	ProductID id.ID
	VariantID *id.ID
	Unit      types.Unit
	Qty       types.Quantity
	Explicit  decimal.NullDecimal
}

// SelectTier picks the tier with the highest MinQty not above qty, among
// active tiers in unit. With a variant, only that variant's tiers and the
// variant-less ones compete.
func SelectTier(tiers []PriceTier, unit types.Unit, variantID *id.ID, qty types.Quantity) *PriceTier {
	candidates := make([]PriceTier, 0, len(tiers))
	for _, t := range tiers {
		if !t.Active || t.Unit != unit {
			continue
		}
		if variantID != nil && t.VariantID != nil && *t.VariantID != *variantID {
			continue
		}
		candidates = append(candidates, t)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].MinQty.GreaterThan(candidates[j].MinQty)
	})
	for i := range candidates {
		if qty.GreaterThanOrEqual(candidates[i].MinQty) {
			return &candidates[i]
		}
	}
	return nil
}

// ResolveUnitPrice applies explicit price, then tier, then latest catalog price.
// A product with none of them prices at zero.
func ResolveUnitPrice(ctx context.Context, lookup Lookup, req PriceRequest) (types.Money, PriceSource, error) {
	if types.Positive(req.Explicit) {
		return req.Explicit.Decimal, PriceSourceExplicit, nil
	}

	tiers, err := lookup.ActivePriceTiers(ctx, req.ProductID)
	if err != nil {
		return decimal.Zero, PriceSourceNone, fmt.Errorf("load price tiers: %w", err)
	}
	if tier := SelectTier(tiers, req.Unit, req.VariantID, req.Qty); tier != nil && tier.Price.IsPositive() {
		return tier.Price, PriceSourceTier, nil
	}

	latest, err := lookup.LatestCatalogPrice(ctx, req.ProductID)
	if err != nil {
		return decimal.Zero, PriceSourceNone, fmt.Errorf("load catalog price: %w", err)
	}
	if latest != nil {
		return latest.SalePrice, PriceSourceCatalog, nil
	}
	return decimal.Zero, PriceSourceNone, nil
}
