package purchasing

import (
	"freshledger/internal/core/id"
	"freshledger/internal/core/types"
	"freshledger/internal/domain/orders"
)

// AggregateDemand sums requested quantities per product into the bucket of
// each line's requested unit.
func AggregateDemand(lines []orders.Line) map[id.ID]types.Measure {
	out := make(map[id.ID]types.Measure)
	for i := range lines {
		l := &lines[i]
		out[l.ProductID] = out[l.ProductID].Add(types.MeasureOf(l.RequestedUnit, l.RequestedQty))
	}
	return out
}

// AggregateSupply sums purchases per product. A purchase adds its direct
// quantity and its declared equivalent, so one batch counts towards demand in
// either unit.
func AggregateSupply(purchases []Purchase) map[id.ID]types.Measure {
	out := make(map[id.ID]types.Measure)
	for i := range purchases {
		p := &purchases[i]
		out[p.ProductID] = out[p.ProductID].Add(p.Supply())
	}
	return out
}
