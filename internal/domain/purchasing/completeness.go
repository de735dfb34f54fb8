package purchasing

import (
	"freshledger/internal/core/id"
	"freshledger/internal/core/types"
)

// Verdict is the purchase status of an order.
type Verdict string

const (
	VerdictComplete   Verdict = "complete"
	VerdictIncomplete Verdict = "incomplete"
	VerdictOver       Verdict = "over"
)

// ProductStatus is the completeness of one product.
type ProductStatus struct {
	ProductID id.ID         `json:"productId"`
	Need      types.Measure `json:"need"`
	Bought    types.Measure `json:"bought"`
	Missing   types.Measure `json:"missing"`
	Verdict   Verdict       `json:"verdict"`
}

// Completeness is the verdict of an order and of each demanded product.
type Completeness struct {
	Verdict  Verdict         `json:"verdict"`
	Products []ProductStatus `json:"products"`
}

// Product returns the status of productID, or nil when it has no demand.
func (c *Completeness) Product(productID id.ID) *ProductStatus {
	for i := range c.Products {
		if c.Products[i].ProductID == productID {
			return &c.Products[i]
		}
	}
	return nil
}

// Evaluate compares demand and supply per product. Products with no demand
// are ignored; an order without demand is complete.
func Evaluate(demand, supply map[id.ID]types.Measure) *Completeness {
	c := &Completeness{Verdict: VerdictComplete, Products: make([]ProductStatus, 0, len(demand))}
	incomplete, over := false, false

	for _, productID := range sortedIDs(demand) {
		st := EvaluateProduct(productID, demand[productID], supply[productID])
		switch st.Verdict {
		case VerdictIncomplete:
			incomplete = true
		case VerdictOver:
			over = true
		}
		c.Products = append(c.Products, st)
	}

	switch {
	case incomplete:
		c.Verdict = VerdictIncomplete
	case over:
		c.Verdict = VerdictOver
	}
	return c
}

// EvaluateProduct classifies one product.
func EvaluateProduct(productID id.ID, need, got types.Measure) ProductStatus {
	kgOk := need.Kg.IsZero() || got.Kg.GreaterThanOrEqual(need.Kg)
	unitOk := need.Count.IsZero() || got.Count.GreaterThanOrEqual(need.Count)

	st := ProductStatus{
		ProductID: productID,
		Need:      need.Rounded(),
		Bought:    got.Rounded(),
		Missing:   need.Sub(got).Rounded(),
		Verdict:   VerdictComplete,
	}
	switch {
	case !kgOk || !unitOk:
		st.Verdict = VerdictIncomplete
	case (need.Kg.IsPositive() && got.Kg.GreaterThan(need.Kg)) ||
		(need.Count.IsPositive() && got.Count.GreaterThan(need.Count)):
		st.Verdict = VerdictOver
	}
	return st
}

func sortedIDs[V any](m map[id.ID]V) []id.ID {
	out := make([]id.ID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	id.Sort(out)
	return out
}
