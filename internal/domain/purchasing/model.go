// Package purchasing reconciles vendor purchases with what customers ordered:
// unit conversion, completeness, billable quantities, surplus and allocation.
package purchasing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"freshledger/internal/core/apperror"
	"freshledger/internal/core/id"
	"freshledger/internal/core/types"
	"freshledger/internal/domain/inventory"
	"freshledger/internal/domain/orders"
)

// Purchase is one vendor buy of one product.
type Purchase struct {
	ID           id.ID               `db:"id" json:"id"`
	ProductID    id.ID               `db:"product_id" json:"productId"`
	OrderID      *id.ID              `db:"order_id" json:"orderId,omitempty"`
	QtyKg        decimal.NullDecimal `db:"qty_kg" json:"qtyKg"`
	QtyUnit      decimal.NullDecimal `db:"qty_unit" json:"qtyUnit"`
	EqQtyKg      decimal.NullDecimal `db:"eq_qty_kg" json:"eqQtyKg"`
	EqQtyUnit    decimal.NullDecimal `db:"eq_qty_unit" json:"eqQtyUnit"`
	ChargedUnit  types.Unit          `db:"charged_unit" json:"chargedUnit"`
	PricePerUnit types.Money         `db:"price_per_unit" json:"pricePerUnit"`
	PriceTotal   decimal.NullDecimal `db:"price_total" json:"priceTotal"`
	Vendor       string              `db:"vendor" json:"vendor,omitempty"`
	Notes        string              `db:"notes" json:"notes,omitempty"`
	Customers    []string            `db:"customers" json:"customers"`
	CreatedBy    string              `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt    time.Time           `db:"created_at" json:"createdAt"`
}

// Direct is the quantity actually bought, per unit.
func (p *Purchase) Direct() types.Measure {
	return types.Measure{
		Kg:    types.ValueOr(p.QtyKg, decimal.Zero),
		Count: types.ValueOr(p.QtyUnit, decimal.Zero),
	}
}

// Equivalent is the buyer-declared cross-unit equivalent of the batch.
func (p *Purchase) Equivalent() types.Measure {
	return types.Measure{
		Kg:    types.ValueOr(p.EqQtyKg, decimal.Zero),
		Count: types.ValueOr(p.EqQtyUnit, decimal.Zero),
	}
}

// Supply is what the purchase covers in each unit bucket.
func (p *Purchase) Supply() types.Measure {
	return p.Direct().Add(p.Equivalent())
}

// QtyIn returns the bought quantity in unit u: the direct quantity when
// present, else the declared equivalent.
func (p *Purchase) QtyIn(u types.Unit) types.Quantity {
	if q := p.Direct().In(u); q.IsPositive() {
		return q
	}
	return p.Equivalent().In(u)
}

// Cost is priceTotal when given, else pricePerUnit × quantity in the charged unit.
func (p *Purchase) Cost() types.Money {
	if p.PriceTotal.Valid {
		return p.PriceTotal.Decimal
	}
	return types.RoundMoney(p.PricePerUnit.Mul(p.QtyIn(p.ChargedUnit)))
}

// ConversionRatio is one entry of the ratio history of an (order, product)
// pair, in count units per kg.
type ConversionRatio struct {
	ID         id.ID          `db:"id" json:"id"`
	OrderID    id.ID          `db:"order_id" json:"orderId"`
	ProductID  id.ID          `db:"product_id" json:"productId"`
	PurchaseID id.ID          `db:"purchase_id" json:"purchaseId"`
	UnitsPerKg types.Quantity `db:"units_per_kg" json:"unitsPerKg"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
}

// AllocationRecord says how much of a purchase went to an order line.
type AllocationRecord struct {
	ID          id.ID          `db:"id" json:"id"`
	PurchaseID  id.ID          `db:"purchase_id" json:"purchaseId"`
	OrderLineID id.ID          `db:"order_line_id" json:"orderLineId"`
	Qty         types.Quantity `db:"qty" json:"qty"`
	Unit        types.Unit     `db:"unit" json:"unit"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
}

// FallbackKind classifies a computation fallback.
type FallbackKind string

const (
	FallbackRatio           FallbackKind = "ratio_unavailable"
	FallbackUnknownCustomer FallbackKind = "unknown_customer"
	FallbackSurplus         FallbackKind = "surplus_failed"
	FallbackAllocation      FallbackKind = "allocation_failed"
)

// Fallback is a step that could not compute its exact result and proceeded
// with a documented approximation or skipped its effect. It is not an error.
type Fallback struct {
	Kind    FallbackKind   `json:"kind"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func newFallback(kind FallbackKind, message string, details map[string]any) Fallback {
	return Fallback{Kind: kind, Code: apperror.CodeComputationFallback, Message: message, Details: details}
}

// RecordPurchaseInput is a purchase as entered by the buyer.
type RecordPurchaseInput struct {
	ProductID    id.ID
	OrderID      *id.ID
	QtyKg        decimal.NullDecimal
	QtyUnit      decimal.NullDecimal
	EqQtyKg      decimal.NullDecimal
	EqQtyUnit    decimal.NullDecimal
	ChargedUnit  types.Unit
	PricePerUnit types.Money
	PriceTotal   decimal.NullDecimal
	Vendor       string
	Notes        string
	Customers    []string
}

// Validate rejects malformed purchases before anything is written.
func (in RecordPurchaseInput) Validate() error {
	if id.IsNil(in.ProductID) {
		return apperror.NewValidation("product_id is required").WithDetail("field", "product_id")
	}
	if !in.ChargedUnit.Valid() {
		return apperror.NewValidation("charged_unit must be kg or unit").
			WithDetail("field", "charged_unit").
			WithDetail("value", string(in.ChargedUnit))
	}
	if !types.Positive(in.PriceTotal) && !in.PricePerUnit.IsPositive() {
		return apperror.NewValidation("price_per_unit must be greater than zero").WithDetail("field", "price_per_unit")
	}

	for field, q := range map[string]decimal.NullDecimal{
		"qty_kg":      in.QtyKg,
		"qty_unit":    in.QtyUnit,
		"eq_qty_kg":   in.EqQtyKg,
		"eq_qty_unit": in.EqQtyUnit,
		"price_total": in.PriceTotal,
	} {
		if q.Valid && q.Decimal.IsNegative() {
			return apperror.NewValidation(field+" must not be negative").WithDetail("field", field)
		}
	}

	if !types.Positive(in.QtyKg) && !types.Positive(in.QtyUnit) {
		return apperror.NewValidation("qty_kg or qty_unit is required").WithDetail("field", "qty_kg")
	}
	return nil
}

// customerNames returns trimmed, de-duplicated names in the given order.
func (in RecordPurchaseInput) customerNames() []string {
	seen := make(map[string]bool, len(in.Customers))
	out := make([]string, 0, len(in.Customers))
	for _, n := range in.Customers {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// RecordPurchaseResult is everything a purchase changed.
type RecordPurchaseResult struct {
	Purchase     *Purchase          `json:"purchase"`
	Ratio        *ConversionRatio   `json:"ratio,omitempty"`
	Lot          *inventory.Lot     `json:"lot,omitempty"`
	Allocations  []AllocationRecord `json:"allocations"`
	Lines        []orders.Line      `json:"lines"`
	Charges      []orders.Charge    `json:"charges"`
	Completeness *Completeness      `json:"completeness,omitempty"`
	Fallbacks    []Fallback         `json:"fallbacks"`
}

// PurchaseView is a stored purchase with its allocations.
type PurchaseView struct {
	Purchase    *Purchase          `json:"purchase"`
	Allocations []AllocationRecord `json:"allocations"`
}
