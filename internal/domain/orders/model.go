// Package orders manages orders, their lines and the charges billed from them.
package orders

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"freshledger/internal/core/apperror"
	"freshledger/internal/core/id"
	"freshledger/internal/core/types"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusEmitted Status = "emitted"
)

// Order groups the lines collected from customers for one buying round.
type Order struct {
	ID        id.ID      `db:"id" json:"id"`
	Number    string     `db:"number" json:"number"`
	Title     string     `db:"title" json:"title"`
	Notes     string     `db:"notes" json:"notes,omitempty"`
	Status    Status     `db:"status" json:"status"`
	CreatedBy string     `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	EmittedAt *time.Time `db:"emitted_at" json:"emittedAt,omitempty"`
	Version   int        `db:"version" json:"version"`
}

// IsEmitted reports whether the order has been confirmed.
func (o *Order) IsEmitted() bool {
	return o.Status == StatusEmitted
}

// DraftHandle identifies the draft a caller is building. It replaces any
// notion of a "current" draft: callers keep and pass it explicitly.
type DraftHandle struct {
	OrderID id.ID  `json:"orderId"`
	Number  string `json:"number"`
}

// Line is one customer's request for one product inside an order.
type Line struct {
	ID            id.ID               `db:"id" json:"id"`
	OrderID       id.ID               `db:"order_id" json:"orderId"`
	CustomerID    id.ID               `db:"customer_id" json:"customerId"`
	ProductID     id.ID               `db:"product_id" json:"productId"`
	VariantID     *id.ID              `db:"variant_id" json:"variantId,omitempty"`
	RequestedQty  types.Quantity      `db:"requested_qty" json:"requestedQty"`
	RequestedUnit types.Unit          `db:"requested_unit" json:"requestedUnit"`
	ChargedUnit   types.Unit          `db:"charged_unit" json:"chargedUnit"`
	ChargedQty    decimal.NullDecimal `db:"charged_qty" json:"chargedQty"`
	UnitPrice     decimal.NullDecimal `db:"sale_unit_price" json:"unitPrice"`
	Notes         string              `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time           `db:"created_at" json:"createdAt"`
}

// BillableQty is the charged quantity when known, otherwise the requested one.
func (l *Line) BillableQty() types.Quantity {
	return types.ValueOr(l.ChargedQty, l.RequestedQty)
}

// ChargeStatus is the settlement state of a charge.
type ChargeStatus string

const (
	ChargePending   ChargeStatus = "pending"
	ChargePaid      ChargeStatus = "paid"
	ChargeCancelled ChargeStatus = "cancelled"
)

// Charge is the billable counterpart of a line.
type Charge struct {
	ID              id.ID               `db:"id" json:"id"`
	CustomerID      id.ID               `db:"customer_id" json:"customerId"`
	OrderID         *id.ID              `db:"order_id" json:"orderId,omitempty"`
	OriginalOrderID *id.ID              `db:"original_order_id" json:"originalOrderId,omitempty"`
	LineID          *id.ID              `db:"order_line_id" json:"lineId,omitempty"`
	ProductID       id.ID               `db:"product_id" json:"productId"`
	Qty             types.Quantity      `db:"qty" json:"qty"`
	ChargedQty      decimal.NullDecimal `db:"charged_qty" json:"chargedQty"`
	Unit            types.Unit          `db:"unit" json:"unit"`
	UnitPrice       types.Money         `db:"unit_price" json:"unitPrice"`
	DiscountAmount  types.Money         `db:"discount_amount" json:"discountAmount"`
	DiscountReason  *string             `db:"discount_reason" json:"discountReason,omitempty"`
	Total           types.Money         `db:"total" json:"total"`
	Status          ChargeStatus        `db:"status" json:"status"`
	CreatedAt       time.Time           `db:"created_at" json:"createdAt"`
	PaidAt          *time.Time          `db:"paid_at" json:"paidAt,omitempty"`
}

// BillableQty is the charged quantity when known, otherwise the ordered one.
func (c *Charge) BillableQty() types.Quantity {
	return types.ValueOr(c.ChargedQty, c.Qty)
}

// NetTotal is the total after discount, never negative.
func (c *Charge) NetTotal() types.Money {
	return types.NonNegative(c.Total.Sub(c.DiscountAmount))
}

// Recompute sets Total from the billable quantity and unit price.
func (c *Charge) Recompute() {
	c.Total = ChargeTotal(c.BillableQty(), c.UnitPrice)
}

// ChargeTotal is qty × price rounded to money precision.
func ChargeTotal(qty types.Quantity, price types.Money) types.Money {
	return types.RoundMoney(qty.Mul(price))
}

// LineInput is a request to add one line.
type LineInput struct {
	CustomerID    id.ID
	ProductID     id.ID
	VariantID     *id.ID
	Qty           types.Quantity
	Unit          types.Unit
	ChargedUnit   types.Unit
	ChargedQty    decimal.NullDecimal
	SaleUnitPrice decimal.NullDecimal
	Notes         string
}

// Validate checks one line input.
func (in LineInput) Validate() error {
	if id.IsNil(in.CustomerID) {
		return apperror.NewValidation("customer_id is required")
	}
	if id.IsNil(in.ProductID) {
		return apperror.NewValidation("product_id is required")
	}
	if !in.Qty.IsPositive() {
		return apperror.NewValidation("qty must be greater than zero").WithDetail("qty", in.Qty.String())
	}
	if !in.Unit.Valid() {
		return apperror.NewValidation("unit must be kg or unit").WithDetail("unit", string(in.Unit))
	}
	if in.ChargedUnit != "" && !in.ChargedUnit.Valid() {
		return apperror.NewValidation("charged_unit must be kg or unit").WithDetail("charged_unit", string(in.ChargedUnit))
	}
	if in.ChargedQty.Valid && in.ChargedQty.Decimal.IsNegative() {
		return apperror.NewValidation("charged_qty must not be negative")
	}
	if in.SaleUnitPrice.Valid && in.SaleUnitPrice.Decimal.IsNegative() {
		return apperror.NewValidation("sale_unit_price must not be negative")
	}
	return nil
}

// ReassignExcessInput moves surplus quantity of a product to a customer as a
// new line and charge on an order.
type ReassignExcessInput struct {
	OrderID    id.ID
	ProductID  id.ID
	CustomerID id.ID
	Qty        types.Quantity
	Unit       types.Unit
	UnitPrice  types.Money
	// LotID, when set, is the surplus lot the quantity is taken from.
	LotID *id.ID
}

// Validate checks the reassignment request.
func (in ReassignExcessInput) Validate() error {
	var missing []string
	if id.IsNil(in.OrderID) {
		missing = append(missing, "order_id")
	}
	if id.IsNil(in.ProductID) {
		missing = append(missing, "product_id")
	}
	if id.IsNil(in.CustomerID) {
		missing = append(missing, "customer_id")
	}
	if !in.Qty.IsPositive() {
		missing = append(missing, "qty")
	}
	if !in.Unit.Valid() {
		missing = append(missing, "unit")
	}
	if !in.UnitPrice.IsPositive() {
		missing = append(missing, "unit_price")
	}
	if len(missing) > 0 {
		return apperror.NewValidation("required fields missing: "+strings.Join(missing, ", ")).
			WithDetail("fields", missing)
	}
	return nil
}

// Valid reports whether s is a known charge status.
func (s ChargeStatus) Valid() bool {
	switch s {
	case ChargePending, ChargePaid, ChargeCancelled:
		return true
	}
	return false
}

// CreateChargeInput bills a customer directly, typically to grant a discount.
// When LineID is set and ChargedQty is not, the line's charged quantity and
// unit are used.
type CreateChargeInput struct {
	CustomerID     id.ID
	OrderID        *id.ID
	LineID         *id.ID
	ProductID      id.ID
	Qty            types.Quantity
	ChargedQty     decimal.NullDecimal
	Unit           types.Unit
	UnitPrice      types.Money
	DiscountAmount types.Money
	DiscountReason string
}

// Validate checks the charge request.
func (in CreateChargeInput) Validate() error {
	if id.IsNil(in.CustomerID) {
		return apperror.NewValidation("customer_id is required").WithDetail("field", "customer_id")
	}
	if id.IsNil(in.ProductID) {
		return apperror.NewValidation("product_id is required").WithDetail("field", "product_id")
	}
	if !in.Qty.IsPositive() {
		return apperror.NewValidation("qty must be greater than zero").WithDetail("qty", in.Qty.String())
	}
	if (in.LineID == nil || in.Unit != "") && !in.Unit.Valid() {
		return apperror.NewValidation("unit must be kg or unit").WithDetail("unit", string(in.Unit))
	}
	if in.ChargedQty.Valid && in.ChargedQty.Decimal.IsNegative() {
		return apperror.NewValidation("charged_qty must not be negative")
	}
	if in.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit_price must not be negative")
	}
	if in.DiscountAmount.IsNegative() {
		return apperror.NewValidation("discount_amount must not be negative")
	}
	return nil
}

// ChargeFilter narrows ListCharges.
type ChargeFilter struct {
	CustomerID *id.ID
	OrderID    *id.ID
	Status     ChargeStatus
	Limit      int
	Offset     int
}
