// Package inventory keeps surplus lots of purchased goods and what happens to them.
package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"freshledger/internal/core/apperror"
	"freshledger/internal/core/id"
	"freshledger/internal/core/types"
)

// LotStatus is the lifecycle state of a lot.
type LotStatus string

const (
	LotUnassigned LotStatus = "unassigned"
	LotAssigned   LotStatus = "assigned"
	LotProcessed  LotStatus = "processed"
	LotGift       LotStatus = "gift"
	LotWaste      LotStatus = "waste"
)

// Valid reports whether s is a known status.
func (s LotStatus) Valid() bool {
	switch s {
	case LotUnassigned, LotAssigned, LotProcessed, LotGift, LotWaste:
		return true
	}
	return false
}

// Lot is surplus stock of one product, traced to the purchase that produced it.
type Lot struct {
	ID               id.ID               `db:"id" json:"id"`
	ProductID        id.ID               `db:"product_id" json:"productId"`
	SourcePurchaseID *id.ID              `db:"source_purchase_id" json:"sourcePurchaseId,omitempty"`
	OrderID          *id.ID              `db:"order_id" json:"orderId,omitempty"`
	QtyKg            decimal.NullDecimal `db:"qty_kg" json:"qtyKg"`
	QtyUnit          decimal.NullDecimal `db:"qty_unit" json:"qtyUnit"`
	Status           LotStatus           `db:"status" json:"status"`
	Notes            string              `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time           `db:"created_at" json:"createdAt"`
	Version          int                 `db:"version" json:"version"`
}

// Remaining returns the quantities left in the lot.
func (l *Lot) Remaining() types.Measure {
	return types.Measure{
		Kg:    types.ValueOr(l.QtyKg, decimal.Zero),
		Count: types.ValueOr(l.QtyUnit, decimal.Zero),
	}
}

// NewLot builds an unassigned lot from a measure. Zero buckets are left null.
func NewLot(productID id.ID, purchaseID, orderID *id.ID, qty types.Measure, now time.Time) *Lot {
	qty = qty.Rounded()
	return &Lot{
		ID:               id.New(),
		ProductID:        productID,
		SourcePurchaseID: purchaseID,
		OrderID:          orderID,
		QtyKg:            types.NullIfZero(qty.Kg),
		QtyUnit:          types.NullIfZero(qty.Count),
		Status:           LotUnassigned,
		CreatedAt:        now,
		Version:          1,
	}
}

// Consume takes qty out of the lot. Taking more than is left is rejected.
// A lot with nothing left becomes assigned; partial consumption keeps it
// unassigned.
func (l *Lot) Consume(qty types.Measure) error {
	if l.Status != LotUnassigned {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "only unassigned lots can be consumed").
			WithDetail("lot_id", l.ID).
			WithDetail("status", string(l.Status))
	}
	if qty.Kg.IsNegative() || qty.Count.IsNegative() || qty.IsZero() {
		return apperror.NewValidation("consumed quantity must be positive")
	}

	left := l.Remaining()
	if qty.Kg.GreaterThan(left.Kg) || qty.Count.GreaterThan(left.Count) {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "not enough quantity left in lot").
			WithDetail("lot_id", l.ID).
			WithDetail("left_kg", left.Kg.String()).
			WithDetail("left_unit", left.Count.String())
	}

	rest := left.Sub(qty).Rounded()
	if l.QtyKg.Valid {
		l.QtyKg = types.Null(rest.Kg)
	}
	if l.QtyUnit.Valid {
		l.QtyUnit = types.Null(rest.Count)
	}
	if rest.IsZero() {
		l.Status = LotAssigned
	}
	return nil
}

// ProcessingRecord documents turning one product into another, e.g. whole
// fruit into pulp.
type ProcessingRecord struct {
	ID            id.ID               `db:"id" json:"id"`
	LotID         *id.ID              `db:"lot_id" json:"lotId,omitempty"`
	FromProductID id.ID               `db:"from_product_id" json:"fromProductId"`
	ToProductID   id.ID               `db:"to_product_id" json:"toProductId"`
	InputKg       types.Quantity      `db:"input_kg" json:"inputKg"`
	OutputQty     types.Quantity      `db:"output_qty" json:"outputQty"`
	OutputUnit    types.Unit          `db:"output_unit" json:"outputUnit"`
	YieldPct      decimal.NullDecimal `db:"yield_pct" json:"yieldPct"`
	Notes         string              `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time           `db:"created_at" json:"createdAt"`
}

// ComputeYield sets YieldPct to output/input×100 when the output is in kg.
func (r *ProcessingRecord) ComputeYield() {
	if r.OutputUnit != types.UnitKg || !r.InputKg.IsPositive() {
		r.YieldPct = decimal.NullDecimal{}
		return
	}
	r.YieldPct = types.Null(r.OutputQty.Div(r.InputKg).Mul(decimal.NewFromInt(100)).Round(2))
}

// LotFilter narrows ListLots.
type LotFilter struct {
	Status    LotStatus
	ProductID *id.ID
	Limit     int
	Offset    int
}
