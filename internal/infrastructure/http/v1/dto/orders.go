package dto

import (
	"github.com/shopspring/decimal"

	"freshledger/internal/core/id"
	"freshledger/internal/core/types"
	"freshledger/internal/domain/orders"
)

// OpenDraftRequest opens a new draft order.
type OpenDraftRequest struct {
	Notes string `json:"notes" binding:"max=1000"`
}

// LineRequest is one line of AddLinesRequest.
type LineRequest struct {
	CustomerID  string              `json:"customerId" binding:"required,uuid"`
	ProductID   string              `json:"productId" binding:"required,uuid"`
	VariantID   *string             `json:"variantId" binding:"omitempty,uuid"`
	Qty         decimal.Decimal     `json:"qty"`
	Unit        string              `json:"unit" binding:"required,unit"`
	ChargedUnit string              `json:"chargedUnit" binding:"omitempty,unit"`
	ChargedQty  decimal.NullDecimal `json:"chargedQty"`
	UnitPrice   decimal.NullDecimal `json:"unitPrice"`
	Notes       string              `json:"notes" binding:"max=1000"`
}

// ToInput converts to the domain input.
func (r LineRequest) ToInput() orders.LineInput {
	return orders.LineInput{
		CustomerID:    parseID(r.CustomerID),
		ProductID:     parseID(r.ProductID),
		VariantID:     parseOptionalID(r.VariantID),
		Qty:           r.Qty,
		Unit:          types.Unit(r.Unit),
		ChargedUnit:   types.Unit(r.ChargedUnit),
		ChargedQty:    r.ChargedQty,
		SaleUnitPrice: r.UnitPrice,
		Notes:         r.Notes,
	}
}

// AddLinesRequest appends lines to an order.
type AddLinesRequest struct {
	Lines []LineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToInputs converts all lines.
func (r *AddLinesRequest) ToInputs() []orders.LineInput {
	out := make([]orders.LineInput, len(r.Lines))
	for i, l := range r.Lines {
		out[i] = l.ToInput()
	}
	return out
}

// ReassignExcessRequest bills surplus to a customer on the order.
type ReassignExcessRequest struct {
	ProductID  string          `json:"productId" binding:"required,uuid"`
	CustomerID string          `json:"customerId" binding:"required,uuid"`
	Qty        decimal.Decimal `json:"qty"`
	Unit       string          `json:"unit" binding:"required,unit"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	LotID      *string         `json:"lotId" binding:"omitempty,uuid"`
}

// ToInput converts to the domain input for orderID.
func (r *ReassignExcessRequest) ToInput(orderID id.ID) orders.ReassignExcessInput {
	return orders.ReassignExcessInput{
		OrderID:    orderID,
		ProductID:  parseID(r.ProductID),
		CustomerID: parseID(r.CustomerID),
		Qty:        r.Qty,
		Unit:       types.Unit(r.Unit),
		UnitPrice:  r.UnitPrice,
		LotID:      parseOptionalID(r.LotID),
	}
}
