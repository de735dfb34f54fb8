package dto

import (
	"github.com/shopspring/decimal"

	"freshledger/internal/core/types"
	"freshledger/internal/domain/purchasing"
)

// RecordPurchaseRequest is a purchase as entered by the buyer.
type RecordPurchaseRequest struct {
	ProductID    string              `json:"productId" binding:"required,uuid"`
	OrderID      *string             `json:"orderId" binding:"omitempty,uuid"`
	QtyKg        decimal.NullDecimal `json:"qtyKg"`
	QtyUnit      decimal.NullDecimal `json:"qtyUnit"`
	EqQtyKg      decimal.NullDecimal `json:"eqQtyKg"`
	EqQtyUnit    decimal.NullDecimal `json:"eqQtyUnit"`
	ChargedUnit  string              `json:"chargedUnit" binding:"required,unit"`
	PricePerUnit decimal.Decimal     `json:"pricePerUnit"`
	PriceTotal   decimal.NullDecimal `json:"priceTotal"`
	Vendor       string              `json:"vendor" binding:"max=200"`
	Notes        string              `json:"notes" binding:"max=1000"`
	Customers    []string            `json:"customers" binding:"omitempty,dive,max=200"`
}

// ToInput converts to the domain input.
func (r *RecordPurchaseRequest) ToInput() purchasing.RecordPurchaseInput {
	return purchasing.RecordPurchaseInput{
		ProductID:    parseID(r.ProductID),
		OrderID:      parseOptionalID(r.OrderID),
		QtyKg:        r.QtyKg,
		QtyUnit:      r.QtyUnit,
		EqQtyKg:      r.EqQtyKg,
		EqQtyUnit:    r.EqQtyUnit,
		ChargedUnit:  types.Unit(r.ChargedUnit),
		PricePerUnit: r.PricePerUnit,
		PriceTotal:   r.PriceTotal,
		Vendor:       r.Vendor,
		Notes:        r.Notes,
		Customers:    r.Customers,
	}
}
