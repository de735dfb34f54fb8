package dto

import (
	"github.com/shopspring/decimal"

	"freshledger/internal/core/types"
	"freshledger/internal/domain/orders"
)

// CreateChargeRequest bills a customer directly.
type CreateChargeRequest struct {
	CustomerID     string              `json:"customerId" binding:"required,uuid"`
	OrderID        *string             `json:"orderId" binding:"omitempty,uuid"`
	LineID         *string             `json:"lineId" binding:"omitempty,uuid"`
	ProductID      string              `json:"productId" binding:"required,uuid"`
	Qty            decimal.Decimal     `json:"qty"`
	ChargedQty     decimal.NullDecimal `json:"chargedQty"`
	Unit           string              `json:"unit" binding:"omitempty,unit"`
	UnitPrice      decimal.Decimal     `json:"unitPrice"`
	DiscountAmount decimal.Decimal     `json:"discountAmount"`
	DiscountReason string              `json:"discountReason" binding:"max=500"`
}

// ToInput converts to the domain input.
func (r *CreateChargeRequest) ToInput() orders.CreateChargeInput {
	return orders.CreateChargeInput{
		CustomerID:     parseID(r.CustomerID),
		OrderID:        parseOptionalID(r.OrderID),
		LineID:         parseOptionalID(r.LineID),
		ProductID:      parseID(r.ProductID),
		Qty:            r.Qty,
		ChargedQty:     r.ChargedQty,
		Unit:           types.Unit(r.Unit),
		UnitPrice:      r.UnitPrice,
		DiscountAmount: r.DiscountAmount,
		DiscountReason: r.DiscountReason,
	}
}

// ChargeQuery filters the charge list.
type ChargeQuery struct {
	CustomerID string `form:"customerId" binding:"omitempty,uuid"`
	OrderID    string `form:"orderId" binding:"omitempty,uuid"`
	Status     string `form:"status"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset     int    `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts to the domain filter.
func (q *ChargeQuery) ToFilter() orders.ChargeFilter {
	return orders.ChargeFilter{
		CustomerID: parseOptionalID(&q.CustomerID),
		OrderID:    parseOptionalID(&q.OrderID),
		Status:     orders.ChargeStatus(q.Status),
		Limit:      q.Limit,
		Offset:     q.Offset,
	}
}
