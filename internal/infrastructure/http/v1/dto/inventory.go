package dto

import (
	"github.com/shopspring/decimal"

	"freshledger/internal/core/types"
	"freshledger/internal/domain/inventory"
)

// LotQuery filters the lot list.
type LotQuery struct {
	Status    string `form:"status"`
	ProductID string `form:"productId" binding:"omitempty,uuid"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset    int    `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts to the domain filter.
func (q *LotQuery) ToFilter() inventory.LotFilter {
	f := inventory.LotFilter{Status: inventory.LotStatus(q.Status), Limit: q.Limit, Offset: q.Offset}
	if q.ProductID != "" {
		f.ProductID = parseOptionalID(&q.ProductID)
	}
	return f
}

// ConsumeLotRequest takes quantity out of a lot.
type ConsumeLotRequest struct {
	Kg      decimal.Decimal `json:"kg"`
	Count   decimal.Decimal `json:"count"`
	Version int             `json:"version" binding:"min=0"`
}

// ToInput converts to the domain input.
func (r *ConsumeLotRequest) ToInput() inventory.ConsumeInput {
	return inventory.ConsumeInput{Kg: r.Kg, Count: r.Count, Version: r.Version}
}

// MarkLotRequest changes a lot's status.
type MarkLotRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes" binding:"max=1000"`
}

// ProcessingRequest records a processing run.
type ProcessingRequest struct {
	LotID         *string         `json:"lotId" binding:"omitempty,uuid"`
	FromProductID string          `json:"fromProductId" binding:"required,uuid"`
	ToProductID   string          `json:"toProductId" binding:"required,uuid"`
	InputKg       decimal.Decimal `json:"inputKg"`
	OutputQty     decimal.Decimal `json:"outputQty"`
	OutputUnit    string          `json:"outputUnit" binding:"required,unit"`
	Notes         string          `json:"notes" binding:"max=1000"`
}

// ToInput converts to the domain input.
func (r *ProcessingRequest) ToInput() inventory.ProcessingInput {
	return inventory.ProcessingInput{
		LotID:         parseOptionalID(r.LotID),
		FromProductID: parseID(r.FromProductID),
		ToProductID:   parseID(r.ToProductID),
		InputKg:       r.InputKg,
		OutputQty:     r.OutputQty,
		OutputUnit:    types.Unit(r.OutputUnit),
		Notes:         r.Notes,
	}
}
