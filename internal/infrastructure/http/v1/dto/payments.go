package dto

import (
	"github.com/shopspring/decimal"

	"freshledger/internal/domain/payments"
)

// ApplicationRequest assigns part of a payment to one charge.
type ApplicationRequest struct {
	ChargeID string          `json:"chargeId" binding:"required,uuid"`
	Amount   decimal.Decimal `json:"amount"`
}

// RecordPaymentRequest is an incoming payment.
type RecordPaymentRequest struct {
	CustomerID   string               `json:"customerId" binding:"required,uuid"`
	OrderID      *string              `json:"orderId" binding:"omitempty,uuid"`
	Amount       decimal.Decimal      `json:"amount"`
	Method       string               `json:"method" binding:"max=50"`
	Reference    string               `json:"reference" binding:"max=200"`
	Applications []ApplicationRequest `json:"applications" binding:"omitempty,dive"`
}

// ToInput converts to the domain input.
func (r *RecordPaymentRequest) ToInput() payments.RecordPaymentInput {
	in := payments.RecordPaymentInput{
		CustomerID: parseID(r.CustomerID),
		OrderID:    parseOptionalID(r.OrderID),
		Amount:     r.Amount,
		Method:     r.Method,
		Reference:  r.Reference,
	}
	for _, a := range r.Applications {
		in.Applications = append(in.Applications, payments.ExplicitApplication{
			ChargeID: parseID(a.ChargeID),
			Amount:   a.Amount,
		})
	}
	return in
}

// PaymentQuery filters the payment list.
type PaymentQuery struct {
	CustomerID string `form:"customerId" binding:"omitempty,uuid"`
	OrderID    string `form:"orderId" binding:"omitempty,uuid"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset     int    `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts to the domain filter.
func (q *PaymentQuery) ToFilter() payments.PaymentFilter {
	return payments.PaymentFilter{
		CustomerID: parseOptionalID(&q.CustomerID),
		OrderID:    parseOptionalID(&q.OrderID),
		Limit:      q.Limit,
		Offset:     q.Offset,
	}
}
