// Package payments records customer payments and spreads them over open charges.
package payments

import (
	"time"

	"github.com/shopspring/decimal"

	"freshledger/internal/core/apperror"
	"freshledger/internal/core/id"
	"freshledger/internal/core/types"
)

// Payment is money received from a customer.
type Payment struct {
	ID         id.ID       `db:"id" json:"id"`
	CustomerID id.ID       `db:"customer_id" json:"customerId"`
	OrderID    *id.ID      `db:"order_id" json:"orderId,omitempty"`
	Amount     types.Money `db:"amount" json:"amount"`
	Method     string      `db:"method" json:"method,omitempty"`
	Reference  string      `db:"reference" json:"reference,omitempty"`
	CreatedBy  string      `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`
}

// Application is the part of a payment settled against one charge.
type Application struct {
	ID        id.ID       `db:"id" json:"id"`
	PaymentID id.ID       `db:"payment_id" json:"paymentId"`
	ChargeID  id.ID       `db:"charge_id" json:"chargeId"`
	Amount    types.Money `db:"amount" json:"amount"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}

// ExplicitApplication is a caller-chosen amount for one charge.
type ExplicitApplication struct {
	ChargeID id.ID
	Amount   types.Money
}

// RecordPaymentInput is an incoming payment.
type RecordPaymentInput struct {
	CustomerID   id.ID
	OrderID      *id.ID
	Amount       types.Money
	Method       string
	Reference    string
	Applications []ExplicitApplication
}

// Validate rejects malformed payments before anything is written.
func (in RecordPaymentInput) Validate() error {
	if id.IsNil(in.CustomerID) {
		return apperror.NewValidation("customer_id is required").WithDetail("field", "customer_id")
	}
	if !in.Amount.IsPositive() {
		return apperror.NewValidation("amount must be greater than zero").WithDetail("field", "amount")
	}

	sum := decimal.Zero
	seen := make(map[id.ID]bool, len(in.Applications))
	for i, a := range in.Applications {
		if id.IsNil(a.ChargeID) {
			return apperror.NewValidation("charge_id is required").WithDetail("index", i)
		}
		if seen[a.ChargeID] {
			return apperror.NewValidation("charge listed twice").WithDetail("charge_id", a.ChargeID)
		}
		seen[a.ChargeID] = true
		if !a.Amount.IsPositive() {
			return apperror.NewValidation("application amount must be greater than zero").WithDetail("index", i)
		}
		sum = sum.Add(a.Amount)
	}
	if sum.GreaterThan(in.Amount) {
		return apperror.NewValidation("applications exceed payment amount").
			WithDetail("applied", sum.String()).
			WithDetail("amount", in.Amount.String())
	}
	return nil
}

// RecordPaymentResult is the stored payment and where it went.
type RecordPaymentResult struct {
	Payment      *Payment      `json:"payment"`
	Applications []Application `json:"applications"`
	PaidCharges  []id.ID       `json:"paidCharges"`
	Unapplied    types.Money   `json:"unapplied"`
}

// PaymentFilter narrows ListPayments.
type PaymentFilter struct {
	CustomerID *id.ID
	OrderID    *id.ID
	Limit      int
	Offset     int
}
