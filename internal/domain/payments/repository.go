package payments

import (
	"context"
	"time"

	"freshledger/internal/core/id"
	"freshledger/internal/core/types"
	"freshledger/internal/domain"
	"freshledger/internal/domain/orders"
)

// Repository persists payments and their applications.
type Repository interface {
	InsertPayment(ctx context.Context, p *Payment) error
	InsertApplications(ctx context.Context, apps []Application) error
	// AppliedByCharges sums prior applications per charge.
	AppliedByCharges(ctx context.Context, chargeIDs []id.ID) (map[id.ID]types.Money, error)
	// ListPayments returns payments matching filter, newest first.
	ListPayments(ctx context.Context, filter PaymentFilter) (domain.ListResult[Payment], error)
}

// ChargeStore is the part of the charge store payments read and settle.
type ChargeStore interface {
	// PendingCharges returns the customer's pending charges, oldest first,
	// optionally limited to one order.
	PendingCharges(ctx context.Context, customerID id.ID, orderID *id.ID) ([]orders.Charge, error)
	GetCharge(ctx context.Context, chargeID id.ID) (*orders.Charge, error)
	MarkChargePaid(ctx context.Context, chargeID id.ID, paidAt time.Time) error
}

// Metrics observes recorded payments.
type Metrics interface {
	PaymentRecorded(applied, unapplied types.Money)
}

type nopMetrics struct{}

func (nopMetrics) PaymentRecorded(types.Money, types.Money) {}
