package accounting

import (
	"context"

	"freshledger/internal/core/id"
	"freshledger/internal/core/types"
	"freshledger/internal/domain/orders"
	"freshledger/internal/domain/purchasing"
)

// Reader is the read side accounting composes from.
type Reader interface {
	GetOrder(ctx context.Context, orderID id.ID) (*orders.Order, error)
	ListLines(ctx context.Context, orderID id.ID) ([]orders.Line, error)
	ChargesByOrder(ctx context.Context, orderID id.ID) ([]orders.Charge, error)
	PurchasesByOrder(ctx context.Context, orderID id.ID) ([]purchasing.Purchase, error)
	// ChargesByCustomer returns every charge of the customer, on any order.
	ChargesByCustomer(ctx context.Context, customerID id.ID) ([]orders.Charge, error)
	// PaidByCharges sums applications per charge.
	PaidByCharges(ctx context.Context, chargeIDs []id.ID) (map[id.ID]types.Money, error)
	// RecentOrders returns orders newest first.
	RecentOrders(ctx context.Context, limit int) ([]orders.Order, error)
}
