// Package report_repo composes the read side used by accounting reports.
package report_repo

import (
	"context"

	"freshledger/internal/core/id"
	"freshledger/internal/core/types"
	"freshledger/internal/domain/accounting"
	"freshledger/internal/domain/orders"
	"freshledger/internal/domain/purchasing"
	"freshledger/internal/infrastructure/storage/postgres/order_repo"
	"freshledger/internal/infrastructure/storage/postgres/payment_repo"
	"freshledger/internal/infrastructure/storage/postgres/purchase_repo"
)

var _ accounting.Reader = (*AccountingReader)(nil)

// AccountingReader implements accounting.Reader over the order, purchase and
// payment stores.
type AccountingReader struct {
	orders    *order_repo.Repo
	purchases *purchase_repo.Repo
	payments  *payment_repo.Repo
}

// NewAccountingReader creates the accounting read side.
func NewAccountingReader(o *order_repo.Repo, p *purchase_repo.Repo, pay *payment_repo.Repo) *AccountingReader {
	return &AccountingReader{orders: o, purchases: p, payments: pay}
}

func (r *AccountingReader) GetOrder(ctx context.Context, orderID id.ID) (*orders.Order, error) {
	return r.orders.GetOrder(ctx, orderID)
}

func (r *AccountingReader) ListLines(ctx context.Context, orderID id.ID) ([]orders.Line, error) {
	return r.orders.ListLines(ctx, orderID)
}

func (r *AccountingReader) ChargesByOrder(ctx context.Context, orderID id.ID) ([]orders.Charge, error) {
	return r.orders.ChargesByOrder(ctx, orderID)
}

func (r *AccountingReader) PurchasesByOrder(ctx context.Context, orderID id.ID) ([]purchasing.Purchase, error) {
	return r.purchases.PurchasesByOrder(ctx, orderID)
}

func (r *AccountingReader) ChargesByCustomer(ctx context.Context, customerID id.ID) ([]orders.Charge, error) {
	return r.orders.ChargesByCustomer(ctx, customerID)
}

func (r *AccountingReader) PaidByCharges(ctx context.Context, chargeIDs []id.ID) (map[id.ID]types.Money, error) {
	return r.payments.AppliedByCharges(ctx, chargeIDs)
}

func (r *AccountingReader) RecentOrders(ctx context.Context, limit int) ([]orders.Order, error) {
	return r.orders.RecentOrders(ctx, limit)
}
