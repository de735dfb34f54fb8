// Package payment_repo provides the PostgreSQL store for payments and their
// applications to charges.
package payment_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"freshledger/internal/core/id"
	"freshledger/internal/core/types"
	"freshledger/internal/domain"
	"freshledger/internal/domain/payments"
	"freshledger/internal/infrastructure/storage/postgres"
)

var _ payments.Repository = (*Repo)(nil)

// Repo stores payments.
type Repo struct {
	payments     *postgres.Table[payments.Payment]
	applications *postgres.Table[payments.Application]
}

// NewRepo creates the payment store.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{
		payments:     postgres.NewTable[payments.Payment](txm, "payments", "payment"),
		applications: postgres.NewTable[payments.Application](txm, "payment_applications", "payment_application"),
	}
}

func (r *Repo) InsertPayment(ctx context.Context, p *payments.Payment) error {
	return r.payments.Insert(ctx, p)
}

func (r *Repo) InsertApplications(ctx context.Context, apps []payments.Application) error {
	rows := make([]*payments.Application, len(apps))
	for i := range apps {
		rows[i] = &apps[i]
	}
	return r.applications.Insert(ctx, rows...)
}

// AppliedByCharges sums applications per charge.
func (r *Repo) AppliedByCharges(ctx context.Context, chargeIDs []id.ID) (map[id.ID]types.Money, error) {
	out := make(map[id.ID]types.Money, len(chargeIDs))
	if len(chargeIDs) == 0 {
		return out, nil
	}

	sql, args, err := postgres.Builder().
		Select("charge_id", "SUM(amount) AS amount").
		From(r.applications.Name()).
		Where(squirrel.Eq{"charge_id": chargeIDs}).
		GroupBy("charge_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var sums []struct {
		ChargeID id.ID       `db:"charge_id"`
		Amount   types.Money `db:"amount"`
	}
	if err := pgxscan.Select(ctx, r.applications.Querier(ctx), &sums, sql, args...); err != nil {
		return nil, fmt.Errorf("sum applications: %w", err)
	}
	for _, s := range sums {
		out[s.ChargeID] = s.Amount
	}
	return out, nil
}

func filterPayments(q squirrel.SelectBuilder, filter payments.PaymentFilter) squirrel.SelectBuilder {
	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.OrderID != nil {
		q = q.Where(squirrel.Eq{"order_id": *filter.OrderID})
	}
	return q
}

// ListPayments returns payments matching filter, newest first.
func (r *Repo) ListPayments(ctx context.Context, filter payments.PaymentFilter) (domain.ListResult[payments.Payment], error) {
	result := domain.ListResult[payments.Payment]{Limit: filter.Limit, Offset: filter.Offset}

	q := filterPayments(r.payments.SelectAll(), filter)
	total, err := r.payments.Count(ctx, q)
	if err != nil {
		return result, err
	}
	result.TotalCount = total

	q = q.OrderBy("created_at DESC", "id DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	result.Items, err = r.payments.Select(ctx, q)
	return result, err
}
