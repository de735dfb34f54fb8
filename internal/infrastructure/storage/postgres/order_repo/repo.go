// Package order_repo provides the PostgreSQL store for orders, lines and charges.
package order_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"freshledger/internal/core/id"
	"freshledger/internal/domain"
	"freshledger/internal/domain/orders"
	"freshledger/internal/domain/payments"
	"freshledger/internal/domain/purchasing"
	"freshledger/internal/infrastructure/storage/postgres"
)

var (
	_ orders.Repository     = (*Repo)(nil)
	_ purchasing.OrderStore = (*Repo)(nil)
	_ payments.ChargeStore  = (*Repo)(nil)
)

// Repo stores orders with their lines and charges.
type Repo struct {
	orders  *postgres.Table[orders.Order]
	lines   *postgres.Table[orders.Line]
	charges *postgres.Table[orders.Charge]
}

// NewRepo creates the order store.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{
		orders:  postgres.NewTable[orders.Order](txm, "orders", "order"),
		lines:   postgres.NewTable[orders.Line](txm, "order_lines", "order_line"),
		charges: postgres.NewTable[orders.Charge](txm, "charges", "charge"),
	}
}

// --- Orders ---

func (r *Repo) CreateOrder(ctx context.Context, order *orders.Order) error {
	return r.orders.Insert(ctx, order)
}

func (r *Repo) GetOrder(ctx context.Context, orderID id.ID) (*orders.Order, error) {
	return r.orders.GetByID(ctx, orderID)
}

// GetOrderForUpdate locks the order row until the transaction ends.
func (r *Repo) GetOrderForUpdate(ctx context.Context, orderID id.ID) (*orders.Order, error) {
	q := r.orders.SelectAll().Where(squirrel.Eq{"id": orderID}).Suffix("FOR UPDATE")
	return r.orders.Get(ctx, q, orderID)
}

func (r *Repo) UpdateOrder(ctx context.Context, order *orders.Order) error {
	err := r.orders.UpdateVersioned(ctx, order.ID, order.Version, map[string]any{
		"status":     order.Status,
		"title":      order.Title,
		"notes":      order.Notes,
		"emitted_at": order.EmittedAt,
	})
	if err != nil {
		return err
	}
	order.Version++
	return nil
}

func (r *Repo) ListOrders(ctx context.Context, filter domain.ListFilter) (domain.ListResult[orders.Order], error) {
	result := domain.ListResult[orders.Order]{Limit: filter.Limit, Offset: filter.Offset}

	q := r.orders.SelectAll()
	total, err := r.orders.Count(ctx, q)
	if err != nil {
		return result, err
	}
	result.TotalCount = total

	orderBy, err := r.orders.OrderBy(filter.OrderBy, "created_at DESC")
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy, "id DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	result.Items, err = r.orders.Select(ctx, q)
	return result, err
}

// RecentOrders returns orders newest first.
func (r *Repo) RecentOrders(ctx context.Context, limit int) ([]orders.Order, error) {
	return r.orders.Select(ctx, r.orders.SelectAll().OrderBy("created_at DESC", "id DESC").Limit(uint64(limit)))
}

// --- Lines ---

func (r *Repo) GetLine(ctx context.Context, lineID id.ID) (*orders.Line, error) {
	return r.lines.GetByID(ctx, lineID)
}

func (r *Repo) ListLines(ctx context.Context, orderID id.ID) ([]orders.Line, error) {
	return r.lines.Select(ctx, r.lines.SelectAll().
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("created_at", "id"))
}

func (r *Repo) InsertLines(ctx context.Context, lines []orders.Line) error {
	return r.lines.Insert(ctx, ptrs(lines)...)
}

// DeleteLine removes the line together with its allocation records.
func (r *Repo) DeleteLine(ctx context.Context, lineID id.ID) error {
	if _, err := r.lines.Exec(ctx, postgres.Builder().
		Delete("allocation_records").
		Where(squirrel.Eq{"order_line_id": lineID})); err != nil {
		return fmt.Errorf("delete allocations: %w", err)
	}
	tag, err := r.lines.Exec(ctx, postgres.Builder().Delete(r.lines.Name()).Where(squirrel.Eq{"id": lineID}))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete order line %s: no rows", lineID)
	}
	return nil
}

func lineHasPaymentsQuery(lineID id.ID) squirrel.SelectBuilder {
	return postgres.Builder().Select().Column(squirrel.Expr(
		"EXISTS (SELECT 1 FROM payment_applications pa JOIN charges c ON c.id = pa.charge_id WHERE c.order_line_id = ?)",
		lineID,
	))
}

func (r *Repo) LineHasPayments(ctx context.Context, lineID id.ID) (bool, error) {
	sql, args, err := lineHasPaymentsQuery(lineID).ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}
	var exists bool
	if err := r.lines.Querier(ctx).QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("line has payments: %w", err)
	}
	return exists, nil
}

// UpdateLineProjection writes the projected charged unit and quantity.
func (r *Repo) UpdateLineProjection(ctx context.Context, line *orders.Line) error {
	return r.lines.Update(ctx, line.ID, map[string]any{
		"charged_unit": line.ChargedUnit,
		"charged_qty":  line.ChargedQty,
	})
}

// --- Charges ---

func (r *Repo) GetCharge(ctx context.Context, chargeID id.ID) (*orders.Charge, error) {
	return r.charges.GetByID(ctx, chargeID)
}

func (r *Repo) ChargesByOrder(ctx context.Context, orderID id.ID) ([]orders.Charge, error) {
	return r.charges.Select(ctx, r.charges.SelectAll().
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("created_at", "id"))
}

// ChargesByCustomer returns every charge of the customer on any order.
func (r *Repo) ChargesByCustomer(ctx context.Context, customerID id.ID) ([]orders.Charge, error) {
	return r.charges.Select(ctx, r.charges.SelectAll().
		Where(squirrel.Eq{"customer_id": customerID}).
		OrderBy("created_at", "id"))
}

func (r *Repo) CountChargesByOrder(ctx context.Context, orderID id.ID) (int, error) {
	n, err := r.charges.Count(ctx, r.charges.SelectAll().Where(squirrel.Eq{"order_id": orderID}))
	return int(n), err
}

func (r *Repo) InsertCharges(ctx context.Context, charges []orders.Charge) error {
	return r.charges.Insert(ctx, ptrs(charges)...)
}

func (r *Repo) DeleteChargesByLine(ctx context.Context, lineID id.ID) error {
	_, err := r.charges.Exec(ctx, postgres.Builder().
		Delete(r.charges.Name()).
		Where(squirrel.Eq{"order_line_id": lineID}))
	return err
}

// UpdateChargeProjection writes the projected quantity, unit and total.
func (r *Repo) UpdateChargeProjection(ctx context.Context, charge *orders.Charge) error {
	return r.charges.Update(ctx, charge.ID, map[string]any{
		"charged_qty": charge.ChargedQty,
		"unit":        charge.Unit,
		"total":       charge.Total,
	})
}

func filterCharges(q squirrel.SelectBuilder, filter orders.ChargeFilter) squirrel.SelectBuilder {
	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.OrderID != nil {
		q = q.Where(squirrel.Eq{"order_id": *filter.OrderID})
	}
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": filter.Status})
	}
	return q
}

// ListCharges returns charges matching filter, newest first.
func (r *Repo) ListCharges(ctx context.Context, filter orders.ChargeFilter) (domain.ListResult[orders.Charge], error) {
	result := domain.ListResult[orders.Charge]{Limit: filter.Limit, Offset: filter.Offset}

	q := filterCharges(r.charges.SelectAll(), filter)
	total, err := r.charges.Count(ctx, q)
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
	result.Items, err = r.charges.Select(ctx, q)
	return result, err
}

// PendingCharges returns the customer's pending charges, oldest first.
func (r *Repo) PendingCharges(ctx context.Context, customerID id.ID, orderID *id.ID) ([]orders.Charge, error) {
	q := r.charges.SelectAll().Where(squirrel.Eq{
		"customer_id": customerID,
		"status":      orders.ChargePending,
	})
	if orderID != nil {
		q = q.Where(squirrel.Eq{"order_id": *orderID})
	}
	return r.charges.Select(ctx, q.OrderBy("created_at", "id").Suffix("FOR UPDATE"))
}

func (r *Repo) MarkChargePaid(ctx context.Context, chargeID id.ID, paidAt time.Time) error {
	return r.charges.Update(ctx, chargeID, map[string]any{
		"status":  orders.ChargePaid,
		"paid_at": paidAt,
	})
}

func ptrs[T any](items []T) []*T {
	out := make([]*T, len(items))
	for i := range items {
		out[i] = &items[i]
	}
	return out
}
