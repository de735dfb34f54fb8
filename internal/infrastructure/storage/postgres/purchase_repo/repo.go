// Package purchase_repo provides the PostgreSQL store for purchases,
// conversion ratios and allocation records.
package purchase_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"freshledger/internal/core/id"
	"freshledger/internal/core/types"
	"freshledger/internal/domain/purchasing"
	"freshledger/internal/infrastructure/storage/postgres"
)

var _ purchasing.Repository = (*Repo)(nil)

// Repo stores purchases and their reconciliation records.
type Repo struct {
	purchases   *postgres.Table[purchasing.Purchase]
	ratios      *postgres.Table[purchasing.ConversionRatio]
	allocations *postgres.Table[purchasing.AllocationRecord]
}

// NewRepo creates the purchase store.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{
		purchases:   postgres.NewTable[purchasing.Purchase](txm, "purchases", "purchase"),
		ratios:      postgres.NewTable[purchasing.ConversionRatio](txm, "conversion_ratios", "conversion_ratio"),
		allocations: postgres.NewTable[purchasing.AllocationRecord](txm, "allocation_records", "allocation_record"),
	}
}

func (r *Repo) InsertPurchase(ctx context.Context, p *purchasing.Purchase) error {
	if p.Customers == nil {
		p.Customers = []string{}
	}
	return r.purchases.Insert(ctx, p)
}

func (r *Repo) GetPurchase(ctx context.Context, purchaseID id.ID) (*purchasing.Purchase, error) {
	return r.purchases.GetByID(ctx, purchaseID)
}

func (r *Repo) PurchasesByOrder(ctx context.Context, orderID id.ID) ([]purchasing.Purchase, error) {
	return r.purchases.Select(ctx, r.purchases.SelectAll().
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("created_at", "id"))
}

func (r *Repo) AppendRatio(ctx context.Context, ratio *purchasing.ConversionRatio) error {
	return r.ratios.Insert(ctx, ratio)
}

// LatestRatio returns the newest ratio of the pair, or nil.
func (r *Repo) LatestRatio(ctx context.Context, orderID, productID id.ID) (*purchasing.ConversionRatio, error) {
	rows, err := r.ratios.Select(ctx, r.ratios.SelectAll().
		Where(squirrel.Eq{"order_id": orderID, "product_id": productID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(1))
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (r *Repo) AllocatedByLines(ctx context.Context, lineIDs []id.ID) (map[id.ID]types.Quantity, error) {
	out := make(map[id.ID]types.Quantity, len(lineIDs))
	if len(lineIDs) == 0 {
		return out, nil
	}

	sql, args, err := postgres.Builder().
		Select("order_line_id", "SUM(qty) AS qty").
		From(r.allocations.Name()).
		Where(squirrel.Eq{"order_line_id": lineIDs}).
		GroupBy("order_line_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var sums []struct {
		LineID id.ID          `db:"order_line_id"`
		Qty    types.Quantity `db:"qty"`
	}
	if err := pgxscan.Select(ctx, r.allocations.Querier(ctx), &sums, sql, args...); err != nil {
		return nil, fmt.Errorf("sum allocations: %w", err)
	}
	for _, s := range sums {
		out[s.LineID] = s.Qty
	}
	return out, nil
}

func (r *Repo) InsertAllocations(ctx context.Context, records []purchasing.AllocationRecord) error {
	rows := make([]*purchasing.AllocationRecord, len(records))
	for i := range records {
		rows[i] = &records[i]
	}
	return r.allocations.Insert(ctx, rows...)
}

func (r *Repo) AllocationsByPurchase(ctx context.Context, purchaseID id.ID) ([]purchasing.AllocationRecord, error) {
	return r.allocations.Select(ctx, r.allocations.SelectAll().
		Where(squirrel.Eq{"purchase_id": purchaseID}).
		OrderBy("created_at", "id"))
}
