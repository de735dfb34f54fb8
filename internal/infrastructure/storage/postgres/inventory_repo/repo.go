// Package inventory_repo provides the PostgreSQL store for surplus lots and
// processing records.
package inventory_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"freshledger/internal/core/id"
	"freshledger/internal/domain"
	"freshledger/internal/domain/inventory"
	"freshledger/internal/infrastructure/storage/postgres"
)

var _ inventory.Repository = (*Repo)(nil)

// Repo stores inventory lots.
type Repo struct {
	lots       *postgres.Table[inventory.Lot]
	processing *postgres.Table[inventory.ProcessingRecord]
}

// NewRepo creates the inventory store.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{
		lots:       postgres.NewTable[inventory.Lot](txm, "inventory_lots", "inventory_lot"),
		processing: postgres.NewTable[inventory.ProcessingRecord](txm, "processing_records", "processing_record"),
	}
}

func (r *Repo) CreateLot(ctx context.Context, lot *inventory.Lot) error {
	return r.lots.Insert(ctx, lot)
}

func (r *Repo) GetLot(ctx context.Context, lotID id.ID) (*inventory.Lot, error) {
	return r.lots.GetByID(ctx, lotID)
}

func (r *Repo) ListLots(ctx context.Context, filter inventory.LotFilter) (domain.ListResult[inventory.Lot], error) {
	result := domain.ListResult[inventory.Lot]{Limit: filter.Limit, Offset: filter.Offset}

	q := r.lots.SelectAll()
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}

	total, err := r.lots.Count(ctx, q)
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
	result.Items, err = r.lots.Select(ctx, q)
	return result, err
}

// UpdateLot writes quantities, status and notes if the version still matches.
func (r *Repo) UpdateLot(ctx context.Context, lot *inventory.Lot) error {
	err := r.lots.UpdateVersioned(ctx, lot.ID, lot.Version, map[string]any{
		"qty_kg":   lot.QtyKg,
		"qty_unit": lot.QtyUnit,
		"status":   lot.Status,
		"notes":    lot.Notes,
	})
	if err != nil {
		return err
	}
	lot.Version++
	return nil
}

func (r *Repo) InsertProcessing(ctx context.Context, rec *inventory.ProcessingRecord) error {
	return r.processing.Insert(ctx, rec)
}
