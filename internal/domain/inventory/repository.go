package inventory

import (
	"context"

	"freshledger/internal/core/id"
	"freshledger/internal/domain"
)

// Repository persists lots and processing records.
type Repository interface {
	CreateLot(ctx context.Context, lot *Lot) error
	GetLot(ctx context.Context, lotID id.ID) (*Lot, error)
	ListLots(ctx context.Context, filter LotFilter) (domain.ListResult[Lot], error)
	// UpdateLot writes quantities, status and notes guarded by Version and bumps it.
	UpdateLot(ctx context.Context, lot *Lot) error
	InsertProcessing(ctx context.Context, rec *ProcessingRecord) error
}
