package purchasing

import (
	"context"

	"freshledger/internal/core/id"
	"freshledger/internal/core/types"
	"freshledger/internal/domain/inventory"
	"freshledger/internal/domain/orders"
)

// Repository persists purchases, the ratio history and allocations.
type Repository interface {
	InsertPurchase(ctx context.Context, p *Purchase) error
	GetPurchase(ctx context.Context, purchaseID id.ID) (*Purchase, error)
	// PurchasesByOrder returns the order's purchases, oldest first.
	PurchasesByOrder(ctx context.Context, orderID id.ID) ([]Purchase, error)

	AppendRatio(ctx context.Context, r *ConversionRatio) error
	// LatestRatio returns nil without error when the pair has no history.
	LatestRatio(ctx context.Context, orderID, productID id.ID) (*ConversionRatio, error)

	// AllocatedByLines sums prior allocations per line.
	AllocatedByLines(ctx context.Context, lineIDs []id.ID) (map[id.ID]types.Quantity, error)
	InsertAllocations(ctx context.Context, records []AllocationRecord) error
	AllocationsByPurchase(ctx context.Context, purchaseID id.ID) ([]AllocationRecord, error)
}

// OrderStore is the part of the order store the reconciliation reads and
// rewrites.
type OrderStore interface {
	GetOrder(ctx context.Context, orderID id.ID) (*orders.Order, error)
	ListLines(ctx context.Context, orderID id.ID) ([]orders.Line, error)
	ChargesByOrder(ctx context.Context, orderID id.ID) ([]orders.Charge, error)
	// UpdateLineProjection writes charged_unit and charged_qty.
	UpdateLineProjection(ctx context.Context, line *orders.Line) error
	// UpdateChargeProjection writes charged_qty, unit and total.
	UpdateChargeProjection(ctx context.Context, charge *orders.Charge) error
}

// LotCreator files surplus lots.
type LotCreator interface {
	CreateLot(ctx context.Context, lot *inventory.Lot) error
}

// Metrics observes reconciliation outcomes.
type Metrics interface {
	PurchaseRecorded(verdict Verdict)
	Fallback(kind FallbackKind)
}

type nopMetrics struct{}

func (nopMetrics) PurchaseRecorded(Verdict) {}
func (nopMetrics) Fallback(FallbackKind)    {}
