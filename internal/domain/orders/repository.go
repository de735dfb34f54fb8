package orders

import (
	"context"

	"freshledger/internal/core/id"
	"freshledger/internal/core/types"
	"freshledger/internal/domain"
)

// Repository persists orders, lines and charges.
type Repository interface {
	CreateOrder(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, orderID id.ID) (*Order, error)
	// GetOrderForUpdate locks the order row for the rest of the transaction.
	GetOrderForUpdate(ctx context.Context, orderID id.ID) (*Order, error)
	// UpdateOrder writes status fields guarded by Version and bumps it.
	UpdateOrder(ctx context.Context, order *Order) error
	ListOrders(ctx context.Context, filter domain.ListFilter) (domain.ListResult[Order], error)

	GetLine(ctx context.Context, lineID id.ID) (*Line, error)
	ListLines(ctx context.Context, orderID id.ID) ([]Line, error)
	InsertLines(ctx context.Context, lines []Line) error
	DeleteLine(ctx context.Context, lineID id.ID) error
	// LineHasPayments reports whether any charge of the line has applications.
	LineHasPayments(ctx context.Context, lineID id.ID) (bool, error)

	GetCharge(ctx context.Context, chargeID id.ID) (*Charge, error)
	ChargesByOrder(ctx context.Context, orderID id.ID) ([]Charge, error)
	CountChargesByOrder(ctx context.Context, orderID id.ID) (int, error)
	InsertCharges(ctx context.Context, charges []Charge) error
	DeleteChargesByLine(ctx context.Context, lineID id.ID) error
	// ListCharges returns charges matching filter, newest first.
	ListCharges(ctx context.Context, filter ChargeFilter) (domain.ListResult[Charge], error)
}

// LotConsumer takes quantity out of a surplus lot.
type LotConsumer interface {
	ConsumeForReassign(ctx context.Context, lotID, productID id.ID, unit types.Unit, qty types.Quantity) error
}
