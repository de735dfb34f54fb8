package handlers

import (
	"context"

	"freshledger/internal/core/id"
	"freshledger/internal/domain"
	"freshledger/internal/domain/accounting"
	"freshledger/internal/domain/auth"
	"freshledger/internal/domain/inventory"
	"freshledger/internal/domain/orders"
	"freshledger/internal/domain/payments"
	"freshledger/internal/domain/purchasing"
	"freshledger/internal/infrastructure/storage/postgres"
)

// The interfaces below are the parts of the domain services the handlers
// call. Each is satisfied by the matching *Service.

type AuthService interface {
	Login(ctx context.Context, creds auth.Credentials) (*auth.Token, *auth.Operator, error)
}

type OrderService interface {
	OpenDraft(ctx context.Context, notes string) (orders.DraftHandle, error)
	AddLines(ctx context.Context, orderID id.ID, inputs []orders.LineInput) (*orders.AddLinesResult, error)
	RemoveLine(ctx context.Context, orderID, lineID id.ID) error
	Confirm(ctx context.Context, orderID id.ID) (*orders.ConfirmResult, error)
	ReassignExcess(ctx context.Context, in orders.ReassignExcessInput) (*orders.AddLinesResult, error)
	Get(ctx context.Context, orderID id.ID) (*orders.OrderView, error)
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[orders.Order], error)
}

type ChargeService interface {
	CreateCharge(ctx context.Context, in orders.CreateChargeInput) (*orders.Charge, error)
	ListCharges(ctx context.Context, filter orders.ChargeFilter) (domain.ListResult[orders.Charge], error)
}

type PurchaseService interface {
	RecordPurchase(ctx context.Context, in purchasing.RecordPurchaseInput) (*purchasing.RecordPurchaseResult, error)
	Get(ctx context.Context, purchaseID id.ID) (*purchasing.PurchaseView, error)
}

type PaymentService interface {
	RecordPayment(ctx context.Context, in payments.RecordPaymentInput) (*payments.RecordPaymentResult, error)
	ListPayments(ctx context.Context, filter payments.PaymentFilter) (domain.ListResult[payments.Payment], error)
}

type AccountingService interface {
	GetOrderAccounting(ctx context.Context, orderID id.ID) (*accounting.OrderAccounting, error)
	GetCustomerAccounting(ctx context.Context, customerID id.ID, includeOrders bool) (*accounting.CustomerAccounting, error)
	ListOrderAccounting(ctx context.Context, limit int) ([]accounting.OrderAccounting, error)
}

type InventoryService interface {
	ListLots(ctx context.Context, filter inventory.LotFilter) (domain.ListResult[inventory.Lot], error)
	ConsumeLot(ctx context.Context, lotID id.ID, in inventory.ConsumeInput) (*inventory.Lot, error)
	MarkLot(ctx context.Context, lotID id.ID, status inventory.LotStatus, notes string) (*inventory.Lot, error)
	RecordProcessing(ctx context.Context, in inventory.ProcessingInput) (*inventory.ProcessingRecord, error)
}

type AuditReader interface {
	GetEntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]postgres.AuditEntry, error)
}

var (
	_ AuthService       = (*auth.Service)(nil)
	_ OrderService      = (*orders.Service)(nil)
	_ ChargeService     = (*orders.Service)(nil)
	_ PurchaseService   = (*purchasing.Service)(nil)
	_ PaymentService    = (*payments.Service)(nil)
	_ AccountingService = (*accounting.Service)(nil)
	_ InventoryService  = (*inventory.Service)(nil)
	_ AuditReader       = (*postgres.AuditService)(nil)
)
