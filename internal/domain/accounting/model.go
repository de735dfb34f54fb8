// Package accounting rolls billed, cost, profit, paid and due up per order and
// per customer from the persisted results of reconciliation and payments.
package accounting

import (
	"freshledger/internal/core/id"
	"freshledger/internal/core/types"
	"freshledger/internal/domain/orders"
	"freshledger/internal/domain/purchasing"
)

// OrderAccounting is the financial state of one order.
type OrderAccounting struct {
	OrderID          id.ID                      `json:"orderId"`
	Number           string                     `json:"number"`
	Status           orders.Status              `json:"status"`
	Billed           types.Money                `json:"billed"`
	Cost             types.Money                `json:"cost"`
	Profit           types.Money                `json:"profit"`
	ProfitPct        types.Money                `json:"profitPct"`
	Paid             types.Money                `json:"paid"`
	Due              types.Money                `json:"due"`
	PurchaseStatus   purchasing.Verdict         `json:"purchaseStatus"`
	Products         []purchasing.ProductStatus `json:"products,omitempty"`
	BilledByCustomer []CustomerAmount           `json:"billedByCustomer,omitempty"`
}

// CustomerAmount is one customer's share of an order.
type CustomerAmount struct {
	CustomerID id.ID       `json:"customerId"`
	Name       string      `json:"name"`
	Billed     types.Money `json:"billed"`
	Paid       types.Money `json:"paid"`
	Due        types.Money `json:"due"`
}

// CustomerOrder is the customer's balance on one order.
type CustomerOrder struct {
	OrderID *id.ID      `json:"orderId,omitempty"`
	Billed  types.Money `json:"billed"`
	Paid    types.Money `json:"paid"`
	Due     types.Money `json:"due"`
}

// CustomerAccounting is the balance of one customer across orders.
type CustomerAccounting struct {
	CustomerID id.ID           `json:"customerId"`
	Name       string          `json:"name"`
	Billed     types.Money     `json:"billed"`
	Paid       types.Money     `json:"paid"`
	Due        types.Money     `json:"due"`
	Orders     []CustomerOrder `json:"orders,omitempty"`
}
