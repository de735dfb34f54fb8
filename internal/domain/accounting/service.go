package accounting

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"freshledger/internal/core/id"
	"freshledger/internal/core/tx"
	"freshledger/internal/core/types"
	"freshledger/internal/domain/catalog"
	"freshledger/internal/domain/orders"
	"freshledger/internal/domain/purchasing"
)

var hundred = decimal.NewFromInt(100)

// Service answers accounting queries inside read-only transactions.
type Service struct {
	reader    Reader
	customers catalog.CustomerDirectory
	txManager tx.ReadOnlyManager
}

// NewService creates an accounting service.
func NewService(reader Reader, customers catalog.CustomerDirectory, txManager tx.ReadOnlyManager) *Service {
	return &Service{reader: reader, customers: customers, txManager: txManager}
}

// GetOrderAccounting computes the accounting of one order.
func (s *Service) GetOrderAccounting(ctx context.Context, orderID id.ID) (*OrderAccounting, error) {
	var out *OrderAccounting
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		order, err := s.reader.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		out, err = s.orderAccounting(ctx, order, true)
		return err
	})
	return out, err
}

// ListOrderAccounting summarizes the most recent orders.
func (s *Service) ListOrderAccounting(ctx context.Context, limit int) ([]OrderAccounting, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	var out []OrderAccounting
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		recent, err := s.reader.RecentOrders(ctx, limit)
		if err != nil {
			return fmt.Errorf("list recent orders: %w", err)
		}
		out = make([]OrderAccounting, 0, len(recent))
		for i := range recent {
			acc, err := s.orderAccounting(ctx, &recent[i], false)
			if err != nil {
				return err
			}
			out = append(out, *acc)
		}
		return nil
	})
	return out, err
}

// GetCustomerAccounting computes a customer's balance over all their charges,
// whichever order they currently sit on.
func (s *Service) GetCustomerAccounting(ctx context.Context, customerID id.ID, includeOrders bool) (*CustomerAccounting, error) {
	var out *CustomerAccounting
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		customer, err := s.customers.GetCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		charges, err := s.reader.ChargesByCustomer(ctx, customerID)
		if err != nil {
			return fmt.Errorf("list customer charges: %w", err)
		}
		paid, err := s.reader.PaidByCharges(ctx, chargeIDs(charges))
		if err != nil {
			return fmt.Errorf("sum applications: %w", err)
		}

		out = &CustomerAccounting{CustomerID: customer.ID, Name: customer.Name}
		billed, paidSum := decimal.Zero, decimal.Zero
		perOrder := map[string]*CustomerOrder{}
		var keys []string

		for _, c := range charges {
			if c.Status == orders.ChargeCancelled {
				continue
			}
			b := chargeBilled(c)
			p := paid[c.ID]
			billed = billed.Add(b)
			paidSum = paidSum.Add(p)

			if !includeOrders {
				continue
			}
			key := id.String(c.OrderID)
			row, ok := perOrder[key]
			if !ok {
				row = &CustomerOrder{OrderID: c.OrderID, Billed: decimal.Zero, Paid: decimal.Zero}
				perOrder[key] = row
				keys = append(keys, key)
			}
			row.Billed = row.Billed.Add(b)
			row.Paid = row.Paid.Add(p)
		}

		out.Billed = types.RoundMoney(billed)
		out.Paid = types.RoundMoney(paidSum)
		out.Due = types.RoundMoney(types.NonNegative(billed.Sub(paidSum)))
		for _, k := range keys {
			row := perOrder[k]
			row.Billed = types.RoundMoney(row.Billed)
			row.Paid = types.RoundMoney(row.Paid)
			row.Due = types.RoundMoney(types.NonNegative(row.Billed.Sub(row.Paid)))
			out.Orders = append(out.Orders, *row)
		}
		return nil
	})
	return out, err
}

func (s *Service) orderAccounting(ctx context.Context, order *orders.Order, detailed bool) (*OrderAccounting, error) {
	charges, err := s.reader.ChargesByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list charges: %w", err)
	}
	purchases, err := s.reader.PurchasesByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	lines, err := s.reader.ListLines(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list lines: %w", err)
	}
	paid, err := s.reader.PaidByCharges(ctx, chargeIDs(charges))
	if err != nil {
		return nil, fmt.Errorf("sum applications: %w", err)
	}

	billed, paidSum := decimal.Zero, decimal.Zero
	byCustomer := map[id.ID]*CustomerAmount{}
	for _, c := range charges {
		if c.Status == orders.ChargeCancelled {
			continue
		}
		b := chargeBilled(c)
		billed = billed.Add(b)
		paidSum = paidSum.Add(paid[c.ID])

		row, ok := byCustomer[c.CustomerID]
		if !ok {
			row = &CustomerAmount{CustomerID: c.CustomerID, Billed: decimal.Zero, Paid: decimal.Zero}
			byCustomer[c.CustomerID] = row
		}
		row.Billed = row.Billed.Add(b)
		row.Paid = row.Paid.Add(paid[c.ID])
	}

	cost := decimal.Zero
	for i := range purchases {
		cost = cost.Add(purchases[i].Cost())
	}

	profit := types.NonNegative(billed.Sub(cost))
	pct := decimal.Zero
	if billed.IsPositive() {
		pct = profit.Div(billed).Mul(hundred)
	}

	completeness := purchasing.Evaluate(purchasing.AggregateDemand(lines), purchasing.AggregateSupply(purchases))

	acc := &OrderAccounting{
		OrderID:        order.ID,
		Number:         order.Number,
		Status:         order.Status,
		Billed:         types.RoundMoney(billed),
		Cost:           types.RoundMoney(cost),
		Profit:         types.RoundMoney(profit),
		ProfitPct:      pct.Round(2),
		Paid:           types.RoundMoney(paidSum),
		Due:            types.RoundMoney(types.NonNegative(billed.Sub(paidSum))),
		PurchaseStatus: completeness.Verdict,
	}
	if !detailed {
		return acc, nil
	}

	acc.Products = completeness.Products
	for _, row := range byCustomer {
		row.Billed = types.RoundMoney(row.Billed)
		row.Paid = types.RoundMoney(row.Paid)
		row.Due = types.RoundMoney(types.NonNegative(row.Billed.Sub(row.Paid)))
		if c, err := s.customers.GetCustomer(ctx, row.CustomerID); err == nil {
			row.Name = c.Name
		}
		acc.BilledByCustomer = append(acc.BilledByCustomer, *row)
	}
	sort.Slice(acc.BilledByCustomer, func(i, j int) bool {
		a, b := acc.BilledByCustomer[i], acc.BilledByCustomer[j]
		if !a.Billed.Equal(b.Billed) {
			return a.Billed.GreaterThan(b.Billed)
		}
		return a.Name < b.Name
	})
	return acc, nil
}

// chargeBilled is the billable amount of a charge after discount, never negative.
func chargeBilled(c orders.Charge) types.Money {
	return types.NonNegative(c.BillableQty().Mul(c.UnitPrice).Sub(c.DiscountAmount))
}

func chargeIDs(charges []orders.Charge) []id.ID {
	out := make([]id.ID, 0, len(charges))
	for _, c := range charges {
		out = append(out, c.ID)
	}
	return out
}
