package accounting

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freshledger/internal/core/apperror"
	"freshledger/internal/core/id"
	"freshledger/internal/core/tx"
	"freshledger/internal/core/types"
	"freshledger/internal/domain/catalog"
	"freshledger/internal/domain/orders"
	"freshledger/internal/domain/purchasing"
)

type memReader struct {
	orders    []orders.Order
	lines     []orders.Line
	charges   []orders.Charge
	purchases []purchasing.Purchase
	paid      map[id.ID]types.Money
	customers map[id.ID]string
}

func (r *memReader) GetOrder(_ context.Context, orderID id.ID) (*orders.Order, error) {
	for i := range r.orders {
		if r.orders[i].ID == orderID {
			return &r.orders[i], nil
		}
	}
	return nil, apperror.NewNotFound("order", orderID)
}

func (r *memReader) ListLines(_ context.Context, orderID id.ID) ([]orders.Line, error) {
	var out []orders.Line
	for _, l := range r.lines {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memReader) ChargesByOrder(_ context.Context, orderID id.ID) ([]orders.Charge, error) {
	var out []orders.Charge
	for _, c := range r.charges {
		if c.OrderID != nil && *c.OrderID == orderID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memReader) PurchasesByOrder(_ context.Context, orderID id.ID) ([]purchasing.Purchase, error) {
	var out []purchasing.Purchase
	for _, p := range r.purchases {
		if p.OrderID != nil && *p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memReader) ChargesByCustomer(_ context.Context, customerID id.ID) ([]orders.Charge, error) {
	var out []orders.Charge
	for _, c := range r.charges {
		if c.CustomerID == customerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memReader) PaidByCharges(_ context.Context, chargeIDs []id.ID) (map[id.ID]types.Money, error) {
	out := make(map[id.ID]types.Money)
	for _, cid := range chargeIDs {
		if p, ok := r.paid[cid]; ok {
			out[cid] = p
		}
	}
	return out, nil
}

func (r *memReader) RecentOrders(_ context.Context, limit int) ([]orders.Order, error) {
	out := make([]orders.Order, 0, len(r.orders))
	for i := len(r.orders) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.orders[i])
	}
	return out, nil
}

func (r *memReader) GetCustomer(_ context.Context, customerID id.ID) (*catalog.Customer, error) {
	name, ok := r.customers[customerID]
	if !ok {
		return nil, apperror.NewNotFound("customer", customerID)
	}
	return &catalog.Customer{ID: customerID, Name: name}, nil
}

func (r *memReader) FindCustomersByName(context.Context, []string) ([]catalog.Customer, error) {
	return nil, nil
}

func d(s string) decimal.Decimal { return types.MustDecimal(s) }

type accFixture struct {
	svc        *Service
	reader     *memReader
	order      id.ID
	other      id.ID
	ana, bruno id.ID
	product    id.ID
}

func newAccFixture() *accFixture {
	f := &accFixture{order: id.New(), other: id.New(), ana: id.New(), bruno: id.New(), product: id.New()}
	r := &memReader{
		paid:      map[id.ID]types.Money{},
		customers: map[id.ID]string{f.ana: "Ana", f.bruno: "Bruno"},
		orders: []orders.Order{
			{ID: f.order, Number: "ORD-2026-00001", Status: orders.StatusEmitted},
			{ID: f.other, Number: "ORD-2026-00002", Status: orders.StatusEmitted},
		},
	}
	f.reader = r
	f.svc = NewService(r, r, &tx.MockManager{})
	return f
}

func (f *accFixture) addCharge(orderID, customer id.ID, qty, charged, price, discount string, status orders.ChargeStatus) orders.Charge {
	oid := orderID
	c := orders.Charge{
		ID:             id.New(),
		CustomerID:     customer,
		OrderID:        &oid,
		ProductID:      f.product,
		Qty:            d(qty),
		Unit:           types.UnitKg,
		UnitPrice:      d(price),
		DiscountAmount: d(discount),
		Status:         status,
	}
	if charged != "" {
		c.ChargedQty = types.Null(d(charged))
	}
	c.Recompute()
	f.reader.charges = append(f.reader.charges, c)
	return c
}

func TestGetOrderAccounting(t *testing.T) {
	f := newAccFixture()
	ctx := context.Background()

	f.reader.lines = []orders.Line{
		{ID: id.New(), OrderID: f.order, CustomerID: f.ana, ProductID: f.product, RequestedQty: d("10"), RequestedUnit: types.UnitCount},
		{ID: id.New(), OrderID: f.order, CustomerID: f.bruno, ProductID: f.product, RequestedQty: d("2"), RequestedUnit: types.UnitKg},
	}
	a := f.addCharge(f.order, f.ana, "10", "5", "4", "0", orders.ChargePending)
	f.addCharge(f.order, f.bruno, "2", "2", "4", "3", orders.ChargePending)
	f.addCharge(f.order, f.bruno, "9", "", "4", "0", orders.ChargeCancelled)
	f.reader.paid[a.ID] = d("15")

	f.reader.purchases = []purchasing.Purchase{
		{ID: id.New(), OrderID: &f.order, ProductID: f.product, QtyKg: types.Null(d("5")), EqQtyUnit: types.Null(d("10")), ChargedUnit: types.UnitKg, PricePerUnit: d("2")},
		{ID: id.New(), OrderID: &f.order, ProductID: f.product, QtyKg: types.Null(d("1")), ChargedUnit: types.UnitKg, PriceTotal: types.Null(d("1.5"))},
	}

	acc, err := f.svc.GetOrderAccounting(ctx, f.order)
	require.NoError(t, err)

	// billed: 5×4 + (2×4 − 3) = 25; cost: 5×2 + 1.5 = 11.5
	assert.True(t, acc.Billed.Equal(d("25")), "billed %s", acc.Billed)
	assert.True(t, acc.Cost.Equal(d("11.5")), "cost %s", acc.Cost)
	assert.True(t, acc.Profit.Equal(d("13.5")))
	assert.True(t, acc.ProfitPct.Equal(d("54")))
	assert.True(t, acc.Paid.Equal(d("15")))
	assert.True(t, acc.Due.Equal(d("10")))
	assert.Equal(t, purchasing.VerdictOver, acc.PurchaseStatus, "6 kg bought for 2 kg demanded")

	require.Len(t, acc.BilledByCustomer, 2)
	assert.Equal(t, "Ana", acc.BilledByCustomer[0].Name)
	assert.True(t, acc.BilledByCustomer[0].Due.Equal(d("5")))
	assert.True(t, acc.BilledByCustomer[1].Billed.Equal(d("5")))
	require.Len(t, acc.Products, 1)
	assert.True(t, acc.Products[0].Missing.IsZero())
}

func TestGetOrderAccounting_NoBilling(t *testing.T) {
	f := newAccFixture()
	f.reader.purchases = []purchasing.Purchase{
		{ID: id.New(), OrderID: &f.order, ProductID: f.product, QtyKg: types.Null(d("2")), ChargedUnit: types.UnitKg, PricePerUnit: d("3")},
	}

	acc, err := f.svc.GetOrderAccounting(context.Background(), f.order)
	require.NoError(t, err)
	assert.True(t, acc.Billed.IsZero())
	assert.True(t, acc.Cost.Equal(d("6")))
	assert.True(t, acc.Profit.IsZero(), "never negative")
	assert.True(t, acc.ProfitPct.IsZero())
	assert.Equal(t, purchasing.VerdictComplete, acc.PurchaseStatus, "no demand")

	_, err = f.svc.GetOrderAccounting(context.Background(), id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestGetCustomerAccounting(t *testing.T) {
	f := newAccFixture()
	ctx := context.Background()

	a := f.addCharge(f.order, f.ana, "2", "", "10", "0", orders.ChargePaid)
	f.addCharge(f.other, f.ana, "1", "", "7.5", "0.5", orders.ChargePending)
	f.addCharge(f.other, f.ana, "3", "", "1", "0", orders.ChargeCancelled)
	f.addCharge(f.other, f.bruno, "3", "", "1", "0", orders.ChargePending)
	f.reader.paid[a.ID] = d("20")

	acc, err := f.svc.GetCustomerAccounting(ctx, f.ana, true)
	require.NoError(t, err)
	assert.Equal(t, "Ana", acc.Name)
	assert.True(t, acc.Billed.Equal(d("27")))
	assert.True(t, acc.Paid.Equal(d("20")))
	assert.True(t, acc.Due.Equal(d("7")))
	require.Len(t, acc.Orders, 2)
	assert.Equal(t, f.order, *acc.Orders[0].OrderID)
	assert.True(t, acc.Orders[1].Due.Equal(d("7")))

	brief, err := f.svc.GetCustomerAccounting(ctx, f.ana, false)
	require.NoError(t, err)
	assert.Empty(t, brief.Orders)
	assert.True(t, brief.Due.Equal(acc.Due))
}

func TestListOrderAccounting(t *testing.T) {
	f := newAccFixture()
	f.addCharge(f.order, f.ana, "1", "", "10", "0", orders.ChargePending)
	f.addCharge(f.other, f.ana, "1", "", "3", "0", orders.ChargePending)

	list, err := f.svc.ListOrderAccounting(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ORD-2026-00002", list[0].Number)
	assert.True(t, list[0].Billed.Equal(d("3")))
	assert.Empty(t, list[0].BilledByCustomer)
}
