package orders

import (
	"context"
	"sort"

	"freshledger/internal/core/apperror"
	"freshledger/internal/core/id"
	"freshledger/internal/core/types"
	"freshledger/internal/domain"
	"freshledger/internal/domain/catalog"
)

type memRepo struct {
	orders   map[id.ID]*Order
	lines    []Line
	charges  []Charge
	paidLine map[id.ID]bool
}

func newMemRepo() *memRepo {
	return &memRepo{orders: make(map[id.ID]*Order), paidLine: make(map[id.ID]bool)}
}

func (r *memRepo) CreateOrder(_ context.Context, order *Order) error {
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *memRepo) GetOrder(_ context.Context, orderID id.ID) (*Order, error) {
	o, ok := r.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("order", orderID)
	}
	cp := *o
	return &cp, nil
}

func (r *memRepo) GetOrderForUpdate(ctx context.Context, orderID id.ID) (*Order, error) {
	return r.GetOrder(ctx, orderID)
}

func (r *memRepo) UpdateOrder(_ context.Context, order *Order) error {
	cur, ok := r.orders[order.ID]
	if !ok || cur.Version != order.Version {
		return apperror.NewConcurrentModification("order", order.ID)
	}
	order.Version++
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *memRepo) ListOrders(_ context.Context, filter domain.ListFilter) (domain.ListResult[Order], error) {
	items := make([]Order, 0, len(r.orders))
	for _, o := range r.orders {
		items = append(items, *o)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Number > items[j].Number })
	if len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return domain.ListResult[Order]{Items: items, TotalCount: int64(len(r.orders)), Limit: filter.Limit}, nil
}

func (r *memRepo) GetLine(_ context.Context, lineID id.ID) (*Line, error) {
	for i := range r.lines {
		if r.lines[i].ID == lineID {
			cp := r.lines[i]
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("order_line", lineID)
}

func (r *memRepo) ListLines(_ context.Context, orderID id.ID) ([]Line, error) {
	var out []Line
	for _, l := range r.lines {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memRepo) InsertLines(_ context.Context, lines []Line) error {
	r.lines = append(r.lines, lines...)
	return nil
}

func (r *memRepo) DeleteLine(_ context.Context, lineID id.ID) error {
	kept := r.lines[:0]
	for _, l := range r.lines {
		if l.ID != lineID {
			kept = append(kept, l)
		}
	}
	r.lines = kept
	return nil
}

func (r *memRepo) LineHasPayments(_ context.Context, lineID id.ID) (bool, error) {
	return r.paidLine[lineID], nil
}

func (r *memRepo) GetCharge(_ context.Context, chargeID id.ID) (*Charge, error) {
	for i := range r.charges {
		if r.charges[i].ID == chargeID {
			cp := r.charges[i]
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("charge", chargeID)
}

func (r *memRepo) ChargesByOrder(_ context.Context, orderID id.ID) ([]Charge, error) {
	var out []Charge
	for _, c := range r.charges {
		if c.OrderID != nil && *c.OrderID == orderID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memRepo) CountChargesByOrder(ctx context.Context, orderID id.ID) (int, error) {
	charges, _ := r.ChargesByOrder(ctx, orderID)
	return len(charges), nil
}

func (r *memRepo) InsertCharges(_ context.Context, charges []Charge) error {
	r.charges = append(r.charges, charges...)
	return nil
}

func (r *memRepo) DeleteChargesByLine(_ context.Context, lineID id.ID) error {
	kept := r.charges[:0]
	for _, c := range r.charges {
		if c.LineID == nil || *c.LineID != lineID {
			kept = append(kept, c)
		}
	}
	r.charges = kept
	return nil
}

func (r *memRepo) ListCharges(_ context.Context, filter ChargeFilter) (domain.ListResult[Charge], error) {
	var items []Charge
	for _, c := range r.charges {
		if filter.CustomerID != nil && c.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.OrderID != nil && (c.OrderID == nil || *c.OrderID != *filter.OrderID) {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		items = append(items, c)
	}
	total := int64(len(items))
	if len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return domain.ListResult[Charge]{Items: items, TotalCount: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

type fakeCatalog struct {
	products map[id.ID]*catalog.Product
	tiers    map[id.ID][]catalog.PriceTier
	prices   map[id.ID]*catalog.CatalogPrice
}

func (f *fakeCatalog) GetProduct(_ context.Context, productID id.ID) (*catalog.Product, error) {
	if p, ok := f.products[productID]; ok {
		return p, nil
	}
	return nil, apperror.NewNotFound("product", productID)
}

func (f *fakeCatalog) ActivePriceTiers(_ context.Context, productID id.ID) ([]catalog.PriceTier, error) {
	return f.tiers[productID], nil
}

func (f *fakeCatalog) LatestCatalogPrice(_ context.Context, productID id.ID) (*catalog.CatalogPrice, error) {
	return f.prices[productID], nil
}

type fakeCustomers map[id.ID]string

func (f fakeCustomers) GetCustomer(_ context.Context, customerID id.ID) (*catalog.Customer, error) {
	name, ok := f[customerID]
	if !ok {
		return nil, apperror.NewNotFound("customer", customerID)
	}
	return &catalog.Customer{ID: customerID, Name: name}, nil
}

func (f fakeCustomers) FindCustomersByName(_ context.Context, names []string) ([]catalog.Customer, error) {
	var out []catalog.Customer
	for _, n := range names {
		for cid, name := range f {
			if name == n {
				out = append(out, catalog.Customer{ID: cid, Name: name})
			}
		}
	}
	return out, nil
}

type recordingPublisher struct {
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.Event) error {
	p.events = append(p.events, e)
	return nil
}

type lotCall struct {
	lotID, productID id.ID
	unit             types.Unit
	qty              types.Quantity
}

type fakeLots struct {
	calls []lotCall
	err   error
}

func (f *fakeLots) ConsumeForReassign(_ context.Context, lotID, productID id.ID, unit types.Unit, qty types.Quantity) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, lotCall{lotID: lotID, productID: productID, unit: unit, qty: qty})
	return nil
}
