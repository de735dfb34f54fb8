package purchasing

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"freshledger/internal/core/apperror"
	"freshledger/internal/core/id"
	"freshledger/internal/core/types"
	"freshledger/internal/domain/catalog"
	"freshledger/internal/domain/inventory"
	"freshledger/internal/domain/orders"
)

// memStore backs every collaborator of Service in memory.
type memStore struct {
	products  map[id.ID]*catalog.Product
	customers map[id.ID]string
	orders    map[id.ID]*orders.Order
	lines     []orders.Line
	charges   []orders.Charge
	purchases []Purchase
	ratios    []ConversionRatio
	allocs    []AllocationRecord
	lots      []inventory.Lot
	history   []catalog.PriceHistory
	lotErr    error
	allocErr  error
}

func newMemStore() *memStore {
	return &memStore{
		products:  make(map[id.ID]*catalog.Product),
		customers: make(map[id.ID]string),
		orders:    make(map[id.ID]*orders.Order),
	}
}

// Repository

func (m *memStore) InsertPurchase(_ context.Context, p *Purchase) error {
	m.purchases = append(m.purchases, *p)
	return nil
}

func (m *memStore) GetPurchase(_ context.Context, purchaseID id.ID) (*Purchase, error) {
	for i := range m.purchases {
		if m.purchases[i].ID == purchaseID {
			cp := m.purchases[i]
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("purchase", purchaseID)
}

func (m *memStore) PurchasesByOrder(_ context.Context, orderID id.ID) ([]Purchase, error) {
	var out []Purchase
	for _, p := range m.purchases {
		if p.OrderID != nil && *p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) AppendRatio(_ context.Context, r *ConversionRatio) error {
	m.ratios = append(m.ratios, *r)
	return nil
}

func (m *memStore) LatestRatio(_ context.Context, orderID, productID id.ID) (*ConversionRatio, error) {
	for i := len(m.ratios) - 1; i >= 0; i-- {
		if m.ratios[i].OrderID == orderID && m.ratios[i].ProductID == productID {
			cp := m.ratios[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) AllocatedByLines(_ context.Context, lineIDs []id.ID) (map[id.ID]types.Quantity, error) {
	out := make(map[id.ID]types.Quantity)
	for _, lid := range lineIDs {
		for _, a := range m.allocs {
			if a.OrderLineID == lid {
				out[lid] = out[lid].Add(a.Qty)
			}
		}
	}
	return out, nil
}

func (m *memStore) InsertAllocations(_ context.Context, records []AllocationRecord) error {
	if m.allocErr != nil {
		return m.allocErr
	}
	m.allocs = append(m.allocs, records...)
	return nil
}

func (m *memStore) AllocationsByPurchase(_ context.Context, purchaseID id.ID) ([]AllocationRecord, error) {
	var out []AllocationRecord
	for _, a := range m.allocs {
		if a.PurchaseID == purchaseID {
			out = append(out, a)
		}
	}
	return out, nil
}

// OrderStore

func (m *memStore) GetOrder(_ context.Context, orderID id.ID) (*orders.Order, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("order", orderID)
	}
	return o, nil
}

func (m *memStore) ListLines(_ context.Context, orderID id.ID) ([]orders.Line, error) {
	var out []orders.Line
	for _, l := range m.lines {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) ChargesByOrder(_ context.Context, orderID id.ID) ([]orders.Charge, error) {
	var out []orders.Charge
	for _, c := range m.charges {
		if c.OrderID != nil && *c.OrderID == orderID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) UpdateLineProjection(_ context.Context, line *orders.Line) error {
	for i := range m.lines {
		if m.lines[i].ID == line.ID {
			m.lines[i].ChargedUnit = line.ChargedUnit
			m.lines[i].ChargedQty = line.ChargedQty
			return nil
		}
	}
	return apperror.NewNotFound("order_line", line.ID)
}

func (m *memStore) UpdateChargeProjection(_ context.Context, c *orders.Charge) error {
	for i := range m.charges {
		if m.charges[i].ID == c.ID {
			m.charges[i].ChargedQty = c.ChargedQty
			m.charges[i].Unit = c.Unit
			m.charges[i].Total = c.Total
			return nil
		}
	}
	return apperror.NewNotFound("charge", c.ID)
}

// LotCreator

func (m *memStore) CreateLot(_ context.Context, lot *inventory.Lot) error {
	if m.lotErr != nil {
		return m.lotErr
	}
	m.lots = append(m.lots, *lot)
	return nil
}

// catalog.PriceHistoryRepository

func (m *memStore) Append(_ context.Context, entry *catalog.PriceHistory) error {
	m.history = append(m.history, *entry)
	return nil
}

// catalog.Lookup

func (m *memStore) GetProduct(_ context.Context, productID id.ID) (*catalog.Product, error) {
	if p, ok := m.products[productID]; ok {
		return p, nil
	}
	return nil, apperror.NewNotFound("product", productID)
}

func (m *memStore) ActivePriceTiers(context.Context, id.ID) ([]catalog.PriceTier, error) {
	return nil, nil
}

func (m *memStore) LatestCatalogPrice(_ context.Context, productID id.ID) (*catalog.CatalogPrice, error) {
	return &catalog.CatalogPrice{ProductID: productID, SalePrice: decimal.NewFromInt(9)}, nil
}

// catalog.CustomerDirectory

func (m *memStore) GetCustomer(_ context.Context, customerID id.ID) (*catalog.Customer, error) {
	name, ok := m.customers[customerID]
	if !ok {
		return nil, apperror.NewNotFound("customer", customerID)
	}
	return &catalog.Customer{ID: customerID, Name: name}, nil
}

func (m *memStore) FindCustomersByName(_ context.Context, names []string) ([]catalog.Customer, error) {
	var out []catalog.Customer
	for _, n := range names {
		for cid, name := range m.customers {
			if name == n {
				out = append(out, catalog.Customer{ID: cid, Name: name})
			}
		}
	}
	return out, nil
}

var (
	errLotStore   = errors.New("lot store unavailable")
	errAllocStore = errors.New("allocation store unavailable")
)

type recordingMetrics struct {
	verdicts  []Verdict
	fallbacks []FallbackKind
}

func (r *recordingMetrics) PurchaseRecorded(v Verdict) { r.verdicts = append(r.verdicts, v) }
func (r *recordingMetrics) Fallback(k FallbackKind)    { r.fallbacks = append(r.fallbacks, k) }
