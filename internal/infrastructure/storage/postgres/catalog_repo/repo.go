// Package catalog_repo provides the PostgreSQL store for products, price
// tiers, list prices, customers and price history.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"freshledger/internal/core/id"
	"freshledger/internal/domain/catalog"
	"freshledger/internal/infrastructure/storage/postgres"
)

var (
	_ catalog.Lookup                 = (*Repo)(nil)
	_ catalog.CustomerDirectory      = (*Repo)(nil)
	_ catalog.PriceHistoryRepository = (*Repo)(nil)
)

// Repo is the catalog store.
type Repo struct {
	products  *postgres.Table[catalog.Product]
	tiers     *postgres.Table[catalog.PriceTier]
	prices    *postgres.Table[catalog.CatalogPrice]
	customers *postgres.Table[catalog.Customer]
	history   *postgres.Table[catalog.PriceHistory]
}

// NewRepo creates the catalog store.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{
		products:  postgres.NewTable[catalog.Product](txm, "products", "product"),
		tiers:     postgres.NewTable[catalog.PriceTier](txm, "price_tiers", "price_tier"),
		prices:    postgres.NewTable[catalog.CatalogPrice](txm, "catalog_prices", "catalog_price"),
		customers: postgres.NewTable[catalog.Customer](txm, "customers", "customer"),
		history:   postgres.NewTable[catalog.PriceHistory](txm, "price_history", "price_history"),
	}
}

func (r *Repo) GetProduct(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	return r.products.GetByID(ctx, productID)
}

func (r *Repo) ActivePriceTiers(ctx context.Context, productID id.ID) ([]catalog.PriceTier, error) {
	return r.tiers.Select(ctx, r.tiers.SelectAll().
		Where(squirrel.Eq{"product_id": productID, "active": true}).
		OrderBy("min_qty DESC"))
}

// LatestCatalogPrice returns the newest list price, or nil.
func (r *Repo) LatestCatalogPrice(ctx context.Context, productID id.ID) (*catalog.CatalogPrice, error) {
	rows, err := r.prices.Select(ctx, r.prices.SelectAll().
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("price_date DESC", "id DESC").
		Limit(1))
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (r *Repo) GetCustomer(ctx context.Context, customerID id.ID) (*catalog.Customer, error) {
	return r.customers.GetByID(ctx, customerID)
}

func (r *Repo) FindCustomersByName(ctx context.Context, names []string) ([]catalog.Customer, error) {
	if len(names) == 0 {
		return nil, nil
	}
	return r.customers.Select(ctx, r.customers.SelectAll().
		Where(squirrel.Eq{"name": names}).
		OrderBy("name", "id"))
}

// Append adds one price history row.
func (r *Repo) Append(ctx context.Context, entry *catalog.PriceHistory) error {
	return r.history.Insert(ctx, entry)
}

// UpsertProduct creates or renames a product.
func (r *Repo) UpsertProduct(ctx context.Context, p *catalog.Product) error {
	_, err := r.products.Exec(ctx, postgres.Builder().
		Insert(r.products.Name()).
		Columns("id", "name", "default_unit").
		Values(p.ID, p.Name, p.DefaultUnit).
		Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, default_unit = EXCLUDED.default_unit"))
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

// UpsertCustomer creates or renames a customer.
func (r *Repo) UpsertCustomer(ctx context.Context, c *catalog.Customer) error {
	_, err := r.customers.Exec(ctx, postgres.Builder().
		Insert(r.customers.Name()).
		Columns("id", "name").
		Values(c.ID, c.Name).
		Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name"))
	if err != nil {
		return fmt.Errorf("upsert customer: %w", err)
	}
	return nil
}

// InsertPriceTier adds a tier.
func (r *Repo) InsertPriceTier(ctx context.Context, t *catalog.PriceTier) error {
	return r.tiers.Insert(ctx, t)
}

// InsertCatalogPrice adds a list price.
func (r *Repo) InsertCatalogPrice(ctx context.Context, p *catalog.CatalogPrice) error {
	return r.prices.Insert(ctx, p)
}
