package catalog

import (
	"context"

	"freshledger/internal/core/id"
)

// Lookup is the read side of the product catalog.
type Lookup interface {
	GetProduct(ctx context.Context, productID id.ID) (*Product, error)
	// ActivePriceTiers returns the active tiers of a product in any unit.
	ActivePriceTiers(ctx context.Context, productID id.ID) ([]PriceTier, error)
	// LatestCatalogPrice returns nil without error when the product has no list price.
	LatestCatalogPrice(ctx context.Context, productID id.ID) (*CatalogPrice, error)
}

// CustomerDirectory resolves customers by id or by name.
type CustomerDirectory interface {
	GetCustomer(ctx context.Context, customerID id.ID) (*Customer, error)
	// FindCustomersByName returns the customers whose names match exactly;
	// names with no match are simply absent from the result.
	FindCustomersByName(ctx context.Context, names []string) ([]Customer, error)
}

// PriceHistoryRepository appends price history rows.
type PriceHistoryRepository interface {
	Append(ctx context.Context, entry *PriceHistory) error
}
