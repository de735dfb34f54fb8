package catalog

import (
	"context"

	"freshledger/internal/core/apperror"
	"freshledger/internal/core/id"
)

type fakeLookup struct {
	products map[id.ID]*Product
	tiers    map[id.ID][]PriceTier
	prices   map[id.ID]*CatalogPrice
}

func (f *fakeLookup) GetProduct(_ context.Context, productID id.ID) (*Product, error) {
	if p, ok := f.products[productID]; ok {
		return p, nil
	}
	return nil, apperror.NewNotFound("product", productID)
}

func (f *fakeLookup) ActivePriceTiers(_ context.Context, productID id.ID) ([]PriceTier, error) {
	return f.tiers[productID], nil
}

func (f *fakeLookup) LatestCatalogPrice(_ context.Context, productID id.ID) (*CatalogPrice, error) {
	return f.prices[productID], nil
}
