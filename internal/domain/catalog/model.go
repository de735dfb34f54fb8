// Package catalog holds the read-only product, price and customer records the
// fulfillment engine looks up, plus unit price resolution.
package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"freshledger/internal/core/id"
	"freshledger/internal/core/types"
)

// Product is a sellable good.
type Product struct {
	ID          id.ID      `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	DefaultUnit types.Unit `db:"default_unit" json:"defaultUnit"`
}

// PriceTier is a volume price for a product (optionally a variant) in one unit.
type PriceTier struct {
	ID        id.ID          `db:"id" json:"id"`
	ProductID id.ID          `db:"product_id" json:"productId"`
	VariantID *id.ID         `db:"variant_id" json:"variantId,omitempty"`
	Unit      types.Unit     `db:"unit" json:"unit"`
	MinQty    types.Quantity `db:"min_qty" json:"minQty"`
	Price     types.Money    `db:"sale_price" json:"salePrice"`
	Active    bool           `db:"active" json:"active"`
}

// CatalogPrice is a dated list price.
type CatalogPrice struct {
	ID        id.ID       `db:"id" json:"id"`
	ProductID id.ID       `db:"product_id" json:"productId"`
	Date      time.Time   `db:"price_date" json:"date"`
	SalePrice types.Money `db:"sale_price" json:"salePrice"`
	Unit      *types.Unit `db:"unit" json:"unit,omitempty"`
}

// Customer is the buyer a line and its charges belong to.
type Customer struct {
	ID   id.ID  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// PriceHistory records the cost paid on a purchase next to the list price of that moment.
type PriceHistory struct {
	ID         id.ID               `db:"id" json:"id"`
	ProductID  id.ID               `db:"product_id" json:"productId"`
	PurchaseID id.ID               `db:"purchase_id" json:"purchaseId"`
	CostPrice  types.Money         `db:"cost_price" json:"costPrice"`
	SalePrice  decimal.NullDecimal `db:"sale_price" json:"salePrice"`
	Unit       types.Unit          `db:"unit" json:"unit"`
	CreatedAt  time.Time           `db:"created_at" json:"createdAt"`
}

// PriceSource says where a resolved unit price came from.
type PriceSource string

const (
	PriceSourceExplicit PriceSource = "explicit"
	PriceSourceTier     PriceSource = "tier"
	PriceSourceCatalog  PriceSource = "catalog"
	PriceSourceNone     PriceSource = "none"
)
