package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultGSTRate applies when a product is created or imported without a rate.
var DefaultGSTRate = decimal.RequireFromString("18.00")

// Product represents a merchant-owned catalog entry.
// Brand, Description and HSNCode are nullable; nil never equals "".
type Product struct {
	ID          int             `db:"id" json:"id"`
	MerchantID  int             `db:"merchant_id" json:"merchantId"`
	Name        string          `db:"product_name" json:"productName"`
	Category    string          `db:"category" json:"category"`
	Brand       *string         `db:"brand" json:"brand"`
	Description *string         `db:"description" json:"description"`
	HSNCode     *string         `db:"hsn_code" json:"hsnCode"`
	GSTRate     decimal.Decimal `db:"gst_rate" json:"gstRate"`
	SKU         string          `db:"sku" json:"sku"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}

// Inventory is the stock row attached one-to-one to a product.
type Inventory struct {
	ID                int             `db:"id" json:"id"`
	MerchantID        int             `db:"merchant_id" json:"merchantId"`
	ProductID         int             `db:"product_id" json:"productId"`
	QuantityAvailable int             `db:"quantity_available" json:"quantityAvailable"`
	ReorderLevel      int             `db:"reorder_level" json:"reorderLevel"`
	CostPrice         decimal.Decimal `db:"cost_price" json:"costPrice"`
	SellingPrice      decimal.Decimal `db:"selling_price" json:"sellingPrice"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updatedAt"`
}

// ProductWithStock is a product joined with its inventory row, as listed on
// the inventory dashboard.
type ProductWithStock struct {
	Product
	QuantityAvailable int             `db:"quantity_available" json:"quantityAvailable"`
	ReorderLevel      int             `db:"reorder_level" json:"reorderLevel"`
	CostPrice         decimal.Decimal `db:"cost_price" json:"costPrice"`
	SellingPrice      decimal.Decimal `db:"selling_price" json:"sellingPrice"`
}

// LowStock reports whether the available quantity has reached the reorder level.
func (p ProductWithStock) LowStock() bool {
	return p.QuantityAvailable <= p.ReorderLevel
}

// StringPtr returns nil for an empty string, otherwise a pointer to s.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
