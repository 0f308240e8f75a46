package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ParsedProductRow is one validated row of a full product import file.
type ParsedProductRow struct {
	Row          int             `json:"row"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Brand        *string         `json:"brand,omitempty"`
	Description  *string         `json:"description,omitempty"`
	Stock        int             `json:"stock"`
	ReorderLevel int             `json:"reorderLevel"`
	CostPrice    decimal.Decimal `json:"costPrice"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
	HSNCode      *string         `json:"hsnCode,omitempty"`
	GSTRate      decimal.Decimal `json:"gstRate"`
}

// StockUpdateRow targets one product by name or, failing that, by SKU.
// Prices are optional corrections applied only when present.
type StockUpdateRow struct {
	Row          int              `json:"row"`
	Name         string           `json:"name,omitempty"`
	SKU          string           `json:"sku,omitempty"`
	Stock        int              `json:"stock"`
	CostPrice    *decimal.Decimal `json:"costPrice,omitempty"`
	SellingPrice *decimal.Decimal `json:"sellingPrice,omitempty"`
}

// WrittenRecord identifies a product committed by the batch writer.
type WrittenRecord struct {
	ProductID int    `db:"id" json:"productId"`
	Name      string `db:"product_name" json:"name"`
	SKU       string `db:"sku" json:"sku"`
}

// ImportSummary is returned once a product upload finishes.
type ImportSummary struct {
	UploadID     string   `json:"uploadId"`
	Created      int      `json:"created"`
	Errors       int      `json:"errors"`
	ErrorDetails []string `json:"errorDetails"`
}

// StockImportSummary is returned once a stock upload finishes.
type StockImportSummary struct {
	UploadID     string   `json:"uploadId"`
	Updated      int      `json:"updated"`
	Errors       int      `json:"errors"`
	ErrorDetails []string `json:"errorDetails"`
}

// ProgressEvent is one emission of an upload's progress.
type ProgressEvent struct {
	UploadID       string    `json:"uploadId"`
	MerchantID     int       `json:"-"`
	Progress       int       `json:"progress"`
	CurrentItem    string    `json:"currentItem"`
	TotalItems     int       `json:"totalItems"`
	ProcessedItems int       `json:"processedItems"`
	Errors         []string  `json:"errors"`
	Completed      bool      `json:"completed"`
	SuccessMessage string    `json:"successMessage,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
