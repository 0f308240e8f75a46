package importer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_console/internal/models"
)

// ProductParseResult holds the accepted product rows and one message per rejected row.
type ProductParseResult struct {
	Records []models.ParsedProductRow
	Errors  []string
}

// StockParseResult holds the accepted stock update rows and one message per rejected row.
type StockParseResult struct {
	Records []models.StockUpdateRow
	Errors  []string
}

// rowError is a validation failure of a single row.
type rowError string

func (e rowError) Error() string { return string(e) }

const (
	errMissingName       = rowError("product name is required")
	errMissingNameAndSKU = rowError("product name or SKU is required")
	errNegativeStock     = rowError("stock cannot be negative")
	errNegativeReorder   = rowError("reorder level cannot be negative")
	errNegativePrice     = rowError("price cannot be negative")
)

// ParseProducts validates full product rows. Rejected rows never reach
// Records. The function has no side effects, so reparsing the same rows
// yields the same result.
func ParseProducts(rows []Row) ProductParseResult {
	res := ProductParseResult{Records: make([]models.ParsedProductRow, 0, len(rows))}
	for _, row := range rows {
		rec, err := parseRow(row, parseProductRow)
		if err != nil {
			res.Errors = append(res.Errors, rowMessage(row, err))
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

// ParseStockUpdates validates stock update rows. A row needs a product name
// or a SKU; price columns are optional corrections.
func ParseStockUpdates(rows []Row) StockParseResult {
	res := StockParseResult{Records: make([]models.StockUpdateRow, 0, len(rows))}
	for _, row := range rows {
		rec, err := parseRow(row, parseStockRow)
		if err != nil {
			res.Errors = append(res.Errors, rowMessage(row, err))
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

// parseRow turns a panic while decoding one row into an error for that row.
func parseRow[T any](row Row, fn func(Row) (T, error)) (rec T, err error) {
	if row.Err != nil {
		return rec, row.Err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unreadable row: %v", r)
		}
	}()
	return fn(row)
}

func rowMessage(row Row, err error) string {
	return fmt.Sprintf("Row %d: %s (%s)", row.Number, err.Error(), row.String())
}

func parseProductRow(row Row) (models.ParsedProductRow, error) {
	name, _ := row.Get(nameAliases...)
	if name == "" {
		return models.ParsedProductRow{}, errMissingName
	}

	rec := models.ParsedProductRow{
		Row:          row.Number,
		Name:         name,
		Stock:        intField(row, stockAliases),
		ReorderLevel: intField(row, reorderLevelAliases),
		CostPrice:    decimalField(row, costPriceAliases, decimal.Zero),
		SellingPrice: decimalField(row, sellingPriceAliases, decimal.Zero),
		GSTRate:      decimalField(row, gstRateAliases, models.DefaultGSTRate),
	}
	rec.Category, _ = row.Get(categoryAliases...)
	rec.Brand = optionalField(row, brandAliases)
	rec.Description = optionalField(row, descriptionAliases)
	rec.HSNCode = optionalField(row, hsnCodeAliases)

	switch {
	case rec.Stock < 0:
		return models.ParsedProductRow{}, errNegativeStock
	case rec.ReorderLevel < 0:
		return models.ParsedProductRow{}, errNegativeReorder
	case rec.CostPrice.IsNegative(), rec.SellingPrice.IsNegative():
		return models.ParsedProductRow{}, errNegativePrice
	}
	return rec, nil
}

func parseStockRow(row Row) (models.StockUpdateRow, error) {
	rec := models.StockUpdateRow{Row: row.Number}
	rec.Name, _ = row.Get(nameAliases...)
	rec.SKU, _ = row.Get(skuAliases...)
	if rec.Name == "" && rec.SKU == "" {
		return models.StockUpdateRow{}, errMissingNameAndSKU
	}

	rec.Stock = intField(row, stockAliases)
	if rec.Stock < 0 {
		return models.StockUpdateRow{}, errNegativeStock
	}

	rec.CostPrice = optionalDecimal(row, costPriceAliases)
	rec.SellingPrice = optionalDecimal(row, sellingPriceAliases)
	if (rec.CostPrice != nil && rec.CostPrice.IsNegative()) ||
		(rec.SellingPrice != nil && rec.SellingPrice.IsNegative()) {
		return models.StockUpdateRow{}, errNegativePrice
	}
	return rec, nil
}

// intField returns 0 when the value is absent or not an integer.
func intField(row Row, aliases []string) int {
	v, ok := row.Get(aliases...)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		d, derr := decimal.NewFromString(v)
		if derr != nil || !d.Equal(d.Truncate(0)) {
			return 0
		}
		return int(d.IntPart())
	}
	return n
}

// decimalField returns def when the value is absent or not a number.
func decimalField(row Row, aliases []string, def decimal.Decimal) decimal.Decimal {
	if d := optionalDecimal(row, aliases); d != nil {
		return *d
	}
	return def
}

func optionalDecimal(row Row, aliases []string) *decimal.Decimal {
	v, ok := row.Get(aliases...)
	if !ok {
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", ""))
	if err != nil {
		return nil
	}
	return &d
}

func optionalField(row Row, aliases []string) *string {
	v, _ := row.Get(aliases...)
	return models.StringPtr(v)
}
