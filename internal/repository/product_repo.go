package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_console/internal/models"
	"github.com/GTDGit/gtd_console/internal/utils"
)

const productColumns = `id, merchant_id, product_name, category, brand, description, hsn_code, gst_rate, sku, created_at, updated_at`

const productWithStockSelect = `
        SELECT p.id, p.merchant_id, p.product_name, p.category, p.brand, p.description,
               p.hsn_code, p.gst_rate, p.sku, p.created_at, p.updated_at,
               COALESCE(i.quantity_available, 0) AS quantity_available,
               COALESCE(i.reorder_level, 0) AS reorder_level,
               COALESCE(i.cost_price, 0) AS cost_price,
               COALESCE(i.selling_price, 0) AS selling_price
        FROM products p
        LEFT JOIN inventory i ON i.product_id = p.id AND i.merchant_id = p.merchant_id`

// ProductRepository handles data access for products.
type ProductRepository struct {
	db Querier
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// WithTx returns a copy of the repository that runs its statements on tx.
func (r *ProductRepository) WithTx(tx *sqlx.Tx) *ProductRepository {
	return &ProductRepository{db: tx}
}

// FindByNameAndBrand returns the merchant's product with exactly this name
// and brand, or nil. A nil brand only matches rows whose brand IS NULL; an
// empty brand string only matches rows storing "".
func (r *ProductRepository) FindByNameAndBrand(ctx context.Context, merchantID int, name string, brand *string) (*models.Product, error) {
	var (
		q    string
		args []interface{}
	)
	if brand == nil {
		q = `SELECT ` + productColumns + ` FROM products
        WHERE merchant_id = $1 AND product_name = $2 AND brand IS NULL
        LIMIT 1`
		args = []interface{}{merchantID, name}
	} else {
		q = `SELECT ` + productColumns + ` FROM products
        WHERE merchant_id = $1 AND product_name = $2 AND brand = $3
        LIMIT 1`
		args = []interface{}{merchantID, name, *brand}
	}
	return r.getOptional(ctx, q, args...)
}

// FindByName returns any product of the merchant with this name, or nil.
func (r *ProductRepository) FindByName(ctx context.Context, merchantID int, name string) (*models.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products
        WHERE merchant_id = $1 AND product_name = $2
        LIMIT 1`
	return r.getOptional(ctx, q, merchantID, name)
}

// FindBySKU returns the merchant's product with this SKU, or nil.
func (r *ProductRepository) FindBySKU(ctx context.Context, merchantID int, sku string) (*models.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products
        WHERE merchant_id = $1 AND sku = $2
        LIMIT 1`
	return r.getOptional(ctx, q, merchantID, sku)
}

func (r *ProductRepository) getOptional(ctx context.Context, q string, args ...interface{}) (*models.Product, error) {
	var p models.Product
	if err := r.db.GetContext(ctx, &p, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// GetByID returns a product with its stock. It returns utils.ErrProductNotFound
// when the product does not exist for the merchant.
func (r *ProductRepository) GetByID(ctx context.Context, merchantID, id int) (*models.ProductWithStock, error) {
	const q = productWithStockSelect + `
        WHERE p.merchant_id = $1 AND p.id = $2
        LIMIT 1`
	var p models.ProductWithStock
	if err := r.db.GetContext(ctx, &p, q, merchantID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts a product. SKU must already be set; it is never changed later.
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	const q = `INSERT INTO products (merchant_id, product_name, category, brand, description, hsn_code, gst_rate, sku)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
              RETURNING id, created_at, updated_at`

	return r.db.QueryRowxContext(ctx, q,
		p.MerchantID,
		p.Name,
		p.Category,
		p.Brand,
		p.Description,
		p.HSNCode,
		p.GSTRate,
		p.SKU,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// ProductUpdate lists the optional fields of a partial product update.
// A nil field is left untouched. For the nullable columns a pointer to ""
// stores NULL.
type ProductUpdate struct {
	Name        *string
	Category    *string
	Brand       *string
	Description *string
	HSNCode     *string
	GSTRate     *decimal.Decimal
}

// assignments maps the set fields onto a fixed column list, in a fixed order.
// Column names come only from this function, never from the caller.
func (u ProductUpdate) assignments() ([]string, []interface{}) {
	var (
		cols []string
		args []interface{}
	)
	if u.Name != nil {
		cols = append(cols, "product_name")
		args = append(args, *u.Name)
	}
	if u.Category != nil {
		cols = append(cols, "category")
		args = append(args, *u.Category)
	}
	if u.Brand != nil {
		cols = append(cols, "brand")
		args = append(args, models.StringPtr(*u.Brand))
	}
	if u.Description != nil {
		cols = append(cols, "description")
		args = append(args, models.StringPtr(*u.Description))
	}
	if u.HSNCode != nil {
		cols = append(cols, "hsn_code")
		args = append(args, models.StringPtr(*u.HSNCode))
	}
	if u.GSTRate != nil {
		cols = append(cols, "gst_rate")
		args = append(args, *u.GSTRate)
	}
	return cols, args
}

// Empty reports whether the update sets nothing.
func (u ProductUpdate) Empty() bool {
	cols, _ := u.assignments()
	return len(cols) == 0
}

// Update applies a partial update and refreshes updated_at.
// It returns utils.ErrProductNotFound when no row matched.
func (r *ProductRepository) Update(ctx context.Context, merchantID, id int, u ProductUpdate) error {
	cols, args := u.assignments()
	if len(cols) == 0 {
		return utils.ErrNoFieldsToUpdate
	}

	set := make([]string, 0, len(cols)+1)
	for i, col := range cols {
		set = append(set, fmt.Sprintf("%s = $%d", col, i+1))
	}
	set = append(set, "updated_at = NOW()")

	q := fmt.Sprintf(`UPDATE products SET %s WHERE merchant_id = $%d AND id = $%d`,
		strings.Join(set, ", "), len(args)+1, len(args)+2)
	args = append(args, merchantID, id)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Delete removes a product; its inventory row cascades.
func (r *ProductRepository) Delete(ctx context.Context, merchantID, id int) error {
	const q = `DELETE FROM products WHERE merchant_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q, merchantID, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return utils.ErrProductNotFound
	}
	return nil
}

// UpsertBatch writes all rows in one multi-row statement. New names are
// inserted with a freshly generated SKU; existing (merchant_id, product_name)
// rows get their mutable fields refreshed and keep their SKU. The returned
// records follow the database's RETURNING order, not the input order.
func (r *ProductRepository) UpsertBatch(ctx context.Context, merchantID int, rows []models.ParsedProductRow) ([]models.WrittenRecord, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	const cols = 8
	args := make([]interface{}, 0, len(rows)*cols)
	for _, row := range rows {
		sku, err := utils.GenerateSKU()
		if err != nil {
			return nil, fmt.Errorf("generate sku: %w", err)
		}
		args = append(args,
			merchantID,
			row.Name,
			row.Category,
			row.Brand,
			row.Description,
			row.HSNCode,
			row.GSTRate,
			sku,
		)
	}

	q := `INSERT INTO products (merchant_id, product_name, category, brand, description, hsn_code, gst_rate, sku)
        VALUES ` + placeholders(len(rows), cols) + `
        ON CONFLICT (merchant_id, product_name) DO UPDATE SET
            category = EXCLUDED.category,
            brand = EXCLUDED.brand,
            description = EXCLUDED.description,
            hsn_code = EXCLUDED.hsn_code,
            gst_rate = EXCLUDED.gst_rate,
            updated_at = NOW()
        RETURNING id, product_name, sku`

	var written []models.WrittenRecord
	if err := r.db.SelectContext(ctx, &written, q, args...); err != nil {
		return nil, err
	}
	return written, nil
}

// ProductFilter holds filters for the inventory list.
type ProductFilter struct {
	MerchantID   int
	Category     string
	Search       string
	LowStockOnly bool
	Page         int
	Limit        int
}

// ProductListResult contains a page of products with pagination data.
type ProductListResult struct {
	Products   []models.ProductWithStock
	TotalItems int
	TotalPages int
	Page       int
	Limit      int
}

// List returns a page of the merchant's products joined with stock.
func (r *ProductRepository) List(ctx context.Context, filter *ProductFilter) (*ProductListResult, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	offset := (filter.Page - 1) * filter.Limit

	where := ` WHERE p.merchant_id = $1`
	args := []interface{}{filter.MerchantID}
	argIdx := 2

	if filter.Category != "" {
		where += fmt.Sprintf(" AND p.category = $%d", argIdx)
		args = append(args, filter.Category)
		argIdx++
	}
	if filter.Search != "" {
		where += fmt.Sprintf(" AND (p.product_name ILIKE $%d OR p.sku ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}
	if filter.LowStockOnly {
		where += " AND i.quantity_available <= i.reorder_level"
	}

	countQuery := `SELECT COUNT(1) FROM products p
        LEFT JOIN inventory i ON i.product_id = p.id AND i.merchant_id = p.merchant_id` + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, err
	}

	listQuery := productWithStockSelect + where +
		fmt.Sprintf(` ORDER BY p.product_name LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	products := []models.ProductWithStock{}
	if err := r.db.SelectContext(ctx, &products, listQuery, args...); err != nil {
		return nil, err
	}

	return &ProductListResult{
		Products:   products,
		TotalItems: total,
		TotalPages: (total + filter.Limit - 1) / filter.Limit,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

// GetDistinctCategories returns the merchant's categories.
func (r *ProductRepository) GetDistinctCategories(ctx context.Context, merchantID int) ([]string, error) {
	const q = `SELECT DISTINCT category FROM products WHERE merchant_id = $1 AND category != '' ORDER BY category`
	categories := []string{}
	if err := r.db.SelectContext(ctx, &categories, q, merchantID); err != nil {
		return nil, err
	}
	return categories, nil
}
