package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_console/internal/models"
	"github.com/GTDGit/gtd_console/internal/utils"
)

// InventoryRepository handles data access for stock rows.
type InventoryRepository struct {
	db Querier
}

// NewInventoryRepository creates a new InventoryRepository.
func NewInventoryRepository(db *sqlx.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// WithTx returns a copy of the repository that runs its statements on tx.
func (r *InventoryRepository) WithTx(tx *sqlx.Tx) *InventoryRepository {
	return &InventoryRepository{db: tx}
}

// Create inserts the inventory row of a freshly created product.
func (r *InventoryRepository) Create(ctx context.Context, inv *models.Inventory) error {
	const q = `INSERT INTO inventory (merchant_id, product_id, quantity_available, reorder_level, cost_price, selling_price)
              VALUES ($1, $2, $3, $4, $5, $6)
              RETURNING id, updated_at`
	return r.db.QueryRowxContext(ctx, q,
		inv.MerchantID,
		inv.ProductID,
		inv.QuantityAvailable,
		inv.ReorderLevel,
		inv.CostPrice,
		inv.SellingPrice,
	).Scan(&inv.ID, &inv.UpdatedAt)
}

// UpsertBatch inserts or refreshes the stock rows of one batch in a single
// statement keyed by (merchant_id, product_id).
func (r *InventoryRepository) UpsertBatch(ctx context.Context, items []models.Inventory) error {
	if len(items) == 0 {
		return nil
	}

	const cols = 6
	args := make([]interface{}, 0, len(items)*cols)
	for _, it := range items {
		args = append(args,
			it.MerchantID,
			it.ProductID,
			it.QuantityAvailable,
			it.ReorderLevel,
			it.CostPrice,
			it.SellingPrice,
		)
	}

	q := `INSERT INTO inventory (merchant_id, product_id, quantity_available, reorder_level, cost_price, selling_price)
        VALUES ` + placeholders(len(items), cols) + `
        ON CONFLICT (merchant_id, product_id) DO UPDATE SET
            quantity_available = EXCLUDED.quantity_available,
            reorder_level = EXCLUDED.reorder_level,
            cost_price = EXCLUDED.cost_price,
            selling_price = EXCLUDED.selling_price,
            updated_at = NOW()`

	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

// SetQuantity overwrites the available quantity of one product.
// It returns utils.ErrProductNotFound when the product has no stock row.
func (r *InventoryRepository) SetQuantity(ctx context.Context, merchantID, productID, qty int) error {
	const q = `UPDATE inventory SET quantity_available = $3, updated_at = NOW()
        WHERE merchant_id = $1 AND product_id = $2`
	res, err := r.db.ExecContext(ctx, q, merchantID, productID, qty)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// PriceUpdate lists optional price corrections. Nil fields are untouched.
type PriceUpdate struct {
	CostPrice    *decimal.Decimal
	SellingPrice *decimal.Decimal
}

// Empty reports whether the update sets nothing.
func (u PriceUpdate) Empty() bool {
	return u.CostPrice == nil && u.SellingPrice == nil
}

// SetPrices applies the set price fields of one product.
func (r *InventoryRepository) SetPrices(ctx context.Context, merchantID, productID int, u PriceUpdate) error {
	if u.Empty() {
		return utils.ErrNoFieldsToUpdate
	}

	var (
		set  []string
		args []interface{}
	)
	if u.CostPrice != nil {
		args = append(args, *u.CostPrice)
		set = append(set, fmt.Sprintf("cost_price = $%d", len(args)))
	}
	if u.SellingPrice != nil {
		args = append(args, *u.SellingPrice)
		set = append(set, fmt.Sprintf("selling_price = $%d", len(args)))
	}
	set = append(set, "updated_at = NOW()")
	args = append(args, merchantID, productID)

	q := fmt.Sprintf(`UPDATE inventory SET %s WHERE merchant_id = $%d AND product_id = $%d`,
		strings.Join(set, ", "), len(args)-1, len(args))

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// CountLowStock returns how many of the merchant's products are at or below
// their reorder level.
func (r *InventoryRepository) CountLowStock(ctx context.Context, merchantID int) (int, error) {
	const q = `SELECT COUNT(1) FROM inventory WHERE merchant_id = $1 AND quantity_available <= reorder_level`
	var n int
	if err := r.db.GetContext(ctx, &n, q, merchantID); err != nil {
		return 0, err
	}
	return n, nil
}

// LowStockCount is one merchant's low-stock tally.
type LowStockCount struct {
	MerchantID int `db:"merchant_id"`
	Count      int `db:"low_stock"`
}

// CountLowStockByMerchant tallies low-stock products for every merchant,
// including merchants at zero.
func (r *InventoryRepository) CountLowStockByMerchant(ctx context.Context) ([]LowStockCount, error) {
	const q = `SELECT m.id AS merchant_id,
               COUNT(i.id) FILTER (WHERE i.quantity_available <= i.reorder_level) AS low_stock
        FROM merchants m
        LEFT JOIN inventory i ON i.merchant_id = m.id
        GROUP BY m.id`
	var counts []LowStockCount
	if err := r.db.SelectContext(ctx, &counts, q); err != nil {
		return nil, err
	}
	return counts, nil
}
