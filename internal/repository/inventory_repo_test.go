package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_console/internal/models"
	"github.com/GTDGit/gtd_console/internal/utils"
)

func TestInventoryUpsertBatch(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewInventoryRepository(db)

	items := []models.Inventory{
		{MerchantID: 7, ProductID: 10, QuantityAvailable: 5, ReorderLevel: 2, CostPrice: decimal.NewFromInt(3), SellingPrice: decimal.NewFromInt(4)},
		{MerchantID: 7, ProductID: 11, QuantityAvailable: 0},
	}

	mock.ExpectExec(`(?s)INSERT INTO inventory .* VALUES \(\$1,\$2,\$3,\$4,\$5,\$6\),\(\$7,\$8,\$9,\$10,\$11,\$12\)\s+ON CONFLICT \(merchant_id, product_id\) DO UPDATE SET`).
		WithArgs(7, 10, 5, 2, sqlmock.AnyArg(), sqlmock.AnyArg(), 7, 11, 0, 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.UpsertBatch(context.Background(), items))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryUpsertBatch_Empty(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewInventoryRepository(db)

	assert.NoError(t, repo.UpsertBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetQuantity_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewInventoryRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE inventory SET quantity_available = $3, updated_at = NOW()`)).
		WithArgs(7, 10, 4).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetQuantity(context.Background(), 7, 10, 4)
	assert.ErrorIs(t, err, utils.ErrProductNotFound)
}

func TestSetPrices_OnlySellingPrice(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewInventoryRepository(db)
	selling := decimal.RequireFromString("99.50")

	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE inventory SET selling_price = $1, updated_at = NOW() WHERE merchant_id = $2 AND product_id = $3`)).
		WithArgs(sqlmock.AnyArg(), 7, 10).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetPrices(context.Background(), 7, 10, PriceUpdate{SellingPrice: &selling})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetPrices_Empty(t *testing.T) {
	db, _ := setupMockDB(t)
	repo := NewInventoryRepository(db)

	err := repo.SetPrices(context.Background(), 7, 10, PriceUpdate{})
	assert.ErrorIs(t, err, utils.ErrNoFieldsToUpdate)
}

func TestCountLowStockByMerchant(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewInventoryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM merchants m`)).
		WillReturnRows(sqlmock.NewRows([]string{"merchant_id", "low_stock"}).AddRow(1, 4).AddRow(2, 0))

	counts, err := repo.CountLowStockByMerchant(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []LowStockCount{{MerchantID: 1, Count: 4}, {MerchantID: 2, Count: 0}}, counts)
}
