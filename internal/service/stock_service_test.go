package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_console/internal/importer"
	"github.com/GTDGit/gtd_console/internal/models"
	"github.com/GTDGit/gtd_console/internal/repository"
	"github.com/GTDGit/gtd_console/internal/utils"
)

var (
	bySKUSQL       = regexp.QuoteMeta(`WHERE merchant_id = $1 AND sku = $2`)
	setQuantitySQL = regexp.QuoteMeta(`UPDATE inventory SET quantity_available = $3, updated_at = NOW()`)
	getByIDSQL     = regexp.QuoteMeta(`WHERE p.merchant_id = $1 AND p.id = $2`)
)

func newStockService(t *testing.T, pub importer.ProgressPublisher) (*StockService, sqlmock.Sqlmock) {
	db, mock := setupMockDB(t)
	svc := NewStockService(db,
		repository.NewProductRepository(db),
		repository.NewInventoryRepository(db),
		nil, pub)
	return svc, mock
}

func TestUpdateByNameOrSku_NameWinsOverSKU(t *testing.T) {
	svc, mock := newStockService(t, nil)

	mock.ExpectQuery(byNameSQL).
		WithArgs(7, "Widget").
		WillReturnRows(productRow(1, "Widget", nil, "SKU-00000001"))
	mock.ExpectExec(setQuantitySQL).
		WithArgs(7, 1, 10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(getByIDSQL).
		WithArgs(7, 1).
		WillReturnRows(productWithStockRow(1, "Widget", "SKU-00000001", 10))

	got, err := svc.UpdateByNameOrSku(context.Background(), 7, models.StockUpdateRow{Name: "Widget", SKU: "SKU-FFFFFFFF", Stock: 10})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 10, got.QuantityAvailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateByNameOrSku_FallsBackToSKU(t *testing.T) {
	svc, mock := newStockService(t, nil)
	selling := decimal.RequireFromString("12.00")

	mock.ExpectQuery(bySKUSQL).
		WithArgs(7, "SKU-00000002").
		WillReturnRows(productRow(2, "Gadget", nil, "SKU-00000002"))
	mock.ExpectExec(setQuantitySQL).
		WithArgs(7, 2, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE inventory SET selling_price = $1`)).
		WithArgs(sqlmock.AnyArg(), 7, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(getByIDSQL).
		WithArgs(7, 2).
		WillReturnRows(productWithStockRow(2, "Gadget", "SKU-00000002", 3))

	got, err := svc.UpdateByNameOrSku(context.Background(), 7, models.StockUpdateRow{SKU: "SKU-00000002", Stock: 3, SellingPrice: &selling})
	require.NoError(t, err)
	assert.Equal(t, "Gadget", got.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateByNameOrSku_NoMatchIsNil(t *testing.T) {
	svc, mock := newStockService(t, nil)

	mock.ExpectQuery(byNameSQL).
		WithArgs(7, "Ghost").
		WillReturnRows(sqlmock.NewRows(productColumns))

	got, err := svc.UpdateByNameOrSku(context.Background(), 7, models.StockUpdateRow{Name: "Ghost", Stock: 1})
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateStock_NotFound(t *testing.T) {
	svc, mock := newStockService(t, nil)

	mock.ExpectExec(setQuantitySQL).
		WithArgs(7, 99, 5).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := svc.UpdateStock(context.Background(), 7, 99, 5)
	assert.ErrorIs(t, err, utils.ErrProductNotFound)

	_, err = svc.UpdateStock(context.Background(), 7, 99, -1)
	assert.ErrorIs(t, err, utils.ErrInvalidStock)
}

func TestUpdatePrices_RejectsNegative(t *testing.T) {
	svc, _ := newStockService(t, nil)
	neg := decimal.NewFromInt(-1)

	_, err := svc.UpdatePrices(context.Background(), 7, 1, &UpdatePriceRequest{CostPrice: &neg})
	assert.ErrorIs(t, err, utils.ErrInvalidInput)

	_, err = svc.UpdatePrices(context.Background(), 7, 1, &UpdatePriceRequest{})
	assert.ErrorIs(t, err, utils.ErrNoFieldsToUpdate)
}

func expectSavepoint(mock sqlmock.Sqlmock) {
	mock.ExpectExec(`^SAVEPOINT stock_row$`).WillReturnResult(sqlmock.NewResult(0, 0))
}

func expectRelease(mock sqlmock.Sqlmock) {
	mock.ExpectExec(`^RELEASE SAVEPOINT stock_row$`).WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestImportStockFile_Scenario(t *testing.T) {
	rec := &eventRecorder{}
	svc, mock := newStockService(t, rec)

	mock.ExpectBegin()
	expectSavepoint(mock)
	mock.ExpectQuery(byNameSQL).
		WithArgs(7, "Widget").
		WillReturnRows(productRow(1, "Widget", nil, "SKU-00000001"))
	mock.ExpectExec(setQuantitySQL).
		WithArgs(7, 1, 10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(getByIDSQL).
		WithArgs(7, 1).
		WillReturnRows(productWithStockRow(1, "Widget", "SKU-00000001", 10))
	expectRelease(mock)
	mock.ExpectCommit()

	summary, err := svc.ImportStockFile(context.Background(), 7, Upload{
		ID:     "up-9",
		Format: importer.FormatCSV,
		Data:   []byte("product_name,sku,stock\nWidget,,10\n,SKU-2,-3\n,,5\n"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 2, summary.Errors)
	assert.Contains(t, summary.ErrorDetails[0], "stock cannot be negative")
	assert.Contains(t, summary.ErrorDetails[1], "product name or SKU is required")
	assert.NoError(t, mock.ExpectationsWereMet())

	// start, one per row, finish
	require.Len(t, rec.events, 3)
	assertMonotonic(t, rec.events)
	assert.Equal(t, "Updated 1 products with 2 errors", rec.events[2].SuccessMessage)
}

func TestImportStockFile_SkipsUnmatchedAndIsolatesFailedRow(t *testing.T) {
	svc, mock := newStockService(t, nil)

	mock.ExpectBegin()

	expectSavepoint(mock)
	mock.ExpectQuery(byNameSQL).WithArgs(7, "Widget").WillReturnRows(productRow(1, "Widget", nil, "SKU-00000001"))
	mock.ExpectExec(setQuantitySQL).WithArgs(7, 1, 4).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(getByIDSQL).WithArgs(7, 1).WillReturnRows(productWithStockRow(1, "Widget", "SKU-00000001", 4))
	expectRelease(mock)

	expectSavepoint(mock)
	mock.ExpectQuery(byNameSQL).WithArgs(7, "Ghost").WillReturnRows(sqlmock.NewRows(productColumns))
	expectRelease(mock)

	expectSavepoint(mock)
	mock.ExpectQuery(byNameSQL).WithArgs(7, "Gadget").WillReturnRows(productRow(2, "Gadget", nil, "SKU-00000002"))
	mock.ExpectExec(setQuantitySQL).WithArgs(7, 2, 6).WillReturnError(errors.New("deadlock detected"))
	mock.ExpectExec(`^ROLLBACK TO SAVEPOINT stock_row$`).WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectCommit()

	summary, err := svc.ImportStockFile(context.Background(), 7, Upload{
		ID:     "up-10",
		Format: importer.FormatCSV,
		Data:   []byte("Product Name,Stock\nWidget,4\nGhost,5\nGadget,6\n"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Updated)
	require.Equal(t, 1, summary.Errors)
	assert.Contains(t, summary.ErrorDetails[0], `Row 4: failed to update "Gadget"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}
