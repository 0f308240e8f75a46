package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_console/internal/repository"
)

var (
	byNameAndBrandSQL = regexp.QuoteMeta(`product_name = $2 AND brand = $3`)
	byNameSQL         = regexp.QuoteMeta(`WHERE merchant_id = $1 AND product_name = $2`)
)

func TestResolve_SameNameAndBrandIsDuplicate(t *testing.T) {
	db, mock := setupMockDB(t)
	products := repository.NewProductRepository(db)
	acme := "Acme"

	mock.ExpectQuery(byNameAndBrandSQL).
		WithArgs(7, "Widget", "Acme").
		WillReturnRows(productRow(1, "Widget", "Acme", "SKU-00000001"))

	res, err := DuplicateResolver{}.Resolve(context.Background(), products, 7, "Widget", &acme)
	require.NoError(t, err)
	assert.Equal(t, ResolutionDuplicate, res.Kind)
	require.NotNil(t, res.Existing)
	assert.Equal(t, 1, res.Existing.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolve_OtherBrandIsRenamed(t *testing.T) {
	db, mock := setupMockDB(t)
	products := repository.NewProductRepository(db)
	globex := "Globex"

	mock.ExpectQuery(byNameAndBrandSQL).
		WithArgs(7, "Widget", "Globex").
		WillReturnRows(sqlmock.NewRows(productColumns))
	mock.ExpectQuery(byNameSQL).
		WithArgs(7, "Widget").
		WillReturnRows(productRow(1, "Widget", "Acme", "SKU-00000001"))
	mock.ExpectQuery(byNameSQL).
		WithArgs(7, "Widget (Globex)").
		WillReturnRows(sqlmock.NewRows(productColumns))

	res, err := DuplicateResolver{}.Resolve(context.Background(), products, 7, "Widget", &globex)
	require.NoError(t, err)
	assert.Equal(t, ResolutionRenamed, res.Kind)
	assert.Equal(t, "Widget (Globex)", res.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolve_RenamedNameTakenIsDuplicate(t *testing.T) {
	db, mock := setupMockDB(t)
	products := repository.NewProductRepository(db)
	globex := "Globex"

	mock.ExpectQuery(byNameAndBrandSQL).
		WillReturnRows(sqlmock.NewRows(productColumns))
	mock.ExpectQuery(byNameSQL).
		WithArgs(7, "Widget").
		WillReturnRows(productRow(1, "Widget", "Acme", "SKU-00000001"))
	mock.ExpectQuery(byNameSQL).
		WithArgs(7, "Widget (Globex)").
		WillReturnRows(productRow(2, "Widget (Globex)", "Globex", "SKU-00000002"))

	res, err := DuplicateResolver{}.Resolve(context.Background(), products, 7, "Widget", &globex)
	require.NoError(t, err)
	assert.Equal(t, ResolutionDuplicate, res.Kind)
	assert.Equal(t, 2, res.Existing.ID)
}

func TestResolve_FreeNameIsClear(t *testing.T) {
	db, mock := setupMockDB(t)
	products := repository.NewProductRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`brand IS NULL`)).
		WithArgs(7, "Gizmo").
		WillReturnRows(sqlmock.NewRows(productColumns))
	mock.ExpectQuery(byNameSQL).
		WithArgs(7, "Gizmo").
		WillReturnRows(sqlmock.NewRows(productColumns))

	res, err := DuplicateResolver{}.Resolve(context.Background(), products, 7, "Gizmo", nil)
	require.NoError(t, err)
	assert.Equal(t, ResolutionClear, res.Kind)
	assert.Equal(t, "Gizmo", res.Name)
}

func TestResolve_UnbrandedNameTakenIsDuplicate(t *testing.T) {
	db, mock := setupMockDB(t)
	products := repository.NewProductRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`brand IS NULL`)).
		WillReturnRows(sqlmock.NewRows(productColumns))
	mock.ExpectQuery(byNameSQL).
		WithArgs(7, "Widget").
		WillReturnRows(productRow(1, "Widget", "Acme", "SKU-00000001"))

	res, err := DuplicateResolver{}.Resolve(context.Background(), products, 7, "Widget", nil)
	require.NoError(t, err)
	assert.Equal(t, ResolutionDuplicate, res.Kind)
	assert.Equal(t, "duplicate", res.Kind.String())
}
