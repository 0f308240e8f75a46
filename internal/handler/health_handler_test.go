package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHealth(t *testing.T) {
	rawDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { rawDB.Close() })
	db := sqlx.NewDb(rawDB, "postgres")
	r := newTestRouter()
	r.GET("/v1/health", NewHealthHandler(db, nil).GetHealth)

	mock.ExpectPing()
	w := do(r, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	require.Equal(t, 200, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, "connected", data["database"])
	assert.Equal(t, "disabled", data["redis"])

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	w = do(r, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	assert.Equal(t, 503, w.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}
