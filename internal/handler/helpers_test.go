package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_console/internal/cache"
	"github.com/GTDGit/gtd_console/internal/utils"
)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

// newTestRouter returns an engine whose requests already carry a user and
// merchant, as the JWT and merchant middleware would set them.
func newTestRouter() *gin.Engine {
	return newMerchantRouter(7)
}

func newMerchantRouter(merchantID int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", 4)
		c.Set("merchant_id", merchantID)
		c.Next()
	})
	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, path, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) utils.Response {
	t.Helper()
	var resp utils.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}}
}

func (m *memStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) SetMany(ctx context.Context, values map[string]string, ttl time.Duration) error {
	for k, v := range values {
		_ = m.Set(ctx, k, v, ttl)
	}
	return nil
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", cache.ErrMiss
	}
	return v, nil
}

var productColumns = []string{
	"id", "merchant_id", "product_name", "category", "brand", "description",
	"hsn_code", "gst_rate", "sku", "created_at", "updated_at",
}

var productWithStockColumns = append(append([]string{}, productColumns...),
	"quantity_available", "reorder_level", "cost_price", "selling_price")

func productRow(id int, name string, brand interface{}) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(productColumns).
		AddRow(id, 7, name, "Tools", brand, nil, nil, "18.00", "SKU-0000000A", now, now)
}

func productWithStockRow(id int, name string, qty int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(productWithStockColumns).
		AddRow(id, 7, name, "Tools", nil, nil, nil, "18.00", "SKU-0000000A", now, now, qty, 2, "10.00", "12.00")
}
