package service

import (
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_console/internal/models"
)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

var productColumns = []string{
	"id", "merchant_id", "product_name", "category", "brand", "description",
	"hsn_code", "gst_rate", "sku", "created_at", "updated_at",
}

var productWithStockColumns = append(append([]string{}, productColumns...),
	"quantity_available", "reorder_level", "cost_price", "selling_price")

func productRow(id int, name string, brand interface{}, sku string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(productColumns).
		AddRow(id, 7, name, "Tools", brand, nil, nil, "18.00", sku, now, now)
}

func productWithStockRow(id int, name, sku string, qty int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(productWithStockColumns).
		AddRow(id, 7, name, "Tools", nil, nil, nil, "18.00", sku, now, now, qty, 2, "10.00", "12.00")
}

type eventRecorder struct {
	mu     sync.Mutex
	events []models.ProgressEvent
}

func (r *eventRecorder) Publish(ev models.ProgressEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func assertMonotonic(t *testing.T, events []models.ProgressEvent) {
	t.Helper()
	require.NotEmpty(t, events)
	prev := 0
	for i, ev := range events {
		require.GreaterOrEqual(t, ev.ProcessedItems, prev, "event %d went backwards", i)
		prev = ev.ProcessedItems
		if i < len(events)-1 {
			require.False(t, ev.Completed, "event %d completed early", i)
		}
	}
	require.True(t, events[len(events)-1].Completed)
}
