package worker

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_console/internal/cache"
	"github.com/GTDGit/gtd_console/internal/repository"
)

type mapStore map[string]string

func (m mapStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	m[key] = value
	return nil
}

func (m mapStore) SetMany(ctx context.Context, values map[string]string, ttl time.Duration) error {
	for k, v := range values {
		m[k] = v
	}
	return nil
}

func (m mapStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", cache.ErrMiss
	}
	return v, nil
}

var countSQL = regexp.QuoteMeta(`FILTER (WHERE i.quantity_available <= i.reorder_level)`)

func newWorker(t *testing.T) (*LowStockWorker, sqlmock.Sqlmock, *cache.LowStockCache) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	lowStock := cache.NewLowStockCache(mapStore{}, time.Hour)
	w := NewLowStockWorker(repository.NewInventoryRepository(sqlx.NewDb(db, "postgres")), lowStock, time.Minute)
	return w, mock, lowStock
}

func TestLowStockWorker_CachesCounts(t *testing.T) {
	w, mock, lowStock := newWorker(t)

	mock.ExpectQuery(countSQL).WillReturnRows(
		sqlmock.NewRows([]string{"merchant_id", "low_stock"}).AddRow(7, 3).AddRow(8, 0))

	w.run(context.Background())

	n, err := lowStock.Count(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = lowStock.Count(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLowStockWorker_QueryFailureKeepsCache(t *testing.T) {
	w, mock, lowStock := newWorker(t)

	mock.ExpectQuery(countSQL).WillReturnError(errors.New("connection reset"))
	w.run(context.Background())

	_, err := lowStock.Count(context.Background(), 7)
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestLowStockWorker_StopsOnCancel(t *testing.T) {
	w, mock, _ := newWorker(t)
	mock.ExpectQuery(countSQL).WillReturnRows(sqlmock.NewRows([]string{"merchant_id", "low_stock"}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
