package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_console/internal/models"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) SetMany(ctx context.Context, values map[string]string, ttl time.Duration) error {
	for k, v := range values {
		if err := m.Set(ctx, k, v, ttl); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrMiss
	}
	return v, nil
}

func TestUploadStatusCache_KeepsLatestEvent(t *testing.T) {
	store := newMemStore()
	c := NewUploadStatusCache(store, time.Hour)

	c.Publish(models.ProgressEvent{MerchantID: 7, UploadID: "up-1", ProcessedItems: 1})
	c.Publish(models.ProgressEvent{MerchantID: 7, UploadID: "up-1", ProcessedItems: 5, Completed: true, Errors: []string{"Row 2: x"}})

	got, err := c.Get(context.Background(), 7, "up-1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.ProcessedItems)
	assert.True(t, got.Completed)
	assert.Equal(t, 7, got.MerchantID)
	assert.Equal(t, []string{"Row 2: x"}, got.Errors)
	assert.Equal(t, time.Hour, store.ttls["upload:status:7:up-1"])
}

func TestUploadStatusCache_ScopedByMerchant(t *testing.T) {
	c := NewUploadStatusCache(newMemStore(), time.Hour)

	c.Publish(models.ProgressEvent{MerchantID: 7, UploadID: "1", Completed: true, Errors: []string{"Row 2: secret"}})

	_, err := c.Get(context.Background(), 8, "1")
	assert.ErrorIs(t, err, ErrMiss)

	_, err = c.Get(context.Background(), 7, "1")
	assert.NoError(t, err)
}

func TestUploadStatusCache_Miss(t *testing.T) {
	c := NewUploadStatusCache(newMemStore(), time.Hour)

	_, err := c.Get(context.Background(), 7, "nope")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestUploadStatusCache_StoreFailureDoesNotPanic(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	c := NewUploadStatusCache(store, time.Hour)

	assert.NotPanics(t, func() { c.Publish(models.ProgressEvent{UploadID: "up-1", Completed: true}) })
}

// blockingStore holds every Set until release is closed.
type blockingStore struct {
	*memStore
	release chan struct{}
	sets    chan string
}

func (b *blockingStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	b.sets <- value
	<-b.release
	return b.memStore.Set(ctx, key, value, ttl)
}

func TestUploadStatusCache_ProgressDoesNotWaitForStore(t *testing.T) {
	store := &blockingStore{memStore: newMemStore(), release: make(chan struct{}), sets: make(chan string, 16)}
	c := NewUploadStatusCache(store, time.Hour)

	published := make(chan struct{})
	go func() {
		for i := 1; i <= 50; i++ {
			c.Publish(models.ProgressEvent{MerchantID: 7, UploadID: "up-1", ProcessedItems: i})
		}
		close(published)
	}()

	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("progress events blocked on the store")
	}

	finished := make(chan struct{})
	go func() {
		c.Publish(models.ProgressEvent{MerchantID: 7, UploadID: "up-1", ProcessedItems: 50, Completed: true})
		close(finished)
	}()
	close(store.release)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("completed event was not stored")
	}

	got, err := c.Get(context.Background(), 7, "up-1")
	require.NoError(t, err)
	assert.True(t, got.Completed)
	// the first write was in flight; everything after it was coalesced
	assert.LessOrEqual(t, len(store.sets), 3)
}

func TestLowStockCache(t *testing.T) {
	store := newMemStore()
	c := NewLowStockCache(store, 10*time.Minute)
	ctx := context.Background()

	require.NoError(t, c.StoreCounts(ctx, map[int]int{1: 4, 2: 0}))

	n, err := c.Count(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = c.Count(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = c.Count(ctx, 3)
	assert.ErrorIs(t, err, ErrMiss)
}
