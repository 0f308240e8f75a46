package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// LowStockCache holds per-merchant low-stock counts for the dashboard badge.
type LowStockCache struct {
	store Store
	ttl   time.Duration
}

// NewLowStockCache creates a new LowStockCache.
func NewLowStockCache(store Store, ttl time.Duration) *LowStockCache {
	return &LowStockCache{store: store, ttl: ttl}
}

func (c *LowStockCache) key(merchantID int) string {
	return fmt.Sprintf("lowstock:merchant:%d", merchantID)
}

// StoreCounts writes all counts in one round trip.
func (c *LowStockCache) StoreCounts(ctx context.Context, counts map[int]int) error {
	values := make(map[string]string, len(counts))
	for merchantID, n := range counts {
		values[c.key(merchantID)] = strconv.Itoa(n)
	}
	return c.store.SetMany(ctx, values, c.ttl)
}

// Count returns the cached count of a merchant, or ErrMiss.
func (c *LowStockCache) Count(ctx context.Context, merchantID int) (int, error) {
	raw, err := c.store.Get(ctx, c.key(merchantID))
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid cached low stock count %q: %w", raw, err)
	}
	return n, nil
}
