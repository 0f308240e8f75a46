package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_console/internal/cache"
	"github.com/GTDGit/gtd_console/internal/repository"
)

// LowStockWorker periodically recounts low-stock products per merchant and
// caches the counts for the dashboard badge.
type LowStockWorker struct {
	inventory *repository.InventoryRepository
	cache     *cache.LowStockCache
	interval  time.Duration
}

// NewLowStockWorker constructs a LowStockWorker.
func NewLowStockWorker(
	inventory *repository.InventoryRepository,
	lowStock *cache.LowStockCache,
	interval time.Duration,
) *LowStockWorker {
	return &LowStockWorker{
		inventory: inventory,
		cache:     lowStock,
		interval:  interval,
	}
}

// Start refreshes the counts once, then on every tick until ctx is canceled.
func (w *LowStockWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting low stock worker")

	w.run(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Low stock worker stopped")
			return
		}
	}
}

func (w *LowStockWorker) run(ctx context.Context) {
	counts, err := w.inventory.CountLowStockByMerchant(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to count low stock products")
		return
	}
	if len(counts) == 0 {
		return
	}

	byMerchant := make(map[int]int, len(counts))
	low := 0
	for _, c := range counts {
		byMerchant[c.MerchantID] = c.Count
		if c.Count > 0 {
			low++
		}
	}

	if err := w.cache.StoreCounts(ctx, byMerchant); err != nil {
		log.Error().Err(err).Msg("Failed to cache low stock counts")
		return
	}
	log.Debug().Int("merchants", len(counts)).Int("merchants_low", low).Msg("Low stock counts refreshed")
}
