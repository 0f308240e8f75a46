package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_console/internal/models"
)

const publishTimeout = 2 * time.Second

// UploadStatusCache keeps the latest progress event of every upload so that
// a client reconnecting mid-import can read where it stands. Uploads are
// keyed by merchant, so one merchant never reads another's status.
type UploadStatusCache struct {
	store Store
	ttl   time.Duration

	mu       sync.Mutex
	pending  map[string]statusWrite
	flushing bool
}

// statusWrite is an event waiting for the background writer. done is set for
// completed events and closed once the event is stored.
type statusWrite struct {
	key   string
	event models.ProgressEvent
	done  chan struct{}
}

// NewUploadStatusCache creates a new UploadStatusCache.
func NewUploadStatusCache(store Store, ttl time.Duration) *UploadStatusCache {
	return &UploadStatusCache{store: store, ttl: ttl, pending: make(map[string]statusWrite)}
}

func (c *UploadStatusCache) key(merchantID int, uploadID string) string {
	return fmt.Sprintf("upload:status:%d:%s", merchantID, uploadID)
}

// Publish records the event as the upload's latest status. Progress events
// are coalesced and written in the background, keeping only the newest one
// per upload. A completed event is stored before Publish returns, so the final
// status is readable as soon as the import returns. Failures are logged and
// otherwise ignored.
func (c *UploadStatusCache) Publish(event models.ProgressEvent) {
	w := statusWrite{key: c.key(event.MerchantID, event.UploadID), event: event}
	if event.Completed {
		w.done = make(chan struct{})
	}

	c.mu.Lock()
	if prev, ok := c.pending[w.key]; ok && prev.done != nil {
		if w.done == nil {
			// the upload already finished; a late progress event is stale
			c.mu.Unlock()
			return
		}
		close(prev.done)
	}
	c.pending[w.key] = w
	start := !c.flushing
	c.flushing = true
	c.mu.Unlock()

	if start {
		go c.flush()
	}
	if w.done != nil {
		<-w.done
	}
}

// flush drains pending writes in order until none are left. Only one flush
// runs at a time, so a newer status is never overwritten by an older one.
func (c *UploadStatusCache) flush() {
	for {
		c.mu.Lock()
		if len(c.pending) == 0 {
			c.flushing = false
			c.mu.Unlock()
			return
		}
		batch := c.pending
		c.pending = make(map[string]statusWrite)
		c.mu.Unlock()

		for _, w := range batch {
			c.write(w.event, w.key)
			if w.done != nil {
				close(w.done)
			}
		}
	}
}

func (c *UploadStatusCache) write(event models.ProgressEvent, key string) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("upload_id", event.UploadID).Msg("Failed to marshal upload status")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := c.store.Set(ctx, key, string(data), c.ttl); err != nil {
		log.Warn().Err(err).Str("upload_id", event.UploadID).Int("merchant_id", event.MerchantID).Msg("Failed to cache upload status")
	}
}

// Get returns the latest status of one of the merchant's uploads, or ErrMiss.
func (c *UploadStatusCache) Get(ctx context.Context, merchantID int, uploadID string) (*models.ProgressEvent, error) {
	raw, err := c.store.Get(ctx, c.key(merchantID, uploadID))
	if err != nil {
		return nil, err
	}

	var event models.ProgressEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal upload status: %w", err)
	}
	event.MerchantID = merchantID
	return &event, nil
}
