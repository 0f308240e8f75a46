package importer

import (
	"slices"
	"sync"
	"time"

	"github.com/GTDGit/gtd_console/internal/models"
)

// ProgressPublisher receives progress events of an upload. Delivery is best
// effort; implementations must not block the pipeline.
type ProgressPublisher interface {
	Publish(event models.ProgressEvent)
}

// PublisherFunc adapts a function to ProgressPublisher.
type PublisherFunc func(models.ProgressEvent)

func (f PublisherFunc) Publish(event models.ProgressEvent) { f(event) }

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(models.ProgressEvent) {}

// MultiPublisher fans one event out to several publishers in order.
type MultiPublisher []ProgressPublisher

func (m MultiPublisher) Publish(event models.ProgressEvent) {
	for _, p := range m {
		p.Publish(event)
	}
}

// Tracker owns the counters of one upload and turns them into events.
// Processed counts only grow and never exceed the total.
type Tracker struct {
	mu        sync.Mutex
	pub        ProgressPublisher
	merchantID int
	uploadID   string
	total      int
	processed  int
	errors     []string
	now        func() time.Time
}

// NewTracker creates a tracker for total items of one merchant's upload.
// A nil publisher drops events.
func NewTracker(pub ProgressPublisher, merchantID int, uploadID string, total int) *Tracker {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Tracker{pub: pub, merchantID: merchantID, uploadID: uploadID, total: total, now: time.Now}
}

// AddErrors records errors without emitting an event.
func (t *Tracker) AddErrors(errs ...string) {
	t.mu.Lock()
	t.errors = append(t.errors, errs...)
	t.mu.Unlock()
}

// Start emits the initial event at progress 0.
func (t *Tracker) Start(label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ev := t.event(label)
	ev.Progress = 0
	t.pub.Publish(ev)
}

// Step marks n more items as processed, records errs and emits an event.
// Step with n == 0 announces work about to start.
func (t *Tracker) Step(label string, n int, errs ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n > 0 {
		t.processed = min(t.processed+n, t.total)
	}
	t.errors = append(t.errors, errs...)
	t.pub.Publish(t.event(label))
}

// Finish emits the final event with completed set.
func (t *Tracker) Finish(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processed = t.total
	ev := t.event("Done")
	ev.Progress = 100
	ev.Completed = true
	ev.SuccessMessage = message
	t.pub.Publish(ev)
}

// Processed returns the number of items processed so far.
func (t *Tracker) Processed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.processed
}

// Errors returns a copy of the errors recorded so far.
func (t *Tracker) Errors() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.errors)
}

func (t *Tracker) event(label string) models.ProgressEvent {
	progress := 0
	if t.total > 0 {
		progress = t.processed * 100 / t.total
	}
	errs := slices.Clone(t.errors)
	if errs == nil {
		errs = []string{}
	}
	return models.ProgressEvent{
		UploadID:       t.uploadID,
		MerchantID:     t.merchantID,
		Progress:       progress,
		CurrentItem:    label,
		TotalItems:     t.total,
		ProcessedItems: t.processed,
		Errors:         errs,
		Timestamp:      t.now(),
	}
}
