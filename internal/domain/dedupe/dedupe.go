// Package dedupe drops re-delivered events inside one release window.
package dedupe

import (
	"context"
	"sync"

	"github.com/okian/revstat/internal/domain/model"
	"github.com/okian/revstat/pkg/metrics"
)

// Deduper records seen event IDs.
type Deduper interface {
	// SeenAndRecord reports whether id was already seen and records it if not.
	SeenAndRecord(ctx context.Context, id string) bool

	// Size is the number of IDs currently remembered.
	Size() int64
}

// inMemoryDeduper keeps IDs in a map. In bounded mode the oldest ID is
// evicted first, tracked by a ring of insertion order.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]int // id -> slot in ring, -1 when unbounded
	ring    []string
	next    int
	maxSize int // <= 0 means unbounded
}

// NewInMemoryDeduper creates a deduper. The default is unbounded, which is
// what a single window needs.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int)
	if d.maxSize > 0 {
		d.ring = make([]string, d.maxSize)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}

	if d.maxSize <= 0 {
		d.seen[id] = -1
		return false
	}

	if old := d.ring[d.next]; old != "" {
		if slot, ok := d.seen[old]; ok && slot == d.next {
			delete(d.seen, old)
		}
	}
	d.ring[d.next] = id
	d.seen[id] = d.next
	d.next = (d.next + 1) % d.maxSize
	return false
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}

// Filter returns the events of a window with re-deliveries removed, keeping
// the first occurrence of each event ID. Events without an ID are always
// kept. The input slice is not modified.
func Filter(ctx context.Context, d Deduper, events []model.Event) ([]model.Event, int) {
	kept := make([]model.Event, 0, len(events))
	dropped := 0
	for _, ev := range events {
		if ev.EventID != "" && d.SeenAndRecord(ctx, ev.EventID) {
			dropped++
			metrics.RecordEventDuplicate()
			continue
		}
		kept = append(kept, ev)
	}
	return kept, dropped
}
