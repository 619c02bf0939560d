// Package activity keeps a small bounded window of recent board and
// key/value operations in memory, for a debug endpoint — distinct from
// internal/audit's durable trail, this is a cheap ring of the last few
// hundred events meant to be read, not retained.
package activity

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"scramblekv/internal/idgen"
)

const defaultCapacity = 500

// Entry is one recorded activity line.
type Entry struct {
	ID      string    `json:"id"`
	At      time.Time `json:"at"`
	Summary string    `json:"summary"`
}

// Feed is a fixed-capacity recent-activity window, safe for concurrent
// use. golang-lru/v2 supplies the eviction policy; Feed only adds the
// ordering and timestamping this module needs on top.
type Feed struct {
	mu    sync.Mutex
	cache *lru.Cache[string, Entry]
	order []string // insertion order, pruned alongside evictions
}

// New returns an empty Feed holding at most capacity entries; a
// non-positive capacity falls back to defaultCapacity.
func New(capacity int) (*Feed, error) {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	cache, err := lru.New[string, Entry](capacity)
	if err != nil {
		return nil, err
	}
	return &Feed{cache: cache}, nil
}

// Record adds summary as a new activity entry and returns its ID.
func (f *Feed) Record(summary string) string {
	id := idgen.New()
	entry := Entry{ID: id, At: time.Now(), Summary: summary}

	f.mu.Lock()
	defer f.mu.Unlock()
	evicted := f.cache.Add(id, entry)
	f.order = append(f.order, id)
	if evicted {
		f.pruneEvictedLocked()
	}
	return id
}

// pruneEvictedLocked drops order entries the LRU cache no longer holds.
// Must be called with f.mu held.
func (f *Feed) pruneEvictedLocked() {
	live := f.order[:0]
	for _, id := range f.order {
		if f.cache.Contains(id) {
			live = append(live, id)
		}
	}
	f.order = live
}

// Recent returns up to n of the most recently recorded entries still
// held in the window, newest first.
func (f *Feed) Recent(n int) []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Entry, 0, n)
	for i := len(f.order) - 1; i >= 0 && len(out) < n; i-- {
		if entry, ok := f.cache.Peek(f.order[i]); ok {
			out = append(out, entry)
		}
	}
	return out
}

// Len reports how many entries the window currently holds.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cache.Len()
}
