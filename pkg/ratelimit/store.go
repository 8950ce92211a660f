// Package ratelimit implements the sliding-window admission control used on
// the coordinator's worker and consumer surfaces.
package ratelimit

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Clock abstracts time so window behavior is testable.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Store keeps per-key request timestamps for window counting.
type Store interface {
	// Add records one request timestamp for key.
	Add(ctx context.Context, key string, ts time.Time) error

	// CountSince returns how many of key's requests fall at or after cutoff.
	CountSince(ctx context.Context, key string, cutoff time.Time) (int, error)

	// TryAdd counts key's requests at or after cutoff and, only when the
	// count is below limit, records ts — one locked step, so two racing
	// requests cannot both slip under the limit. Returns whether the request
	// was admitted and the in-window count after the call.
	TryAdd(ctx context.Context, key string, ts, cutoff time.Time, limit int) (bool, int, error)

	// Prune drops timestamps older than cutoff and forgets emptied keys.
	// Returns the number of timestamps removed.
	Prune(ctx context.Context, cutoff time.Time) (int, error)

	// KeyCount returns the number of tracked keys.
	KeyCount(ctx context.Context) (int, error)

	// MemoryUsage estimates the store's footprint in bytes.
	MemoryUsage(ctx context.Context) (int64, error)
}

// Rough per-entry sizes for the MemoryUsage estimate.
const (
	keyOverheadBytes = 56
	timestampBytes   = 24
	defaultMaxKeys   = 10000
	evictionFraction = 10 // evict 1/10 of keys when full
)

type storeEntry struct {
	key   string
	times []time.Time
	elem  *list.Element
}

// MemoryStore is an in-memory Store bounded by MaxKeys. When the cap is hit
// the least recently used tenth of the keys is dropped, so a churn of
// one-shot clients cannot grow the map without bound.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*storeEntry
	lru     *list.List
	maxKeys int
}

// MemoryStoreConfig configures a MemoryStore.
type MemoryStoreConfig struct {
	// MaxKeys caps the number of tracked clients. Default 10000.
	MaxKeys int
	// Clock is unused by the store itself; callers stamp requests. Kept so
	// store construction mirrors the limiter's configuration.
	Clock Clock
}

// NewMemoryStore creates an in-memory timestamp store.
func NewMemoryStore(cfg MemoryStoreConfig) *MemoryStore {
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = defaultMaxKeys
	}
	return &MemoryStore{
		entries: make(map[string]*storeEntry),
		lru:     list.New(),
		maxKeys: cfg.MaxKeys,
	}
}

func (s *MemoryStore) Add(_ context.Context, key string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.touch(key)
	entry.times = append(entry.times, ts)
	return nil
}

func (s *MemoryStore) CountSince(_ context.Context, key string, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return 0, nil
	}
	return countSince(entry.times, cutoff), nil
}

func (s *MemoryStore) TryAdd(_ context.Context, key string, ts, cutoff time.Time, limit int) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.touch(key)
	// Compact in place while counting; the in-window suffix is all we keep.
	kept := entry.times[:0]
	for _, t := range entry.times {
		if !t.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	entry.times = kept

	if len(entry.times) >= limit {
		return false, len(entry.times), nil
	}
	entry.times = append(entry.times, ts)
	return true, len(entry.times), nil
}

func (s *MemoryStore) Prune(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		kept := entry.times[:0]
		for _, t := range entry.times {
			if !t.Before(cutoff) {
				kept = append(kept, t)
			}
		}
		removed += len(entry.times) - len(kept)
		entry.times = kept
		if len(entry.times) == 0 {
			s.lru.Remove(entry.elem)
			delete(s.entries, key)
		}
	}
	return removed, nil
}

func (s *MemoryStore) KeyCount(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

func (s *MemoryStore) MemoryUsage(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bytes int64
	for key, entry := range s.entries {
		bytes += int64(len(key)) + keyOverheadBytes
		bytes += int64(cap(entry.times)) * timestampBytes
	}
	return bytes, nil
}

// touch moves key to the front of the LRU list, creating it (and evicting if
// at capacity) when absent. Caller holds the lock.
func (s *MemoryStore) touch(key string) *storeEntry {
	if entry, ok := s.entries[key]; ok {
		s.lru.MoveToFront(entry.elem)
		return entry
	}
	if len(s.entries) >= s.maxKeys {
		s.evict()
	}
	entry := &storeEntry{key: key}
	entry.elem = s.lru.PushFront(entry)
	s.entries[key] = entry
	return entry
}

// evict drops the least recently used tenth of the keys. Caller holds the
// lock.
func (s *MemoryStore) evict() {
	drop := s.maxKeys / evictionFraction
	if drop < 1 {
		drop = 1
	}
	for i := 0; i < drop; i++ {
		back := s.lru.Back()
		if back == nil {
			return
		}
		entry := back.Value.(*storeEntry)
		s.lru.Remove(back)
		delete(s.entries, entry.key)
	}
}

func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, t := range times {
		if !t.Before(cutoff) {
			n++
		}
	}
	return n
}
