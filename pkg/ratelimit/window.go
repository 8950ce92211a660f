package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Key        string
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// IsDenied reports whether the request was rejected.
func (d *Decision) IsDenied() bool { return !d.Allowed }

// ResetAtUnix returns the window reset time as a Unix timestamp for the
// X-RateLimit-Reset header.
func (d *Decision) ResetAtUnix() int64 { return d.ResetAt.Unix() }

// RetryAfterSeconds returns the retry delay in whole seconds, at least 1.
func (d *Decision) RetryAfterSeconds() int {
	seconds := int(d.RetryAfter.Seconds())
	if seconds < 1 {
		return 1
	}
	return seconds
}

// SlidingWindow admits a request when its key has fewer than limit requests
// in the trailing window. Per-key timestamps are monotonic: if the wall
// clock steps backwards, the last seen stamp is reused so in-window requests
// cannot leak out of the window early.
type SlidingWindow struct {
	clock Clock

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// NewSlidingWindow creates a sliding-window algorithm on the given clock.
func NewSlidingWindow(clock Clock) *SlidingWindow {
	if clock == nil {
		clock = SystemClock{}
	}
	return &SlidingWindow{
		clock:    clock,
		lastSeen: make(map[string]time.Time),
	}
}

// Allow checks and, when admitted, records one request for key.
func (w *SlidingWindow) Allow(ctx context.Context, key string, store Store, limit int, window time.Duration) (*Decision, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("ratelimit: limit must be positive, got %d", limit)
	}
	if window <= 0 {
		return nil, fmt.Errorf("ratelimit: window must be positive, got %v", window)
	}

	now := w.stamp(key)
	allowed, count, err := store.TryAdd(ctx, key, now, now.Add(-window), limit)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: admit %q: %w", key, err)
	}

	decision := &Decision{
		Key:     key,
		Allowed: allowed,
		Limit:   limit,
		ResetAt: now.Add(window),
	}
	if allowed {
		decision.Remaining = limit - count
	} else {
		decision.RetryAfter = window
	}
	return decision, nil
}

// TrackedKeys returns the number of keys with a skew guard entry.
func (w *SlidingWindow) TrackedKeys() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.lastSeen)
}

// ForgetBefore drops skew guard entries older than cutoff so long-gone keys
// do not pin memory.
func (w *SlidingWindow) ForgetBefore(cutoff time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for key, seen := range w.lastSeen {
		if seen.Before(cutoff) {
			delete(w.lastSeen, key)
		}
	}
}

// stamp returns a per-key timestamp that never moves backwards.
func (w *SlidingWindow) stamp(key string) time.Time {
	now := w.clock.Now()
	w.mu.Lock()
	defer w.mu.Unlock()
	if last, ok := w.lastSeen[key]; ok && now.Before(last) {
		now = last
	}
	w.lastSeen[key] = now
	return now
}
