package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"rss-coordinator/internal/handler/http/respond"
	"rss-coordinator/pkg/ratelimit"
)

// RateLimiter enforces a sliding-window request limit per client. A client
// that exceeds the limit is blocked for a fixed duration rather than being
// admitted again the moment the window slides past old requests.
//
// Clients are keyed by application key and source IP combined; anonymous
// requests are keyed by IP alone.
type RateLimiter struct {
	store     ratelimit.Store
	algorithm *ratelimit.SlidingWindow
	metrics   ratelimit.Metrics
	clock     ratelimit.Clock
	logger    *slog.Logger

	limit    int
	window   time.Duration
	blockFor time.Duration

	mu      sync.Mutex
	blocked map[string]time.Time
}

// Store exposes the underlying key store for health reporting.
func (rl *RateLimiter) Store() ratelimit.Store {
	return rl.store
}

// RateLimiterConfig configures a RateLimiter.
type RateLimiterConfig struct {
	// Limit is the maximum number of requests per window. Default 60.
	Limit int
	// Window is the sliding window duration. Default 1 minute.
	Window time.Duration
	// BlockFor is how long a client stays blocked after exceeding the
	// limit. Default 1 minute.
	BlockFor time.Duration
	// MaxKeys caps the number of tracked clients. Default 10000.
	MaxKeys int

	Metrics ratelimit.Metrics
	Clock   ratelimit.Clock
	Logger  *slog.Logger
}

// NewRateLimiter creates a rate limiting middleware backed by an in-memory
// sliding window store.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.Limit <= 0 {
		cfg.Limit = 60
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.BlockFor <= 0 {
		cfg.BlockFor = time.Minute
	}
	if cfg.Clock == nil {
		cfg.Clock = ratelimit.SystemClock{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = ratelimit.NopMetrics{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	store := ratelimit.NewMemoryStore(ratelimit.MemoryStoreConfig{
		MaxKeys: cfg.MaxKeys,
		Clock:   cfg.Clock,
	})

	return &RateLimiter{
		store:     store,
		algorithm: ratelimit.NewSlidingWindow(cfg.Clock),
		metrics:   cfg.Metrics,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		limit:     cfg.Limit,
		window:    cfg.Window,
		blockFor:  cfg.BlockFor,
		blocked:   make(map[string]time.Time),
	}
}

// Limit applies rate limiting to incoming requests.
// Returns 429 Too Many Requests while the client is over limit or blocked.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.clientKey(r)
		now := rl.clock.Now()

		if until, ok := rl.blockedUntil(key, now); ok {
			rl.metrics.RecordDenied("client", r.URL.Path)
			rl.deny(w, until.Sub(now))
			return
		}

		decision, err := rl.algorithm.Allow(r.Context(), key, rl.store, rl.limit, rl.window)
		if err != nil {
			// Fail open: a broken limiter must not take the API down.
			rl.logger.Warn("rate limit check failed", slog.String("error", err.Error()))
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(decision.Remaining, 0)))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAtUnix(), 10))

		if decision.IsDenied() {
			rl.block(key, now.Add(rl.blockFor))
			rl.metrics.RecordDenied("client", r.URL.Path)
			rl.deny(w, rl.blockFor)
			return
		}

		rl.metrics.RecordAllowed("client", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) deny(w http.ResponseWriter, retryAfter time.Duration) {
	seconds := int64(retryAfter.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
	respond.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
}

// clientKey combines the application key with the source IP, so one app key
// shared across hosts budgets each host separately and a spoofed key cannot
// starve other callers on the same address.
func (rl *RateLimiter) clientKey(r *http.Request) string {
	ip := "ip:" + extractIP(r)
	if key := AppKeyFromContext(r.Context()); key != "" {
		return "app:" + key + "|" + ip
	}
	return ip
}

func (rl *RateLimiter) blockedUntil(key string, now time.Time) (time.Time, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	until, ok := rl.blocked[key]
	if !ok {
		return time.Time{}, false
	}
	if now.After(until) {
		delete(rl.blocked, key)
		return time.Time{}, false
	}
	return until, true
}

func (rl *RateLimiter) block(key string, until time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.blocked[key] = until
}
