package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"rss-coordinator/internal/infra/provider"
	"rss-coordinator/internal/infra/vectorstore"
	"rss-coordinator/pkg/ratelimit"
)

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks"`
	Version   string                 `json:"version"`
}

// CheckStatus represents the status of a single health check.
type CheckStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// HealthHandler performs database, vector index, rate limiter, and provider
// checks and reports detailed health status.
type HealthHandler struct {
	DB         *sql.DB
	Version    string
	Collection string

	Vectors        vectorstore.Store  // optional
	RateLimitStore ratelimit.Store    // optional
	Providers      *provider.Registry // optional
}

// ServeHTTP returns 200 OK when all required checks pass, or 503 Service
// Unavailable when the database is unreachable. Rate limiter and provider
// checks are informational and never fail the endpoint.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]CheckStatus)
	allHealthy := true

	if h.DB != nil {
		dbCheck := h.checkDatabase(ctx)
		checks["database"] = dbCheck
		if dbCheck.Status == "unhealthy" {
			allHealthy = false
		}
	} else {
		checks["database"] = CheckStatus{Status: "unhealthy", Message: "not configured"}
		allHealthy = false
	}

	if h.Vectors != nil {
		checks["vector_index"] = h.checkVectorIndex(ctx)
	}
	if h.RateLimitStore != nil {
		checks["rate_limiter"] = h.checkRateLimiter(ctx)
	}
	if h.Providers != nil {
		checks["providers"] = h.checkProviders()
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Version:   h.Version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("health: failed to encode response: %v", err)
	}
}

// checkDatabase pings the database and reports connection pool statistics.
func (h *HealthHandler) checkDatabase(ctx context.Context) CheckStatus {
	if err := h.DB.PingContext(ctx); err != nil {
		return CheckStatus{Status: "unhealthy", Message: err.Error()}
	}

	stats := h.DB.Stats()
	details := map[string]any{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
	}

	// MaxOpenConnections of 0 means unlimited; utilization is undefined then.
	if stats.MaxOpenConnections == 0 {
		return CheckStatus{
			Status:  "degraded",
			Message: "connection pool max connections not configured",
			Details: details,
		}
	}

	utilizationPercent := float64(stats.InUse) / float64(stats.MaxOpenConnections) * 100
	details["utilization_percent"] = utilizationPercent
	if utilizationPercent >= 80.0 {
		return CheckStatus{
			Status:  "degraded",
			Message: "connection pool utilization above 80%",
			Details: details,
		}
	}

	return CheckStatus{Status: "healthy", Details: details}
}

// checkVectorIndex verifies the article embedding index exists. A missing
// index means search degrades to keyword matching, so it is reported as
// degraded rather than unhealthy.
func (h *HealthHandler) checkVectorIndex(ctx context.Context) CheckStatus {
	exists, err := h.Vectors.IndexExists(ctx, h.Collection)
	if err != nil {
		return CheckStatus{Status: "unhealthy", Message: err.Error()}
	}
	if !exists {
		return CheckStatus{
			Status:  "degraded",
			Message: "vector index not created",
			Details: map[string]any{"collection": h.Collection},
		}
	}
	return CheckStatus{Status: "healthy", Details: map[string]any{"collection": h.Collection}}
}

// checkRateLimiter reports key counts and memory usage of the limiter store.
// Always healthy: the limiter fails open, so its state is informational.
func (h *HealthHandler) checkRateLimiter(ctx context.Context) CheckStatus {
	details := make(map[string]any)
	if keyCount, err := h.RateLimitStore.KeyCount(ctx); err == nil {
		details["active_keys"] = keyCount
	}
	if memUsage, err := h.RateLimitStore.MemoryUsage(ctx); err == nil {
		details["memory_bytes"] = memUsage
	}
	return CheckStatus{Status: "healthy", Details: details}
}

// checkProviders lists the configured summarization/embedding backends.
// Provider reachability is not probed here; a probe per health poll would
// burn quota and trip provider rate limits.
func (h *HealthHandler) checkProviders() CheckStatus {
	names := h.Providers.Names()
	return CheckStatus{
		Status:  "healthy",
		Details: map[string]any{"configured": names, "count": len(names)},
	}
}

// ReadyHandler handles Kubernetes readiness probe requests.
type ReadyHandler struct {
	DB *sql.DB
}

// ServeHTTP returns 200 OK when the database accepts connections,
// 503 Service Unavailable otherwise.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.DB == nil {
		http.Error(w, "database not configured", http.StatusServiceUnavailable)
		return
	}
	if err := h.DB.PingContext(ctx); err != nil {
		http.Error(w, "database not ready: "+err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ready")); err != nil {
		log.Printf("ready: failed to write response: %v", err)
	}
}

// LiveHandler handles Kubernetes liveness probe requests. It always returns
// 200 OK while the process can serve requests.
type LiveHandler struct{}

func (h LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("alive")); err != nil {
		log.Printf("alive: failed to write response: %v", err)
	}
}
