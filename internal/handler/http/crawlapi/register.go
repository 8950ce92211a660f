// Package crawlapi exposes the crawl scheduler to extraction workers: queue
// listing with published scripts attached, lease claims, result submission,
// resets, and crawl telemetry.
package crawlapi

import (
	"log/slog"
	"net/http"

	"rss-coordinator/internal/usecase/crawl"
)

// Register registers the crawl worker endpoints with the given mux.
func Register(mux *http.ServeMux, svc *crawl.Service, logger *slog.Logger) {
	mux.Handle("GET    /crawl/pending", PendingHandler{Svc: svc, Logger: logger})
	mux.Handle("POST   /crawl/claim", ClaimHandler{Svc: svc, Logger: logger})
	mux.Handle("POST   /crawl/result", ResultHandler{Svc: svc, Logger: logger})
	mux.Handle("POST   /crawl/articles/{id}/step", StepHandler{Svc: svc, Logger: logger})
	mux.Handle("POST   /crawl/articles/{id}/reset", ResetArticleHandler{Svc: svc, Logger: logger})
	mux.Handle("POST   /crawl/batches/{id}/reset", ResetBatchHandler{Svc: svc, Logger: logger})
	mux.Handle("GET    /crawl/logs", LogsHandler{Svc: svc})
	mux.Handle("GET    /crawl/stats", StatsHandler{Svc: svc})
}
