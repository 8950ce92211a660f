// Package syncapi exposes the feed-sync scheduler to polling workers:
// queue listing, lease claims, result submission, and sync statistics.
package syncapi

import (
	"log/slog"
	"net/http"

	"rss-coordinator/internal/usecase/feedsync"
)

// Register registers the feed-sync worker endpoints with the given mux.
func Register(mux *http.ServeMux, svc *feedsync.Service, logger *slog.Logger) {
	mux.Handle("GET    /sync/pending", PendingHandler{Svc: svc, Logger: logger})
	mux.Handle("POST   /sync/claim", ClaimHandler{Svc: svc, Logger: logger})
	mux.Handle("POST   /sync/result", ResultHandler{Svc: svc, Logger: logger})
	mux.Handle("GET    /sync/stats", StatsHandler{Svc: svc})
	mux.Handle("POST   /sync/feeds/{id}/reset", ResetHandler{Svc: svc, Logger: logger})
}
