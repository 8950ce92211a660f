// Package digestapi exposes the daily digest generator: on-demand runs, the
// worker-sharded pending/process surface, and per-date listings.
package digestapi

import (
	"log/slog"
	"net/http"

	"rss-coordinator/internal/usecase/digest"
)

// Register registers the daily digest endpoints with the given mux.
func Register(mux *http.ServeMux, svc *digest.Service, logger *slog.Logger) {
	mux.Handle("POST   /digests/run", RunHandler{Svc: svc, Logger: logger})
	mux.Handle("GET    /digests/pending", PendingHandler{Svc: svc})
	mux.Handle("GET    /digests/feeds/{id}/process", ProcessHandler{Svc: svc, Logger: logger})
	mux.Handle("GET    /digests", ListHandler{Svc: svc})
}
