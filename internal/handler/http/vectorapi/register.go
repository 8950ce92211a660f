// Package vectorapi exposes the vectorization scheduler: queue listing,
// claim-and-process, resets, and per-article task history.
package vectorapi

import (
	"log/slog"
	"net/http"

	"rss-coordinator/internal/usecase/vectorize"
)

// Register registers the vectorization endpoints with the given mux.
func Register(mux *http.ServeMux, svc *vectorize.Service, logger *slog.Logger) {
	mux.Handle("GET    /vectorize/pending", PendingHandler{Svc: svc})
	mux.Handle("POST   /vectorize/claim", ClaimHandler{Svc: svc, Logger: logger})
	mux.Handle("POST   /vectorize/process", ProcessHandler{Svc: svc, Logger: logger})
	mux.Handle("POST   /vectorize/articles/{id}/reset", ResetHandler{Svc: svc, Logger: logger})
	mux.Handle("GET    /vectorize/articles/{id}/tasks", TasksHandler{Svc: svc})
}
