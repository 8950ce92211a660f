// Package topicapi exposes the hot-topic aggregator: on-demand clustering
// runs and per-date group listings.
package topicapi

import (
	"log/slog"
	"net/http"

	"rss-coordinator/internal/usecase/hottopic"
)

// Register registers the hot-topic endpoints with the given mux.
func Register(mux *http.ServeMux, svc *hottopic.Service, logger *slog.Logger) {
	mux.Handle("POST   /topics/run", RunHandler{Svc: svc, Logger: logger})
	mux.Handle("GET    /topics", ListHandler{Svc: svc})
}
