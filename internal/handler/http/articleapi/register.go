// Package articleapi is the read-side HTTP surface: article listings, detail
// with similar articles, semantic search, and corpus statistics.
package articleapi

import (
	"log/slog"
	"net/http"

	"rss-coordinator/internal/common/pagination"
	"rss-coordinator/internal/usecase/retrieve"
)

// Register registers the article read endpoints with the given mux.
func Register(mux *http.ServeMux, svc *retrieve.Service, paginationCfg pagination.Config, logger *slog.Logger) {
	mux.Handle("GET    /articles", ListHandler{Svc: svc, Pagination: paginationCfg, Logger: logger})
	mux.Handle("GET    /articles/search", SearchHandler{Svc: svc, Logger: logger})
	mux.Handle("GET    /articles/stats", StatsHandler{Svc: svc})
	mux.Handle("GET    /articles/", GetHandler{Svc: svc, Logger: logger})
}
