package syncapi

import (
	"net/http"

	"rss-coordinator/internal/handler/http/respond"
	"rss-coordinator/internal/usecase/feedsync"
)

// StatsHandler reports aggregate sync counters.
type StatsHandler struct {
	Svc *feedsync.Service
}

type statsResponse struct {
	TotalSyncs    int64 `json:"total_syncs"`
	OKSyncs       int64 `json:"ok_syncs"`
	FailedSyncs   int64 `json:"failed_syncs"`
	TotalArticles int64 `json:"total_articles"`
}

func (h StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.Stats(r.Context())
	if err != nil {
		respond.DomainError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, statsResponse{
		TotalSyncs:    stats.TotalSyncs,
		OKSyncs:       stats.OKSyncs,
		FailedSyncs:   stats.FailedSyncs,
		TotalArticles: stats.TotalArticles,
	})
}
