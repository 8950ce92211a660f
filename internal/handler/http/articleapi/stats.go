package articleapi

import (
	"net/http"
	"time"

	"rss-coordinator/internal/handler/http/respond"
	"rss-coordinator/internal/usecase/retrieve"
)

// StatsHandler reports vectorization counters and the vector store size.
type StatsHandler struct {
	Svc *retrieve.Service
}

type statsResponse struct {
	Pending     int64     `json:"pending"`
	InProgress  int64     `json:"in_progress"`
	OK          int64     `json:"ok"`
	Failed      int64     `json:"failed"`
	VectorCount int64     `json:"vector_count"`
	Collection  string    `json:"collection"`
	GeneratedAt time.Time `json:"generated_at"`
}

func (h StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.Stats(r.Context())
	if err != nil {
		respond.DomainError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, statsResponse{
		Pending:     stats.Vectorization.Pending,
		InProgress:  stats.Vectorization.InProgress,
		OK:          stats.Vectorization.OK,
		Failed:      stats.Vectorization.Failed,
		VectorCount: stats.VectorCount,
		Collection:  stats.Collection,
		GeneratedAt: stats.GeneratedAt,
	})
}
