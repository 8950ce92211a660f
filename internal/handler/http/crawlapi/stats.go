package crawlapi

import (
	"net/http"
	"strconv"
	"time"

	"rss-coordinator/internal/handler/http/respond"
	"rss-coordinator/internal/repository"
	"rss-coordinator/internal/usecase/crawl"
)

// StatsHandler reports aggregate crawl telemetry counters.
type StatsHandler struct {
	Svc *crawl.Service
}

type statsResponse struct {
	TotalBatches  int64   `json:"total_batches"`
	OKBatches     int64   `json:"ok_batches"`
	FailedBatches int64   `json:"failed_batches"`
	AvgProcessing float64 `json:"avg_processing_seconds"`
}

func (h StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.Stats(r.Context())
	if err != nil {
		respond.DomainError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, statsResponse{
		TotalBatches:  stats.TotalBatches,
		OKBatches:     stats.OKBatches,
		FailedBatches: stats.FailedBatches,
		AvgProcessing: stats.AvgProcessing,
	})
}

// LogsHandler lists crawl stage logs filtered by batch or article.
type LogsHandler struct {
	Svc *crawl.Service
}

type logDTO struct {
	ID         int64     `json:"id"`
	BatchID    string    `json:"batch_id"`
	ArticleID  int64     `json:"article_id"`
	Stage      string    `json:"stage"`
	Status     string    `json:"status"`
	Message    string    `json:"message,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

func (h LogsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.CrawlLogFilter{BatchID: q.Get("batch_id")}
	if raw := q.Get("article_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respond.Error(w, http.StatusBadRequest, "invalid article_id")
			return
		}
		filter.ArticleID = id
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respond.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	logs, err := h.Svc.Logs(r.Context(), filter)
	if err != nil {
		respond.DomainError(w, err)
		return
	}

	dtos := make([]logDTO, 0, len(logs))
	for _, l := range logs {
		dtos = append(dtos, logDTO{
			ID:         l.ID,
			BatchID:    l.BatchID,
			ArticleID:  l.ArticleID,
			Stage:      l.Stage,
			Status:     l.Status,
			Message:    l.Message,
			DurationMS: l.DurationMS,
			CreatedAt:  l.CreatedAt,
		})
	}
	respond.JSON(w, http.StatusOK, map[string]any{"logs": dtos, "count": len(dtos)})
}
