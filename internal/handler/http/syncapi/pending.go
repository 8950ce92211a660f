package syncapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"rss-coordinator/internal/handler/http/respond"
	"rss-coordinator/internal/observability/logging"
	"rss-coordinator/internal/usecase/feedsync"
)

// PendingHandler returns the sync queue in priority order.
type PendingHandler struct {
	Svc    *feedsync.Service
	Logger *slog.Logger
}

type pendingResponse struct {
	Feeds         []FeedDTO `json:"feeds"`
	Count         int       `json:"count"`
	DisabledCount int64     `json:"disabled_count"`
	Timestamp     time.Time `json:"timestamp"`
}

func (h PendingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	skipRecent := q.Get("skip_recent_success") != "false"
	var interval time.Duration
	if raw := q.Get("success_interval"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes < 0 {
			respond.Error(w, http.StatusBadRequest, "success_interval must be a non-negative number of minutes")
			return
		}
		interval = time.Duration(minutes) * time.Minute
	}

	result, err := h.Svc.PendingFeeds(ctx, limit, skipRecent, interval)
	if err != nil {
		logger.Error("failed to list pending feeds", "error", err.Error())
		respond.DomainError(w, err)
		return
	}

	dtos := make([]FeedDTO, 0, len(result.Feeds))
	for _, f := range result.Feeds {
		dtos = append(dtos, toFeedDTO(f))
	}
	respond.JSON(w, http.StatusOK, pendingResponse{
		Feeds:         dtos,
		Count:         len(dtos),
		DisabledCount: result.DisabledCount,
		Timestamp:     result.Timestamp,
	})
}
