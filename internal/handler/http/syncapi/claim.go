package syncapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"rss-coordinator/internal/handler/http/respond"
	"rss-coordinator/internal/observability/logging"
	"rss-coordinator/internal/usecase/feedsync"
)

// ClaimHandler acquires the sync lease for a worker.
type ClaimHandler struct {
	Svc    *feedsync.Service
	Logger *slog.Logger
}

type claimRequest struct {
	FeedID    string `json:"feed_id"`
	CrawlerID string `json:"crawler_id"`
}

type claimResponse struct {
	Feed    FeedDTO `json:"feed"`
	Claimed bool    `json:"claimed"`
}

func (h ClaimHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	feed, err := h.Svc.ClaimFeed(ctx, req.FeedID, req.CrawlerID)
	if err != nil {
		logger.Info("sync claim rejected",
			"feed_id", req.FeedID,
			"crawler_id", req.CrawlerID,
			"error", err.Error())
		respond.DomainError(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, claimResponse{Feed: toFeedDTO(feed), Claimed: true})
}
