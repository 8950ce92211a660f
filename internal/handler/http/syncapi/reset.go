package syncapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"rss-coordinator/internal/handler/http/respond"
	"rss-coordinator/internal/observability/logging"
	"rss-coordinator/internal/usecase/feedsync"
)

// ResetHandler zeroes a feed's failure counter, optionally reactivating it.
type ResetHandler struct {
	Svc    *feedsync.Service
	Logger *slog.Logger
}

type resetRequest struct {
	Reactivate bool `json:"reactivate"`
}

func (h ResetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	feedID := r.PathValue("id")
	if feedID == "" {
		respond.Error(w, http.StatusBadRequest, "feed id is required")
		return
	}

	var req resetRequest
	if r.Body != nil {
		// Body is optional; an empty body means reset without reactivating.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.Svc.ResetFailures(ctx, feedID, req.Reactivate); err != nil {
		logger.Error("failed to reset feed failures",
			"feed_id", feedID,
			"error", err.Error())
		respond.DomainError(w, err)
		return
	}

	logger.Info("feed failures reset", "feed_id", feedID, "reactivate", req.Reactivate)
	respond.JSON(w, http.StatusOK, map[string]any{
		"feed_id":    feedID,
		"reactivate": req.Reactivate,
	})
}
