package crawlapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"rss-coordinator/internal/handler/http/respond"
	"rss-coordinator/internal/observability/logging"
	"rss-coordinator/internal/repository"
	"rss-coordinator/internal/usecase/crawl"
)

// StepHandler records one pipeline step outcome reported by a worker.
type StepHandler struct {
	Svc    *crawl.Service
	Logger *slog.Logger
}

type stepRequest struct {
	Step         string `json:"step"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

func (h StepHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	articleID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || articleID <= 0 {
		respond.Error(w, http.StatusBadRequest, "invalid article id")
		return
	}

	var req stepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status != "ok" && req.Status != "failed" {
		respond.Error(w, http.StatusBadRequest, "status must be ok or failed")
		return
	}

	upd := repository.ProcessingStepUpdate{
		ArticleID:    articleID,
		Step:         req.Step,
		OK:           req.Status == "ok",
		ErrorMessage: req.ErrorMessage,
	}
	if err := h.Svc.RecordStep(ctx, upd); err != nil {
		logger.Error("failed to record processing step",
			"article_id", articleID, "step", req.Step, "error", err.Error())
		respond.DomainError(w, err)
		return
	}

	logger.Info("processing step recorded",
		"article_id", articleID, "step", req.Step, "status", req.Status)
	respond.JSON(w, http.StatusOK, map[string]any{
		"article_id": articleID,
		"step":       req.Step,
		"status":     req.Status,
	})
}
