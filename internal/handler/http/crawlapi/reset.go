package crawlapi

import (
	"log/slog"
	"net/http"
	"strconv"

	"rss-coordinator/internal/handler/http/respond"
	"rss-coordinator/internal/observability/logging"
	"rss-coordinator/internal/usecase/crawl"
)

// ResetArticleHandler returns an article to the pending state.
type ResetArticleHandler struct {
	Svc    *crawl.Service
	Logger *slog.Logger
}

func (h ResetArticleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	articleID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || articleID <= 0 {
		respond.Error(w, http.StatusBadRequest, "invalid article id")
		return
	}

	if err := h.Svc.ResetArticle(ctx, articleID); err != nil {
		logger.Error("failed to reset article", "article_id", articleID, "error", err.Error())
		respond.DomainError(w, err)
		return
	}

	logger.Info("article reset", "article_id", articleID)
	respond.JSON(w, http.StatusOK, map[string]any{"article_id": articleID, "status": "pending"})
}

// ResetBatchHandler resets the article behind a crawl batch and deletes the
// batch's stage logs.
type ResetBatchHandler struct {
	Svc    *crawl.Service
	Logger *slog.Logger
}

func (h ResetBatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	batchID := r.PathValue("id")
	if batchID == "" {
		respond.Error(w, http.StatusBadRequest, "batch id is required")
		return
	}

	if err := h.Svc.ResetBatch(ctx, batchID); err != nil {
		logger.Error("failed to reset batch", "batch_id", batchID, "error", err.Error())
		respond.DomainError(w, err)
		return
	}

	logger.Info("batch reset", "batch_id", batchID)
	respond.JSON(w, http.StatusOK, map[string]any{"batch_id": batchID, "status": "pending"})
}
