package crawlapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"rss-coordinator/internal/handler/http/respond"
	"rss-coordinator/internal/observability/logging"
	"rss-coordinator/internal/usecase/crawl"
)

// ClaimHandler locks an article for an extraction worker.
type ClaimHandler struct {
	Svc    *crawl.Service
	Logger *slog.Logger
}

type claimRequest struct {
	ArticleID int64  `json:"article_id"`
	CrawlerID string `json:"crawler_id"`
}

type claimResponse struct {
	ArticleID int64  `json:"article_id"`
	FeedID    string `json:"feed_id"`
	Link      string `json:"link"`
	Claimed   bool   `json:"claimed"`
}

func (h ClaimHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	article, err := h.Svc.ClaimArticle(ctx, req.ArticleID, req.CrawlerID)
	if err != nil {
		logger.Info("crawl claim rejected",
			"article_id", req.ArticleID,
			"crawler_id", req.CrawlerID,
			"error", err.Error())
		respond.DomainError(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, claimResponse{
		ArticleID: article.ID,
		FeedID:    article.FeedID,
		Link:      article.Link,
		Claimed:   true,
	})
}
