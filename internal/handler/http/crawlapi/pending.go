package crawlapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"rss-coordinator/internal/handler/http/respond"
	"rss-coordinator/internal/observability/logging"
	"rss-coordinator/internal/usecase/crawl"
)

// PendingHandler returns the crawl queue with published extraction scripts.
type PendingHandler struct {
	Svc    *crawl.Service
	Logger *slog.Logger
}

type pendingArticleDTO struct {
	ID            int64      `json:"id"`
	FeedID        string     `json:"feed_id"`
	Link          string     `json:"link"`
	Title         string     `json:"title"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	Script        *scriptDTO `json:"script,omitempty"`
}

type scriptDTO struct {
	ID      int64  `json:"id"`
	FeedID  string `json:"feed_id"`
	Version int    `json:"version"`
	Script  string `json:"script"`
}

type pendingResponse struct {
	Articles []pendingArticleDTO `json:"articles"`
	Count    int                 `json:"count"`
}

func (h PendingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	pending, err := h.Svc.PendingArticles(ctx, limit)
	if err != nil {
		logger.Error("failed to list pending articles", "error", err.Error())
		respond.DomainError(w, err)
		return
	}

	dtos := make([]pendingArticleDTO, 0, len(pending))
	for _, p := range pending {
		dto := pendingArticleDTO{
			ID:            p.Article.ID,
			FeedID:        p.Article.FeedID,
			Link:          p.Article.Link,
			Title:         p.Article.Title,
			PublishedDate: p.Article.PublishedDate,
			RetryCount:    p.Article.RetryCount,
			MaxRetries:    p.Article.MaxRetries,
		}
		if p.Script != nil {
			dto.Script = &scriptDTO{
				ID:      p.Script.ID,
				FeedID:  p.Script.FeedID,
				Version: p.Script.Version,
				Script:  p.Script.Script,
			}
		}
		dtos = append(dtos, dto)
	}
	respond.JSON(w, http.StatusOK, pendingResponse{Articles: dtos, Count: len(dtos)})
}
