package syncapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/handler/http/respond"
	"rss-coordinator/internal/observability/logging"
	"rss-coordinator/internal/usecase/feedsync"
)

// ResultHandler ingests a worker's sync result for one feed.
type ResultHandler struct {
	Svc    *feedsync.Service
	Logger *slog.Logger
}

type articleEntry struct {
	Title         string     `json:"title"`
	Link          string     `json:"link"`
	Summary       string     `json:"summary,omitempty"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
	ThumbnailURL  string     `json:"thumbnail_url,omitempty"`
}

type resultRequest struct {
	FeedID         string         `json:"feed_id"`
	CrawlerID      string         `json:"crawler_id"`
	Status         string         `json:"status"`
	Articles       []articleEntry `json:"articles,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	ErrorType      string         `json:"error_type,omitempty"`
	ResponseStatus int            `json:"response_status,omitempty"`
	EntriesFound   int            `json:"entries_found,omitempty"`
	StartTime      *time.Time     `json:"start_time,omitempty"`
	EndTime        *time.Time     `json:"end_time,omitempty"`
	TotalTime      float64        `json:"total_time,omitempty"`
	TriggeredBy    string         `json:"triggered_by,omitempty"`
}

type resultResponse struct {
	SyncID              string `json:"sync_id"`
	Status              string `json:"status"`
	NewArticles         int    `json:"new_articles"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	AutoDisabled        bool   `json:"auto_disabled"`
}

func (h ResultHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	var req resultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := feedsync.SubmitInput{
		FeedID:         req.FeedID,
		CrawlerID:      req.CrawlerID,
		Status:         entity.SyncStatus(req.Status),
		ErrorMessage:   req.ErrorMessage,
		ErrorType:      req.ErrorType,
		ResponseStatus: req.ResponseStatus,
		EntriesFound:   req.EntriesFound,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		TotalTime:      req.TotalTime,
		TriggeredBy:    req.TriggeredBy,
	}
	for _, a := range req.Articles {
		in.Articles = append(in.Articles, feedsync.ArticleEntry{
			Title:         a.Title,
			Link:          a.Link,
			Summary:       a.Summary,
			PublishedDate: a.PublishedDate,
			ThumbnailURL:  a.ThumbnailURL,
		})
	}

	result, err := h.Svc.SubmitResult(ctx, in)
	if err != nil {
		logger.Error("sync result rejected",
			"feed_id", req.FeedID,
			"status", req.Status,
			"error", err.Error())
		respond.DomainError(w, err)
		return
	}

	logger.Info("sync result accepted",
		"feed_id", req.FeedID,
		"status", result.Status,
		"new_articles", result.NewArticles,
		"auto_disabled", result.AutoDisabled)

	respond.JSON(w, http.StatusOK, resultResponse{
		SyncID:              result.SyncID,
		Status:              string(result.Status),
		NewArticles:         result.NewArticles,
		ConsecutiveFailures: result.ConsecutiveFailures,
		AutoDisabled:        result.AutoDisabled,
	})
}
