package crawlapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/handler/http/respond"
	"rss-coordinator/internal/observability/logging"
	"rss-coordinator/internal/usecase/crawl"
)

// ResultHandler ingests a worker's extraction result for one article.
type ResultHandler struct {
	Svc    *crawl.Service
	Logger *slog.Logger
}

type stageLog struct {
	Stage      string `json:"stage"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
}

type resultRequest struct {
	ArticleID    int64      `json:"article_id"`
	CrawlerID    string     `json:"crawler_id"`
	BatchID      string     `json:"batch_id,omitempty"`
	Status       string     `json:"status"`
	HTMLContent  string     `json:"html_content,omitempty"`
	TextContent  string     `json:"text_content,omitempty"`
	ErrorStage   string     `json:"error_stage,omitempty"`
	ErrorType    string     `json:"error_type,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	HTTPStatus   int        `json:"http_status,omitempty"`
	ContentHash  string     `json:"content_hash,omitempty"`
	ImageCount   int        `json:"image_count,omitempty"`
	LinkCount    int        `json:"link_count,omitempty"`
	VideoCount   int        `json:"video_count,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	TotalTime    float64    `json:"total_time,omitempty"`
	Logs         []stageLog `json:"logs,omitempty"`
}

type resultResponse struct {
	BatchID   string `json:"batch_id"`
	Status    string `json:"status"`
	ContentID *int64 `json:"content_id,omitempty"`
}

func (h ResultHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	var req resultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := crawl.SubmitInput{
		ArticleID:    req.ArticleID,
		CrawlerID:    req.CrawlerID,
		BatchID:      req.BatchID,
		Status:       entity.ArticleStatus(req.Status),
		HTMLContent:  req.HTMLContent,
		TextContent:  req.TextContent,
		ErrorStage:   req.ErrorStage,
		ErrorType:    req.ErrorType,
		ErrorMessage: req.ErrorMessage,
		HTTPStatus:   req.HTTPStatus,
		ContentHash:  req.ContentHash,
		ImageCount:   req.ImageCount,
		LinkCount:    req.LinkCount,
		VideoCount:   req.VideoCount,
		StartedAt:    req.StartedAt,
		EndedAt:      req.EndedAt,
		TotalTime:    req.TotalTime,
	}
	for _, l := range req.Logs {
		in.Logs = append(in.Logs, crawl.StageLog{
			Stage:      l.Stage,
			Status:     l.Status,
			Message:    l.Message,
			DurationMS: l.DurationMS,
		})
	}

	result, err := h.Svc.SubmitResult(ctx, in)
	if err != nil {
		logger.Error("crawl result rejected",
			"article_id", req.ArticleID,
			"status", req.Status,
			"error", err.Error())
		respond.DomainError(w, err)
		return
	}

	logger.Info("crawl result accepted",
		"article_id", req.ArticleID,
		"batch_id", result.BatchID,
		"status", result.Status)

	respond.JSON(w, http.StatusOK, resultResponse{
		BatchID:   result.BatchID,
		Status:    string(result.Status),
		ContentID: result.ContentID,
	})
}
