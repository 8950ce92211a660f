package vectorapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"rss-coordinator/internal/handler/http/respond"
	"rss-coordinator/internal/observability/logging"
	"rss-coordinator/internal/usecase/vectorize"
)

// PendingHandler returns articles waiting for vectorization.
type PendingHandler struct {
	Svc *vectorize.Service
}

type pendingArticleDTO struct {
	ID             int64  `json:"id"`
	FeedID         string `json:"feed_id"`
	Title          string `json:"title"`
	ChineseSummary string `json:"chinese_summary,omitempty"`
	EnglishSummary string `json:"english_summary,omitempty"`
}

func (h PendingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	articles, err := h.Svc.Pending(r.Context(), limit)
	if err != nil {
		respond.DomainError(w, err)
		return
	}

	dtos := make([]pendingArticleDTO, 0, len(articles))
	for _, a := range articles {
		dtos = append(dtos, pendingArticleDTO{
			ID:             a.ID,
			FeedID:         a.FeedID,
			Title:          a.Title,
			ChineseSummary: a.ChineseSummary,
			EnglishSummary: a.EnglishSummary,
		})
	}
	respond.JSON(w, http.StatusOK, map[string]any{"articles": dtos, "count": len(dtos)})
}

// ClaimHandler moves an article to in_progress for one worker and returns
// the task id that proves the claim on the process call.
type ClaimHandler struct {
	Svc    *vectorize.Service
	Logger *slog.Logger
}

type claimRequest struct {
	ArticleID int64  `json:"article_id"`
	WorkerID  string `json:"worker_id"`
}

func (h ClaimHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ArticleID <= 0 {
		respond.Error(w, http.StatusBadRequest, "article_id is required")
		return
	}

	article, task, err := h.Svc.Claim(ctx, req.ArticleID, req.WorkerID)
	if err != nil {
		logger.Warn("vectorization claim rejected",
			"article_id", req.ArticleID,
			"worker_id", req.WorkerID,
			"error", err.Error())
		respond.DomainError(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"article": pendingArticleDTO{
			ID:             article.ID,
			FeedID:         article.FeedID,
			Title:          article.Title,
			ChineseSummary: article.ChineseSummary,
			EnglishSummary: article.EnglishSummary,
		},
		"task_id": task.ID,
		"status":  string(article.VectorizationStatus),
	})
}

// ProcessHandler runs the embed-and-upsert cycle for a claimed article.
type ProcessHandler struct {
	Svc    *vectorize.Service
	Logger *slog.Logger
}

type processRequest struct {
	ArticleID int64  `json:"article_id"`
	WorkerID  string `json:"worker_id"`
	TaskID    int64  `json:"task_id"`
}

func (h ProcessHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ArticleID <= 0 {
		respond.Error(w, http.StatusBadRequest, "article_id is required")
		return
	}

	if err := h.Svc.Process(ctx, req.ArticleID, req.WorkerID, req.TaskID); err != nil {
		logger.Error("vectorization failed",
			"article_id", req.ArticleID,
			"worker_id", req.WorkerID,
			"error", err.Error())
		respond.DomainError(w, err)
		return
	}

	logger.Info("article vectorized", "article_id", req.ArticleID)
	respond.JSON(w, http.StatusOK, map[string]any{"article_id": req.ArticleID, "status": "ok"})
}

// ResetHandler returns an article's vectorization state to pending.
type ResetHandler struct {
	Svc    *vectorize.Service
	Logger *slog.Logger
}

func (h ResetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	articleID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || articleID <= 0 {
		respond.Error(w, http.StatusBadRequest, "invalid article id")
		return
	}

	if err := h.Svc.Reset(ctx, articleID); err != nil {
		logger.Error("failed to reset vectorization", "article_id", articleID, "error", err.Error())
		respond.DomainError(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, map[string]any{"article_id": articleID, "status": "pending"})
}

// TasksHandler lists an article's vectorization attempts, newest first.
type TasksHandler struct {
	Svc *vectorize.Service
}

type taskDTO struct {
	ID           int64      `json:"id"`
	ArticleID    int64      `json:"article_id"`
	WorkerID     string     `json:"worker_id,omitempty"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (h TasksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	articleID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || articleID <= 0 {
		respond.Error(w, http.StatusBadRequest, "invalid article id")
		return
	}

	tasks, err := h.Svc.TaskHistory(r.Context(), articleID)
	if err != nil {
		respond.DomainError(w, err)
		return
	}

	dtos := make([]taskDTO, 0, len(tasks))
	for _, t := range tasks {
		dtos = append(dtos, taskDTO{
			ID:           t.ID,
			ArticleID:    t.ArticleID,
			WorkerID:     t.WorkerID,
			Status:       string(t.Status),
			ErrorMessage: t.ErrorMessage,
			StartedAt:    t.StartedAt,
			EndedAt:      t.EndedAt,
			CreatedAt:    t.CreatedAt,
		})
	}
	respond.JSON(w, http.StatusOK, map[string]any{"tasks": dtos, "count": len(dtos)})
}
