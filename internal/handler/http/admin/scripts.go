package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/handler/http/respond"
	"rss-coordinator/internal/observability/logging"
	"rss-coordinator/internal/repository"
)

type scriptDTO struct {
	ID          int64     `json:"id"`
	FeedID      string    `json:"feed_id"`
	Version     int       `json:"version"`
	Script      string    `json:"script"`
	Description string    `json:"description,omitempty"`
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toScriptDTO(s *entity.ExtractionScript) scriptDTO {
	return scriptDTO{
		ID:          s.ID,
		FeedID:      s.FeedID,
		Version:     s.Version,
		Script:      s.Script,
		Description: s.Description,
		IsPublished: s.IsPublished,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// ListScriptsHandler returns all script versions for a feed, newest first.
type ListScriptsHandler struct {
	Scripts repository.ScriptRepository
}

func (h ListScriptsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	feedID := r.PathValue("id")
	scripts, err := h.Scripts.ListByFeed(r.Context(), feedID)
	if err != nil {
		respond.DomainError(w, err)
		return
	}
	dtos := make([]scriptDTO, 0, len(scripts))
	for _, s := range scripts {
		dtos = append(dtos, toScriptDTO(s))
	}
	respond.JSON(w, http.StatusOK, map[string]any{"feed_id": feedID, "scripts": dtos, "count": len(dtos)})
}

// CreateScriptHandler stores a new unpublished script version for a feed.
// Version numbering is derived from the existing versions, not client-supplied.
type CreateScriptHandler struct {
	Scripts repository.ScriptRepository
	Feeds   repository.FeedRepository
	Logger  *slog.Logger
}

type createScriptRequest struct {
	Script      string `json:"script"`
	Description string `json:"description,omitempty"`
}

func (h CreateScriptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	feedID := r.PathValue("id")
	feed, err := h.Feeds.Get(ctx, feedID)
	if err != nil {
		respond.DomainError(w, err)
		return
	}
	if feed == nil {
		respond.Error(w, http.StatusNotFound, "feed not found")
		return
	}

	var req createScriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	existing, err := h.Scripts.ListByFeed(ctx, feedID)
	if err != nil {
		respond.DomainError(w, err)
		return
	}
	version := 1
	if len(existing) > 0 {
		version = existing[0].Version + 1
	}

	script := &entity.ExtractionScript{
		FeedID:      feedID,
		Version:     version,
		Script:      req.Script,
		Description: req.Description,
	}
	if err := script.Validate(); err != nil {
		respond.DomainError(w, err)
		return
	}
	if err := h.Scripts.Create(ctx, script); err != nil {
		logger.Error("failed to create script", "feed_id", feedID, "error", err.Error())
		respond.DomainError(w, err)
		return
	}

	logger.Info("script created", "feed_id", feedID, "script_id", script.ID, "version", version)
	respond.JSON(w, http.StatusCreated, toScriptDTO(script))
}

// PublishScriptHandler marks a script version as the one workers receive.
// Any previously published version for the same feed is unpublished.
type PublishScriptHandler struct {
	Scripts repository.ScriptRepository
	Logger  *slog.Logger
}

func (h PublishScriptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	scriptID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || scriptID <= 0 {
		respond.Error(w, http.StatusBadRequest, "invalid script id")
		return
	}

	if err := h.Scripts.Publish(ctx, scriptID); err != nil {
		logger.Error("failed to publish script", "script_id", scriptID, "error", err.Error())
		respond.DomainError(w, err)
		return
	}

	logger.Info("script published", "script_id", scriptID)
	respond.JSON(w, http.StatusOK, map[string]any{"script_id": scriptID, "published": true})
}
