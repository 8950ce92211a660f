package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/handler/http/respond"
	"rss-coordinator/internal/observability/logging"
	"rss-coordinator/internal/repository"
)

// FeedDTO is the operator-facing view of a feed, including sync health.
type FeedDTO struct {
	ID                   string            `json:"id"`
	URL                  string            `json:"url"`
	CategoryID           string            `json:"category_id,omitempty"`
	Title                string            `json:"title,omitempty"`
	Description          string            `json:"description,omitempty"`
	Logo                 string            `json:"logo,omitempty"`
	IsActive             bool              `json:"is_active"`
	DisableReason        string            `json:"disable_reason,omitempty"`
	LastSyncAt           *time.Time        `json:"last_sync_at,omitempty"`
	LastSuccessfulSyncAt *time.Time        `json:"last_successful_sync_at,omitempty"`
	LastSyncStatus       string            `json:"last_sync_status"`
	ConsecutiveFailures  int               `json:"consecutive_failures"`
	LastSyncError        string            `json:"last_sync_error,omitempty"`
	CrawlWithJS          bool              `json:"crawl_with_js"`
	CrawlDelaySec        int               `json:"crawl_delay_sec,omitempty"`
	CustomHeaders        map[string]string `json:"custom_headers,omitempty"`
	UseProxy             bool              `json:"use_proxy"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

func toFeedDTO(f *entity.Feed) FeedDTO {
	return FeedDTO{
		ID:                   f.ID,
		URL:                  f.URL,
		CategoryID:           f.CategoryID,
		Title:                f.Title,
		Description:          f.Description,
		Logo:                 f.Logo,
		IsActive:             f.IsActive,
		DisableReason:        f.DisableReason,
		LastSyncAt:           f.LastSyncAt,
		LastSuccessfulSyncAt: f.LastSuccessfulSyncAt,
		LastSyncStatus:       string(f.LastSyncStatus),
		ConsecutiveFailures:  f.ConsecutiveFailures,
		LastSyncError:        f.LastSyncError,
		CrawlWithJS:          f.CrawlWithJS,
		CrawlDelaySec:        f.CrawlDelaySec,
		CustomHeaders:        f.CustomHeaders,
		UseProxy:             f.UseProxy,
		CreatedAt:            f.CreatedAt,
		UpdatedAt:            f.UpdatedAt,
	}
}

// feedRequest carries the editable fields of a feed.
type feedRequest struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	CategoryID    string            `json:"category_id,omitempty"`
	Title         string            `json:"title,omitempty"`
	Description   string            `json:"description,omitempty"`
	Logo          string            `json:"logo,omitempty"`
	IsActive      *bool             `json:"is_active,omitempty"`
	CrawlWithJS   bool              `json:"crawl_with_js,omitempty"`
	CrawlDelaySec int               `json:"crawl_delay_sec,omitempty"`
	CustomHeaders map[string]string `json:"custom_headers,omitempty"`
	UseProxy      bool              `json:"use_proxy,omitempty"`
}

// ListFeedsHandler returns every registered feed.
type ListFeedsHandler struct {
	Feeds repository.FeedRepository
}

func (h ListFeedsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	feeds, err := h.Feeds.List(r.Context())
	if err != nil {
		respond.DomainError(w, err)
		return
	}
	dtos := make([]FeedDTO, 0, len(feeds))
	for _, f := range feeds {
		dtos = append(dtos, toFeedDTO(f))
	}
	respond.JSON(w, http.StatusOK, map[string]any{"feeds": dtos, "count": len(dtos)})
}

// GetFeedHandler returns one feed by id.
type GetFeedHandler struct {
	Feeds repository.FeedRepository
}

func (h GetFeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	feed, err := h.Feeds.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respond.DomainError(w, err)
		return
	}
	if feed == nil {
		respond.Error(w, http.StatusNotFound, "feed not found")
		return
	}
	respond.JSON(w, http.StatusOK, toFeedDTO(feed))
}

// CreateFeedHandler registers a new feed.
type CreateFeedHandler struct {
	Feeds  repository.FeedRepository
	Logger *slog.Logger
}

func (h CreateFeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	var req feedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	feed := &entity.Feed{
		ID:            req.ID,
		URL:           req.URL,
		CategoryID:    req.CategoryID,
		Title:         req.Title,
		Description:   req.Description,
		Logo:          req.Logo,
		IsActive:      true,
		CrawlWithJS:   req.CrawlWithJS,
		CrawlDelaySec: req.CrawlDelaySec,
		CustomHeaders: req.CustomHeaders,
		UseProxy:      req.UseProxy,
	}
	if req.IsActive != nil {
		feed.IsActive = *req.IsActive
	}
	if err := feed.Validate(); err != nil {
		respond.DomainError(w, err)
		return
	}

	if err := h.Feeds.Create(ctx, feed); err != nil {
		logger.Error("failed to create feed", "feed_id", feed.ID, "error", err.Error())
		respond.DomainError(w, err)
		return
	}

	logger.Info("feed created", "feed_id", feed.ID, "url", feed.URL)
	respond.JSON(w, http.StatusCreated, toFeedDTO(feed))
}

// UpdateFeedHandler rewrites a feed's descriptive fields.
type UpdateFeedHandler struct {
	Feeds  repository.FeedRepository
	Logger *slog.Logger
}

func (h UpdateFeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	var req feedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.URL != "" {
		feed.URL = req.URL
	}
	if req.CategoryID != "" {
		feed.CategoryID = req.CategoryID
	}
	if req.Title != "" {
		feed.Title = req.Title
	}
	if req.Description != "" {
		feed.Description = req.Description
	}
	if req.Logo != "" {
		feed.Logo = req.Logo
	}
	if req.IsActive != nil {
		feed.IsActive = *req.IsActive
	}
	feed.CrawlWithJS = req.CrawlWithJS
	feed.CrawlDelaySec = req.CrawlDelaySec
	if req.CustomHeaders != nil {
		feed.CustomHeaders = req.CustomHeaders
	}
	feed.UseProxy = req.UseProxy

	if err := feed.Validate(); err != nil {
		respond.DomainError(w, err)
		return
	}
	if err := h.Feeds.Update(ctx, feed); err != nil {
		logger.Error("failed to update feed", "feed_id", feedID, "error", err.Error())
		respond.DomainError(w, err)
		return
	}

	logger.Info("feed updated", "feed_id", feedID)
	respond.JSON(w, http.StatusOK, toFeedDTO(feed))
}
