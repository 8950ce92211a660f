package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/handler/http/respond"
	"rss-coordinator/internal/infra/feedpreview"
	"rss-coordinator/internal/observability/logging"
)

// PreviewHandler fetches and parses a feed once without registering it.
type PreviewHandler struct {
	Previewer *feedpreview.Previewer
	Logger    *slog.Logger
}

type previewRequest struct {
	URL string `json:"url"`
}

type previewItemDTO struct {
	Title         string     `json:"title"`
	Link          string     `json:"link"`
	Summary       string     `json:"summary,omitempty"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
	ThumbnailURL  string     `json:"thumbnail_url,omitempty"`
}

type previewResponse struct {
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Link        string           `json:"link,omitempty"`
	ItemCount   int              `json:"item_count"`
	Items       []previewItemDTO `json:"items"`
}

func (h PreviewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := entity.ValidateURL(req.URL); err != nil {
		respond.DomainError(w, err)
		return
	}

	result, err := h.Previewer.Preview(ctx, req.URL)
	if err != nil {
		logger.Warn("feed preview failed", "url", req.URL, "error", err.Error())
		respond.Error(w, http.StatusBadGateway, "failed to fetch or parse feed")
		return
	}

	resp := previewResponse{
		Title:       result.Title,
		Description: result.Description,
		Link:        result.Link,
		ItemCount:   result.ItemCount,
		Items:       make([]previewItemDTO, 0, len(result.Items)),
	}
	for _, item := range result.Items {
		resp.Items = append(resp.Items, previewItemDTO{
			Title:         item.Title,
			Link:          item.Link,
			Summary:       item.Summary,
			PublishedDate: item.PublishedDate,
			ThumbnailURL:  item.ThumbnailURL,
		})
	}
	respond.JSON(w, http.StatusOK, resp)
}
