package topicapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"rss-coordinator/internal/handler/http/respond"
	"rss-coordinator/internal/observability/logging"
	"rss-coordinator/internal/usecase/hottopic"
)

const dateLayout = "2006-01-02"

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse(dateLayout, raw)
}

// RunHandler clusters the day's raw topics into unified groups.
type RunHandler struct {
	Svc    *hottopic.Service
	Logger *slog.Logger
}

type runRequest struct {
	Date string `json:"date,omitempty"`
}

type runResponse struct {
	Date      string `json:"date"`
	RawTopics int    `json:"raw_topics"`
	Groups    int    `json:"groups"`
	Dropped   int    `json:"dropped"`
}

func (h RunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	result, err := h.Svc.Run(ctx, date)
	if err != nil {
		logger.Error("hot topic run failed",
			"date", date.Format(dateLayout),
			"error", err.Error())
		respond.DomainError(w, err)
		return
	}

	logger.Info("hot topic run completed",
		"date", result.Date.Format(dateLayout),
		"raw_topics", result.RawTopics,
		"groups", result.Groups,
		"dropped", result.Dropped)

	respond.JSON(w, http.StatusOK, runResponse{
		Date:      result.Date.Format(dateLayout),
		RawTopics: result.RawTopics,
		Groups:    result.Groups,
		Dropped:   result.Dropped,
	})
}

// ListHandler returns the day's clustered topic groups.
type ListHandler struct {
	Svc *hottopic.Service
}

type topicDTO struct {
	ID                int64    `json:"id"`
	TopicDate         string   `json:"topic_date"`
	UnifiedTitle      string   `json:"unified_title"`
	UnifiedSummary    string   `json:"unified_summary"`
	Keywords          []string `json:"keywords"`
	Category          string   `json:"category"`
	SourcePlatforms   []string `json:"source_platforms"`
	TopicCount        int      `json:"topic_count"`
	RepresentativeURL string   `json:"representative_url,omitempty"`
}

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	topics, err := h.Svc.TopicsByDate(r.Context(), date)
	if err != nil {
		respond.DomainError(w, err)
		return
	}

	dtos := make([]topicDTO, 0, len(topics))
	for _, t := range topics {
		dtos = append(dtos, topicDTO{
			ID:                t.ID,
			TopicDate:         t.TopicDate.Format(dateLayout),
			UnifiedTitle:      t.UnifiedTitle,
			UnifiedSummary:    t.UnifiedSummary,
			Keywords:          t.Keywords,
			Category:          string(t.Category),
			SourcePlatforms:   t.SourcePlatforms,
			TopicCount:        t.TopicCount,
			RepresentativeURL: t.RepresentativeURL,
		})
	}
	respond.JSON(w, http.StatusOK, map[string]any{"topics": dtos, "count": len(dtos)})
}
