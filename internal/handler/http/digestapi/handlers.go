package digestapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/handler/http/respond"
	"rss-coordinator/internal/observability/logging"
	"rss-coordinator/internal/usecase/digest"
)

// dateLayout is the wire format for digest dates.
const dateLayout = "2006-01-02"

// parseDate parses an optional YYYY-MM-DD value, defaulting to today (UTC).
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse(dateLayout, raw)
}

// RunHandler generates the day's digests for every feed that needs one.
type RunHandler struct {
	Svc    *digest.Service
	Logger *slog.Logger
}

type runRequest struct {
	Date     string `json:"date,omitempty"`
	Language string `json:"language"`
}

type runResponse struct {
	Date      string `json:"date"`
	Language  string `json:"language"`
	Generated int    `json:"generated"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
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

	result, err := h.Svc.Run(ctx, date, entity.SummaryLanguage(req.Language))
	if err != nil {
		logger.Error("digest run failed",
			"date", date.Format(dateLayout),
			"language", req.Language,
			"error", err.Error())
		respond.DomainError(w, err)
		return
	}

	logger.Info("digest run completed",
		"date", result.Date.Format(dateLayout),
		"language", result.Language,
		"generated", result.Generated,
		"skipped", result.Skipped,
		"failed", result.Failed)

	respond.JSON(w, http.StatusOK, runResponse{
		Date:      result.Date.Format(dateLayout),
		Language:  string(result.Language),
		Generated: result.Generated,
		Skipped:   result.Skipped,
		Failed:    result.Failed,
	})
}

// PendingHandler lists feeds still missing a digest for the date, so
// summary workers can shard the day's work.
type PendingHandler struct {
	Svc *digest.Service
}

func (h PendingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date, err := parseDate(q.Get("date"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	lang := entity.SummaryLanguage(q.Get("language"))

	feedIDs, err := h.Svc.FeedsNeedingSummary(r.Context(), date, lang)
	if err != nil {
		respond.DomainError(w, err)
		return
	}
	if feedIDs == nil {
		feedIDs = []string{}
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"date":     date.UTC().Truncate(24 * time.Hour).Format(dateLayout),
		"language": string(lang),
		"feed_ids": feedIDs,
		"count":    len(feedIDs),
	})
}

// ProcessHandler generates one feed's digest on behalf of a worker.
type ProcessHandler struct {
	Svc    *digest.Service
	Logger *slog.Logger
}

func (h ProcessHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	feedID := r.PathValue("id")
	if feedID == "" {
		respond.Error(w, http.StatusBadRequest, "feed id is required")
		return
	}
	q := r.URL.Query()
	date, err := parseDate(q.Get("date"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	lang := entity.SummaryLanguage(q.Get("language"))
	workerID := q.Get("worker_id")

	start := time.Now()
	summary, created, err := h.Svc.ProcessFeedSummary(ctx, feedID, date, lang, workerID)
	if err != nil {
		logger.Error("feed digest failed",
			"feed_id", feedID,
			"worker_id", workerID,
			"error", err.Error())
		respond.DomainError(w, err)
		return
	}

	status := "exists"
	if created {
		status = "generated"
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"result": digestDTO{
			ID:             summary.ID,
			FeedID:         summary.FeedID,
			SummaryDate:    summary.SummaryDate.Format(dateLayout),
			Language:       string(summary.Language),
			SummaryTitle:   summary.SummaryTitle,
			SummaryContent: summary.SummaryContent,
			ArticleCount:   summary.ArticleCount,
			ArticleIDs:     summary.ArticleIDs,
			LLMProvider:    summary.LLMProvider,
			LLMModel:       summary.LLMModel,
		},
		"status":             status,
		"processing_time_ms": time.Since(start).Milliseconds(),
	})
}

// ListHandler returns the day's digests for a language.
type ListHandler struct {
	Svc *digest.Service
}

type digestDTO struct {
	ID             int64   `json:"id"`
	FeedID         string  `json:"feed_id"`
	SummaryDate    string  `json:"summary_date"`
	Language       string  `json:"language"`
	SummaryTitle   string  `json:"summary_title"`
	SummaryContent string  `json:"summary_content"`
	ArticleCount   int     `json:"article_count"`
	ArticleIDs     []int64 `json:"article_ids,omitempty"`
	LLMProvider    string  `json:"llm_provider,omitempty"`
	LLMModel       string  `json:"llm_model,omitempty"`
}

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date, err := parseDate(q.Get("date"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	lang := entity.SummaryLanguage(q.Get("language"))

	summaries, err := h.Svc.ListByDate(r.Context(), date, lang)
	if err != nil {
		respond.DomainError(w, err)
		return
	}

	dtos := make([]digestDTO, 0, len(summaries))
	for _, s := range summaries {
		dtos = append(dtos, digestDTO{
			ID:             s.ID,
			FeedID:         s.FeedID,
			SummaryDate:    s.SummaryDate.Format(dateLayout),
			Language:       string(s.Language),
			SummaryTitle:   s.SummaryTitle,
			SummaryContent: s.SummaryContent,
			ArticleCount:   s.ArticleCount,
			ArticleIDs:     s.ArticleIDs,
			LLMProvider:    s.LLMProvider,
			LLMModel:       s.LLMModel,
		})
	}
	respond.JSON(w, http.StatusOK, map[string]any{"digests": dtos, "count": len(dtos)})
}
