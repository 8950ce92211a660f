package assist

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/handler/http/respond"
	"rss-coordinator/internal/observability/logging"
	"rss-coordinator/internal/usecase/stream"
)

// SummarizeHandler runs a live summarization session.
type SummarizeHandler struct {
	Svc    *stream.Service
	Logger *slog.Logger
}

type summarizeRequest struct {
	ArticleID int64  `json:"article_id"`
	Language  string `json:"language"`
	Stream    *bool  `json:"stream,omitempty"`
}

func (r summarizeRequest) wantsStream() bool {
	return r.Stream == nil || *r.Stream
}

func (h SummarizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ArticleID <= 0 {
		respond.Error(w, http.StatusBadRequest, "article_id is required")
		return
	}
	lang := entity.SummaryLanguage(req.Language)
	if lang == "" {
		lang = entity.LanguageChinese
	}
	if !entity.ValidLanguage(lang) {
		respond.Error(w, http.StatusBadRequest, "language must be zh or en")
		return
	}

	if !req.wantsStream() {
		c := &collector{}
		if err := h.Svc.Summarize(ctx, req.ArticleID, lang, c.Emit); err != nil {
			respond.DomainError(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, map[string]any{
			"article_id": req.ArticleID,
			"language":   string(lang),
			"summary":    c.text.String(),
		})
		return
	}

	sse, ok := newSSEWriter(w)
	if !ok {
		respond.Error(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	if err := h.Svc.Summarize(ctx, req.ArticleID, lang, sse.Emit); err != nil {
		if !sse.Started() {
			respond.DomainError(w, err)
			return
		}
		// Terminal state already went to the client as an error event;
		// the HTTP stream itself cannot change status anymore.
		logger.Info("summarize session ended with error",
			"article_id", req.ArticleID,
			"error", err.Error())
	}
}
