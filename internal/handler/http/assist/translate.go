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

// TranslateHandler runs a live two-phase translation session.
type TranslateHandler struct {
	Svc    *stream.Service
	Logger *slog.Logger
}

type translateRequest struct {
	ArticleID      int64  `json:"article_id"`
	TargetLanguage string `json:"target_language"`
	Stream         *bool  `json:"stream,omitempty"`
}

func (r translateRequest) wantsStream() bool {
	return r.Stream == nil || *r.Stream
}

func (h TranslateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	var req translateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ArticleID <= 0 {
		respond.Error(w, http.StatusBadRequest, "article_id is required")
		return
	}
	lang := entity.SummaryLanguage(req.TargetLanguage)
	if !entity.ValidLanguage(lang) {
		respond.Error(w, http.StatusBadRequest, "target_language must be zh or en")
		return
	}

	if !req.wantsStream() {
		c := &collector{}
		if err := h.Svc.Translate(ctx, req.ArticleID, lang, c.Emit); err != nil {
			respond.DomainError(w, err)
			return
		}
		var header string
		for _, ev := range c.events {
			if ev.Type == stream.EventTitleSummary {
				header, _ = ev.Data["text"].(string)
				break
			}
		}
		respond.JSON(w, http.StatusOK, map[string]any{
			"article_id":      req.ArticleID,
			"target_language": string(lang),
			"title_summary":   header,
			"content":         c.text.String(),
		})
		return
	}

	sse, ok := newSSEWriter(w)
	if !ok {
		respond.Error(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	if err := h.Svc.Translate(ctx, req.ArticleID, lang, sse.Emit); err != nil {
		if !sse.Started() {
			respond.DomainError(w, err)
			return
		}
		logger.Info("translate session ended with error",
			"article_id", req.ArticleID,
			"error", err.Error())
	}
}
