package articleapi

import (
	"log/slog"
	"net/http"

	"rss-coordinator/internal/handler/http/pathutil"
	"rss-coordinator/internal/handler/http/respond"
	"rss-coordinator/internal/observability/logging"
	"rss-coordinator/internal/usecase/retrieve"
)

// GetHandler returns one article with its content and similar articles.
type GetHandler struct {
	Svc    *retrieve.Service
	Logger *slog.Logger
}

type similarDTO struct {
	Article    DTO     `json:"article"`
	Similarity float64 `json:"similarity"`
}

type detailResponse struct {
	Article     DTO          `json:"article"`
	TextContent string       `json:"text_content,omitempty"`
	Similar     []similarDTO `json:"similar"`
}

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	articleID, err := pathutil.ExtractID(r.URL.Path, "/articles/")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid article id")
		return
	}

	detail, err := h.Svc.Get(ctx, articleID)
	if err != nil {
		logger.Info("article lookup failed", "article_id", articleID, "error", err.Error())
		respond.DomainError(w, err)
		return
	}

	resp := detailResponse{
		Article: toDTO(detail.Article),
		Similar: make([]similarDTO, 0, len(detail.Similar)),
	}
	if detail.Content != nil {
		resp.TextContent = detail.Content.TextContent
	}
	for _, s := range detail.Similar {
		resp.Similar = append(resp.Similar, similarDTO{
			Article:    toDTO(s.Article),
			Similarity: s.Similarity,
		})
	}
	respond.JSON(w, http.StatusOK, resp)
}
