package articleapi

import (
	"log/slog"
	"net/http"
	"strconv"

	"rss-coordinator/internal/handler/http/respond"
	"rss-coordinator/internal/infra/vectorstore"
	"rss-coordinator/internal/observability/logging"
	"rss-coordinator/internal/usecase/retrieve"
)

const maxPerPage = 100

// SearchHandler runs a semantic search over the article corpus.
type SearchHandler struct {
	Svc    *retrieve.Service
	Logger *slog.Logger
}

type searchHitDTO struct {
	Article    DTO     `json:"article"`
	Similarity float64 `json:"similarity"`
}

type searchResponse struct {
	Query string         `json:"query"`
	Hits  []searchHitDTO `json:"hits"`
	Count int            `json:"count"`
}

func (h SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	q := r.URL.Query()
	query := q.Get("q")

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPerPage {
			respond.Error(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	var filter vectorstore.Filter
	if feedID := q.Get("feed_id"); feedID != "" {
		filter = vectorstore.Filter{"feed_id": feedID}
	}

	hits, err := h.Svc.Search(ctx, query, limit, filter)
	if err != nil {
		logger.Error("semantic search failed", "query", query, "error", err.Error())
		respond.DomainError(w, err)
		return
	}

	dtos := make([]searchHitDTO, 0, len(hits))
	for _, hit := range hits {
		dtos = append(dtos, searchHitDTO{Article: toDTO(hit.Article), Similarity: hit.Similarity})
	}
	respond.JSON(w, http.StatusOK, searchResponse{Query: query, Hits: dtos, Count: len(dtos)})
}
