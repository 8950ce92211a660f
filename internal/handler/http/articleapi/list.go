package articleapi

import (
	"log/slog"
	"net/http"

	"rss-coordinator/internal/common/pagination"
	"rss-coordinator/internal/handler/http/respond"
	"rss-coordinator/internal/observability/logging"
	"rss-coordinator/internal/repository"
	"rss-coordinator/internal/usecase/retrieve"
)

// ListHandler returns one page of the filtered article listing.
type ListHandler struct {
	Svc        *retrieve.Service
	Pagination pagination.Config
	Logger     *slog.Logger
}

type listResponse struct {
	Articles    []DTO `json:"articles"`
	Total       int64 `json:"total"`
	Pages       int   `json:"pages"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
}

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(ctx, h.Logger)

	params, err := pagination.ParseQueryParams(r, h.Pagination)
	if err != nil {
		pagination.RecordError("validation")
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	page := repository.Page{Page: params.Page, PerPage: params.Limit}

	q := r.URL.Query()
	filter := repository.ArticleFilter{}
	if v := q.Get("feed_id"); v != "" {
		filter["feed_id"] = v
	}
	if v := q.Get("status"); v != "" {
		filter["status"] = v
	}
	if v := q.Get("vectorization_status"); v != "" {
		filter["vectorization_status"] = v
	}

	result, err := h.Svc.List(ctx, filter, page)
	if err != nil {
		logger.Error("failed to list articles",
			"page", page.Page,
			"error", err.Error())
		respond.DomainError(w, err)
		return
	}

	dtos := make([]DTO, 0, len(result.List))
	for _, a := range result.List {
		dtos = append(dtos, toDTO(a))
	}
	pagination.RecordRequest(http.StatusOK, params.Page)
	pagination.UpdateTotalCount(result.Total)
	respond.JSON(w, http.StatusOK, listResponse{
		Articles:    dtos,
		Total:       result.Total,
		Pages:       result.Pages,
		CurrentPage: result.CurrentPage,
		PerPage:     result.PerPage,
	})
}
