// Package admin exposes operator endpoints: feed registration and editing,
// one-shot feed previews, and extraction script management.
package admin

import (
	"log/slog"
	"net/http"

	"rss-coordinator/internal/infra/feedpreview"
	"rss-coordinator/internal/repository"
)

// Register registers the operator endpoints with the given mux.
func Register(mux *http.ServeMux, feeds repository.FeedRepository, scripts repository.ScriptRepository, previewer *feedpreview.Previewer, logger *slog.Logger) {
	mux.Handle("GET    /admin/feeds", ListFeedsHandler{Feeds: feeds})
	mux.Handle("POST   /admin/feeds", CreateFeedHandler{Feeds: feeds, Logger: logger})
	mux.Handle("GET    /admin/feeds/{id}", GetFeedHandler{Feeds: feeds})
	mux.Handle("PUT    /admin/feeds/{id}", UpdateFeedHandler{Feeds: feeds, Logger: logger})
	mux.Handle("POST   /admin/feeds/preview", PreviewHandler{Previewer: previewer, Logger: logger})

	mux.Handle("GET    /admin/feeds/{id}/scripts", ListScriptsHandler{Scripts: scripts})
	mux.Handle("POST   /admin/feeds/{id}/scripts", CreateScriptHandler{Scripts: scripts, Feeds: feeds, Logger: logger})
	mux.Handle("POST   /admin/scripts/{id}/publish", PublishScriptHandler{Scripts: scripts, Logger: logger})
}
