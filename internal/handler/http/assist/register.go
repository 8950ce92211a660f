// Package assist exposes the live summarization and translation sessions
// over server-sent events, with a buffered JSON fallback for clients that
// pass stream=false.
package assist

import (
	"log/slog"
	"net/http"

	"rss-coordinator/internal/usecase/stream"
)

// Register registers the streaming assistant endpoints with the given mux.
func Register(mux *http.ServeMux, svc *stream.Service, logger *slog.Logger) {
	mux.Handle("POST   /assist/summarize", SummarizeHandler{Svc: svc, Logger: logger})
	mux.Handle("POST   /assist/translate", TranslateHandler{Svc: svc, Logger: logger})
}
