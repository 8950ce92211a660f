package http

import (
	"context"
	"crypto/subtle"
	"net/http"

	"rss-coordinator/internal/handler/http/respond"
)

// AppKeyHeader is the header clients present their application key in.
const AppKeyHeader = "X-App-Key"

type appKeyContextKey struct{}

// AppKeyFromContext returns the authenticated application key, or "" if
// the request was not authenticated.
func AppKeyFromContext(ctx context.Context) string {
	if key, ok := ctx.Value(appKeyContextKey{}).(string); ok {
		return key
	}
	return ""
}

// AppKeyAuth returns middleware that requires a valid application key on
// every request. Keys are compared in constant time. An empty key set
// disables authentication, which is only intended for local development.
func AppKeyAuth(keys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(keys) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			presented := r.Header.Get(AppKeyHeader)
			if presented == "" {
				respond.Error(w, http.StatusUnauthorized, "missing application key")
				return
			}

			for _, key := range keys {
				if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) == 1 {
					ctx := context.WithValue(r.Context(), appKeyContextKey{}, presented)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			respond.Error(w, http.StatusUnauthorized, "invalid application key")
		})
	}
}
