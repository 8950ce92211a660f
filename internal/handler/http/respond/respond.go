// Package respond provides utilities for sending HTTP responses in JSON
// format. Domain errors are mapped to status codes by their kind; internal
// details are sanitized before they reach a client.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"rss-coordinator/internal/domain/entity"
)

// JSON writes a JSON response with the given status code and data.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Default().Error("failed to encode JSON response",
				slog.Int("status_code", code),
				slog.Any("error", err))
		}
	}
}

// Error writes a JSON error response with the given status code and message.
func Error(w http.ResponseWriter, code int, msg string) {
	JSON(w, code, map[string]string{"error": msg})
}

// statusFor maps a domain error kind to its HTTP status code.
func statusFor(kind entity.ErrorKind) int {
	switch kind {
	case entity.KindValidation:
		return http.StatusBadRequest
	case entity.KindNotFound:
		return http.StatusNotFound
	case entity.KindConflict:
		return http.StatusConflict
	case entity.KindRateLimited:
		return http.StatusTooManyRequests
	case entity.KindProviderTransient:
		return http.StatusBadGateway
	case entity.KindProviderFatal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// DomainError resolves err's kind, maps it to a status code, and writes the
// response. Internal errors are logged with sanitized details and answered
// with a generic message; everything else is safe to echo.
func DomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	kind := entity.KindOf(err)
	code := statusFor(kind)

	if code >= http.StatusInternalServerError {
		slog.Default().Error("internal server error",
			slog.Int("code", code),
			slog.String("kind", string(kind)),
			slog.String("error", Sanitize(err)))
		Error(w, code, "internal server error")
		return
	}
	JSON(w, code, map[string]string{
		"error": err.Error(),
		"kind":  string(kind),
	})
}
