package provider

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	openai "github.com/sashabaranov/go-openai"

	"rss-coordinator/internal/domain/entity"
)

// ErrNoEmbeddings is returned by providers without an embeddings capability.
var ErrNoEmbeddings = errors.New("provider does not support embeddings")

// classify maps a backend error to a typed kind. Rate limits and 5xx/network
// failures come back transient; auth, unknown-model, parameter and
// content-filter failures come back fatal so nothing retries them.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, ErrNoEmbeddings) {
		return entity.NewKindError(entity.KindProviderFatal, err)
	}

	if status, ok := statusCode(err); ok {
		switch {
		case status == http.StatusTooManyRequests:
			return entity.NewKindError(entity.KindRateLimited, err)
		case status == http.StatusRequestTimeout || status >= 500:
			return entity.NewKindError(entity.KindProviderTransient, err)
		default:
			return entity.NewKindError(entity.KindProviderFatal, err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return entity.NewKindError(entity.KindProviderTransient, err)
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return entity.NewKindError(entity.KindProviderTransient, err)
	}

	return entity.NewKindError(entity.KindProviderTransient, err)
}

func statusCode(err error) (int, bool) {
	var openaiErr *openai.APIError
	if errors.As(err, &openaiErr) {
		return openaiErr.HTTPStatusCode, true
	}
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode, true
	}
	return 0, false
}

// retryable reports whether a classified error is worth another attempt.
func retryable(err error) bool {
	switch entity.KindOf(err) {
	case entity.KindRateLimited, entity.KindProviderTransient:
		return true
	}
	return false
}
