// Package notifier delivers feed health alerts to operator channels.
// It provides Discord and Slack webhook implementations plus a no-op
// notifier for when alerting is disabled.
//
// Delivery is fire and forget: the send happens on a background goroutine
// with its own timeout so the sync submit path never waits on a webhook.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const sendTimeout = 30 * time.Second

// Alert describes a feed that was automatically deactivated.
type Alert struct {
	FeedID     string
	Failures   int
	DisabledAt time.Time
}

// FeedDisabledNotifier is the alert sink consumed by the sync pipeline.
type FeedDisabledNotifier interface {
	NotifyFeedDisabled(ctx context.Context, feed string, failures int)
}

// Multi fans each alert out to every configured channel.
type Multi []FeedDisabledNotifier

func (m Multi) NotifyFeedDisabled(ctx context.Context, feed string, failures int) {
	for _, n := range m {
		n.NotifyFeedDisabled(ctx, feed, failures)
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// RateLimitError represents a 429 response from a webhook service.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// ClientError represents a 4xx response from a webhook service.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string { return e.Message }

// ServerError represents a 5xx response from a webhook service.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string { return e.Message }

func is429Error(err error) (*RateLimitError, bool) {
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return rateLimitErr, true
	}
	return nil, false
}

// isRetryableError reports whether the error is worth another attempt.
// Client errors are final; server and network errors are not.
func isRetryableError(err error) bool {
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return true
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return false
	}
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return false // handled by is429Error
	}
	return true
}

func truncate(text string, maxLength int, suffix string) string {
	if len(text) <= maxLength {
		return text
	}
	truncateAt := maxLength - len(suffix)
	if truncateAt < 0 {
		truncateAt = 0
	}
	return text[:truncateAt] + suffix
}

// detach returns a context for the background send: the caller's values
// survive but its cancellation does not.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
}
