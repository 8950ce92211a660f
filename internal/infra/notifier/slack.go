package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SlackConfig contains configuration for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool
	WebhookURL string
	Timeout    time.Duration
}

// SlackNotifier posts feed health alerts to a Slack Incoming Webhook.
type SlackNotifier struct {
	config      SlackConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
	retryDelay  time.Duration
}

// NewSlackNotifier creates a Slack notifier. The rate limit follows the
// Slack webhook cap of one message per second.
func NewSlackNotifier(config SlackConfig) *SlackNotifier {
	return &SlackNotifier{
		config:      config,
		httpClient:  &http.Client{Timeout: config.Timeout},
		rateLimiter: NewRateLimiter(1.0, 1),
		retryDelay:  5 * time.Second,
	}
}

type slackWebhookPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string            `json:"type"`
	Text     *slackTextObject  `json:"text,omitempty"`
	Elements []slackTextObject `json:"elements,omitempty"`
}

type slackTextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

const (
	maxSectionTextLength  = 3000
	maxFallbackLength     = 150
	slackTruncationSuffix = "..."
)

func (s *SlackNotifier) buildBlockKitPayload(alert Alert) slackWebhookPayload {
	fallbackText := truncate(
		fmt.Sprintf("Feed disabled: %s (%d failures)", alert.FeedID, alert.Failures),
		maxFallbackLength, slackTruncationSuffix)

	sectionText := truncate(
		fmt.Sprintf("*Feed disabled: `%s`*\n\nDeactivated after %d consecutive sync failures. Reset its failure counter to resume syncing.",
			alert.FeedID, alert.Failures),
		maxSectionTextLength, slackTruncationSuffix)

	contextText := fmt.Sprintf("rss-coordinator • %s", alert.DisabledAt.Format(time.RFC3339))

	return slackWebhookPayload{
		Text: fallbackText,
		Blocks: []slackBlock{
			{
				Type: "section",
				Text: &slackTextObject{Type: "mrkdwn", Text: sectionText},
			},
			{
				Type:     "context",
				Elements: []slackTextObject{{Type: "mrkdwn", Text: contextText}},
			},
		},
	}
}

func (s *SlackNotifier) sendWebhookRequest(ctx context.Context, alert Alert) error {
	jsonData, err := json.Marshal(s.buildBlockKitPayload(alert))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		// Slack sends Retry-After on webhook throttling.
		retryAfter := 5 * time.Second
		if header := resp.Header.Get("Retry-After"); header != "" {
			if d, err := time.ParseDuration(header + "s"); err == nil && d > 0 {
				retryAfter = d
			}
		}
		return &RateLimitError{
			Message:    "Slack rate limit exceeded",
			RetryAfter: retryAfter,
		}
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Slack API client error: %s", string(body)),
		}
	}
	if resp.StatusCode >= 500 {
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Slack API server error: %s", string(body)),
		}
	}
	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
}

func (s *SlackNotifier) sendWithRetry(ctx context.Context, alert Alert) error {
	const maxAttempts = 2

	requestID, _ := ctx.Value(requestIDKey).(string)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := s.sendWebhookRequest(ctx, alert)
		if err == nil {
			slog.Info("Slack alert delivered",
				slog.String("request_id", requestID),
				slog.String("feed_id", alert.FeedID),
				slog.Int("attempt", attempt))
			return nil
		}
		lastErr = err

		if rateLimitErr, ok := is429Error(err); ok {
			slog.Warn("Slack rate limit hit, backing off",
				slog.String("request_id", requestID),
				slog.String("feed_id", alert.FeedID),
				slog.Duration("retry_after", rateLimitErr.RetryAfter),
				slog.Int("attempt", attempt))
			select {
			case <-time.After(rateLimitErr.RetryAfter):
				continue
			case <-ctx.Done():
				return fmt.Errorf("context canceled during rate limit backoff: %w", ctx.Err())
			}
		}

		if !isRetryableError(err) {
			slog.Error("Slack alert failed with non-retryable error",
				slog.String("request_id", requestID),
				slog.String("feed_id", alert.FeedID),
				slog.Any("error", err))
			return err
		}

		if attempt < maxAttempts {
			delay := s.retryDelay * time.Duration(attempt)
			slog.Warn("Slack alert failed, retrying",
				slog.String("request_id", requestID),
				slog.String("feed_id", alert.FeedID),
				slog.Any("error", err),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay))
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return fmt.Errorf("context canceled during retry backoff: %w", ctx.Err())
			}
		}
	}

	slog.Error("Slack alert failed after all retries",
		slog.String("request_id", requestID),
		slog.String("feed_id", alert.FeedID),
		slog.Any("error", lastErr),
		slog.Int("max_attempts", maxAttempts))
	return fmt.Errorf("slack alert failed after %d attempts: %w", maxAttempts, lastErr)
}

// NotifyFeedDisabled posts an alert for an auto-disabled feed. Delivery runs
// on a background goroutine; failures are logged, never returned.
func (s *SlackNotifier) NotifyFeedDisabled(ctx context.Context, feed string, failures int) {
	if !s.config.Enabled || s.config.WebhookURL == "" {
		return
	}

	alert := Alert{FeedID: feed, Failures: failures, DisabledAt: time.Now().UTC()}
	requestID := uuid.New().String()

	sendCtx, cancel := detach(ctx)
	sendCtx = context.WithValue(sendCtx, requestIDKey, requestID)

	go func() {
		defer cancel()
		if err := s.rateLimiter.Allow(sendCtx); err != nil {
			slog.Error("Slack alert rate limiter wait failed",
				slog.String("request_id", requestID),
				slog.String("feed_id", alert.FeedID),
				slog.Any("error", err))
			return
		}
		_ = s.sendWithRetry(sendCtx, alert)
	}()
}
