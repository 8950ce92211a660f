package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DiscordConfig contains configuration for Discord webhook alerts.
type DiscordConfig struct {
	Enabled    bool
	WebhookURL string
	Timeout    time.Duration
}

// DiscordNotifier posts feed health alerts to a Discord webhook.
type DiscordNotifier struct {
	config      DiscordConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
	retryDelay  time.Duration
}

// NewDiscordNotifier creates a Discord notifier. The rate limit follows the
// Discord webhook cap of 30 requests per minute.
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		config:      config,
		httpClient:  &http.Client{Timeout: config.Timeout},
		rateLimiter: NewRateLimiter(0.5, 3),
		retryDelay:  5 * time.Second,
	}
}

type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Color       int                `json:"color"`
	Footer      discordEmbedFooter `json:"footer"`
	Timestamp   string             `json:"timestamp"`
}

type discordEmbedFooter struct {
	Text string `json:"text"`
}

type discordErrorResponse struct {
	Message    string  `json:"message"`
	Code       int     `json:"code"`
	RetryAfter float64 `json:"retry_after"` // seconds
}

const (
	maxTitleLength       = 256
	maxDescriptionLength = 4096
	truncationSuffix     = "..."

	// Discord red (#ED4245), alerts are failures.
	discordRedColor = 15548997
)

func (d *DiscordNotifier) buildEmbedPayload(alert Alert) discordWebhookPayload {
	title := truncate(fmt.Sprintf("Feed disabled: %s", alert.FeedID), maxTitleLength, truncationSuffix)
	description := truncate(
		fmt.Sprintf("Feed `%s` was deactivated after %d consecutive sync failures. Reset its failure counter to resume syncing.",
			alert.FeedID, alert.Failures),
		maxDescriptionLength, truncationSuffix)

	return discordWebhookPayload{
		Embeds: []discordEmbed{{
			Title:       title,
			Description: description,
			Color:       discordRedColor,
			Footer:      discordEmbedFooter{Text: "rss-coordinator"},
			Timestamp:   alert.DisabledAt.Format(time.RFC3339),
		}},
	}
}

func (d *DiscordNotifier) sendWebhookRequest(ctx context.Context, alert Alert) error {
	jsonData, err := json.Marshal(d.buildEmbedPayload(alert))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{
			Message:    "Discord rate limit exceeded",
			RetryAfter: extractRetryAfter(resp, body),
		}
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Discord API client error: %s", string(body)),
		}
	}
	if resp.StatusCode >= 500 {
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Discord API server error: %s", string(body)),
		}
	}
	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
}

// extractRetryAfter reads retry_after from the Discord error body, falling
// back to the Retry-After header, then a 5s default.
func extractRetryAfter(resp *http.Response, body []byte) time.Duration {
	var discordErr discordErrorResponse
	if err := json.Unmarshal(body, &discordErr); err == nil && discordErr.RetryAfter > 0 {
		return time.Duration(discordErr.RetryAfter * float64(time.Second))
	}
	if retryAfterHeader := resp.Header.Get("Retry-After"); retryAfterHeader != "" {
		if seconds, err := strconv.Atoi(retryAfterHeader); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 5 * time.Second
}

func (d *DiscordNotifier) sendWithRetry(ctx context.Context, alert Alert) error {
	const maxAttempts = 2

	requestID, _ := ctx.Value(requestIDKey).(string)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := d.sendWebhookRequest(ctx, alert)
		if err == nil {
			slog.Info("Discord alert delivered",
				slog.String("request_id", requestID),
				slog.String("feed_id", alert.FeedID),
				slog.Int("attempt", attempt))
			return nil
		}
		lastErr = err

		if rateLimitErr, ok := is429Error(err); ok {
			slog.Warn("Discord rate limit hit, backing off",
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
			slog.Error("Discord alert failed with non-retryable error",
				slog.String("request_id", requestID),
				slog.String("feed_id", alert.FeedID),
				slog.Any("error", err))
			return err
		}

		if attempt < maxAttempts {
			delay := d.retryDelay * time.Duration(attempt)
			slog.Warn("Discord alert failed, retrying",
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

	slog.Error("Discord alert failed after all retries",
		slog.String("request_id", requestID),
		slog.String("feed_id", alert.FeedID),
		slog.Any("error", lastErr),
		slog.Int("max_attempts", maxAttempts))
	return fmt.Errorf("discord alert failed after %d attempts: %w", maxAttempts, lastErr)
}

// NotifyFeedDisabled posts an alert for an auto-disabled feed. Delivery runs
// on a background goroutine; failures are logged, never returned.
func (d *DiscordNotifier) NotifyFeedDisabled(ctx context.Context, feed string, failures int) {
	if !d.config.Enabled || d.config.WebhookURL == "" {
		return
	}

	alert := Alert{FeedID: feed, Failures: failures, DisabledAt: time.Now().UTC()}
	requestID := uuid.New().String()

	sendCtx, cancel := detach(ctx)
	sendCtx = context.WithValue(sendCtx, requestIDKey, requestID)

	go func() {
		defer cancel()
		if err := d.rateLimiter.Allow(sendCtx); err != nil {
			slog.Error("Discord alert rate limiter wait failed",
				slog.String("request_id", requestID),
				slog.String("feed_id", alert.FeedID),
				slog.Any("error", err))
			return
		}
		_ = d.sendWithRetry(sendCtx, alert)
	}()
}
