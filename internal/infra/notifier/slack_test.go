package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlackBuildBlockKitPayload(t *testing.T) {
	s := NewSlackNotifier(SlackConfig{Enabled: true, WebhookURL: "http://example.com", Timeout: time.Second})
	payload := s.buildBlockKitPayload(testAlert())

	assert.Equal(t, "Feed disabled: hn (5 failures)", payload.Text)
	require.Len(t, payload.Blocks, 2)

	section := payload.Blocks[0]
	assert.Equal(t, "section", section.Type)
	require.NotNil(t, section.Text)
	assert.Contains(t, section.Text.Text, "`hn`")
	assert.Contains(t, section.Text.Text, "5 consecutive sync failures")

	contextBlock := payload.Blocks[1]
	assert.Equal(t, "context", contextBlock.Type)
	require.Len(t, contextBlock.Elements, 1)
	assert.Contains(t, contextBlock.Elements[0].Text, "2026-03-02T10:00:00Z")
}

func TestSlackSendWebhookRequest(t *testing.T) {
	var received slackWebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	s := NewSlackNotifier(SlackConfig{Enabled: true, WebhookURL: srv.URL, Timeout: time.Second})
	err := s.sendWebhookRequest(context.Background(), testAlert())
	require.NoError(t, err)
	assert.Equal(t, "Feed disabled: hn (5 failures)", received.Text)
}

func TestSlackSendWebhookRequest_RateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewSlackNotifier(SlackConfig{Enabled: true, WebhookURL: srv.URL, Timeout: time.Second})
	err := s.sendWebhookRequest(context.Background(), testAlert())
	require.Error(t, err)

	rle, ok := is429Error(err)
	require.True(t, ok)
	assert.Equal(t, 7*time.Second, rle.RetryAfter)
}

func TestSlackSendWithRetry_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	s := NewSlackNotifier(SlackConfig{Enabled: true, WebhookURL: srv.URL, Timeout: time.Second})
	s.retryDelay = time.Millisecond
	err := s.sendWithRetry(context.Background(), testAlert())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSlackNotifyFeedDisabled_EmptyWebhookURL(t *testing.T) {
	s := NewSlackNotifier(SlackConfig{Enabled: true, WebhookURL: "", Timeout: time.Second})
	// Must be a silent no-op.
	s.NotifyFeedDisabled(context.Background(), "hn", 5)
}
