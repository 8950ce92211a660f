// Package feedpreview fetches and parses an RSS/Atom feed once, so operators
// can inspect a feed before registering it. It uses the gofeed library with
// retry and circuit breaker protection.
package feedpreview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"

	"rss-coordinator/internal/resilience/circuitbreaker"
	"rss-coordinator/internal/resilience/retry"
)

const (
	userAgent    = "rss-coordinator/1.0"
	previewItems = 10
	fetchTimeout = 30 * time.Second
)

// Item is one parsed feed entry.
type Item struct {
	Title         string
	Link          string
	Summary       string
	PublishedDate *time.Time
	ThumbnailURL  string
}

// Result is the parsed head of a feed.
type Result struct {
	Title       string
	Description string
	Link        string
	ItemCount   int
	Items       []Item
}

// Previewer fetches and parses feeds for the admin preview endpoint.
type Previewer struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// New creates a Previewer with the given HTTP client.
// A nil client gets a default with a fetch timeout.
func New(client *http.Client) *Previewer {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &Previewer{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.DefaultConfig("feed-preview")),
		retryConfig:    retry.DefaultConfig(),
	}
}

// Preview fetches the feed at url and returns its head entries.
// URL safety is checked by the caller; admin previews may point anywhere
// the coordinator itself can reach.
func (p *Previewer) Preview(ctx context.Context, url string) (*Result, error) {
	var result *Result
	retryErr := retry.WithBackoff(ctx, p.retryConfig, func() error {
		cbResult, err := p.circuitBreaker.Execute(func() (interface{}, error) {
			return p.doFetch(ctx, url)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("feed preview circuit breaker open, request rejected",
					slog.String("url", url),
					slog.String("state", p.circuitBreaker.State().String()))
			}
			return err
		}
		result = cbResult.(*Result)
		return nil
	})
	if retryErr != nil {
		return nil, fmt.Errorf("preview feed: %w", retryErr)
	}
	return result, nil
}

func (p *Previewer) doFetch(ctx context.Context, url string) (*Result, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = userAgent
	fp.Client = p.client

	feed, err := fp.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Title:       feed.Title,
		Description: feed.Description,
		Link:        feed.Link,
		ItemCount:   len(feed.Items),
	}
	for i, item := range feed.Items {
		if i >= previewItems {
			break
		}
		entry := Item{
			Title:         item.Title,
			Link:          item.Link,
			Summary:       item.Description,
			PublishedDate: item.PublishedParsed,
		}
		if item.Image != nil {
			entry.ThumbnailURL = item.Image.URL
		}
		result.Items = append(result.Items, entry)
	}
	return result, nil
}
