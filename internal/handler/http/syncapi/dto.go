package syncapi

import (
	"time"

	"rss-coordinator/internal/domain/entity"
)

// FeedDTO is the worker-facing view of a feed, including the crawl hints
// the worker needs to fetch it.
type FeedDTO struct {
	ID                  string            `json:"id"`
	URL                 string            `json:"url"`
	Title               string            `json:"title,omitempty"`
	CategoryID          string            `json:"category_id,omitempty"`
	ConsecutiveFailures int               `json:"consecutive_failures"`
	LastSyncAt          *time.Time        `json:"last_sync_at,omitempty"`
	LastSyncStatus      entity.SyncStatus `json:"last_sync_status"`
	CrawlWithJS         bool              `json:"crawl_with_js"`
	CrawlDelaySec       int               `json:"crawl_delay_sec,omitempty"`
	CustomHeaders       map[string]string `json:"custom_headers,omitempty"`
	UseProxy            bool              `json:"use_proxy"`
}

func toFeedDTO(f *entity.Feed) FeedDTO {
	return FeedDTO{
		ID:                  f.ID,
		URL:                 f.URL,
		Title:               f.Title,
		CategoryID:          f.CategoryID,
		ConsecutiveFailures: f.ConsecutiveFailures,
		LastSyncAt:          f.LastSyncAt,
		LastSyncStatus:      f.LastSyncStatus,
		CrawlWithJS:         f.CrawlWithJS,
		CrawlDelaySec:       f.CrawlDelaySec,
		CustomHeaders:       f.CustomHeaders,
		UseProxy:            f.UseProxy,
	}
}
