package articleapi

import (
	"time"

	"rss-coordinator/internal/domain/entity"
)

// DTO is the client-facing view of an article.
type DTO struct {
	ID             int64      `json:"id"`
	FeedID         string     `json:"feed_id"`
	Link           string     `json:"link"`
	Title          string     `json:"title"`
	Summary        string     `json:"summary,omitempty"`
	ChineseSummary string     `json:"chinese_summary,omitempty"`
	EnglishSummary string     `json:"english_summary,omitempty"`
	ThumbnailURL   string     `json:"thumbnail_url,omitempty"`
	PublishedDate  *time.Time `json:"published_date,omitempty"`
	Status         string     `json:"status"`
	IsVectorized   bool       `json:"is_vectorized"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toDTO(a *entity.Article) DTO {
	return DTO{
		ID:             a.ID,
		FeedID:         a.FeedID,
		Link:           a.Link,
		Title:          a.Title,
		Summary:        a.Summary,
		ChineseSummary: a.ChineseSummary,
		EnglishSummary: a.EnglishSummary,
		ThumbnailURL:   a.ThumbnailURL,
		PublishedDate:  a.PublishedDate,
		Status:         string(a.Status),
		IsVectorized:   a.IsVectorized,
		CreatedAt:      a.CreatedAt,
	}
}
