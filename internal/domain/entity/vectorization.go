package entity

import "time"

// VectorizationTask is bookkeeping for one vector-store write attempt.
type VectorizationTask struct {
	ID             int64
	BatchID        string
	ArticleID      int64
	WorkerID       string
	TotalCount     int
	ProcessedCount int
	SuccessCount   int
	FailedCount    int
	StartedAt      *time.Time
	EndedAt        *time.Time
	EmbeddingModel string
	Status         VectorizationStatus
	ErrorMessage   string
	CreatedAt      time.Time
}
