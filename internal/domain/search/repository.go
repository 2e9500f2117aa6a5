package search

import "context"

// JobClient talks to the external patent search job API.
type JobClient interface {
	// Submit starts a search and returns the assigned job id.
	Submit(ctx context.Context, req Request) (string, error)
	// Poll returns the job's progress, and the result once completed.
	Poll(ctx context.Context, jobID string) (*JobUpdate, *Result, error)
}

// ResultCache stores completed results keyed by Request.CacheKey.  Lookup
// returns a not-found error on miss.  Implementations may be tiered (Redis in
// front of Firestore); the orchestrator does not care.
type ResultCache interface {
	Lookup(ctx context.Context, key string) (*Result, error)
	Store(ctx context.Context, key string, result *Result) error
}

// HistoryRepository persists per-user search history.
type HistoryRepository interface {
	Add(ctx context.Context, record *HistoryRecord) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*HistoryRecord, error)
}
