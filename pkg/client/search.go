package client

import (
	"context"
	"fmt"
	"net/url"

	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// SearchClient submits patent searches and reads their results.
type SearchClient struct {
	client *Client
}

// SearchRequest describes one molecule search.
type SearchRequest struct {
	Molecule  string   `json:"molecule"`
	Brand     string   `json:"brand,omitempty"`
	Countries []string `json:"countries"`
}

// Run submits a search and blocks until the server returns a terminal
// outcome. The server holds the connection open for the whole polling
// budget, so pass a context with a generous deadline.
func (s *SearchClient) Run(ctx context.Context, req SearchRequest) (*SearchOutcome, error) {
	if req.Molecule == "" {
		return nil, apperrors.NewValidation("molecule required")
	}
	var outcome SearchOutcome
	if err := s.client.post(ctx, "/api/v1/search/", req, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}

// JobStatus fetches the current state of a search job.
func (s *SearchClient) JobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	if jobID == "" {
		return nil, apperrors.NewValidation("jobID required")
	}
	var status JobStatus
	if err := s.client.get(ctx, "/api/v1/search/jobs/"+url.PathEscape(jobID), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// History lists the caller's past searches, newest first. A zero limit
// returns the server default.
func (s *SearchClient) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	path := "/api/v1/search/history"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var entries []HistoryEntry
	if err := s.client.get(ctx, path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
