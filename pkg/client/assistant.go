package client

import (
	"context"

	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// AssistantClient talks to the Dr. Root analysis endpoints.
type AssistantClient struct {
	client *Client
}

// AnalyzeRequest asks for an expiry analysis of a completed search job,
// optionally scoped to a single patent.
type AnalyzeRequest struct {
	JobID        string `json:"job_id"`
	PatentNumber string `json:"patent_number,omitempty"`
}

// ChatRequest carries a conversation, optionally grounded in a job's result.
type ChatRequest struct {
	JobID    string        `json:"job_id,omitempty"`
	Messages []ChatMessage `json:"messages"`
}

// Analyze requests an expiry analysis for a completed search job.
func (a *AssistantClient) Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error) {
	if req.JobID == "" {
		return nil, apperrors.NewValidation("job_id required")
	}
	var analysis Analysis
	if err := a.client.post(ctx, "/api/v1/analysis/analyze", req, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// Chat sends a conversation to the assistant and returns its reply.
func (a *AssistantClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if len(req.Messages) == 0 {
		return nil, apperrors.NewValidation("messages required")
	}
	var resp ChatResponse
	if err := a.client.post(ctx, "/api/v1/analysis/chat", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
