package analysis

import "context"

// CompletionRequest is the provider-neutral shape handed to a
// CompletionClient.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature float32
	MaxTokens   int
}

// CompletionClient abstracts the text-completion provider so the assistant
// can be tested without network access.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
