// Package analysis provides the "Dr. Root" assistant: LLM-backed
// interpretation of completed patent-cliff search results.
package analysis

import (
	"context"
	"strings"
	"time"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/search"
)

// Chat roles, mirroring the completion API wire values.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Profile is the assistant configuration stored in the config/drroot
// document.  Operators tune the model there without a redeploy.
type Profile struct {
	Model        string  `firestore:"model" json:"model"`
	SystemPrompt string  `firestore:"systemPrompt" json:"system_prompt"`
	Temperature  float32 `firestore:"temperature" json:"temperature"`
	MaxTokens    int     `firestore:"maxTokens" json:"max_tokens"`
}

// DefaultProfile is used when the config/drroot document is absent or only
// partially filled in.
func DefaultProfile() Profile {
	return Profile{
		Model: "gpt-4o",
		SystemPrompt: "You are Dr. Root, a pharmaceutical patent intelligence analyst. " +
			"Explain patent expiry timelines, exclusivity cliffs and generic entry risk " +
			"for the drug under discussion. Be precise about dates and jurisdictions, " +
			"and say so when the data does not support a conclusion.",
		Temperature: 0.2,
		MaxTokens:   1024,
	}
}

// withDefaults fills the zero-valued fields of p from DefaultProfile.
func (p Profile) withDefaults() Profile {
	def := DefaultProfile()
	if strings.TrimSpace(p.Model) == "" {
		p.Model = def.Model
	}
	if strings.TrimSpace(p.SystemPrompt) == "" {
		p.SystemPrompt = def.SystemPrompt
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = def.MaxTokens
	}
	return p
}

// ProfileRepository reads the assistant configuration document.
type ProfileRepository interface {
	Get(ctx context.Context) (*Profile, error)
}

// ResultSource resolves a completed search result by its job id.
type ResultSource interface {
	ResultByJob(ctx context.Context, jobID string) (*search.Result, error)
}

// ResponseCache stores generated analyses so a repeat request for the same
// job/patent pair does not bill the completion API again.
type ResponseCache interface {
	Get(ctx context.Context, key string) (*Analysis, error)
	Put(ctx context.Context, key string, a *Analysis) error
}

// AnalyzeRequest asks for an analysis of a completed search job, optionally
// narrowed to a single patent.
type AnalyzeRequest struct {
	JobID        string `json:"job_id"`
	PatentNumber string `json:"patent_number,omitempty"`
}

// Analysis is a generated assistant response.
type Analysis struct {
	JobID        string    `firestore:"jobId" json:"job_id"`
	PatentNumber string    `firestore:"patentNumber,omitempty" json:"patent_number,omitempty"`
	Content      string    `firestore:"content" json:"content"`
	Model        string    `firestore:"model" json:"model"`
	CreatedAt    time.Time `firestore:"createdAt" json:"created_at"`
	FromCache    bool      `firestore:"-" json:"from_cache"`
}

// ChatMessage is one turn of an assistant conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest continues a conversation, optionally grounded in the result of
// a completed search job.
type ChatRequest struct {
	JobID    string        `json:"job_id,omitempty"`
	Messages []ChatMessage `json:"messages"`
}

// ChatResponse is the assistant's reply to a ChatRequest.
type ChatResponse struct {
	Message ChatMessage `json:"message"`
	Model   string      `json:"model"`
}
