package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/search"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// Assistant generates analyses of completed searches and answers follow-up
// questions about them.
type Assistant interface {
	// Analyze produces (or returns the cached) assistant analysis for a
	// completed search job, optionally narrowed to one patent.
	Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error)
	// Chat answers a free-form conversation, grounded in a job's result
	// when req.JobID is set.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

type assistant struct {
	profiles    ProfileRepository
	results     ResultSource
	completions CompletionClient
	cache       ResponseCache
	log         logging.Logger
}

// NewAssistant wires the assistant service.  cache may be nil, which disables
// response reuse.
func NewAssistant(profiles ProfileRepository, results ResultSource, completions CompletionClient, cache ResponseCache, log logging.Logger) Assistant {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &assistant{
		profiles:    profiles,
		results:     results,
		completions: completions,
		cache:       cache,
		log:         log.Named("assistant"),
	}
}

func (a *assistant) Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error) {
	if strings.TrimSpace(req.JobID) == "" {
		return nil, apperrors.New(apperrors.ErrCodeAIInputInvalid, "job id is required")
	}

	key := analysisKey(req.JobID, req.PatentNumber)
	if a.cache != nil {
		cached, err := a.cache.Get(ctx, key)
		if err == nil && cached != nil {
			cached.FromCache = true
			return cached, nil
		}
		if err != nil && !apperrors.IsNotFound(err) {
			a.log.Warn("analysis cache read failed",
				logging.String("key", key), logging.Err(err))
		}
	}

	result, err := a.results.ResultByJob(ctx, req.JobID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.New(apperrors.ErrCodeSearchJobNotFound, "no completed result for job "+req.JobID)
		}
		return nil, err
	}

	prompt, err := analyzePrompt(result, req.PatentNumber)
	if err != nil {
		return nil, err
	}

	profile, err := a.profile(ctx)
	if err != nil {
		return nil, err
	}

	content, err := a.complete(ctx, profile, []ChatMessage{{Role: RoleUser, Content: prompt}})
	if err != nil {
		return nil, err
	}

	analysis := &Analysis{
		JobID:        req.JobID,
		PatentNumber: req.PatentNumber,
		Content:      content,
		Model:        profile.Model,
		CreatedAt:    time.Now().UTC(),
	}
	if a.cache != nil {
		if err := a.cache.Put(ctx, key, analysis); err != nil {
			a.log.Warn("analysis cache write failed",
				logging.String("key", key), logging.Err(err))
		}
	}
	return analysis, nil
}

func (a *assistant) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if len(req.Messages) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeAIInputInvalid, "at least one message is required")
	}
	messages := make([]ChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		// Client-supplied system messages are dropped; the system prompt
		// is owned by the config/drroot document.
		if m.Role == RoleSystem {
			continue
		}
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return nil, apperrors.New(apperrors.ErrCodeAIInputInvalid, "unknown message role "+m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			return nil, apperrors.New(apperrors.ErrCodeAIInputInvalid, "message content must not be empty")
		}
		messages = append(messages, m)
	}
	if len(messages) == 0 || messages[len(messages)-1].Role != RoleUser {
		return nil, apperrors.New(apperrors.ErrCodeAIInputInvalid, "conversation must end with a user message")
	}

	if req.JobID != "" {
		result, err := a.results.ResultByJob(ctx, req.JobID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.New(apperrors.ErrCodeSearchJobNotFound, "no completed result for job "+req.JobID)
			}
			return nil, err
		}
		grounding := ChatMessage{Role: RoleUser, Content: "Context for this conversation:\n" + resultContext(result)}
		messages = append([]ChatMessage{grounding}, messages...)
	}

	profile, err := a.profile(ctx)
	if err != nil {
		return nil, err
	}
	content, err := a.complete(ctx, profile, messages)
	if err != nil {
		return nil, err
	}
	return &ChatResponse{
		Message: ChatMessage{Role: RoleAssistant, Content: content},
		Model:   profile.Model,
	}, nil
}

// profile loads config/drroot, falling back to the built-in defaults when
// the document does not exist yet.
func (a *assistant) profile(ctx context.Context) (Profile, error) {
	stored, err := a.profiles.Get(ctx)
	if err != nil {
		if apperrors.IsNotFound(err) {
			a.log.Warn("assistant configuration document missing, using defaults")
			return DefaultProfile(), nil
		}
		return Profile{}, apperrors.Wrap(err, apperrors.ErrCodeAIConfigMissing, "failed to load assistant configuration")
	}
	return stored.withDefaults(), nil
}

func (a *assistant) complete(ctx context.Context, profile Profile, messages []ChatMessage) (string, error) {
	full := append([]ChatMessage{{Role: RoleSystem, Content: profile.SystemPrompt}}, messages...)
	content, err := a.completions.Complete(ctx, CompletionRequest{
		Model:       profile.Model,
		Messages:    full,
		Temperature: profile.Temperature,
		MaxTokens:   profile.MaxTokens,
	})
	if err != nil {
		if _, ok := err.(*apperrors.AppError); ok {
			return "", err
		}
		return "", apperrors.Wrap(err, apperrors.ErrCodeAICompletionFailed, "completion request failed")
	}
	if strings.TrimSpace(content) == "" {
		return "", apperrors.New(apperrors.ErrCodeAICompletionFailed, "completion returned no content")
	}
	return content, nil
}

func analysisKey(jobID, patentNumber string) string {
	if patentNumber == "" {
		return jobID
	}
	return jobID + ":" + patentNumber
}

// analyzePrompt renders the user turn for a whole-job or single-patent
// analysis.
func analyzePrompt(result *search.Result, patentNumber string) (string, error) {
	if patentNumber == "" {
		return "Analyze the patent cliff outlook for this search result. " +
			"Identify the loss-of-exclusivity window per country and the overall cliff date.\n\n" +
			resultContext(result), nil
	}
	for _, p := range result.Patents {
		if p.PatentNumber == patentNumber {
			return fmt.Sprintf("Analyze patent %s in the context of this search result. "+
				"Explain what its expiry means for the molecule's exclusivity.\n\n%s\n\n%s",
				patentNumber, patentLine(p), resultContext(result)), nil
		}
	}
	return "", apperrors.New(apperrors.ErrCodeAIInputInvalid,
		fmt.Sprintf("patent %s is not part of job %s", patentNumber, result.JobID))
}

// resultContext renders the structured result as a compact text block for
// the model.
func resultContext(result *search.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Molecule: %s\n", result.Molecule)
	if result.Brand != "" {
		fmt.Fprintf(&b, "Brand: %s\n", result.Brand)
	}
	if len(result.Countries) > 0 {
		fmt.Fprintf(&b, "Countries: %s\n", strings.Join(result.Countries, ", "))
	}
	fmt.Fprintf(&b, "Patents (%d):\n", len(result.Patents))
	for _, p := range result.Patents {
		b.WriteString("- " + patentLine(p) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func patentLine(p search.PatentEntry) string {
	line := p.PatentNumber
	if p.Country != "" {
		line += " (" + p.Country + ")"
	}
	if p.Title != "" {
		line += " " + p.Title
	}
	if p.Holder != "" {
		line += ", holder " + p.Holder
	}
	if !p.ExpirationDate.IsZero() {
		line += ", expires " + p.ExpirationDate.Format("2006-01-02")
	}
	return line
}
