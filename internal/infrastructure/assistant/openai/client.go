// Package openai implements the assistant completion client against the
// OpenAI chat completions API.
package openai

import (
	"context"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/config"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/analysis"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// Client calls the chat completions endpoint.  It implements
// analysis.CompletionClient.
type Client struct {
	api *openai.Client
	log logging.Logger
}

// NewClient builds the completion client from configuration.  BaseURL may
// point at an OpenAI-compatible proxy.
func NewClient(cfg config.AssistantConfig, log logging.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.New(apperrors.ErrCodeAIConfigMissing, "assistant api key is required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.RequestTimeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &Client{
		api: openai.NewClientWithConfig(clientCfg),
		log: log.Named("openai"),
	}, nil
}

// Complete runs one chat completion and returns the first choice.
func (c *Client) Complete(ctx context.Context, req analysis.CompletionRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		c.log.Error("chat completion failed",
			logging.String("model", req.Model), logging.Err(err))
		return "", apperrors.Wrap(err, apperrors.ErrCodeAICompletionFailed, "chat completion request failed")
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.New(apperrors.ErrCodeAICompletionFailed, "chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
