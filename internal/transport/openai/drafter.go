package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/viewdex/internal/domain"
	"github.com/kailas-cloud/viewdex/internal/metrics"
)

// Drafter turns prompts into JSON answers using an OpenAI-compatible chat API.
type Drafter struct {
	client *openai.Client
	model  string
	user   string
	logger *zap.Logger
}

// Config holds the chat provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	User    string
	Logger  *zap.Logger
}

// NewDrafter creates an OpenAI-compatible chat client.
func NewDrafter(cfg *Config) *Drafter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Drafter{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		user:   cfg.User,
		logger: cfg.Logger,
	}
}

// Complete sends one system and one user message and returns the JSON answer.
func (d *Drafter) Complete(ctx context.Context, system, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature:    0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		User:           d.user,
	}

	start := time.Now()
	resp, err := d.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.DraftRequestsTotal.WithLabelValues(d.model, "error").Inc()
		return "", parseAPIError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.DraftRequestsTotal.WithLabelValues(d.model, "error").Inc()
		return "", fmt.Errorf("empty completion: %w", domain.ErrDraftProviderError)
	}

	metrics.DraftRequestsTotal.WithLabelValues(d.model, "success").Inc()
	if resp.Usage.TotalTokens > 0 {
		metrics.DraftTokensTotal.WithLabelValues(d.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.DraftTokensTotal.WithLabelValues(d.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}
	d.logger.Debug("Draft completed",
		zap.String("model", d.model),
		zap.Duration("duration", duration),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return resp.Choices[0].Message.Content, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (d *Drafter) HealthCheck(ctx context.Context) error {
	if _, err := d.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrDraftProviderError for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrDraftProviderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("chat API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("chat API error %d: %w", reqErr.HTTPStatusCode, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("chat request failed: %w", wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
