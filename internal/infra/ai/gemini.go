// internal/infra/ai/gemini.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domainAI "ai_post_scheduler/internal/domain/ai"
	"ai_post_scheduler/internal/infra/config"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

var (
	ErrMissingAPIKey = errors.New("AI API key is not set")
	ErrEmptyResponse = errors.New("AI returned an empty response")
	ErrBlocked       = errors.New("AI blocked the prompt")
)

// GeminiClient implements the ai.Client interface with the Gemini API.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int
	log         *logrus.Entry
}

func NewGeminiClient(ctx context.Context, cfg config.AIConfig, log *logrus.Entry) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	log.WithField("model", cfg.Model).Info("Gemini client initialized")
	return &GeminiClient{
		client:      gi,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxOutputTokens,
		log:         log,
	}, nil
}

// GenerateText sends a single user prompt and returns the text of the first candidate.
func (c *GeminiClient) GenerateText(ctx context.Context, prompt string, opts domainAI.Options) (string, error) {
	temperature := c.temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}
	maxTokens := c.maxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(maxTokens),
	}
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}
	return extractText(resp)
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", ErrEmptyResponse
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		return "", fmt.Errorf("%w: %s", ErrBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	if reason := resp.Candidates[0].FinishReason; reason != genai.FinishReasonStop &&
		reason != genai.FinishReasonUnspecified && reason != genai.FinishReasonMaxTokens {
		return "", fmt.Errorf("%w: finish reason %s", ErrBlocked, reason)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// retryable reports whether err is worth another attempt.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrBlocked) || errors.Is(err, ErrMissingAPIKey) || errors.Is(err, ErrRateLimited) {
		return false
	}
	if code, ok := apiErrorCode(err); ok {
		return code == 429 || code >= 500
	}
	return true
}

func apiErrorCode(err error) (int, bool) {
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code, true
	}
	var val genai.APIError
	if errors.As(err, &val) {
		return val.Code, true
	}
	return 0, false
}
