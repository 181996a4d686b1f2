package ai

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestExtractText(t *testing.T) {
	ok := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		FinishReason: genai.FinishReasonStop,
		Content:      genai.NewContentFromText("  Hello world \n", genai.RoleModel),
	}}}
	text, err := extractText(ok)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", text)

	_, err = extractText(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, ErrEmptyResponse)

	blocked := &genai.GenerateContentResponse{PromptFeedback: &genai.GenerateContentResponsePromptFeedback{
		BlockReason: genai.BlockedReasonSafety,
	}}
	_, err = extractText(blocked)
	assert.ErrorIs(t, err, ErrBlocked)

	safety := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		FinishReason: genai.FinishReasonSafety,
		Content:      genai.NewContentFromText("partial", genai.RoleModel),
	}}}
	_, err = extractText(safety)
	assert.ErrorIs(t, err, ErrBlocked)
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(errors.New("connection reset")))
	assert.True(t, retryable(fmt.Errorf("gemini API call failed: %w", genai.APIError{Code: 429})))
	assert.True(t, retryable(genai.APIError{Code: 500}))
	assert.False(t, retryable(genai.APIError{Code: 403}))
	assert.False(t, retryable(fmt.Errorf("wrapped: %w", ErrBlocked)))
	assert.False(t, retryable(ErrRateLimited))
	assert.False(t, retryable(nil))
}
