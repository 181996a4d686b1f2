package ai

import "context"

// Options tune a single generation call. Zero values use the client defaults.
type Options struct {
	MaxTokens   int
	Temperature float32
}

// Client defines an interface for generating text with an AI model.
// This keeps the application services independent of the provider SDK.
type Client interface {
	GenerateText(ctx context.Context, prompt string, opts Options) (string, error)
}
