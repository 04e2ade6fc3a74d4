// Package llm provides the OpenAI-compatible chat client used for question
// generation, assistance suggestions, and Perplexity source discovery.
package llm

import (
	"context"
)

// Client defines the interface for generative chat calls.
// Use this interface for dependency injection to enable mocking in tests.
type Client interface {
	// GenerateResponse generates a chat completion response.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// Ensure ChatClient implements Client at compile time.
var _ Client = (*ChatClient)(nil)
