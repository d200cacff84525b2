// Package llm provides clients for the text generation providers used by
// query planning.
package llm

import (
	"context"
)

// GenerateResult is one completed generation with usage accounting.
type GenerateResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Generator is the narrow contract the query planner consumes: one prompt
// in, raw text out. Implementations wrap a concrete provider.
// Use this interface for dependency injection to enable mocking in tests.
type Generator interface {
	// Generate produces a completion for the prompt. The system message
	// frames the task; pass "" to use the provider default behavior.
	Generate(ctx context.Context, prompt string, systemMessage string) (*GenerateResult, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// Ensure implementations satisfy Generator at compile time.
var (
	_ Generator = (*Client)(nil)
	_ Generator = (*AnthropicClient)(nil)
	_ Generator = (*MockGenerator)(nil)
)
