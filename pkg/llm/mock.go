package llm

import (
	"context"
)

// MockGenerator is a configurable mock for testing generation consumers.
// Set the function field to control behavior in tests.
type MockGenerator struct {
	// GenerateFunc is called when Generate is invoked.
	// If nil, returns an empty result and nil error.
	GenerateFunc func(ctx context.Context, prompt string, systemMessage string) (*GenerateResult, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Endpoint is returned by GetEndpoint. Defaults to "http://mock-endpoint".
	Endpoint string

	// Call tracking for verification
	GenerateCalls int
	LastPrompt    string
}

// NewMockGenerator creates a new mock with sensible defaults.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		Model:    "mock-model",
		Endpoint: "http://mock-endpoint",
	}
}

// Generate implements Generator.
func (m *MockGenerator) Generate(ctx context.Context, prompt string, systemMessage string) (*GenerateResult, error) {
	m.GenerateCalls++
	m.LastPrompt = prompt
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, systemMessage)
	}
	return &GenerateResult{}, nil
}

// GetModel implements Generator.
func (m *MockGenerator) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// GetEndpoint implements Generator.
func (m *MockGenerator) GetEndpoint() string {
	if m.Endpoint == "" {
		return "http://mock-endpoint"
	}
	return m.Endpoint
}

// Reset clears call tracking.
func (m *MockGenerator) Reset() {
	m.GenerateCalls = 0
	m.LastPrompt = ""
}
