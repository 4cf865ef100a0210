package llm

import (
	"context"
)

// MockTextGenerator is a configurable mock for testing generation
// consumers. Set GenerateFunc to control behavior in tests.
type MockTextGenerator struct {
	// GenerateFunc is called when Generate is invoked.
	// If nil, returns an empty result and nil error.
	GenerateFunc func(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResult, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// GenerateCalls tracks invocations for verification.
	GenerateCalls int
}

// NewMockTextGenerator creates a new mock with sensible defaults.
func NewMockTextGenerator() *MockTextGenerator {
	return &MockTextGenerator{
		Model: "mock-model",
	}
}

// Generate implements TextGenerator.
func (m *MockTextGenerator) Generate(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResult, error) {
	m.GenerateCalls++
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, systemMessage, temperature)
	}
	return &GenerateResult{}, nil
}

// GetModel implements TextGenerator.
func (m *MockTextGenerator) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

var _ TextGenerator = (*MockTextGenerator)(nil)
