// Package llm provides the text-generation capability used by the
// scoring pipeline: an OpenAI-compatible client, an Anthropic client,
// and a failover composite that switches providers on outage.
package llm

import (
	"context"
)

// GenerateResult is the outcome of one generation call, including the
// token usage that feeds billable cost accounting.
type GenerateResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CostUnits converts token usage into billable cost units.
func (r *GenerateResult) CostUnits() float64 {
	return float64(r.TotalTokens) / 1000.0
}

// TextGenerator defines the text-generation contract the pipeline
// stages depend on. Use this interface for dependency injection to
// enable mocking in tests.
type TextGenerator interface {
	// Generate produces a completion for the prompt.
	Generate(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResult, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// Ensure implementations satisfy TextGenerator at compile time.
var (
	_ TextGenerator = (*Client)(nil)
	_ TextGenerator = (*AnthropicClient)(nil)
	_ TextGenerator = (*FailoverGenerator)(nil)
)
