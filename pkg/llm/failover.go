package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bidfit-inc/bidfit-engine/pkg/apperrors"
)

// FailoverGenerator tries the primary provider and falls through to the
// secondary when the primary fails with an outage-class error. Non-outage
// errors (auth, parse) are returned immediately; switching providers will
// not fix them. Fallback policy for *both* providers being down belongs
// to the scoring orchestrator, not here.
type FailoverGenerator struct {
	primary   TextGenerator
	secondary TextGenerator // may be nil
	logger    *zap.Logger
}

// NewFailoverGenerator creates a failover composite. secondary may be
// nil, in which case the composite behaves like the primary alone.
func NewFailoverGenerator(primary, secondary TextGenerator, logger *zap.Logger) *FailoverGenerator {
	return &FailoverGenerator{
		primary:   primary,
		secondary: secondary,
		logger:    logger.Named("llm-failover"),
	}
}

// Generate calls the primary, then the secondary on outage.
func (f *FailoverGenerator) Generate(
	ctx context.Context,
	prompt string,
	systemMessage string,
	temperature float64,
) (*GenerateResult, error) {
	result, err := f.primary.Generate(ctx, prompt, systemMessage, temperature)
	if err == nil {
		return result, nil
	}

	if f.secondary == nil || !IsOutage(err) {
		return nil, err
	}

	// Respect caller cancellation between attempts.
	if ctx.Err() != nil {
		return nil, ClassifyError(ctx.Err())
	}

	f.logger.Warn("primary provider unavailable, switching to secondary",
		zap.String("primary_model", f.primary.GetModel()),
		zap.String("secondary_model", f.secondary.GetModel()),
		zap.Error(err))

	result, secErr := f.secondary.Generate(ctx, prompt, systemMessage, temperature)
	if secErr != nil {
		f.logger.Error("secondary provider failed as well",
			zap.Error(secErr))
		// Both %w verbs so callers can match the exhaustion sentinel and
		// still classify the underlying provider error.
		return nil, fmt.Errorf("%w: %w", apperrors.ErrPipelineExhausted, secErr)
	}
	return result, nil
}

// GetModel returns the primary's model name.
func (f *FailoverGenerator) GetModel() string {
	return f.primary.GetModel()
}
