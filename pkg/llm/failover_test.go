package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bidfit-inc/bidfit-engine/pkg/apperrors"
)

func TestFailoverGenerator_PrimarySucceeds(t *testing.T) {
	primary := NewMockTextGenerator()
	primary.GenerateFunc = func(ctx context.Context, prompt, system string, temp float64) (*GenerateResult, error) {
		return &GenerateResult{Content: "primary answer", TotalTokens: 10}, nil
	}
	secondary := NewMockTextGenerator()

	fg := NewFailoverGenerator(primary, secondary, zap.NewNop())
	result, err := fg.Generate(context.Background(), "prompt", "system", 0.2)
	require.NoError(t, err)
	assert.Equal(t, "primary answer", result.Content)
	assert.Equal(t, 0, secondary.GenerateCalls)
}

func TestFailoverGenerator_OutageSwitchesToSecondary(t *testing.T) {
	primary := NewMockTextGenerator()
	primary.GenerateFunc = func(ctx context.Context, prompt, system string, temp float64) (*GenerateResult, error) {
		return nil, NewError(ErrorTypeOutage, "rate limited", true, nil)
	}
	secondary := NewMockTextGenerator()
	secondary.GenerateFunc = func(ctx context.Context, prompt, system string, temp float64) (*GenerateResult, error) {
		return &GenerateResult{Content: "secondary answer", TotalTokens: 12}, nil
	}

	fg := NewFailoverGenerator(primary, secondary, zap.NewNop())
	result, err := fg.Generate(context.Background(), "prompt", "system", 0.2)
	require.NoError(t, err)
	assert.Equal(t, "secondary answer", result.Content)
	assert.Equal(t, 1, primary.GenerateCalls)
	assert.Equal(t, 1, secondary.GenerateCalls)
}

func TestFailoverGenerator_NonOutageDoesNotSwitch(t *testing.T) {
	primary := NewMockTextGenerator()
	primary.GenerateFunc = func(ctx context.Context, prompt, system string, temp float64) (*GenerateResult, error) {
		return nil, NewError(ErrorTypeAuth, "bad key", false, nil)
	}
	secondary := NewMockTextGenerator()

	fg := NewFailoverGenerator(primary, secondary, zap.NewNop())
	_, err := fg.Generate(context.Background(), "prompt", "system", 0.2)
	require.Error(t, err)
	assert.Equal(t, ErrorTypeAuth, GetErrorType(err))
	assert.Equal(t, 0, secondary.GenerateCalls)
}

func TestFailoverGenerator_NoSecondary(t *testing.T) {
	primary := NewMockTextGenerator()
	primary.GenerateFunc = func(ctx context.Context, prompt, system string, temp float64) (*GenerateResult, error) {
		return nil, NewError(ErrorTypeOutage, "down", true, nil)
	}

	fg := NewFailoverGenerator(primary, nil, zap.NewNop())
	_, err := fg.Generate(context.Background(), "prompt", "system", 0.2)
	require.Error(t, err)
	assert.True(t, IsOutage(err))
}

func TestFailoverGenerator_BothFail(t *testing.T) {
	primary := NewMockTextGenerator()
	primary.GenerateFunc = func(ctx context.Context, prompt, system string, temp float64) (*GenerateResult, error) {
		return nil, NewError(ErrorTypeOutage, "primary down", true, nil)
	}
	secondary := NewMockTextGenerator()
	secondary.GenerateFunc = func(ctx context.Context, prompt, system string, temp float64) (*GenerateResult, error) {
		return nil, NewError(ErrorTypeOutage, "secondary down", true, nil)
	}

	fg := NewFailoverGenerator(primary, secondary, zap.NewNop())
	_, err := fg.Generate(context.Background(), "prompt", "system", 0.2)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrPipelineExhausted)
	assert.True(t, IsOutage(err))
}
