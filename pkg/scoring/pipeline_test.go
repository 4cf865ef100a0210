package scoring

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bidfit-inc/bidfit-engine/pkg/llm"
	"github.com/bidfit-inc/bidfit-engine/pkg/models"
)

func TestPipeline_AdvancedModeRunsAllStages(t *testing.T) {
	gen := stagedGenerator()
	pipeline := NewPipeline(gen, testWeights(), time.Minute, zap.NewNop())

	result, err := pipeline.Run(context.Background(), testOpportunity(), testProfile(), models.ModeAdvanced)

	require.NoError(t, err)
	assert.Equal(t, 4, gen.GenerateCalls)

	// Verification adjusted credibility from 75 to 60.
	expected := 90*0.35 + 80*0.35 + 70*0.15 + 60*0.15
	assert.Equal(t, clampScore(expected), result.OverallScore)
	assert.Equal(t, 85, result.Confidence)
	assert.Equal(t, models.AlgorithmGenerative, result.AlgorithmVersion)

	require.NotNil(t, result.SemanticAnalysis)
	require.NotNil(t, result.StrategicInsights)
	assert.Equal(t, 62, result.StrategicInsights.WinProbability)

	// One cost unit per stage at 1000 tokens each.
	assert.InDelta(t, 4.0, result.CostUnits, 1e-9)
	assert.GreaterOrEqual(t, result.ProcessingTimeMs, int64(0))
}

func TestPipeline_FastModeSkipsAnalysisStages(t *testing.T) {
	gen := stagedGenerator()
	pipeline := NewPipeline(gen, testWeights(), time.Minute, zap.NewNop())

	result, err := pipeline.Run(context.Background(), testOpportunity(), testProfile(), models.ModeFast)

	require.NoError(t, err)
	assert.Equal(t, 1, gen.GenerateCalls)

	assert.Equal(t, 82, result.OverallScore)
	assert.Nil(t, result.SemanticAnalysis)
	// Confidence defaults when the single stage reports none.
	assert.Equal(t, 75, result.Confidence)

	// Win probability is heuristic in fast mode.
	require.NotNil(t, result.StrategicInsights)
	assert.Equal(t, heuristicWinProbability(82), result.StrategicInsights.WinProbability)
	assert.InDelta(t, 1.0, result.CostUnits, 1e-9)
}

func TestPipeline_ReasoningFailureSurfacesStage(t *testing.T) {
	gen := llm.NewMockTextGenerator()
	gen.GenerateFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.GenerateResult, error) {
		if strings.Contains(prompt, "# Opportunity Fit Analysis") {
			return nil, llm.NewError(llm.ErrorTypeOutage, "provider down", true, nil)
		}
		return &llm.GenerateResult{Content: detailedJSON, TotalTokens: 1000}, nil
	}
	pipeline := NewPipeline(gen, testWeights(), time.Minute, zap.NewNop())

	_, err := pipeline.Run(context.Background(), testOpportunity(), testProfile(), models.ModeAdvanced)

	require.Error(t, err)
	var pipeErr *PipelineError
	require.True(t, errors.As(err, &pipeErr))
	assert.Equal(t, StageReasoning, pipeErr.Stage)
	assert.True(t, llm.IsOutage(err))
}

func TestPipeline_VerificationFailureDoesNotFailRun(t *testing.T) {
	gen := llm.NewMockTextGenerator()
	gen.GenerateFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.GenerateResult, error) {
		switch {
		case strings.Contains(prompt, "# Opportunity Fit Analysis"):
			return &llm.GenerateResult{Content: reasoningJSON, TotalTokens: 1000}, nil
		case strings.Contains(prompt, "# Detailed Match Scoring"):
			return &llm.GenerateResult{Content: detailedJSON, TotalTokens: 1000}, nil
		default:
			return nil, llm.NewError(llm.ErrorTypeTimeout, "deadline exceeded", true, nil)
		}
	}
	pipeline := NewPipeline(gen, testWeights(), time.Minute, zap.NewNop())

	result, err := pipeline.Run(context.Background(), testOpportunity(), testProfile(), models.ModeAdvanced)

	require.NoError(t, err)
	// Unverified detailed score stands, and insights degrade to the
	// placeholder.
	assert.Equal(t, 82, result.OverallScore)
	require.NotNil(t, result.StrategicInsights)
	assert.Equal(t, heuristicWinProbability(82), result.StrategicInsights.WinProbability)
}

func TestPipeline_ScoreAlwaysInRange(t *testing.T) {
	gen := llm.NewMockTextGenerator()
	gen.GenerateFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.GenerateResult, error) {
		return &llm.GenerateResult{Content: `{"overall_score": 900, "categories": {}}`, TotalTokens: 100}, nil
	}
	pipeline := NewPipeline(gen, testWeights(), time.Minute, zap.NewNop())

	result, err := pipeline.Run(context.Background(), testOpportunity(), testProfile(), models.ModeFast)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.OverallScore, 0)
	assert.LessOrEqual(t, result.OverallScore, 100)
}
