package scoring

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bidfit-inc/bidfit-engine/pkg/llm"
	"github.com/bidfit-inc/bidfit-engine/pkg/models"
	"github.com/bidfit-inc/bidfit-engine/pkg/prompts"
)

// PipelineError marks which stage a generative run died in. Only stages
// that are allowed to fail (reasoning, detailed scoring) produce one;
// verification and insight degrade in place instead.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Pipeline runs the multi-stage generative scoring flow. Advanced mode
// runs all four stages; fast mode runs detailed scoring alone and fills
// the rest heuristically. Every stage call is bounded by the configured
// generation timeout.
type Pipeline struct {
	reasoning    *ReasoningStage
	detailed     *DetailedScoringStage
	verification *VerificationStage
	insight      *InsightStage
	timeout      time.Duration
	logger       *zap.Logger
}

func NewPipeline(generator llm.TextGenerator, weights prompts.CategoryWeights, timeout time.Duration, logger *zap.Logger) *Pipeline {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Pipeline{
		reasoning:    NewReasoningStage(generator, logger),
		detailed:     NewDetailedScoringStage(generator, weights, logger),
		verification: NewVerificationStage(generator, logger),
		insight:      NewInsightStage(generator, logger),
		timeout:      timeout,
		logger:       logger.Named("pipeline"),
	}
}

// Run scores one opportunity/profile pair generatively. The returned
// result always has a finite overall score in [0,100]; an error means no
// usable result was produced and the caller decides whether to fall back.
func (p *Pipeline) Run(ctx context.Context, opp *models.Opportunity, profile *models.Profile, mode models.Mode) (*models.ScoreResult, error) {
	start := time.Now()
	var ledger CostLedger

	var analysis *models.SemanticAnalysis
	if mode == models.ModeAdvanced {
		a, entry, err := p.runReasoning(ctx, opp, profile)
		ledger.Add(entry)
		if err != nil {
			return nil, &PipelineError{Stage: StageReasoning, Err: err}
		}
		analysis = a
	}

	detailed, entry, err := p.runDetailed(ctx, opp, profile, analysis)
	ledger.Add(entry)
	if err != nil {
		return nil, &PipelineError{Stage: StageDetailedScoring, Err: err}
	}

	verified := &VerifiedScoring{DetailedScoring: *detailed}
	var insights *models.StrategicInsights

	if mode == models.ModeAdvanced {
		verified, entry = p.runVerification(ctx, opp, detailed)
		ledger.Add(entry)

		insights, entry = p.runInsight(ctx, opp, profile, clampScore(verified.OverallScore))
		ledger.Add(entry)
	} else {
		insights = placeholderInsights(clampScore(verified.OverallScore))
	}

	result := p.compile(verified, analysis, insights, &ledger, start)
	p.logger.Debug("pipeline complete",
		zap.String("opportunity_id", opp.ID),
		zap.String("mode", string(mode)),
		zap.Int("overall_score", result.OverallScore),
		zap.Float64("cost_units", result.CostUnits),
		zap.Int64("duration_ms", result.ProcessingTimeMs))
	return result, nil
}

func (p *Pipeline) runReasoning(ctx context.Context, opp *models.Opportunity, profile *models.Profile) (*models.SemanticAnalysis, CostEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.reasoning.Run(ctx, opp, profile)
}

func (p *Pipeline) runDetailed(ctx context.Context, opp *models.Opportunity, profile *models.Profile, analysis *models.SemanticAnalysis) (*DetailedScoring, CostEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.detailed.Run(ctx, opp, profile, analysis)
}

func (p *Pipeline) runVerification(ctx context.Context, opp *models.Opportunity, detailed *DetailedScoring) (*VerifiedScoring, CostEntry) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.verification.Run(ctx, opp, detailed)
}

func (p *Pipeline) runInsight(ctx context.Context, opp *models.Opportunity, profile *models.Profile, score int) (*models.StrategicInsights, CostEntry) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.insight.Run(ctx, opp, profile, score)
}

// compile folds stage outputs into the final result, enforcing the score
// and confidence invariants in one place.
func (p *Pipeline) compile(verified *VerifiedScoring, analysis *models.SemanticAnalysis, insights *models.StrategicInsights, ledger *CostLedger, start time.Time) *models.ScoreResult {
	confidence := verified.Confidence
	if confidence <= 0 || confidence > 100 {
		confidence = 75
	}

	return &models.ScoreResult{
		OverallScore:      clampScore(verified.OverallScore),
		Confidence:        confidence,
		AlgorithmVersion:  models.AlgorithmGenerative,
		Categories:        verified.Categories,
		SemanticAnalysis:  analysis,
		StrategicInsights: insights,
		Recommendations:   verified.Recommendations,
		CostUnits:         ledger.TotalCostUnits(),
		ProcessingTimeMs:  time.Since(start).Milliseconds(),
	}
}
