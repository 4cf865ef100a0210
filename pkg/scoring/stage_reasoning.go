package scoring

import (
	"context"

	"go.uber.org/zap"

	"github.com/bidfit-inc/bidfit-engine/pkg/llm"
	"github.com/bidfit-inc/bidfit-engine/pkg/models"
	"github.com/bidfit-inc/bidfit-engine/pkg/prompts"
)

// Stage names used in cost ledger entries and logs.
const (
	StageReasoning       = "reasoning"
	StageDetailedScoring = "detailed_scoring"
	StageVerification    = "verification"
	StageInsight         = "insight"
)

// ReasoningStage contrasts the opportunity's explicit and implicit
// requirements against the profile and extracts reasoning steps. Parse
// failures are absorbed: the stage returns a minimal analysis with the
// raw text as summary rather than failing the pipeline.
type ReasoningStage struct {
	generator llm.TextGenerator
	logger    *zap.Logger
}

// NewReasoningStage creates the first pipeline stage.
func NewReasoningStage(generator llm.TextGenerator, logger *zap.Logger) *ReasoningStage {
	return &ReasoningStage{
		generator: generator,
		logger:    logger.Named(StageReasoning),
	}
}

// reasoningResponse is the wire shape of the stage's generation output.
type reasoningResponse struct {
	Summary        string   `json:"summary"`
	Requirements   []string `json:"requirements"`
	Preferences    []string `json:"preferences"`
	ReasoningSteps []struct {
		Statement  string   `json:"statement"`
		Confidence float64  `json:"confidence"`
		Evidence   []string `json:"evidence"`
	} `json:"reasoning_steps"`
}

// Run executes the reasoning analysis. Generation failures surface as
// typed errors for the pipeline to handle; parse failures do not.
func (s *ReasoningStage) Run(ctx context.Context, opp *models.Opportunity, profile *models.Profile) (*models.SemanticAnalysis, CostEntry, error) {
	prompt := prompts.BuildReasoningPrompt(opp, profile)

	result, err := s.generator.Generate(ctx, prompt, prompts.SystemAnalyst, 0.3)
	if err != nil {
		return nil, CostEntry{Stage: StageReasoning}, err
	}

	entry := CostEntry{
		Stage:            StageReasoning,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		CostUnits:        result.CostUnits(),
	}

	parsed, parseErr := llm.ParseJSONResponse[reasoningResponse](result.Content)
	if parseErr != nil {
		s.logger.Warn("reasoning response unparseable, using minimal analysis",
			zap.String("opportunity_id", opp.ID),
			zap.Error(parseErr))
		return &models.SemanticAnalysis{
			Summary:      result.Content,
			Requirements: []string{},
			Preferences:  []string{},
		}, entry, nil
	}

	analysis := &models.SemanticAnalysis{
		Summary:      parsed.Summary,
		Requirements: parsed.Requirements,
		Preferences:  parsed.Preferences,
	}
	for _, step := range parsed.ReasoningSteps {
		analysis.ReasoningSteps = append(analysis.ReasoningSteps, models.ReasoningStep{
			Statement:  step.Statement,
			Confidence: step.Confidence,
			Evidence:   step.Evidence,
		})
	}

	return analysis, entry, nil
}
