package scoring

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/bidfit-inc/bidfit-engine/pkg/jsonutil"
	"github.com/bidfit-inc/bidfit-engine/pkg/llm"
	"github.com/bidfit-inc/bidfit-engine/pkg/models"
	"github.com/bidfit-inc/bidfit-engine/pkg/prompts"
)

// Category names for the detailed scoring stage. The four categories and
// their weights are fixed per deployment, not per request.
const (
	CategoryPastPerformance = "past_performance"
	CategoryTechnical       = "technical_capability"
	CategoryStrategicFit    = "strategic_fit"
	CategoryCredibility     = "credibility"
)

// DetailedScoring is the structured output of the detailed scoring stage.
type DetailedScoring struct {
	OverallScore    float64
	Reasoning       string
	Categories      map[string]models.CategoryScore
	Recommendations []string
	Confidence      int
}

// DetailedScoringStage asks for a structured score across the four fixed
// categories. It tolerates markdown-wrapped responses and string-typed
// numbers; on total parse failure it substitutes a neutral structure and
// records the parse error in the reasoning field so the failure stays
// visible downstream instead of silent.
type DetailedScoringStage struct {
	generator llm.TextGenerator
	weights   prompts.CategoryWeights
	logger    *zap.Logger
}

// NewDetailedScoringStage creates the structured scoring stage.
func NewDetailedScoringStage(generator llm.TextGenerator, weights prompts.CategoryWeights, logger *zap.Logger) *DetailedScoringStage {
	return &DetailedScoringStage{
		generator: generator,
		weights:   weights,
		logger:    logger.Named(StageDetailedScoring),
	}
}

// detailedResponse is the wire shape, with raw scores so string-typed
// numbers can be coerced instead of failing unmarshal.
type detailedResponse struct {
	OverallScore    json.RawMessage                `json:"overall_score"`
	Reasoning       string                         `json:"reasoning"`
	Categories      map[string]rawCategoryResponse `json:"categories"`
	Recommendations []string                       `json:"recommendations"`
}

type rawCategoryResponse struct {
	Score         json.RawMessage `json:"score"`
	Contribution  json.RawMessage `json:"contribution"`
	Strengths     []string        `json:"strengths"`
	Weaknesses    []string        `json:"weaknesses"`
	Opportunities []string        `json:"opportunities"`
	Threats       []string        `json:"threats"`
}

// Run executes the detailed scoring call. Generation failures surface as
// typed errors; parse failures are absorbed with the neutral default.
func (s *DetailedScoringStage) Run(ctx context.Context, opp *models.Opportunity, profile *models.Profile, analysis *models.SemanticAnalysis) (*DetailedScoring, CostEntry, error) {
	prompt := prompts.BuildDetailedScoringPrompt(opp, profile, analysis, s.weights)

	result, err := s.generator.Generate(ctx, prompt, prompts.SystemAnalyst, 0.2)
	if err != nil {
		return nil, CostEntry{Stage: StageDetailedScoring}, err
	}

	entry := CostEntry{
		Stage:            StageDetailedScoring,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		CostUnits:        result.CostUnits(),
	}

	parsed, parseErr := llm.ParseJSONResponse[detailedResponse](result.Content)
	if parseErr != nil {
		s.logger.Warn("detailed scoring response unparseable, substituting neutral scores",
			zap.String("opportunity_id", opp.ID),
			zap.Error(parseErr))
		return s.neutralScoring(parseErr), entry, nil
	}

	scoring := &DetailedScoring{
		Reasoning:       parsed.Reasoning,
		Categories:      make(map[string]models.CategoryScore, 4),
		Recommendations: parsed.Recommendations,
	}

	for name, weight := range s.weightMap() {
		raw, ok := parsed.Categories[name]
		if !ok {
			scoring.Categories[name] = models.CategoryScore{
				Score:        neutralScore,
				Weight:       weight,
				Contribution: neutralScore * weight / 100,
			}
			continue
		}

		score, ok := jsonutil.FlexibleFloatValue(raw.Score)
		if !ok || score < 0 || score > 100 {
			score = neutralScore
		}
		scoring.Categories[name] = models.CategoryScore{
			Score:  score,
			Weight: weight,
			// Always recompute; model-reported contributions drift.
			Contribution:  score * weight / 100,
			Strengths:     raw.Strengths,
			Weaknesses:    raw.Weaknesses,
			Opportunities: raw.Opportunities,
			Threats:       raw.Threats,
		}
	}

	var contributionSum float64
	for _, cat := range scoring.Categories {
		contributionSum += cat.Contribution
	}

	// Trust the model's overall only when it is a number in range;
	// otherwise recompute from category contributions.
	if overall, ok := jsonutil.FlexibleFloatValue(parsed.OverallScore); ok && overall >= 0 && overall <= 100 {
		scoring.OverallScore = overall
	} else {
		scoring.OverallScore = contributionSum
	}

	return scoring, entry, nil
}

// neutralScoring is the safe default when the response cannot be parsed
// at all: neutral midpoint per category, parse error preserved in the
// reasoning field.
func (s *DetailedScoringStage) neutralScoring(parseErr error) *DetailedScoring {
	categories := make(map[string]models.CategoryScore, 4)
	for name, weight := range s.weightMap() {
		categories[name] = models.CategoryScore{
			Score:        neutralScore,
			Weight:       weight,
			Contribution: neutralScore * weight / 100,
		}
	}
	return &DetailedScoring{
		OverallScore: neutralScore,
		Reasoning:    fmt.Sprintf("scoring response could not be parsed: %v", parseErr),
		Categories:   categories,
	}
}

func (s *DetailedScoringStage) weightMap() map[string]float64 {
	return map[string]float64{
		CategoryPastPerformance: s.weights.PastPerformance,
		CategoryTechnical:       s.weights.Technical,
		CategoryStrategicFit:    s.weights.StrategicFit,
		CategoryCredibility:     s.weights.Credibility,
	}
}
