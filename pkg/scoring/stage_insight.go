package scoring

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/bidfit-inc/bidfit-engine/pkg/jsonutil"
	"github.com/bidfit-inc/bidfit-engine/pkg/llm"
	"github.com/bidfit-inc/bidfit-engine/pkg/models"
	"github.com/bidfit-inc/bidfit-engine/pkg/prompts"
)

// InsightStage produces win probability estimates, capability gaps, and
// bid strategy guidance for an already-scored opportunity. It is the last
// enrichment step and never fails the run: any generation or parse problem
// yields a conservative placeholder instead.
type InsightStage struct {
	generator llm.TextGenerator
	logger    *zap.Logger
}

func NewInsightStage(generator llm.TextGenerator, logger *zap.Logger) *InsightStage {
	return &InsightStage{
		generator: generator,
		logger:    logger.Named("insight-stage"),
	}
}

// insightResponse mirrors the JSON the model is asked to produce. Numeric
// fields come back as RawMessage because models sometimes quote them.
type insightResponse struct {
	WinProbability         json.RawMessage `json:"win_probability"`
	WinProbabilityLow      json.RawMessage `json:"win_probability_low"`
	WinProbabilityHigh     json.RawMessage `json:"win_probability_high"`
	CompetitiveAdvantages  []string        `json:"competitive_advantages"`
	Gaps                   []insightGap    `json:"gaps"`
	TeamingRecommendations []string        `json:"teaming_recommendations"`
	ProposalThemes         []string        `json:"proposal_themes"`
}

type insightGap struct {
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Mitigation  string `json:"mitigation"`
}

// Run generates strategic insights for the scored opportunity. The returned
// insights are never nil; on any failure a neutral placeholder centred on
// the overall score is returned and the run continues.
func (s *InsightStage) Run(ctx context.Context, opp *models.Opportunity, profile *models.Profile, overallScore int) (*models.StrategicInsights, CostEntry) {
	prompt := prompts.BuildInsightPrompt(opp, profile, overallScore)

	result, err := s.generator.Generate(ctx, prompt, prompts.SystemAnalyst, 0.3)
	if err != nil {
		s.logger.Warn("insight generation failed, using placeholder",
			zap.String("opportunity_id", opp.ID),
			zap.Error(err))
		return placeholderInsights(overallScore), CostEntry{Stage: StageInsight}
	}

	entry := CostEntry{
		Stage:            StageInsight,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		CostUnits:        result.CostUnits(),
	}

	parsed, err := llm.ParseJSONResponse[insightResponse](result.Content)
	if err != nil {
		s.logger.Warn("insight response unparseable, using placeholder",
			zap.String("opportunity_id", opp.ID),
			zap.Error(err))
		return placeholderInsights(overallScore), entry
	}

	insights := placeholderInsights(overallScore)
	insights.CompetitiveAdvantages = parsed.CompetitiveAdvantages
	insights.TeamingRecommendations = parsed.TeamingRecommendations
	insights.ProposalThemes = parsed.ProposalThemes

	if wp, ok := jsonutil.FlexibleFloatValue(parsed.WinProbability); ok && wp >= 0 && wp <= 100 {
		insights.WinProbability = int(wp + 0.5)
		insights.WinProbabilityLow = max(insights.WinProbability-15, 0)
		insights.WinProbabilityHigh = min(insights.WinProbability+15, 100)
	}
	if lo, ok := jsonutil.FlexibleFloatValue(parsed.WinProbabilityLow); ok && lo >= 0 && lo <= 100 {
		insights.WinProbabilityLow = int(lo + 0.5)
	}
	if hi, ok := jsonutil.FlexibleFloatValue(parsed.WinProbabilityHigh); ok && hi >= 0 && hi <= 100 {
		insights.WinProbabilityHigh = int(hi + 0.5)
	}
	if insights.WinProbabilityLow > insights.WinProbability {
		insights.WinProbabilityLow = insights.WinProbability
	}
	if insights.WinProbabilityHigh < insights.WinProbability {
		insights.WinProbabilityHigh = insights.WinProbability
	}

	for _, g := range parsed.Gaps {
		if g.Description == "" {
			continue
		}
		insights.Gaps = append(insights.Gaps, models.CapabilityGap{
			Description: g.Description,
			Severity:    normalizeSeverity(g.Severity),
			Mitigation:  g.Mitigation,
		})
	}

	return insights, entry
}

// placeholderInsights is the canonical safe default when insight generation
// is unavailable: a heuristic win probability with a wide interval and no
// claims about gaps or advantages.
func placeholderInsights(overallScore int) *models.StrategicInsights {
	wp := heuristicWinProbability(overallScore)
	lo := wp - 15
	if lo < 0 {
		lo = 0
	}
	hi := wp + 15
	if hi > 100 {
		hi = 100
	}
	return &models.StrategicInsights{
		WinProbability:     wp,
		WinProbabilityLow:  lo,
		WinProbabilityHigh: hi,
	}
}

// heuristicWinProbability maps an overall score onto a win probability
// without consulting a model. Used by fast mode and as the insight
// fallback. The mapping is deliberately conservative: even a perfect
// score caps at 85 because award decisions depend on factors outside
// the profile.
func heuristicWinProbability(overallScore int) int {
	p := 15 + float64(overallScore)*0.7
	if p > 85 {
		p = 85
	}
	if p < 5 {
		p = 5
	}
	return int(p + 0.5)
}

func normalizeSeverity(s string) models.GapSeverity {
	switch models.GapSeverity(s) {
	case models.GapSeverityCritical, models.GapSeverityMajor, models.GapSeverityMinor:
		return models.GapSeverity(s)
	default:
		return models.GapSeverityMajor
	}
}
