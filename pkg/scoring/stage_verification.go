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

// VerifiedScoring is a detailed scoring annotated with verification
// notes and a final confidence value.
type VerifiedScoring struct {
	DetailedScoring
	VerificationNotes []string
	Verified          bool
}

// VerificationStage re-examines a detailed scoring for internal
// consistency with an independent generation call. Any failure passes
// the unverified scoring through unchanged; verification never makes a
// result worse than unverified.
type VerificationStage struct {
	generator llm.TextGenerator
	logger    *zap.Logger
}

// NewVerificationStage creates the consistency-check stage.
func NewVerificationStage(generator llm.TextGenerator, logger *zap.Logger) *VerificationStage {
	return &VerificationStage{
		generator: generator,
		logger:    logger.Named(StageVerification),
	}
}

type verificationResponse struct {
	Adjustments []struct {
		Category string          `json:"category"`
		Score    json.RawMessage `json:"score"`
		Reason   string          `json:"reason"`
	} `json:"adjustments"`
	VerificationNotes []string        `json:"verification_notes"`
	Confidence        json.RawMessage `json:"confidence"`
}

// Run verifies the scoring. It never returns an error: all failures
// degrade to passing the input through unverified.
func (s *VerificationStage) Run(ctx context.Context, opp *models.Opportunity, scoring *DetailedScoring) (*VerifiedScoring, CostEntry) {
	passthrough := &VerifiedScoring{DetailedScoring: *scoring, Verified: false}

	scoringJSON, err := json.Marshal(map[string]any{
		"overall_score":   scoring.OverallScore,
		"reasoning":       scoring.Reasoning,
		"categories":      scoring.Categories,
		"recommendations": scoring.Recommendations,
	})
	if err != nil {
		return passthrough, CostEntry{Stage: StageVerification}
	}

	prompt := prompts.BuildVerificationPrompt(opp, string(scoringJSON))
	result, err := s.generator.Generate(ctx, prompt, prompts.SystemAnalyst, 0.1)
	if err != nil {
		s.logger.Warn("verification call failed, passing scoring through unverified",
			zap.String("opportunity_id", opp.ID),
			zap.Error(err))
		return passthrough, CostEntry{Stage: StageVerification}
	}

	entry := CostEntry{
		Stage:            StageVerification,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		CostUnits:        result.CostUnits(),
	}

	parsed, parseErr := llm.ParseJSONResponse[verificationResponse](result.Content)
	if parseErr != nil {
		s.logger.Warn("verification response unparseable, passing scoring through unverified",
			zap.String("opportunity_id", opp.ID),
			zap.Error(parseErr))
		return passthrough, entry
	}

	verified := &VerifiedScoring{
		DetailedScoring:   *scoring,
		VerificationNotes: parsed.VerificationNotes,
		Verified:          true,
	}
	verified.Categories = make(map[string]models.CategoryScore, len(scoring.Categories))
	for name, cat := range scoring.Categories {
		verified.Categories[name] = cat
	}

	for _, adj := range parsed.Adjustments {
		cat, ok := verified.Categories[adj.Category]
		if !ok {
			continue
		}
		score, numOK := jsonutil.FlexibleFloatValue(adj.Score)
		if !numOK || score < 0 || score > 100 {
			continue
		}
		cat.Score = score
		cat.Contribution = score * cat.Weight / 100
		verified.Categories[adj.Category] = cat
		if adj.Reason != "" {
			verified.VerificationNotes = append(verified.VerificationNotes, adj.Reason)
		}
	}

	// Recompute overall from adjusted contributions.
	var overall float64
	for _, cat := range verified.Categories {
		overall += cat.Contribution
	}
	verified.OverallScore = overall

	if conf, ok := jsonutil.FlexibleFloatValue(parsed.Confidence); ok && conf >= 0 && conf <= 100 {
		verified.Confidence = int(conf)
	} else {
		verified.Confidence = scoring.Confidence
	}

	return verified, entry
}
