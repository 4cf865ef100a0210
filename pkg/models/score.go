package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Method selects the computation strategy for a score request.
type Method string

const (
	MethodCalculation Method = "calculation"
	MethodGenerative  Method = "generative"
	MethodHybrid      Method = "hybrid"
)

// Mode selects how much of the generative pipeline runs.
type Mode string

const (
	ModeFast     Mode = "fast"
	ModeAdvanced Mode = "advanced"
)

// Algorithm version tags. Fallback tags let downstream consumers tell a
// degraded result apart from a first-class one.
const (
	AlgorithmCalc               = "calc-v1"
	AlgorithmCalcFallback       = "calc-v1-fallback"
	AlgorithmGenerative         = "gen-v2"
	AlgorithmHybrid             = "hybrid-v2"
	AlgorithmHybridCalcFallback = "hybrid-calc-fallback"
)

// ScoreRequest identifies one opportunity/profile pair to score.
type ScoreRequest struct {
	OpportunityID  string    `json:"opportunity_id"`
	ProfileID      uuid.UUID `json:"profile_id"`
	Method         Method    `json:"method"`
	Mode           Mode      `json:"mode"`
	OrganizationID uuid.UUID `json:"organization_id"`
	UserID         uuid.UUID `json:"user_id"`
}

// Validate rejects malformed requests before any computation starts.
func (r *ScoreRequest) Validate() error {
	if r.OpportunityID == "" {
		return fmt.Errorf("opportunity id is required")
	}
	switch r.Method {
	case MethodCalculation, MethodGenerative, MethodHybrid:
	default:
		return fmt.Errorf("unknown method %q", r.Method)
	}
	switch r.Mode {
	case ModeFast, ModeAdvanced:
	default:
		return fmt.Errorf("unknown mode %q", r.Mode)
	}
	return nil
}

// CategoryScore is one scored category with its qualitative breakdown.
type CategoryScore struct {
	Score         float64  `json:"score"`  // 0-100
	Weight        float64  `json:"weight"` // percent of overall
	Contribution  float64  `json:"contribution"`
	Strengths     []string `json:"strengths,omitempty"`
	Weaknesses    []string `json:"weaknesses,omitempty"`
	Opportunities []string `json:"opportunities,omitempty"`
	Threats       []string `json:"threats,omitempty"`
}

// SemanticAnalysis is the reasoning-stage output carried on generative
// results.
type SemanticAnalysis struct {
	Summary        string          `json:"summary"`
	Requirements   []string        `json:"requirements"`
	Preferences    []string        `json:"preferences"`
	ReasoningSteps []ReasoningStep `json:"reasoning_steps"`
}

// ReasoningStep is one extracted analysis step with its supporting
// evidence.
type ReasoningStep struct {
	Statement  string   `json:"statement"`
	Confidence float64  `json:"confidence"` // 0-1
	Evidence   []string `json:"evidence"`
}

// GapSeverity classifies how badly a capability gap hurts a bid.
type GapSeverity string

const (
	GapSeverityCritical GapSeverity = "critical"
	GapSeverityMajor    GapSeverity = "major"
	GapSeverityMinor    GapSeverity = "minor"
)

// CapabilityGap is one identified shortfall against the opportunity.
type CapabilityGap struct {
	Description string      `json:"description"`
	Severity    GapSeverity `json:"severity"`
	Mitigation  string      `json:"mitigation,omitempty"`
}

// StrategicInsights is the insight-stage output: win probability and
// bid strategy guidance.
type StrategicInsights struct {
	WinProbability         int             `json:"win_probability"`           // 0-100
	WinProbabilityLow      int             `json:"win_probability_low"`       // confidence interval
	WinProbabilityHigh     int             `json:"win_probability_high"`      //
	CompetitiveAdvantages  []string        `json:"competitive_advantages"`    // prioritized
	Gaps                   []CapabilityGap `json:"gaps"`                      //
	TeamingRecommendations []string        `json:"teaming_recommendations"`   //
	ProposalThemes         []string        `json:"proposal_themes,omitempty"` //
}

// ScoreResult is the structured outcome of scoring one opportunity
// against one profile. OverallScore is always a finite integer in
// [0,100]; the pipeline compile step enforces this.
type ScoreResult struct {
	OverallScore      int                      `json:"overall_score"`
	Confidence        int                      `json:"confidence"`
	AlgorithmVersion  string                   `json:"algorithm_version"`
	Categories        map[string]CategoryScore `json:"categories"`
	SemanticAnalysis  *SemanticAnalysis        `json:"semantic_analysis,omitempty"`
	StrategicInsights *StrategicInsights       `json:"strategic_insights,omitempty"`
	Recommendations   []string                 `json:"recommendations,omitempty"`
	CostUnits         float64                  `json:"cost_units"`
	ProcessingTimeMs  int64                    `json:"processing_time_ms"`
}
