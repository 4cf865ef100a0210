package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bidfit-inc/bidfit-engine/pkg/models"
)

func TestCalculator_Deterministic(t *testing.T) {
	calc := NewCalculator(zap.NewNop())
	opp := testOpportunity()
	profile := testProfile()

	first := calc.Calculate(opp, profile)
	second := calc.Calculate(opp, profile)

	require.Equal(t, first, second)
}

func TestCalculator_StrongFit(t *testing.T) {
	calc := NewCalculator(zap.NewNop())
	result := calc.Calculate(testOpportunity(), testProfile())

	// Exact NAICS, geography, and set-aside matches; value within the
	// demonstrated range; no clearance requirement.
	assert.Equal(t, float64(100), result.Categories[FactorNAICSMatch].Score)
	assert.Equal(t, float64(100), result.Categories[FactorGeographicMatch].Score)
	assert.Equal(t, float64(100), result.Categories[FactorCertificationMatch].Score)
	assert.Equal(t, float64(100), result.Categories[FactorValueFit].Score)
	assert.Equal(t, float64(80), result.Categories[FactorClearanceMatch].Score)

	assert.Equal(t, 97, result.OverallScore)
	assert.Equal(t, models.AlgorithmCalc, result.AlgorithmVersion)
	assert.Empty(t, result.Recommendations)
}

func TestCalculator_WeightsAndContributions(t *testing.T) {
	calc := NewCalculator(zap.NewNop())
	result := calc.Calculate(testOpportunity(), testProfile())

	var total float64
	for name, cat := range result.Categories {
		assert.Equal(t, factorWeights[name], cat.Weight)
		assert.InDelta(t, cat.Score*cat.Weight/100, cat.Contribution, 1e-9)
		total += cat.Weight
	}
	assert.Equal(t, float64(100), total)
}

func TestCalculator_NAICSMatch(t *testing.T) {
	calc := NewCalculator(zap.NewNop())

	tests := []struct {
		name         string
		oppNAICS     string
		profilePri   string
		profileSec   []string
		expectedScore float64
	}{
		{"exact primary match", "541512", "541512", nil, 100},
		{"secondary match", "541511", "541512", []string{"541511"}, 80},
		{"industry group match", "541519", "541512", nil, 60},
		{"no overlap", "236220", "541512", nil, 20},
		{"missing opportunity code", "", "541512", nil, neutralScore},
		{"missing profile code", "541512", "", nil, neutralScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp := testOpportunity()
			opp.NAICS = tt.oppNAICS
			profile := testProfile()
			profile.PrimaryNAICS = tt.profilePri
			profile.SecondaryNAICS = tt.profileSec

			result := calc.Calculate(opp, profile)
			assert.Equal(t, tt.expectedScore, result.Categories[FactorNAICSMatch].Score)
		})
	}
}

func TestCalculator_ClearanceMatch(t *testing.T) {
	calc := NewCalculator(zap.NewNop())

	tests := []struct {
		name          string
		required      string
		held          string
		expectedScore float64
	}{
		{"no requirement", "", models.ClearanceNone, 80},
		{"meets requirement", models.ClearanceSecret, models.ClearanceSecret, 100},
		{"exceeds requirement", models.ClearanceSecret, models.ClearanceTSSCI, 100},
		{"one level below", models.ClearanceTopSecret, models.ClearanceSecret, 40},
		{"far below", models.ClearanceTSSCI, models.ClearanceNone, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp := testOpportunity()
			opp.RequiredClearance = tt.required
			profile := testProfile()
			profile.ClearanceLevel = tt.held

			result := calc.Calculate(opp, profile)
			assert.Equal(t, tt.expectedScore, result.Categories[FactorClearanceMatch].Score)
		})
	}
}

func TestCalculator_MissingDataScoresNeutral(t *testing.T) {
	calc := NewCalculator(zap.NewNop())

	opp := testOpportunity()
	opp.EstimatedValue = 0
	profile := testProfile()
	profile.GeoPreferences = nil
	profile.PastPerformance = nil

	result := calc.Calculate(opp, profile)

	assert.Equal(t, float64(neutralScore), result.Categories[FactorValueFit].Score)
	assert.Equal(t, float64(neutralScore), result.Categories[FactorGeographicMatch].Score)
}

func TestCalculator_RecommendationsForWeakFactors(t *testing.T) {
	calc := NewCalculator(zap.NewNop())

	opp := testOpportunity()
	opp.SetAside = "hubzone"
	opp.RequiredClearance = models.ClearanceTSSCI
	opp.EstimatedValue = 50_000_000
	profile := testProfile()
	profile.ClearanceLevel = models.ClearanceNone

	result := calc.Calculate(opp, profile)

	require.Len(t, result.Recommendations, 3)
	assert.Less(t, result.OverallScore, 50)
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected int
	}{
		{"in range", 72.4, 72},
		{"rounds up", 49.5, 50},
		{"above range", 150, 100},
		{"below range", -5, 0},
		{"nan", math.NaN(), 0},
		{"positive infinity", math.Inf(1), 0},
		{"negative infinity", math.Inf(-1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, clampScore(tt.input))
		})
	}
}
