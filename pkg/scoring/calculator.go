package scoring

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/bidfit-inc/bidfit-engine/pkg/models"
)

// Factor names used in the calculation result breakdown.
const (
	FactorNAICSMatch         = "naics_match"
	FactorGeographicMatch    = "geographic_match"
	FactorCertificationMatch = "certification_match"
	FactorValueFit           = "value_fit"
	FactorClearanceMatch     = "clearance_match"
)

// neutralScore is used when a factor has no comparable data, so missing
// information never unfairly penalizes a profile.
const neutralScore = 50

// factorWeights must sum to 100 across the active factor set.
var factorWeights = map[string]float64{
	FactorNAICSMatch:         30,
	FactorGeographicMatch:    20,
	FactorCertificationMatch: 20,
	FactorValueFit:           15,
	FactorClearanceMatch:     15,
}

// Calculator is the deterministic rule-based scorer. It is a pure
// function of (opportunity, profile): no I/O, no failure modes, and
// identical inputs always yield identical output.
type Calculator struct {
	logger *zap.Logger
}

// NewCalculator creates a deterministic score calculator.
func NewCalculator(logger *zap.Logger) *Calculator {
	return &Calculator{
		logger: logger.Named("score-calculator"),
	}
}

// Calculate computes a weighted sum over independent match factors.
// Each factor yields 0-100 and contributes score*weight/100 to the
// overall score.
func (c *Calculator) Calculate(opp *models.Opportunity, profile *models.Profile) *models.ScoreResult {
	factors := map[string]models.CategoryScore{
		FactorNAICSMatch:         c.naicsMatch(opp, profile),
		FactorGeographicMatch:    c.geographicMatch(opp, profile),
		FactorCertificationMatch: c.certificationMatch(opp, profile),
		FactorValueFit:           c.valueFit(opp, profile),
		FactorClearanceMatch:     c.clearanceMatch(opp, profile),
	}

	var overall float64
	for name, factor := range factors {
		factor.Weight = factorWeights[name]
		factor.Contribution = factor.Score * factor.Weight / 100
		factors[name] = factor
		overall += factor.Contribution
	}

	result := &models.ScoreResult{
		OverallScore:     clampScore(overall),
		Confidence:       confidenceFor(factors),
		AlgorithmVersion: models.AlgorithmCalc,
		Categories:       factors,
		Recommendations:  c.recommendations(factors),
	}

	c.logger.Debug("calculated deterministic score",
		zap.String("opportunity_id", opp.ID),
		zap.String("profile_id", profile.ID.String()),
		zap.Int("overall_score", result.OverallScore))

	return result
}

// naicsMatch scores classification-code overlap. Primary-to-primary
// exact match is a full score; secondary or industry-prefix overlap
// scores partially; no overlap scores low but nonzero.
func (c *Calculator) naicsMatch(opp *models.Opportunity, profile *models.Profile) models.CategoryScore {
	if opp.NAICS == "" || profile.PrimaryNAICS == "" {
		return models.CategoryScore{
			Score:      neutralScore,
			Weaknesses: []string{"classification data missing on one side"},
		}
	}

	if profile.PrimaryNAICS == opp.NAICS {
		return models.CategoryScore{
			Score:     100,
			Strengths: []string{fmt.Sprintf("primary NAICS %s matches solicitation exactly", opp.NAICS)},
		}
	}

	oppCodes := append([]string{opp.NAICS}, opp.SecondaryNAICS...)
	for _, code := range oppCodes {
		for _, secondary := range profile.SecondaryNAICS {
			if secondary == code {
				return models.CategoryScore{
					Score:     80,
					Strengths: []string{fmt.Sprintf("secondary NAICS %s matches solicitation", code)},
				}
			}
		}
	}

	// Same 4-digit industry group is a partial match.
	if len(profile.PrimaryNAICS) >= 4 && len(opp.NAICS) >= 4 &&
		profile.PrimaryNAICS[:4] == opp.NAICS[:4] {
		return models.CategoryScore{
			Score:     60,
			Strengths: []string{"same industry group as solicitation NAICS"},
		}
	}

	return models.CategoryScore{
		Score:      20,
		Weaknesses: []string{fmt.Sprintf("no overlap with solicitation NAICS %s", opp.NAICS)},
	}
}

// geographicMatch scores place-of-performance fit against the profile's
// geographic preferences.
func (c *Calculator) geographicMatch(opp *models.Opportunity, profile *models.Profile) models.CategoryScore {
	if opp.PlaceOfPerformance == "" || len(profile.GeoPreferences) == 0 {
		return models.CategoryScore{Score: neutralScore}
	}

	place := strings.ToLower(opp.PlaceOfPerformance)
	for _, pref := range profile.GeoPreferences {
		p := strings.ToLower(pref)
		if p == "nationwide" || p == place || place == "nationwide" {
			return models.CategoryScore{
				Score:     100,
				Strengths: []string{fmt.Sprintf("place of performance %s within preferred geography", opp.PlaceOfPerformance)},
			}
		}
	}

	return models.CategoryScore{
		Score:      30,
		Weaknesses: []string{fmt.Sprintf("place of performance %s outside preferred geography", opp.PlaceOfPerformance)},
	}
}

// certificationMatch scores set-aside eligibility. A profile holding the
// set-aside certification is fully eligible; open competition scores
// above neutral since anyone can bid.
func (c *Calculator) certificationMatch(opp *models.Opportunity, profile *models.Profile) models.CategoryScore {
	setAside := strings.ToLower(opp.SetAside)
	if setAside == "" || setAside == "none" {
		return models.CategoryScore{
			Score:     70,
			Strengths: []string{"open competition, no set-aside restriction"},
		}
	}

	if profile.HasCertification(setAside) {
		return models.CategoryScore{
			Score:     100,
			Strengths: []string{fmt.Sprintf("holds %s certification required by set-aside", opp.SetAside)},
		}
	}

	// small_business set-asides are satisfied by any socioeconomic cert.
	if setAside == "small_business" && len(profile.Certifications) > 0 {
		return models.CategoryScore{
			Score:     90,
			Strengths: []string{"qualifies for small business set-aside"},
		}
	}

	return models.CategoryScore{
		Score:      10,
		Weaknesses: []string{fmt.Sprintf("missing %s certification required by set-aside", opp.SetAside)},
	}
}

// valueFit scores whether the opportunity's estimated value is in the
// range the profile's past performance supports.
func (c *Calculator) valueFit(opp *models.Opportunity, profile *models.Profile) models.CategoryScore {
	if opp.EstimatedValue <= 0 || len(profile.PastPerformance) == 0 {
		return models.CategoryScore{Score: neutralScore}
	}

	var largest float64
	for _, rec := range profile.PastPerformance {
		if rec.Value > largest {
			largest = rec.Value
		}
	}
	if largest <= 0 {
		return models.CategoryScore{Score: neutralScore}
	}

	ratio := opp.EstimatedValue / largest
	switch {
	case ratio <= 1.5:
		return models.CategoryScore{
			Score:     100,
			Strengths: []string{"estimated value within demonstrated contract range"},
		}
	case ratio <= 3:
		return models.CategoryScore{
			Score:     70,
			Strengths: []string{"estimated value a moderate step up from prior contracts"},
		}
	case ratio <= 10:
		return models.CategoryScore{
			Score:      40,
			Weaknesses: []string{"estimated value well above demonstrated contract size"},
		}
	default:
		return models.CategoryScore{
			Score:      15,
			Weaknesses: []string{"estimated value an order of magnitude above past performance"},
		}
	}
}

// clearanceMatch scores security-clearance adequacy.
func (c *Calculator) clearanceMatch(opp *models.Opportunity, profile *models.Profile) models.CategoryScore {
	if opp.RequiredClearance == "" {
		return models.CategoryScore{
			Score:     80,
			Strengths: []string{"no clearance requirement"},
		}
	}

	required := models.ClearanceRank(opp.RequiredClearance)
	held := models.ClearanceRank(profile.ClearanceLevel)

	if held >= required {
		return models.CategoryScore{
			Score:     100,
			Strengths: []string{fmt.Sprintf("clearance %s meets requirement", profile.ClearanceLevel)},
		}
	}
	if held == required-1 {
		return models.CategoryScore{
			Score:      40,
			Weaknesses: []string{fmt.Sprintf("clearance one level below required %s", opp.RequiredClearance)},
		}
	}
	return models.CategoryScore{
		Score:      5,
		Weaknesses: []string{fmt.Sprintf("clearance well below required %s", opp.RequiredClearance)},
	}
}

// recommendations derives next-step suggestions from the weakest factors.
func (c *Calculator) recommendations(factors map[string]models.CategoryScore) []string {
	var recs []string
	if f, ok := factors[FactorCertificationMatch]; ok && f.Score <= 10 {
		recs = append(recs, "Pursue the set-aside certification or team with a certified prime.")
	}
	if f, ok := factors[FactorClearanceMatch]; ok && f.Score < 40 {
		recs = append(recs, "Sponsor facility or personnel clearances before bidding.")
	}
	if f, ok := factors[FactorValueFit]; ok && f.Score <= 40 {
		recs = append(recs, "Consider a joint venture to cover the contract size gap.")
	}
	return recs
}

// confidenceFor is higher when more factors had real data to compare.
func confidenceFor(factors map[string]models.CategoryScore) int {
	informed := 0
	for _, f := range factors {
		if len(f.Strengths) > 0 || len(f.Weaknesses) > 0 {
			informed++
		}
	}
	return 60 + informed*8
}

// clampScore coerces a raw score into an integer in [0,100] and guards
// against NaN from bad arithmetic upstream.
func clampScore(score float64) int {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}
