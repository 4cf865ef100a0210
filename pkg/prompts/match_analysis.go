// Package prompts builds the natural-language requests sent to the
// text-generation capability by the scoring pipeline stages.
package prompts

import (
	"fmt"
	"strings"

	"github.com/bidfit-inc/bidfit-engine/pkg/models"
)

// CategoryWeights carries the detailed-scoring category weights into the
// prompt so the model's contributions line up with the compile step.
type CategoryWeights struct {
	PastPerformance float64
	Technical       float64
	StrategicFit    float64
	Credibility     float64
}

// SystemAnalyst is the system message for analysis stages.
const SystemAnalyst = "You are a government contracting capture analyst. " +
	"You evaluate how well a contractor's capability profile fits a solicitation. " +
	"Base every judgment on specific evidence from the provided data, never on generic statements."

// writeOpportunity renders the solicitation context shared by all stages.
func writeOpportunity(b *strings.Builder, opp *models.Opportunity) {
	b.WriteString("## Opportunity\n\n")
	fmt.Fprintf(b, "- **Title**: %s\n", opp.Title)
	fmt.Fprintf(b, "- **Agency**: %s\n", opp.Agency)
	fmt.Fprintf(b, "- **NAICS**: %s", opp.NAICS)
	if len(opp.SecondaryNAICS) > 0 {
		fmt.Fprintf(b, " (secondary: %s)", strings.Join(opp.SecondaryNAICS, ", "))
	}
	b.WriteString("\n")
	if opp.EstimatedValue > 0 {
		fmt.Fprintf(b, "- **Estimated value**: $%.0f\n", opp.EstimatedValue)
	}
	if opp.SetAside != "" {
		fmt.Fprintf(b, "- **Set-aside**: %s\n", opp.SetAside)
	}
	if opp.RequiredClearance != "" {
		fmt.Fprintf(b, "- **Required clearance**: %s\n", opp.RequiredClearance)
	}
	if opp.PlaceOfPerformance != "" {
		fmt.Fprintf(b, "- **Place of performance**: %s\n", opp.PlaceOfPerformance)
	}
	if opp.ResponseDeadline != nil {
		fmt.Fprintf(b, "- **Response deadline**: %s\n", opp.ResponseDeadline.Format("2006-01-02"))
	}
	if opp.Description != "" {
		fmt.Fprintf(b, "\n%s\n", opp.Description)
	}
	b.WriteString("\n")
}

// writeProfile renders the contractor profile context shared by all stages.
func writeProfile(b *strings.Builder, profile *models.Profile) {
	b.WriteString("## Contractor Profile\n\n")
	fmt.Fprintf(b, "- **Primary NAICS**: %s\n", profile.PrimaryNAICS)
	if len(profile.SecondaryNAICS) > 0 {
		fmt.Fprintf(b, "- **Secondary NAICS**: %s\n", strings.Join(profile.SecondaryNAICS, ", "))
	}
	if len(profile.Certifications) > 0 {
		fmt.Fprintf(b, "- **Certifications**: %s\n", strings.Join(profile.Certifications, ", "))
	}
	if profile.ClearanceLevel != "" {
		fmt.Fprintf(b, "- **Clearance**: %s\n", profile.ClearanceLevel)
	}
	if len(profile.GeoPreferences) > 0 {
		fmt.Fprintf(b, "- **Geographic preferences**: %s\n", strings.Join(profile.GeoPreferences, ", "))
	}
	if len(profile.Capabilities) > 0 {
		fmt.Fprintf(b, "- **Capabilities**: %s\n", strings.Join(profile.Capabilities, ", "))
	}
	if len(profile.PastPerformance) > 0 {
		b.WriteString("- **Past performance**:\n")
		for _, rec := range profile.PastPerformance {
			fmt.Fprintf(b, "  - %s, NAICS %s, $%.0f, rating %s\n", rec.Agency, rec.NAICS, rec.Value, rec.Rating)
		}
	}
	b.WriteString("\n")
}

// BuildReasoningPrompt creates the first-stage analysis request
// contrasting the opportunity's explicit and implicit requirements
// against the profile.
func BuildReasoningPrompt(opp *models.Opportunity, profile *models.Profile) string {
	var b strings.Builder

	b.WriteString("# Opportunity Fit Analysis\n\n")
	b.WriteString("Analyze how this contractor's profile fits the opportunity below. ")
	b.WriteString("Identify the opportunity's explicit requirements and its implicit preferences ")
	b.WriteString("(incumbent advantage, agency relationships, delivery model), then reason step by step ")
	b.WriteString("about how the profile measures against each.\n\n")

	writeOpportunity(&b, opp)
	writeProfile(&b, profile)

	b.WriteString("## Response Format\n\n")
	b.WriteString("Respond with JSON only:\n")
	b.WriteString("```json\n{\n")
	b.WriteString("  \"summary\": \"two or three sentence overall assessment\",\n")
	b.WriteString("  \"requirements\": [\"explicit requirement ...\"],\n")
	b.WriteString("  \"preferences\": [\"implicit preference ...\"],\n")
	b.WriteString("  \"reasoning_steps\": [\n")
	b.WriteString("    {\"statement\": \"...\", \"confidence\": 0.8, \"evidence\": [\"specific evidence from the data\"]}\n")
	b.WriteString("  ]\n}\n```\n")

	return b.String()
}

// BuildDetailedScoringPrompt creates the structured-output request for
// the four fixed scoring categories.
func BuildDetailedScoringPrompt(opp *models.Opportunity, profile *models.Profile, analysis *models.SemanticAnalysis, weights CategoryWeights) string {
	var b strings.Builder

	b.WriteString("# Detailed Match Scoring\n\n")
	b.WriteString("Score this contractor against the opportunity in exactly four categories. ")
	b.WriteString("Each category gets a 0-100 score and qualitative insight lists backed by ")
	b.WriteString("specific evidence from the profile and solicitation, not generic statements.\n\n")

	fmt.Fprintf(&b, "Categories and weights:\n")
	fmt.Fprintf(&b, "- past_performance (weight %.0f): relevance, scale and ratings of prior contracts\n", weights.PastPerformance)
	fmt.Fprintf(&b, "- technical_capability (weight %.0f): capability and certification coverage of requirements\n", weights.Technical)
	fmt.Fprintf(&b, "- strategic_fit (weight %.0f): agency relationships, geography, set-aside positioning\n", weights.StrategicFit)
	fmt.Fprintf(&b, "- credibility (weight %.0f): market presence and believability as a bidder at this size\n\n", weights.Credibility)

	writeOpportunity(&b, opp)
	writeProfile(&b, profile)

	if analysis != nil && analysis.Summary != "" {
		b.WriteString("## Prior Analysis\n\n")
		b.WriteString(analysis.Summary)
		b.WriteString("\n\n")
		for _, step := range analysis.ReasoningSteps {
			fmt.Fprintf(&b, "- %s\n", step.Statement)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Response Format\n\n")
	b.WriteString("Respond with JSON only. contribution = score * weight / 100.\n")
	b.WriteString("```json\n{\n")
	b.WriteString("  \"overall_score\": 0,\n")
	b.WriteString("  \"reasoning\": \"...\",\n")
	b.WriteString("  \"categories\": {\n")
	b.WriteString("    \"past_performance\": {\"score\": 0, \"contribution\": 0, \"strengths\": [], \"weaknesses\": [], \"opportunities\": [], \"threats\": []},\n")
	b.WriteString("    \"technical_capability\": {...},\n")
	b.WriteString("    \"strategic_fit\": {...},\n")
	b.WriteString("    \"credibility\": {...}\n")
	b.WriteString("  },\n")
	b.WriteString("  \"recommendations\": [\"...\"]\n}\n```\n")

	return b.String()
}

// BuildVerificationPrompt creates the independent re-examination request
// for a detailed scoring result.
func BuildVerificationPrompt(opp *models.Opportunity, scoringJSON string) string {
	var b strings.Builder

	b.WriteString("# Scoring Verification\n\n")
	b.WriteString("Review the scoring below for internal consistency: do the category scores ")
	b.WriteString("cohere with each other and with the cited evidence? Flag categories whose ")
	b.WriteString("evidence is generic or contradicts the score, and adjust scores only where ")
	b.WriteString("the evidence demands it.\n\n")

	fmt.Fprintf(&b, "Opportunity: %s (%s, NAICS %s)\n\n", opp.Title, opp.Agency, opp.NAICS)
	b.WriteString("## Scoring Under Review\n\n```json\n")
	b.WriteString(scoringJSON)
	b.WriteString("\n```\n\n")

	b.WriteString("## Response Format\n\n")
	b.WriteString("Respond with JSON only:\n")
	b.WriteString("```json\n{\n")
	b.WriteString("  \"adjustments\": [{\"category\": \"...\", \"score\": 0, \"reason\": \"...\"}],\n")
	b.WriteString("  \"verification_notes\": [\"...\"],\n")
	b.WriteString("  \"confidence\": 0\n}\n```\n")

	return b.String()
}

// BuildInsightPrompt creates the strategic-insight request from the
// verified scoring.
func BuildInsightPrompt(opp *models.Opportunity, profile *models.Profile, overallScore int) string {
	var b strings.Builder

	b.WriteString("# Bid Strategy Insights\n\n")
	fmt.Fprintf(&b, "The contractor scored %d/100 against this opportunity. ", overallScore)
	b.WriteString("Produce strategic guidance for a bid decision: a win-probability estimate with a ")
	b.WriteString("confidence interval, competitive advantages in priority order, capability gaps ")
	b.WriteString("classified by severity (critical/major/minor) with mitigations, teaming ")
	b.WriteString("recommendations, and proposal themes.\n\n")

	writeOpportunity(&b, opp)
	writeProfile(&b, profile)

	b.WriteString("## Response Format\n\n")
	b.WriteString("Respond with JSON only:\n")
	b.WriteString("```json\n{\n")
	b.WriteString("  \"win_probability\": 0,\n")
	b.WriteString("  \"win_probability_low\": 0,\n")
	b.WriteString("  \"win_probability_high\": 0,\n")
	b.WriteString("  \"competitive_advantages\": [\"...\"],\n")
	b.WriteString("  \"gaps\": [{\"description\": \"...\", \"severity\": \"major\", \"mitigation\": \"...\"}],\n")
	b.WriteString("  \"teaming_recommendations\": [\"...\"],\n")
	b.WriteString("  \"proposal_themes\": [\"...\"]\n}\n```\n")

	return b.String()
}
