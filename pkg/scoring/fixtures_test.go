package scoring

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/bidfit-inc/bidfit-engine/pkg/llm"
	"github.com/bidfit-inc/bidfit-engine/pkg/models"
	"github.com/bidfit-inc/bidfit-engine/pkg/prompts"
)

var (
	testProfileID = uuid.MustParse("11111111-2222-3333-4444-555555555555")
	testOrgID     = uuid.MustParse("99999999-8888-7777-6666-555555555555")
	testUserID    = uuid.MustParse("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")
)

func testProfile() *models.Profile {
	return &models.Profile{
		ID:             testProfileID,
		OrganizationID: testOrgID,
		PrimaryNAICS:   "541512",
		SecondaryNAICS: []string{"541511", "541519"},
		Certifications: []string{"8a", "sdvosb"},
		PastPerformance: []models.PastPerformanceRecord{
			{Agency: "GSA", NAICS: "541512", Value: 1_500_000, Rating: "exceptional"},
			{Agency: "VA", NAICS: "541511", Value: 800_000, Rating: "very_good"},
		},
		GeoPreferences: []string{"VA", "MD", "DC"},
		ClearanceLevel: models.ClearanceSecret,
		Capabilities:   []string{"cloud migration", "devsecops"},
		CompanyName:    "Blue Ridge Digital",
		ContactEmail:   "bd@blueridge.example",
	}
}

func testOpportunity() *models.Opportunity {
	return &models.Opportunity{
		ID:                 "opp-1",
		Title:              "Cloud Infrastructure Modernization",
		Agency:             "GSA",
		NAICS:              "541512",
		EstimatedValue:     2_000_000,
		SetAside:           "8a",
		PlaceOfPerformance: "VA",
		Description:        "Migrate legacy workloads to a FedRAMP-authorized cloud.",
	}
}

func testWeights() prompts.CategoryWeights {
	return prompts.CategoryWeights{
		PastPerformance: 35,
		Technical:       35,
		StrategicFit:    15,
		Credibility:     15,
	}
}

const reasoningJSON = `{
  "summary": "Strong incumbent-adjacent fit for a cloud migration effort.",
  "requirements": ["FedRAMP cloud experience", "active facility clearance"],
  "preferences": ["prior GSA work"],
  "reasoning_steps": [
    {"statement": "Profile NAICS matches the solicitation exactly", "confidence": 0.95, "evidence": ["541512"]}
  ]
}`

const detailedJSON = `{
  "overall_score": 82,
  "reasoning": "Past performance and capabilities cover the core requirements.",
  "categories": {
    "past_performance": {"score": 90, "contribution": 31.5, "strengths": ["exceptional GSA rating"], "weaknesses": []},
    "technical_capability": {"score": 80, "contribution": 28, "strengths": ["cloud migration capability"], "weaknesses": []},
    "strategic_fit": {"score": 70, "contribution": 10.5, "strengths": ["in preferred geography"], "weaknesses": []},
    "credibility": {"score": 75, "contribution": 11.25, "strengths": [], "weaknesses": ["small market presence"]}
  },
  "recommendations": ["Highlight the GSA past performance in the proposal."]
}`

const verificationJSON = `{
  "adjustments": [{"category": "credibility", "score": 60, "reason": "credibility evidence is generic"}],
  "verification_notes": ["category scores cohere with cited evidence"],
  "confidence": 85
}`

const insightJSON = `{
  "win_probability": 62,
  "win_probability_low": 50,
  "win_probability_high": 72,
  "competitive_advantages": ["exceptional prior GSA rating"],
  "gaps": [{"description": "no FedRAMP authorization of its own", "severity": "major", "mitigation": "partner with an authorized CSP"}],
  "teaming_recommendations": ["team with a FedRAMP-authorized prime"],
  "proposal_themes": ["low-risk incumbent-adjacent migration"]
}`

// stagedGenerator answers each pipeline stage with canned valid JSON,
// keyed off the prompt headers.
func stagedGenerator() *llm.MockTextGenerator {
	gen := llm.NewMockTextGenerator()
	gen.GenerateFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.GenerateResult, error) {
		var content string
		switch {
		case strings.Contains(prompt, "# Opportunity Fit Analysis"):
			content = reasoningJSON
		case strings.Contains(prompt, "# Detailed Match Scoring"):
			content = detailedJSON
		case strings.Contains(prompt, "# Scoring Verification"):
			content = verificationJSON
		case strings.Contains(prompt, "# Bid Strategy Insights"):
			content = insightJSON
		default:
			content = "{}"
		}
		return &llm.GenerateResult{
			Content:          content,
			PromptTokens:     700,
			CompletionTokens: 300,
			TotalTokens:      1000,
		}, nil
	}
	return gen
}

// memoryCache is an in-memory ScoreCache for orchestrator tests.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*models.ScoreResult
	byOwner map[string][]string
	group   singleflight.Group
}

func newMemoryCache() *memoryCache {
	return &memoryCache{
		entries: make(map[string]*models.ScoreResult),
		byOwner: make(map[string][]string),
	}
}

func (m *memoryCache) Get(_ context.Context, key string) (*models.ScoreResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result, ok := m.entries[key]
	return result, ok
}

func (m *memoryCache) Set(_ context.Context, key string, profileID string, result *models.ScoreResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = result
	m.byOwner[profileID] = append(m.byOwner[profileID], key)
}

func (m *memoryCache) InvalidateProfile(_ context.Context, profileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range m.byOwner[profileID] {
		delete(m.entries, key)
	}
	delete(m.byOwner, profileID)
	return nil
}

func (m *memoryCache) Do(key string, fn func() (*models.ScoreResult, error)) (*models.ScoreResult, error) {
	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.ScoreResult), nil
}
