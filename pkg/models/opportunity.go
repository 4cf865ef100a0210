package models

import (
	"time"
)

// Opportunity is a government solicitation record. It is read-only input
// to scoring; callers may load one from the repository or supply an
// inline record that has not been persisted yet.
type Opportunity struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Agency             string     `json:"agency"`
	NAICS              string     `json:"naics"`
	SecondaryNAICS     []string   `json:"secondary_naics"`
	EstimatedValue     float64    `json:"estimated_value"`
	SetAside           string     `json:"set_aside"` // e.g. 8a, wosb, sdvosb, small_business, none
	RequiredClearance  string     `json:"required_clearance"`
	PlaceOfPerformance string     `json:"place_of_performance"` // state code or "nationwide"
	ResponseDeadline   *time.Time `json:"response_deadline"`
	Description        string     `json:"description"`
	PostedAt           time.Time  `json:"posted_at"`
}
