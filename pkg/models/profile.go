package models

import (
	"time"

	"github.com/google/uuid"
)

// ClearanceLevel values, ordered from none to highest.
const (
	ClearanceNone      = ""
	ClearancePublic    = "public_trust"
	ClearanceSecret    = "secret"
	ClearanceTopSecret = "top_secret"
	ClearanceTSSCI     = "ts_sci"
)

// clearanceRank orders clearance levels for adequacy comparisons.
var clearanceRank = map[string]int{
	ClearanceNone:      0,
	ClearancePublic:    1,
	ClearanceSecret:    2,
	ClearanceTopSecret: 3,
	ClearanceTSSCI:     4,
}

// ClearanceRank returns the ordinal rank of a clearance level.
// Unknown levels rank as none.
func ClearanceRank(level string) int {
	return clearanceRank[level]
}

// PastPerformanceRecord is a single prior contract relevant to scoring.
type PastPerformanceRecord struct {
	Agency string  `json:"agency"`
	NAICS  string  `json:"naics"`
	Value  float64 `json:"value"`
	Rating string  `json:"rating"` // exceptional, very_good, satisfactory, marginal
}

// Profile holds a contractor's capability profile. The scoring-relevant
// subset (codes, certifications, past performance, geography, clearance,
// capabilities) feeds the fingerprint; everything else is free to change
// without invalidating cached scores.
type Profile struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`

	PrimaryNAICS    string                  `json:"primary_naics"`
	SecondaryNAICS  []string                `json:"secondary_naics"`
	Certifications  []string                `json:"certifications"` // e.g. 8a, wosb, sdvosb, hubzone
	PastPerformance []PastPerformanceRecord `json:"past_performance"`
	GeoPreferences  []string                `json:"geo_preferences"` // state codes, or "nationwide"
	ClearanceLevel  string                  `json:"clearance_level"`
	Capabilities    []string                `json:"capabilities"`

	// Non-scoring fields.
	CompanyName  string    `json:"company_name"`
	ContactEmail string    `json:"contact_email"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasCertification reports whether the profile carries the given
// certification flag.
func (p *Profile) HasCertification(cert string) bool {
	for _, c := range p.Certifications {
		if c == cert {
			return true
		}
	}
	return false
}
