// Package scoring implements the match-scoring engine: a deterministic
// rule-based calculator, a multi-stage generative pipeline, a
// fingerprint-keyed cache, and the orchestration that ties them together.
package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/bidfit-inc/bidfit-engine/pkg/models"
)

// fingerprintLength is the hex length the profile digest is truncated to.
const fingerprintLength = 16

// scoringFields is the canonical scoring-relevant subset of a profile.
// Fields outside this struct (contact email, company name, timestamps)
// never affect the fingerprint, so editing them does not invalidate
// cached scores. Slices are sorted before hashing so field order in the
// source record cannot change the digest.
type scoringFields struct {
	PrimaryNAICS    string                         `json:"primary_naics"`
	SecondaryNAICS  []string                       `json:"secondary_naics"`
	Certifications  []string                       `json:"certifications"`
	PastPerformance []models.PastPerformanceRecord `json:"past_performance"`
	GeoPreferences  []string                       `json:"geo_preferences"`
	ClearanceLevel  string                         `json:"clearance_level"`
	Capabilities    []string                       `json:"capabilities"`
}

// Fingerprint computes a short deterministic digest of the
// scoring-relevant profile fields. Identical scoring-relevant fields
// always produce the same fingerprint, across processes and restarts.
func Fingerprint(profile *models.Profile) string {
	fields := scoringFields{
		PrimaryNAICS:    profile.PrimaryNAICS,
		SecondaryNAICS:  sortedCopy(profile.SecondaryNAICS),
		Certifications:  sortedCopy(profile.Certifications),
		PastPerformance: sortedPerformance(profile.PastPerformance),
		GeoPreferences:  sortedCopy(profile.GeoPreferences),
		ClearanceLevel:  profile.ClearanceLevel,
		Capabilities:    sortedCopy(profile.Capabilities),
	}

	// Struct field order is fixed, so encoding/json is canonical here.
	data, err := json.Marshal(fields)
	if err != nil {
		// Marshal of plain structs cannot fail; keep the cache key usable anyway.
		data = []byte(profile.ID.String())
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:fingerprintLength]
}

// CacheKey derives the sole cache lookup key for a score computation:
// profileId:fingerprint:opportunityId:method:mode.
func CacheKey(profile *models.Profile, opportunityID string, method models.Method, mode models.Mode) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s",
		profile.ID, Fingerprint(profile), opportunityID, method, mode)
}

func sortedCopy(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}

func sortedPerformance(records []models.PastPerformanceRecord) []models.PastPerformanceRecord {
	if len(records) == 0 {
		return nil
	}
	out := make([]models.PastPerformanceRecord, len(records))
	copy(out, records)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Agency != out[j].Agency {
			return out[i].Agency < out[j].Agency
		}
		if out[i].NAICS != out[j].NAICS {
			return out[i].NAICS < out[j].NAICS
		}
		return out[i].Value < out[j].Value
	})
	return out
}
