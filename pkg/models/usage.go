package models

import (
	"time"

	"github.com/google/uuid"
)

// ResourceTypeMatchScore is the billable resource type for score
// computations.
const ResourceTypeMatchScore = "match_score_calculation"

// UsageEvent is one billable usage record. Exactly one event is created
// per fresh (non-cached) computation; cache hits never bill.
type UsageEvent struct {
	ID             uuid.UUID         `json:"id"`
	OrganizationID uuid.UUID         `json:"organization_id"`
	Quantity       int               `json:"quantity"`
	ResourceType   string            `json:"resource_type"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}
