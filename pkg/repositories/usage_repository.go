package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bidfit-inc/bidfit-engine/pkg/database"
	"github.com/bidfit-inc/bidfit-engine/pkg/models"
)

// UsageRepository persists billable usage events.
type UsageRepository interface {
	Create(ctx context.Context, event *models.UsageEvent) error
}

type usageRepository struct {
	db *database.DB
}

// NewUsageRepository creates a new UsageRepository.
func NewUsageRepository(db *database.DB) UsageRepository {
	return &usageRepository{db: db}
}

var _ UsageRepository = (*usageRepository)(nil)

func (r *usageRepository) Create(ctx context.Context, event *models.UsageEvent) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode usage metadata: %w", err)
	}

	query := `
		INSERT INTO usage_events (id, organization_id, quantity, resource_type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	_, err = r.db.Exec(ctx, query,
		event.ID,
		event.OrganizationID,
		event.Quantity,
		event.ResourceType,
		metadata,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record usage event: %w", err)
	}
	return nil
}
