package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bidfit-inc/bidfit-engine/pkg/models"
	"github.com/bidfit-inc/bidfit-engine/pkg/repositories"
	"github.com/bidfit-inc/bidfit-engine/pkg/scoring"
)

// UsageService records billable scoring activity against an organization.
type UsageService interface {
	RecordScoreUsage(ctx context.Context, organizationID, userID string, quantity int) error
}

type usageService struct {
	repo   repositories.UsageRepository
	logger *zap.Logger
}

// NewUsageService creates a new UsageService.
func NewUsageService(repo repositories.UsageRepository, logger *zap.Logger) UsageService {
	return &usageService{
		repo:   repo,
		logger: logger.Named("usage-service"),
	}
}

var (
	_ UsageService          = (*usageService)(nil)
	_ scoring.UsageRecorder = (*usageService)(nil)
)

func (s *usageService) RecordScoreUsage(ctx context.Context, organizationID, userID string, quantity int) error {
	if quantity <= 0 {
		return nil
	}

	orgID, err := uuid.Parse(organizationID)
	if err != nil {
		return fmt.Errorf("invalid organization id %q: %w", organizationID, err)
	}

	event := &models.UsageEvent{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Quantity:       quantity,
		ResourceType:   models.ResourceTypeMatchScore,
		Metadata: map[string]string{
			"user_id":  userID,
			"quantity": strconv.Itoa(quantity),
		},
		CreatedAt: time.Now(),
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to record score usage: %w", err)
	}

	s.logger.Debug("score usage recorded",
		zap.String("organization_id", organizationID),
		zap.Int("quantity", quantity))
	return nil
}
