package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bidfit-inc/bidfit-engine/pkg/apperrors"
	"github.com/bidfit-inc/bidfit-engine/pkg/database"
	"github.com/bidfit-inc/bidfit-engine/pkg/models"
)

// OpportunityRepository provides data access for ingested contract
// opportunities.
type OpportunityRepository interface {
	GetByID(ctx context.Context, opportunityID string) (*models.Opportunity, error)
	GetByIDs(ctx context.Context, opportunityIDs []string) ([]*models.Opportunity, error)
	Upsert(ctx context.Context, opp *models.Opportunity) error
}

type opportunityRepository struct {
	db *database.DB
}

// NewOpportunityRepository creates a new OpportunityRepository.
func NewOpportunityRepository(db *database.DB) OpportunityRepository {
	return &opportunityRepository{db: db}
}

var _ OpportunityRepository = (*opportunityRepository)(nil)

const opportunityColumns = `
	id, title, agency, naics, secondary_naics, estimated_value, set_aside,
	required_clearance, place_of_performance, response_deadline,
	description, posted_at`

func (r *opportunityRepository) GetByID(ctx context.Context, opportunityID string) (*models.Opportunity, error) {
	query := `SELECT` + opportunityColumns + `
		FROM opportunities
		WHERE id = $1`

	opp, err := scanOpportunity(r.db.QueryRow(ctx, query, opportunityID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("opportunity %s: %w", opportunityID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get opportunity %s: %w", opportunityID, err)
	}
	return opp, nil
}

// GetByIDs returns the opportunities found for the given IDs, in the order
// requested. Missing IDs are skipped, not errors; the caller decides how
// to report them.
func (r *opportunityRepository) GetByIDs(ctx context.Context, opportunityIDs []string) ([]*models.Opportunity, error) {
	if len(opportunityIDs) == 0 {
		return nil, nil
	}

	query := `SELECT` + opportunityColumns + `
		FROM opportunities
		WHERE id = ANY($1)`

	rows, err := r.db.Query(ctx, query, opportunityIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list opportunities: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*models.Opportunity, len(opportunityIDs))
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan opportunity: %w", err)
		}
		byID[opp.ID] = opp
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	opps := make([]*models.Opportunity, 0, len(byID))
	for _, id := range opportunityIDs {
		if opp, ok := byID[id]; ok {
			opps = append(opps, opp)
		}
	}
	return opps, nil
}

func (r *opportunityRepository) Upsert(ctx context.Context, opp *models.Opportunity) error {
	query := `
		INSERT INTO opportunities (
			id, title, agency, naics, secondary_naics, estimated_value,
			set_aside, required_clearance, place_of_performance,
			response_deadline, description, posted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			agency = EXCLUDED.agency,
			naics = EXCLUDED.naics,
			secondary_naics = EXCLUDED.secondary_naics,
			estimated_value = EXCLUDED.estimated_value,
			set_aside = EXCLUDED.set_aside,
			required_clearance = EXCLUDED.required_clearance,
			place_of_performance = EXCLUDED.place_of_performance,
			response_deadline = EXCLUDED.response_deadline,
			description = EXCLUDED.description,
			posted_at = EXCLUDED.posted_at`

	_, err := r.db.Exec(ctx, query,
		opp.ID,
		opp.Title,
		opp.Agency,
		opp.NAICS,
		opp.SecondaryNAICS,
		opp.EstimatedValue,
		opp.SetAside,
		opp.RequiredClearance,
		opp.PlaceOfPerformance,
		opp.ResponseDeadline,
		opp.Description,
		opp.PostedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert opportunity %s: %w", opp.ID, err)
	}
	return nil
}

func scanOpportunity(row pgx.Row) (*models.Opportunity, error) {
	var opp models.Opportunity
	err := row.Scan(
		&opp.ID,
		&opp.Title,
		&opp.Agency,
		&opp.NAICS,
		&opp.SecondaryNAICS,
		&opp.EstimatedValue,
		&opp.SetAside,
		&opp.RequiredClearance,
		&opp.PlaceOfPerformance,
		&opp.ResponseDeadline,
		&opp.Description,
		&opp.PostedAt,
	)
	if err != nil {
		return nil, err
	}
	return &opp, nil
}
