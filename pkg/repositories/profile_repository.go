package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bidfit-inc/bidfit-engine/pkg/apperrors"
	"github.com/bidfit-inc/bidfit-engine/pkg/database"
	"github.com/bidfit-inc/bidfit-engine/pkg/models"
)

// ProfileRepository provides data access for contractor profiles.
type ProfileRepository interface {
	GetByID(ctx context.Context, profileID uuid.UUID) (*models.Profile, error)
	GetByOrganization(ctx context.Context, organizationID uuid.UUID) ([]*models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) error
}

type profileRepository struct {
	db *database.DB
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(db *database.DB) ProfileRepository {
	return &profileRepository{db: db}
}

var _ ProfileRepository = (*profileRepository)(nil)

const profileColumns = `
	id, organization_id, primary_naics, secondary_naics, certifications,
	past_performance, geo_preferences, clearance_level, capabilities,
	company_name, contact_email, created_at, updated_at`

func (r *profileRepository) GetByID(ctx context.Context, profileID uuid.UUID) (*models.Profile, error) {
	query := `SELECT` + profileColumns + `
		FROM profiles
		WHERE id = $1`

	profile, err := scanProfile(r.db.QueryRow(ctx, query, profileID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile %s: %w", profileID, err)
	}
	return profile, nil
}

func (r *profileRepository) GetByOrganization(ctx context.Context, organizationID uuid.UUID) ([]*models.Profile, error) {
	query := `SELECT` + profileColumns + `
		FROM profiles
		WHERE organization_id = $1
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles for organization %s: %w", organizationID, err)
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

func (r *profileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	performance, err := json.Marshal(profile.PastPerformance)
	if err != nil {
		return fmt.Errorf("failed to encode past performance: %w", err)
	}

	now := time.Now()
	query := `
		INSERT INTO profiles (
			id, organization_id, primary_naics, secondary_naics,
			certifications, past_performance, geo_preferences,
			clearance_level, capabilities, company_name, contact_email,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		ON CONFLICT (id) DO UPDATE SET
			primary_naics = EXCLUDED.primary_naics,
			secondary_naics = EXCLUDED.secondary_naics,
			certifications = EXCLUDED.certifications,
			past_performance = EXCLUDED.past_performance,
			geo_preferences = EXCLUDED.geo_preferences,
			clearance_level = EXCLUDED.clearance_level,
			capabilities = EXCLUDED.capabilities,
			company_name = EXCLUDED.company_name,
			contact_email = EXCLUDED.contact_email,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		profile.ID,
		profile.OrganizationID,
		profile.PrimaryNAICS,
		profile.SecondaryNAICS,
		profile.Certifications,
		performance,
		profile.GeoPreferences,
		profile.ClearanceLevel,
		profile.Capabilities,
		profile.CompanyName,
		profile.ContactEmail,
		now,
	).Scan(&profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert profile %s: %w", profile.ID, err)
	}
	return nil
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var profile models.Profile
	var performance []byte

	err := row.Scan(
		&profile.ID,
		&profile.OrganizationID,
		&profile.PrimaryNAICS,
		&profile.SecondaryNAICS,
		&profile.Certifications,
		&performance,
		&profile.GeoPreferences,
		&profile.ClearanceLevel,
		&profile.Capabilities,
		&profile.CompanyName,
		&profile.ContactEmail,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(performance) > 0 {
		if err := json.Unmarshal(performance, &profile.PastPerformance); err != nil {
			return nil, fmt.Errorf("failed to decode past performance: %w", err)
		}
	}
	return &profile, nil
}
