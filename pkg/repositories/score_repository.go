package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bidfit-inc/bidfit-engine/pkg/apperrors"
	"github.com/bidfit-inc/bidfit-engine/pkg/database"
	"github.com/bidfit-inc/bidfit-engine/pkg/models"
)

// ScoreRepository persists computed scores so callers can retrieve them
// without recomputing. One row per (opportunity, profile, method, mode);
// recomputation overwrites the previous row.
type ScoreRepository interface {
	Upsert(ctx context.Context, opportunityID string, profileID uuid.UUID, method models.Method, mode models.Mode, result *models.ScoreResult) error
	Get(ctx context.Context, opportunityID string, profileID uuid.UUID, method models.Method, mode models.Mode) (*models.ScoreResult, error)
}

type scoreRepository struct {
	db *database.DB
}

// NewScoreRepository creates a new ScoreRepository.
func NewScoreRepository(db *database.DB) ScoreRepository {
	return &scoreRepository{db: db}
}

var _ ScoreRepository = (*scoreRepository)(nil)

func (r *scoreRepository) Upsert(ctx context.Context, opportunityID string, profileID uuid.UUID, method models.Method, mode models.Mode, result *models.ScoreResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode score result: %w", err)
	}

	query := `
		INSERT INTO opportunity_scores (opportunity_id, profile_id, method, mode, overall_score, algorithm_version, result, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (opportunity_id, profile_id, method, mode)
		DO UPDATE SET overall_score = EXCLUDED.overall_score,
			algorithm_version = EXCLUDED.algorithm_version,
			result = EXCLUDED.result,
			updated_at = NOW()`

	_, err = r.db.Exec(ctx, query,
		opportunityID,
		profileID,
		method,
		mode,
		result.OverallScore,
		result.AlgorithmVersion,
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save score for opportunity %s: %w", opportunityID, err)
	}
	return nil
}

func (r *scoreRepository) Get(ctx context.Context, opportunityID string, profileID uuid.UUID, method models.Method, mode models.Mode) (*models.ScoreResult, error) {
	query := `
		SELECT result FROM opportunity_scores
		WHERE opportunity_id = $1 AND profile_id = $2 AND method = $3 AND mode = $4`

	var payload []byte
	err := r.db.QueryRow(ctx, query, opportunityID, profileID, method, mode).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load score for opportunity %s: %w", opportunityID, err)
	}

	var result models.ScoreResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to decode stored score: %w", err)
	}
	return &result, nil
}
