package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bidfit-inc/bidfit-engine/pkg/apperrors"
	"github.com/bidfit-inc/bidfit-engine/pkg/models"
	"github.com/bidfit-inc/bidfit-engine/pkg/repositories"
	"github.com/bidfit-inc/bidfit-engine/pkg/scoring"
)

// ScoreHandler handles match scoring HTTP requests.
type ScoreHandler struct {
	batch         *scoring.BatchCoordinator
	orchestrator  *scoring.Orchestrator
	profiles      repositories.ProfileRepository
	opportunities repositories.OpportunityRepository
	scores        repositories.ScoreRepository
	logger        *zap.Logger
}

// NewScoreHandler creates a new score handler. The score repository may
// be nil; saveResults is then silently unavailable.
func NewScoreHandler(
	batch *scoring.BatchCoordinator,
	orchestrator *scoring.Orchestrator,
	profiles repositories.ProfileRepository,
	opportunities repositories.OpportunityRepository,
	scores repositories.ScoreRepository,
	logger *zap.Logger,
) *ScoreHandler {
	return &ScoreHandler{
		batch:         batch,
		orchestrator:  orchestrator,
		profiles:      profiles,
		opportunities: opportunities,
		scores:        scores,
		logger:        logger,
	}
}

// RegisterRoutes registers the score handler's routes on the given mux.
func (h *ScoreHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/scores/batch", h.ScoreBatch)
	mux.HandleFunc("DELETE /api/profiles/{profile_id}/scores", h.InvalidateProfileScores)
}

type batchScoreRequest struct {
	OpportunityIDs []string `json:"opportunityIds"`
	ProfileID      string   `json:"profileId"`
	Method         string   `json:"method"`
	Mode           string   `json:"mode"`
	OrganizationID string   `json:"organizationId"`
	UserID         string   `json:"userId"`
	SaveResults    bool     `json:"saveResults"`
}

type batchScoreEntry struct {
	OpportunityID    string                          `json:"opportunityId"`
	Score            *int                            `json:"score"`
	Factors          map[string]models.CategoryScore `json:"factors,omitempty"`
	AlgorithmVersion string                          `json:"algorithmVersion,omitempty"`
	Confidence       int                             `json:"confidence,omitempty"`
	CostUnits        float64                         `json:"costUnits"`
	FromCache        bool                            `json:"fromCache"`
	Error            string                          `json:"error,omitempty"`
}

type batchScoreResponse struct {
	Results []batchScoreEntry `json:"results"`
}

// ScoreBatch handles POST /api/scores/batch.
func (h *ScoreHandler) ScoreBatch(w http.ResponseWriter, r *http.Request) {
	var req batchScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if len(req.OpportunityIDs) == 0 {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "opportunityIds is required")
		return
	}
	// Size is checked against the requested ids, before any data loads.
	if limit := h.batch.MaxBatchSize(); len(req.OpportunityIDs) > limit {
		h.writeError(w, http.StatusBadRequest, "batch_too_large",
			fmt.Sprintf("batch of %d exceeds limit of %d", len(req.OpportunityIDs), limit))
		return
	}

	scoreReq := &models.ScoreRequest{
		Method: models.Method(req.Method),
		Mode:   models.Mode(req.Mode),
	}
	if scoreReq.Method == "" {
		scoreReq.Method = models.MethodHybrid
	}
	if scoreReq.Mode == "" {
		scoreReq.Mode = models.ModeFast
	}
	if req.OrganizationID != "" {
		orgID, err := uuid.Parse(req.OrganizationID)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_organization_id", "Invalid organization ID format")
			return
		}
		scoreReq.OrganizationID = orgID
	}
	if req.UserID != "" {
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_user_id", "Invalid user ID format")
			return
		}
		scoreReq.UserID = userID
	}
	// The per-item validator needs a non-empty ID; the coordinator fills
	// in the real one per opportunity.
	scoreReq.OpportunityID = req.OpportunityIDs[0]

	switch scoreReq.Method {
	case models.MethodCalculation, models.MethodGenerative, models.MethodHybrid:
	default:
		h.writeError(w, http.StatusBadRequest, "invalid_method", "Method must be calculation, generative, or hybrid")
		return
	}
	switch scoreReq.Mode {
	case models.ModeFast, models.ModeAdvanced:
	default:
		h.writeError(w, http.StatusBadRequest, "invalid_mode", "Mode must be fast or advanced")
		return
	}

	profile, ok := h.resolveProfile(w, r, &req, scoreReq.OrganizationID)
	if !ok {
		return
	}
	scoreReq.ProfileID = profile.ID
	profileID := profile.ID

	opps, err := h.opportunities.GetByIDs(r.Context(), req.OpportunityIDs)
	if err != nil {
		h.logger.Error("Failed to load opportunities", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "opportunity_load_failed", "Failed to load opportunities")
		return
	}

	found := make(map[string]bool, len(opps))
	for _, opp := range opps {
		found[opp.ID] = true
	}

	entries, err := h.batch.ScoreBatch(r.Context(), scoreReq, opps, profile)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrBatchTooLarge):
			h.writeError(w, http.StatusBadRequest, "batch_too_large", err.Error())
		case errors.Is(err, apperrors.ErrInvalidRequest):
			h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			h.logger.Error("Batch scoring failed", zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, "scoring_failed", "Batch scoring failed")
		}
		return
	}

	byID := make(map[string]scoring.BatchEntry, len(entries))
	for _, entry := range entries {
		byID[entry.OpportunityID] = entry
	}

	if req.SaveResults && h.scores != nil {
		for _, entry := range entries {
			if entry.Result == nil {
				continue
			}
			if err := h.scores.Upsert(r.Context(), entry.OpportunityID, profileID, scoreReq.Method, scoreReq.Mode, entry.Result); err != nil {
				h.logger.Warn("Failed to save score",
					zap.String("opportunity_id", entry.OpportunityID),
					zap.Error(err))
			}
		}
	}

	// The response covers every requested ID in request order, including
	// IDs that were never found.
	results := make([]batchScoreEntry, 0, len(req.OpportunityIDs))
	for _, id := range req.OpportunityIDs {
		if !found[id] {
			results = append(results, batchScoreEntry{
				OpportunityID: id,
				Error:         "opportunity not found",
			})
			continue
		}
		entry := byID[id]
		out := batchScoreEntry{
			OpportunityID: id,
			FromCache:     entry.FromCache,
			Error:         entry.Error,
		}
		if entry.Result != nil {
			score := entry.Result.OverallScore
			out.Score = &score
			out.Factors = entry.Result.Categories
			out.AlgorithmVersion = entry.Result.AlgorithmVersion
			out.Confidence = entry.Result.Confidence
			out.CostUnits = entry.Result.CostUnits
		}
		results = append(results, out)
	}

	if err := WriteJSON(w, http.StatusOK, batchScoreResponse{Results: results}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// resolveProfile loads the scoring profile: explicitly by id, or the
// organization's default (oldest) profile when profileId is omitted. It
// writes the error response itself and reports success via ok.
func (h *ScoreHandler) resolveProfile(w http.ResponseWriter, r *http.Request, req *batchScoreRequest, organizationID uuid.UUID) (*models.Profile, bool) {
	if req.ProfileID != "" {
		profileID, err := uuid.Parse(req.ProfileID)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_profile_id", "Invalid profile ID format")
			return nil, false
		}
		profile, err := h.profiles.GetByID(r.Context(), profileID)
		if err != nil {
			if errors.Is(err, apperrors.ErrProfileNotFound) {
				h.writeError(w, http.StatusNotFound, "profile_not_found", "Profile not found")
				return nil, false
			}
			h.logger.Error("Failed to load profile", zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, "profile_load_failed", "Failed to load profile")
			return nil, false
		}
		return profile, true
	}

	if organizationID == uuid.Nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "profileId or organizationId is required")
		return nil, false
	}

	profiles, err := h.profiles.GetByOrganization(r.Context(), organizationID)
	if err != nil {
		h.logger.Error("Failed to load organization profiles", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "profile_load_failed", "Failed to load profile")
		return nil, false
	}
	if len(profiles) == 0 {
		h.writeError(w, http.StatusNotFound, "profile_not_found", "Organization has no profile")
		return nil, false
	}
	return profiles[0], true
}

// InvalidateProfileScores handles DELETE /api/profiles/{profile_id}/scores.
func (h *ScoreHandler) InvalidateProfileScores(w http.ResponseWriter, r *http.Request) {
	profileID, err := uuid.Parse(r.PathValue("profile_id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_profile_id", "Invalid profile ID format")
		return
	}

	if err := h.orchestrator.InvalidateProfile(r.Context(), profileID.String()); err != nil {
		h.logger.Error("Failed to invalidate profile scores", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "invalidation_failed", "Failed to invalidate cached scores")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ScoreHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
