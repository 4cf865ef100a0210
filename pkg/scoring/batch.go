package scoring

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/bidfit-inc/bidfit-engine/pkg/apperrors"
	"github.com/bidfit-inc/bidfit-engine/pkg/llm"
	"github.com/bidfit-inc/bidfit-engine/pkg/models"
)

// UsageRecorder records billable scoring activity. Cache hits are free;
// only fresh computations are billed.
type UsageRecorder interface {
	RecordScoreUsage(ctx context.Context, organizationID, userID string, quantity int) error
}

// BatchEntry is one slot in a batch response. Entries keep the position
// of their requested opportunity; a failed item has a nil Result and the
// failure reason, never displacing its neighbours.
type BatchEntry struct {
	OpportunityID string              `json:"opportunity_id"`
	Result        *models.ScoreResult `json:"result"`
	FromCache     bool                `json:"from_cache"`
	Error         string              `json:"error,omitempty"`
}

// BatchCoordinator fans one profile out across many opportunities with
// bounded concurrency. Partial failures are isolated per entry and the
// whole batch is billed as one aggregated usage event.
type BatchCoordinator struct {
	orchestrator *Orchestrator
	pool         *llm.WorkerPool
	usage        UsageRecorder
	maxBatchSize int
	logger       *zap.Logger
}

func NewBatchCoordinator(orchestrator *Orchestrator, pool *llm.WorkerPool, usage UsageRecorder, maxBatchSize int, logger *zap.Logger) *BatchCoordinator {
	if maxBatchSize < 1 {
		maxBatchSize = 50
	}
	return &BatchCoordinator{
		orchestrator: orchestrator,
		pool:         pool,
		usage:        usage,
		maxBatchSize: maxBatchSize,
		logger:       logger.Named("batch-coordinator"),
	}
}

// MaxBatchSize is the ceiling callers must validate request sizes
// against before loading any data.
func (b *BatchCoordinator) MaxBatchSize() int {
	return b.maxBatchSize
}

// ScoreBatch scores the profile against every opportunity. The returned
// slice has one entry per input opportunity in input order. The batch as
// a whole fails only on invalid input; individual scoring failures land
// in their entry.
func (b *BatchCoordinator) ScoreBatch(ctx context.Context, req *models.ScoreRequest, opps []*models.Opportunity, profile *models.Profile) ([]BatchEntry, error) {
	if len(opps) == 0 {
		return nil, fmt.Errorf("%w: no opportunities given", apperrors.ErrInvalidRequest)
	}
	if len(opps) > b.maxBatchSize {
		return nil, fmt.Errorf("%w: %d opportunities exceeds limit of %d",
			apperrors.ErrBatchTooLarge, len(opps), b.maxBatchSize)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: profile is required", apperrors.ErrInvalidRequest)
	}

	items := make([]llm.WorkItem[*ScoreOutcome], len(opps))
	for i, opp := range opps {
		opp := opp
		itemReq := *req
		itemReq.OpportunityID = opp.ID
		items[i] = llm.WorkItem[*ScoreOutcome]{
			ID: strconv.Itoa(i),
			Execute: func(ctx context.Context) (*ScoreOutcome, error) {
				return b.orchestrator.Score(ctx, &itemReq, opp, profile)
			},
		}
	}

	entries := make([]BatchEntry, len(opps))
	for i, opp := range opps {
		entries[i] = BatchEntry{OpportunityID: opp.ID}
	}

	results := llm.Process(ctx, b.pool, items, nil)

	hits, failed := 0, 0
	// Duplicate ids in one batch coalesce into a single computation, so
	// billing counts distinct opportunities, not entries.
	missed := make(map[string]struct{})
	for _, r := range results {
		idx, err := strconv.Atoi(r.ID)
		if err != nil || idx < 0 || idx >= len(entries) {
			continue
		}
		if r.Err != nil {
			entries[idx].Error = r.Err.Error()
			failed++
			continue
		}
		entries[idx].Result = r.Result.Result
		entries[idx].FromCache = r.Result.FromCache
		if r.Result.FromCache {
			hits++
		} else {
			missed[entries[idx].OpportunityID] = struct{}{}
		}
	}
	misses := len(missed)

	if misses > 0 && b.usage != nil {
		if err := b.usage.RecordScoreUsage(ctx, req.OrganizationID.String(), req.UserID.String(), misses); err != nil {
			// Billing must not fail an otherwise good batch.
			b.logger.Warn("usage recording failed",
				zap.Stringer("organization_id", req.OrganizationID),
				zap.Error(err))
		}
	}

	b.logger.Info("batch scored",
		zap.Stringer("profile_id", profile.ID),
		zap.Int("requested", len(opps)),
		zap.Int("cache_hits", hits),
		zap.Int("computed", misses),
		zap.Int("failed", failed))
	return entries, nil
}
