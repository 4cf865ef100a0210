package scoring

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/bidfit-inc/bidfit-engine/pkg/apperrors"
	"github.com/bidfit-inc/bidfit-engine/pkg/models"
	"github.com/bidfit-inc/bidfit-engine/pkg/retry"
)

// Event names published for background score jobs.
const (
	EventScoreCompleted = "score.completed"
	EventScoreFailed    = "score.failed"
)

// ScoreEvent is the payload published when a background job finishes.
type ScoreEvent struct {
	Name          string              `json:"name"`
	OpportunityID string              `json:"opportunity_id"`
	ProfileID     string              `json:"profile_id"`
	Result        *models.ScoreResult `json:"result,omitempty"`
	Error         string              `json:"error,omitempty"`
}

// EventPublisher delivers score events to interested consumers. A
// publisher failure is logged and dropped: events are advisory, the
// authoritative result is in the cache and any registered hooks.
type EventPublisher interface {
	Publish(ctx context.Context, event ScoreEvent) error
}

// scoreJob is one queued background computation.
type scoreJob struct {
	req     *models.ScoreRequest
	opp     *models.Opportunity
	profile *models.Profile
}

// Dispatcher computes scores off the request path, for pre-warming and
// webhook-driven rescoring. Jobs retry transient failures a bounded
// number of times and publish a terminal event either way.
type Dispatcher struct {
	orchestrator *Orchestrator
	publisher    EventPublisher
	usage        UsageRecorder
	logger       *zap.Logger

	jobs chan scoreJob
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatcher starts workers workers draining a queue of queueSize
// pending jobs. Close must be called to drain on shutdown. Each fresh
// computation is billed through usage; cache hits are free.
func NewDispatcher(orchestrator *Orchestrator, publisher EventPublisher, usage UsageRecorder, workers, queueSize int, logger *zap.Logger) *Dispatcher {
	if workers < 1 {
		workers = 2
	}
	if queueSize < 1 {
		queueSize = 256
	}
	d := &Dispatcher{
		orchestrator: orchestrator,
		publisher:    publisher,
		usage:        usage,
		logger:       logger.Named("dispatcher"),
		jobs:         make(chan scoreJob, queueSize),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Enqueue schedules a background score computation. It never blocks on a
// full queue; the caller can always fall back to scoring inline.
func (d *Dispatcher) Enqueue(req *models.ScoreRequest, opp *models.Opportunity, profile *models.Profile) error {
	if err := req.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return apperrors.ErrDispatcherClosed
	}

	select {
	case d.jobs <- scoreJob{req: req, opp: opp, profile: profile}:
		return nil
	default:
		d.logger.Warn("dispatch queue full, job rejected",
			zap.String("opportunity_id", req.OpportunityID))
		return apperrors.ErrQueueFull
	}
}

// Close stops accepting jobs and blocks until queued jobs finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for job := range d.jobs {
		d.run(job)
	}
}

func (d *Dispatcher) run(job scoreJob) {
	ctx := context.Background()

	var outcome *ScoreOutcome
	err := retry.DoIfRetryable(ctx, retry.BackgroundConfig(), func() error {
		var scoreErr error
		outcome, scoreErr = d.orchestrator.Score(ctx, job.req, job.opp, job.profile)
		return scoreErr
	})

	event := ScoreEvent{
		Name:          EventScoreCompleted,
		OpportunityID: job.req.OpportunityID,
		ProfileID:     job.req.ProfileID.String(),
	}
	if err != nil {
		event.Name = EventScoreFailed
		event.Error = err.Error()
		d.logger.Error("background scoring failed",
			zap.String("opportunity_id", job.req.OpportunityID),
			zap.Error(err))
	} else {
		event.Result = outcome.Result
		if !outcome.FromCache && d.usage != nil {
			if usageErr := d.usage.RecordScoreUsage(ctx, job.req.OrganizationID.String(), job.req.UserID.String(), 1); usageErr != nil {
				// Billing must not fail an otherwise good job.
				d.logger.Warn("usage recording failed",
					zap.Stringer("organization_id", job.req.OrganizationID),
					zap.Error(usageErr))
			}
		}
	}

	if d.publisher != nil {
		if pubErr := d.publisher.Publish(ctx, event); pubErr != nil {
			d.logger.Warn("event publish failed",
				zap.String("event", event.Name),
				zap.String("opportunity_id", job.req.OpportunityID),
				zap.Error(pubErr))
		}
	}
}
