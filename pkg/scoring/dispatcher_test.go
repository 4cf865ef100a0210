package scoring

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bidfit-inc/bidfit-engine/pkg/apperrors"
	"github.com/bidfit-inc/bidfit-engine/pkg/llm"
	"github.com/bidfit-inc/bidfit-engine/pkg/models"
)

type mockPublisher struct {
	mu     sync.Mutex
	events []ScoreEvent
}

func (m *mockPublisher) Publish(_ context.Context, event ScoreEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) all() []ScoreEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ScoreEvent(nil), m.events...)
}

func TestDispatcher_PublishesCompletionEvent(t *testing.T) {
	orch, _ := newTestOrchestrator(stagedGenerator())
	publisher := &mockPublisher{}
	dispatcher := NewDispatcher(orch, publisher, nil, 2, 16, zap.NewNop())

	err := dispatcher.Enqueue(testRequest(models.MethodCalculation, models.ModeFast), testOpportunity(), testProfile())
	require.NoError(t, err)

	dispatcher.Close()

	events := publisher.all()
	require.Len(t, events, 1)
	assert.Equal(t, EventScoreCompleted, events[0].Name)
	assert.Equal(t, "opp-1", events[0].OpportunityID)
	require.NotNil(t, events[0].Result)
	assert.Equal(t, 97, events[0].Result.OverallScore)
}

func TestDispatcher_PublishesFailureEventAfterRetries(t *testing.T) {
	gen := llm.NewMockTextGenerator()
	gen.GenerateFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.GenerateResult, error) {
		return nil, llm.NewError(llm.ErrorTypeAuth, "invalid api key", false, nil)
	}
	orch, _ := newTestOrchestrator(gen)
	publisher := &mockPublisher{}
	dispatcher := NewDispatcher(orch, publisher, nil, 1, 16, zap.NewNop())

	err := dispatcher.Enqueue(testRequest(models.MethodGenerative, models.ModeFast), testOpportunity(), testProfile())
	require.NoError(t, err)

	dispatcher.Close()

	events := publisher.all()
	require.Len(t, events, 1)
	assert.Equal(t, EventScoreFailed, events[0].Name)
	assert.Contains(t, events[0].Error, "invalid api key")
	assert.Nil(t, events[0].Result)
	// Auth errors are not retryable, so the job ran exactly once.
	assert.Equal(t, 1, gen.GenerateCalls)
}

func TestDispatcher_DrainsQueueOnClose(t *testing.T) {
	orch, _ := newTestOrchestrator(stagedGenerator())
	publisher := &mockPublisher{}
	dispatcher := NewDispatcher(orch, publisher, nil, 2, 16, zap.NewNop())

	for i := 0; i < 6; i++ {
		opp := testOpportunity()
		opp.ID = "opp-" + string(rune('a'+i))
		req := testRequest(models.MethodCalculation, models.ModeFast)
		req.OpportunityID = opp.ID
		require.NoError(t, dispatcher.Enqueue(req, opp, testProfile()))
	}

	dispatcher.Close()

	assert.Len(t, publisher.all(), 6)
}

func TestDispatcher_RejectsAfterClose(t *testing.T) {
	orch, _ := newTestOrchestrator(stagedGenerator())
	dispatcher := NewDispatcher(orch, &mockPublisher{}, nil, 1, 4, zap.NewNop())
	dispatcher.Close()

	err := dispatcher.Enqueue(testRequest(models.MethodCalculation, models.ModeFast), testOpportunity(), testProfile())

	assert.ErrorIs(t, err, apperrors.ErrDispatcherClosed)
}

func TestDispatcher_RejectsInvalidRequest(t *testing.T) {
	orch, _ := newTestOrchestrator(stagedGenerator())
	dispatcher := NewDispatcher(orch, &mockPublisher{}, nil, 1, 4, zap.NewNop())
	defer dispatcher.Close()

	req := testRequest(models.MethodCalculation, models.ModeFast)
	req.OpportunityID = ""

	err := dispatcher.Enqueue(req, testOpportunity(), testProfile())
	require.Error(t, err)
}

func TestDispatcher_CloseIsIdempotent(t *testing.T) {
	orch, _ := newTestOrchestrator(stagedGenerator())
	dispatcher := NewDispatcher(orch, &mockPublisher{}, nil, 1, 4, zap.NewNop())

	dispatcher.Close()
	dispatcher.Close()
}

func TestDispatcher_BillsFreshComputationsOnly(t *testing.T) {
	orch, _ := newTestOrchestrator(stagedGenerator())
	usage := &mockUsageRecorder{}
	dispatcher := NewDispatcher(orch, &mockPublisher{}, usage, 1, 16, zap.NewNop())

	req := testRequest(models.MethodCalculation, models.ModeFast)
	require.NoError(t, dispatcher.Enqueue(req, testOpportunity(), testProfile()))
	// Same request again: the single worker processes jobs in order, so
	// the second lands on the cached result.
	require.NoError(t, dispatcher.Enqueue(req, testOpportunity(), testProfile()))

	dispatcher.Close()

	assert.Equal(t, 1, usage.calls)
	assert.Equal(t, 1, usage.quantity)
	assert.Equal(t, testOrgID.String(), usage.orgID)
}

func TestDispatcher_UsageErrorDoesNotFailJob(t *testing.T) {
	orch, _ := newTestOrchestrator(stagedGenerator())
	usage := &mockUsageRecorder{err: errors.New("billing backend down")}
	publisher := &mockPublisher{}
	dispatcher := NewDispatcher(orch, publisher, usage, 1, 16, zap.NewNop())

	require.NoError(t, dispatcher.Enqueue(testRequest(models.MethodCalculation, models.ModeFast), testOpportunity(), testProfile()))
	dispatcher.Close()

	events := publisher.all()
	require.Len(t, events, 1)
	assert.Equal(t, EventScoreCompleted, events[0].Name)
	assert.Equal(t, 1, usage.calls)
}
