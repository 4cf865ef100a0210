package llm

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestProcess_AllSucceed(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxConcurrent: 4}, zap.NewNop())

	items := make([]WorkItem[int], 10)
	for i := 0; i < 10; i++ {
		i := i
		items[i] = WorkItem[int]{
			ID: fmt.Sprintf("item-%d", i),
			Execute: func(ctx context.Context) (int, error) {
				return i * 2, nil
			},
		}
	}

	results := Process(context.Background(), pool, items, nil)
	if len(results) != 10 {
		t.Fatalf("expected 10 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("unexpected error for %s: %v", r.ID, r.Err)
		}
	}
}

func TestProcess_PartialFailure(t *testing.T) {
	pool := NewWorkerPool(DefaultWorkerPoolConfig(), zap.NewNop())

	items := []WorkItem[string]{
		{ID: "ok", Execute: func(ctx context.Context) (string, error) { return "fine", nil }},
		{ID: "bad", Execute: func(ctx context.Context) (string, error) { return "", fmt.Errorf("boom") }},
	}

	results := Process(context.Background(), pool, items, nil)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	var okSeen, badSeen bool
	for _, r := range results {
		switch r.ID {
		case "ok":
			okSeen = true
			if r.Err != nil {
				t.Errorf("ok item should not error: %v", r.Err)
			}
		case "bad":
			badSeen = true
			if r.Err == nil {
				t.Errorf("bad item should error")
			}
		}
	}
	if !okSeen || !badSeen {
		t.Errorf("missing results: ok=%v bad=%v", okSeen, badSeen)
	}
}

func TestProcess_BoundsConcurrency(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxConcurrent: 2}, zap.NewNop())

	var inFlight, maxInFlight int64
	items := make([]WorkItem[struct{}], 8)
	for i := range items {
		items[i] = WorkItem[struct{}]{
			ID: fmt.Sprintf("item-%d", i),
			Execute: func(ctx context.Context) (struct{}, error) {
				cur := atomic.AddInt64(&inFlight, 1)
				for {
					max := atomic.LoadInt64(&maxInFlight)
					if cur <= max || atomic.CompareAndSwapInt64(&maxInFlight, max, cur) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt64(&inFlight, -1)
				return struct{}{}, nil
			},
		}
	}

	Process(context.Background(), pool, items, nil)
	if atomic.LoadInt64(&maxInFlight) > 2 {
		t.Errorf("expected at most 2 concurrent items, saw %d", maxInFlight)
	}
}

func TestProcess_CancelledContext(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxConcurrent: 1}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := []WorkItem[int]{
		{ID: "a", Execute: func(ctx context.Context) (int, error) { return 1, nil }},
		{ID: "b", Execute: func(ctx context.Context) (int, error) { return 2, nil }},
	}

	results := Process(ctx, pool, items, nil)
	if len(results) != 2 {
		t.Fatalf("expected 2 results even when cancelled, got %d", len(results))
	}
}

func TestProcess_ReportsProgress(t *testing.T) {
	pool := NewWorkerPool(DefaultWorkerPoolConfig(), zap.NewNop())

	items := []WorkItem[int]{
		{ID: "a", Execute: func(ctx context.Context) (int, error) { return 1, nil }},
		{ID: "b", Execute: func(ctx context.Context) (int, error) { return 2, nil }},
		{ID: "c", Execute: func(ctx context.Context) (int, error) { return 3, nil }},
	}

	var calls int
	Process(context.Background(), pool, items, func(completed, total int) {
		calls++
		if total != 3 {
			t.Errorf("expected total 3, got %d", total)
		}
	})
	if calls != 3 {
		t.Errorf("expected 3 progress callbacks, got %d", calls)
	}
}
