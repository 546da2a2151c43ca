package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pfe-match/pfe-match-api/pkg/jobs"
)

// RecomputeDispatcher funnels recompute requests through a single-worker
// queue so at most one engine run is active at a time. Submissions trigger
// fire-and-forget; the manual endpoint runs synchronously but shares the
// same allocation service.
type RecomputeDispatcher struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewRecomputeDispatcher builds and starts the dispatcher.
func NewRecomputeDispatcher(ctx context.Context, allocation *AllocationService, buffer int, logger *zap.Logger) *RecomputeDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := func(ctx context.Context, job jobs.Job) error {
		_, err := allocation.Recompute(ctx)
		return err
	}

	queue := jobs.NewQueue("recompute", handler, jobs.QueueConfig{
		Workers:    1,
		BufferSize: buffer,
		MaxRetries: 1,
		RetryDelay: time.Second,
		Logger:     logger,
	})
	queue.Start(ctx)

	return &RecomputeDispatcher{queue: queue, logger: logger}
}

// TriggerRecompute enqueues a full recomputation.
func (d *RecomputeDispatcher) TriggerRecompute(teamID string) error {
	return d.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "allocation.recompute",
		Payload: teamID,
	})
}

// Stop drains the dispatcher's workers.
func (d *RecomputeDispatcher) Stop() {
	d.queue.Stop()
}
