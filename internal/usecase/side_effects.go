package usecase

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/V4T54L/floor-sync/internal/adapter/metrics"
	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/google/uuid"
)

const sideEffectTimeout = 10 * time.Second

// SideEffect is the post-commit work of one mutation: an optional snapshot to
// archive, then an event to publish.
type SideEffect struct {
	FloorPlanID uuid.UUID
	Snapshot    *domain.Snapshot
	Event       domain.LiveEvent
}

// SideEffectQueue runs post-commit work on a single background worker so that
// snapshots and events leave the process in commit order. Failures are logged
// and counted, never returned to the caller.
type SideEffectQueue struct {
	snapshots domain.SnapshotRepository
	publisher domain.EventPublisher
	logger    *slog.Logger
	metrics   *metrics.SyncMetrics

	jobs   chan SideEffect
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewSideEffectQueue creates a queue holding up to size pending jobs and starts
// its worker. A size of zero makes Dispatch run every job inline.
func NewSideEffectQueue(snapshots domain.SnapshotRepository, publisher domain.EventPublisher, logger *slog.Logger, m *metrics.SyncMetrics, size int) *SideEffectQueue {
	q := &SideEffectQueue{
		snapshots: snapshots,
		publisher: publisher,
		logger:    logger.With("component", "side_effects"),
		metrics:   m,
	}
	if size > 0 {
		q.jobs = make(chan SideEffect, size)
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

func (q *SideEffectQueue) worker() {
	defer q.wg.Done()
	for job := range q.jobs {
		q.setDepth()
		q.run(job)
	}
	q.logger.Info("Side effect worker stopped")
}

// Dispatch enqueues job. When the queue is full it waits for room until ctx
// ends, then runs the job on the caller's goroutine.
func (q *SideEffectQueue) Dispatch(ctx context.Context, job SideEffect) {
	q.mu.RLock()
	if q.jobs == nil || q.closed {
		q.mu.RUnlock()
		q.run(job)
		return
	}

	select {
	case q.jobs <- job:
		q.mu.RUnlock()
		q.setDepth()
		return
	default:
	}

	q.logger.Warn("Side effect queue full, waiting", "floor_plan_id", job.FloorPlanID)
	select {
	case q.jobs <- job:
		q.mu.RUnlock()
		q.setDepth()
	case <-ctx.Done():
		q.mu.RUnlock()
		q.logger.Warn("Side effect queue still full, running inline", "floor_plan_id", job.FloorPlanID)
		q.run(job)
	}
}

// Close stops accepting jobs and waits until the queued ones have run.
func (q *SideEffectQueue) Close() {
	q.mu.Lock()
	if q.closed || q.jobs == nil {
		q.closed = true
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *SideEffectQueue) run(job SideEffect) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("Side effect panicked", "floor_plan_id", job.FloorPlanID, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	if job.Snapshot != nil {
		path, err := q.snapshots.Write(ctx, job.FloorPlanID, *job.Snapshot)
		if err != nil {
			q.logger.Error("Failed to write snapshot", "floor_plan_id", job.FloorPlanID, "error", err)
			q.count(func(m *metrics.SyncMetrics) { m.SnapshotWrites.WithLabelValues("error").Inc() })
		} else {
			q.logger.Debug("Snapshot archived", "floor_plan_id", job.FloorPlanID, "path", path)
			q.count(func(m *metrics.SyncMetrics) { m.SnapshotWrites.WithLabelValues("written").Inc() })
		}
	}

	if err := q.publisher.Publish(ctx, job.Event); err != nil {
		q.logger.Error("Failed to publish live event", "floor_plan_id", job.FloorPlanID, "event", job.Event.Event, "error", err)
	}
}

func (q *SideEffectQueue) setDepth() {
	if q.metrics != nil && q.jobs != nil {
		q.metrics.SideEffectQueueDepth.Set(float64(len(q.jobs)))
	}
}

func (q *SideEffectQueue) count(fn func(*metrics.SyncMetrics)) {
	if q.metrics != nil {
		fn(q.metrics)
	}
}
