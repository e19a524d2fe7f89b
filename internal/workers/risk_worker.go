package workers

import (
	"context"
	"time"

	"sentinel/internal/pipeline"
	"sentinel/internal/queue"
	"sentinel/pkg/errors"
)

// riskLockTTL keeps sibling replicas from double-scheduling the same
// recalculation tick.
const riskLockTTL = time.Minute

// Locker takes a TTL-expiring distributed lock. The redis adapter
// satisfies it.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RiskWorker periodically schedules a daily risk recalculation so the
// aggregate stays fresh even when no new articles arrive.
type RiskWorker struct {
	*BaseWorker
	queue  *queue.Queue
	locker Locker // nil in single-replica deployments
}

// NewRiskWorker creates the periodic risk scheduler.
func NewRiskWorker(q *queue.Queue, locker Locker, interval time.Duration, enabled bool) *RiskWorker {
	return &RiskWorker{
		BaseWorker: NewBaseWorker("risk_scheduler", interval, enabled),
		queue:      q,
		locker:     locker,
	}
}

// Run enqueues one recalculation task
func (w *RiskWorker) Run(ctx context.Context) error {
	if w.locker != nil {
		acquired, err := w.locker.AcquireLock(ctx, "risk_recalc", riskLockTTL)
		if err != nil {
			return errors.Wrap(err, "acquire recalculation lock")
		}
		if !acquired {
			w.Log().Debug("Recalculation already scheduled by another replica")
			return nil
		}
	}

	id, err := w.queue.Enqueue(ctx, pipeline.TaskRecalculateRisk, nil)
	if err != nil {
		return errors.Wrap(err, "enqueue risk recalculation")
	}

	w.Log().Info("Risk recalculation scheduled", "task_id", id)
	return nil
}
