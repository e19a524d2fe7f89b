package workers

import (
	"context"
	"time"

	"sentinel/internal/events"
	"sentinel/pkg/errors"
)

// CleanupWorker purges delivered events past the retention window so
// the event log does not grow without bound.
type CleanupWorker struct {
	*BaseWorker
	store     events.Store
	retention time.Duration
}

// NewCleanupWorker creates the event log janitor.
func NewCleanupWorker(
	store events.Store,
	retentionDays int,
	interval time.Duration,
	enabled bool,
) *CleanupWorker {
	if retentionDays <= 0 {
		retentionDays = 7
	}
	return &CleanupWorker{
		BaseWorker: NewBaseWorker("event_cleanup", interval, enabled),
		store:      store,
		retention:  time.Duration(retentionDays) * 24 * time.Hour,
	}
}

// Run deletes processed events older than the retention cutoff
func (w *CleanupWorker) Run(ctx context.Context) error {
	removed, err := w.store.Cleanup(ctx, time.Now().Add(-w.retention))
	if err != nil {
		return errors.Wrap(err, "cleanup event log")
	}

	if removed > 0 {
		w.Log().Info("Event log cleaned", "removed", removed, "retention", w.retention)
	}
	return nil
}
