package workers

import (
	"context"
	"time"
)

// AlertsChecker refreshes the critical-alerts read model.
type AlertsChecker interface {
	CheckAlerts(ctx context.Context) error
}

// AlertsWorker keeps the alerts projection alive for subscribers that
// joined after the last change.
type AlertsWorker struct {
	*BaseWorker
	checker AlertsChecker
}

// NewAlertsWorker creates the periodic alerts refresher.
func NewAlertsWorker(checker AlertsChecker, interval time.Duration, enabled bool) *AlertsWorker {
	return &AlertsWorker{
		BaseWorker: NewBaseWorker("alerts_refresher", interval, enabled),
		checker:    checker,
	}
}

// Run pushes the current alerts state through change detection
func (w *AlertsWorker) Run(ctx context.Context) error {
	return w.checker.CheckAlerts(ctx)
}
