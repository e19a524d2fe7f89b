package api

import (
	"context"
	"sync"
	"time"

	"sentinel/internal/domain/article"
	domainRisk "sentinel/internal/domain/risk"
	"sentinel/internal/events"
	"sentinel/pkg/errors"
	"sentinel/pkg/logger"
)

// chartColors maps risk categories to the dashboard chart palette.
var chartColors = map[string]string{
	"market_risk":      "#3B82F6",
	"credit_risk":      "#EF4444",
	"operational_risk": "#F59E0B",
	"liquidity_risk":   "#10B981",
}

const fallbackColor = "#6B7280"

func colorFor(category string) string {
	if color, ok := chartColors[category]; ok {
		return color
	}
	return fallbackColor
}

const (
	feedSize            = 5
	summaryWindow       = 7 * 24 * time.Hour
	alertsWindow        = 24 * time.Hour
	alertsForceInterval = 2 * time.Minute
)

// ReadModels rebuilds the dashboard projections and pushes them through
// the emitter. Unchanged payloads are suppressed by change detection so
// a rebuild is always safe to trigger.
type ReadModels struct {
	articles article.Repository
	calcs    domainRisk.Repository
	emitter  *events.Emitter
	log      *logger.Logger

	mu             sync.Mutex
	lastAlertsPush time.Time
}

// NewReadModels creates the read-model cascade.
func NewReadModels(
	articles article.Repository,
	calcs domainRisk.Repository,
	emitter *events.Emitter,
	log *logger.Logger,
) *ReadModels {
	return &ReadModels{
		articles: articles,
		calcs:    calcs,
		emitter:  emitter,
		log:      log.With("component", "readmodels"),
	}
}

// RefreshDashboard rebuilds the feed, summary and breakdown
// projections. Runs whenever a news update flows through the stream;
// each projection failure is logged and the rest still refresh.
func (r *ReadModels) RefreshDashboard(ctx context.Context) {
	if err := r.refreshFeed(ctx); err != nil {
		r.log.Warn("Failed to refresh news feed", "error", err)
	}
	if err := r.refreshSummary(ctx); err != nil {
		r.log.Warn("Failed to refresh dashboard summary", "error", err)
	}
	if err := r.refreshBreakdown(ctx); err != nil {
		r.log.Warn("Failed to refresh risk breakdown", "error", err)
	}
	if err := r.CheckAlerts(ctx); err != nil {
		r.log.Warn("Failed to refresh alerts", "error", err)
	}
}

func (r *ReadModels) refreshFeed(ctx context.Context) error {
	items, err := r.articles.Feed(ctx, feedSize)
	if err != nil {
		return errors.Wrap(err, "load news feed")
	}
	if items == nil {
		items = []article.FeedItem{}
	}

	_, err = r.emitter.EmitNewsFeedUpdate(ctx, map[string]interface{}{
		"news":  items,
		"count": len(items),
	})
	return err
}

func (r *ReadModels) refreshSummary(ctx context.Context) error {
	summary, err := r.articles.Summary(ctx, time.Now().Add(-summaryWindow))
	if err != nil {
		return errors.Wrap(err, "load dashboard summary")
	}

	payload := map[string]interface{}{
		"summary":     summary,
		"window_days": 7,
	}

	latest, err := r.calcs.Latest(ctx)
	switch {
	case err == nil:
		payload["current_risk_score"] = latest.Score
		payload["risk_trend"] = latest.Trend
		payload["total_financial_exposure"] = latest.TotalExposure.String()
	case errors.Is(err, errors.ErrNotFound):
		// No daily calculation yet.
	default:
		return errors.Wrap(err, "load latest risk calculation")
	}

	_, err = r.emitter.EmitDashboardSummary(ctx, payload)
	return err
}

func (r *ReadModels) refreshBreakdown(ctx context.Context) error {
	rows, err := r.articles.CategoryBreakdown(ctx)
	if err != nil {
		return errors.Wrap(err, "load category breakdown")
	}
	for i := range rows {
		rows[i].Color = colorFor(rows[i].Category)
	}
	if rows == nil {
		rows = []article.CategoryCount{}
	}

	_, err = r.emitter.EmitRiskBreakdown(ctx, map[string]interface{}{
		"breakdown": rows,
	})
	return err
}

// CheckAlerts pushes the critical-alerts state. An unchanged state is
// suppressed, but a full push still goes out once the force interval
// elapses so late subscribers converge.
func (r *ReadModels) CheckAlerts(ctx context.Context) error {
	count, err := r.articles.CriticalCountSince(ctx, time.Now().Add(-alertsWindow))
	if err != nil {
		return errors.Wrap(err, "count critical articles")
	}

	payload := map[string]interface{}{
		"critical_count": count,
		"window_hours":   24,
	}

	r.mu.Lock()
	force := time.Since(r.lastAlertsPush) >= alertsForceInterval
	r.mu.Unlock()

	if force {
		if err := r.emitter.Emit(ctx, events.TypeAlertsUpdate, payload); err != nil {
			return err
		}
		r.touchAlerts()
		return nil
	}

	emitted, err := r.emitter.EmitAlerts(ctx, payload)
	if emitted {
		r.touchAlerts()
	}
	return err
}

func (r *ReadModels) touchAlerts() {
	r.mu.Lock()
	r.lastAlertsPush = time.Now()
	r.mu.Unlock()
}
