package events

import (
	"context"
	"encoding/json"
	"time"

	"sentinel/internal/metrics"
	"sentinel/pkg/errors"
	"sentinel/pkg/logger"
)

// Emitter appends enriched envelope events to the store. Read-model
// updates go through the change detector; per-article and error events
// are always appended.
type Emitter struct {
	store    Store
	detector *ChangeDetector
	log      *logger.Logger
}

// NewEmitter creates an emitter.
func NewEmitter(store Store, detector *ChangeDetector, log *logger.Logger) *Emitter {
	return &Emitter{
		store:    store,
		detector: detector,
		log:      log.With("component", "events"),
	}
}

// EmitNewsUpdate announces one newly stored article.
func (e *Emitter) EmitNewsUpdate(ctx context.Context, payload interface{}) error {
	return e.emit(ctx, TypeNewsUpdate, payload)
}

// EmitRiskScoreUpdate announces a changed daily risk score.
func (e *Emitter) EmitRiskScoreUpdate(ctx context.Context, payload interface{}) error {
	return e.emit(ctx, TypeRiskScoreUpdate, payload)
}

// EmitError announces a backend failure subscribers should surface.
func (e *Emitter) EmitError(ctx context.Context, payload interface{}) error {
	return e.emit(ctx, TypeError, payload)
}

// EmitConnection announces a subscriber handshake.
func (e *Emitter) EmitConnection(ctx context.Context, payload interface{}) error {
	return e.emit(ctx, TypeConnection, payload)
}

// EmitNewsFeedUpdate pushes the rebuilt news feed read-model. Returns
// false when change detection suppressed the emit.
func (e *Emitter) EmitNewsFeedUpdate(ctx context.Context, payload interface{}) (bool, error) {
	return e.emitChanged(ctx, TypeNewsFeedUpdate, "news_feed", payload)
}

// EmitDashboardSummary pushes the rebuilt dashboard summary.
func (e *Emitter) EmitDashboardSummary(ctx context.Context, payload interface{}) (bool, error) {
	return e.emitChanged(ctx, TypeDashboardSummaryUpdate, "dashboard_summary", payload)
}

// EmitRiskBreakdown pushes the rebuilt category breakdown.
func (e *Emitter) EmitRiskBreakdown(ctx context.Context, payload interface{}) (bool, error) {
	return e.emitChanged(ctx, TypeRiskBreakdownUpdate, "risk_breakdown", payload)
}

// EmitAlerts pushes the critical-alerts state.
func (e *Emitter) EmitAlerts(ctx context.Context, payload interface{}) (bool, error) {
	return e.emitChanged(ctx, TypeAlertsUpdate, "alerts", payload)
}

// Emit appends an event of an arbitrary original type.
func (e *Emitter) Emit(ctx context.Context, originalType string, payload interface{}) error {
	return e.emit(ctx, originalType, payload)
}

func (e *Emitter) emitChanged(ctx context.Context, originalType, cacheKey string, payload interface{}) (bool, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return false, errors.Wrap(err, "marshal event payload")
	}
	if !e.detector.Changed(ctx, cacheKey, data) {
		metrics.EventsSuppressed.WithLabelValues(originalType).Inc()
		return false, nil
	}
	return true, e.append(ctx, originalType, data)
}

func (e *Emitter) emit(ctx context.Context, originalType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal event payload")
	}
	return e.append(ctx, originalType, data)
}

func (e *Emitter) append(ctx context.Context, originalType string, data []byte) error {
	envelopeType := MapEnvelope(originalType)
	priority := PriorityFor(originalType)

	envelope := Envelope{
		OriginalEventType: originalType,
		EventData:         data,
		Timestamp:         time.Now().UTC(),
		Priority:          priority,
		EnvelopeType:      envelopeType,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return errors.Wrap(err, "marshal envelope")
	}

	_, err = e.store.Append(ctx, &Event{
		EnvelopeType: envelopeType,
		OriginalType: originalType,
		Payload:      string(payload),
		Priority:     priority,
	})
	if err != nil {
		return errors.Wrap(err, "append event")
	}

	metrics.EventsEmitted.WithLabelValues(envelopeType).Inc()
	e.log.Debug("Event emitted", "type", originalType, "envelope", envelopeType, "priority", priority)
	return nil
}
