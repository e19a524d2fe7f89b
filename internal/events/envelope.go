package events

import (
	"context"
	"encoding/json"
	"time"
)

// Envelope types the sse_events table accepts. Rich backend event
// types are folded into these four categories so the schema constraint
// never blocks a new event type.
const (
	EnvelopeNewsUpdate       = "news_update"
	EnvelopeRiskChange       = "risk_change"
	EnvelopeAlertNew         = "alert_new"
	EnvelopeDashboardRefresh = "dashboard_refresh"
)

// Original backend event types.
const (
	TypeNewsUpdate             = "news_update"
	TypeNewsFeedUpdate         = "news_feed_update"
	TypeRiskUpdate             = "risk_update"
	TypeRiskScoreUpdate        = "risk_score_update"
	TypeRiskBreakdownUpdate    = "risk_breakdown_update"
	TypeRiskCalculationUpdate  = "risk_calculation_update"
	TypeAlertsUpdate           = "alerts_update"
	TypeAlertNew               = "alert_new"
	TypeError                  = "error"
	TypeDashboardSummaryUpdate = "dashboard_summary_update"
	TypeConnection             = "connection"
)

var envelopeMapping = map[string]string{
	TypeNewsUpdate:     EnvelopeNewsUpdate,
	TypeNewsFeedUpdate: EnvelopeNewsUpdate,

	TypeRiskUpdate:            EnvelopeRiskChange,
	TypeRiskScoreUpdate:       EnvelopeRiskChange,
	TypeRiskBreakdownUpdate:   EnvelopeRiskChange,
	TypeRiskCalculationUpdate: EnvelopeRiskChange,

	TypeAlertsUpdate: EnvelopeAlertNew,
	TypeAlertNew:     EnvelopeAlertNew,
	TypeError:        EnvelopeAlertNew,

	TypeDashboardSummaryUpdate: EnvelopeDashboardRefresh,
	TypeConnection:             EnvelopeDashboardRefresh,
}

const defaultPriority = 50

var eventPriorities = map[string]int{
	TypeError:                  90,
	TypeAlertNew:               85,
	TypeRiskUpdate:             80,
	TypeRiskScoreUpdate:        75,
	TypeNewsUpdate:             70,
	TypeNewsFeedUpdate:         65,
	TypeDashboardSummaryUpdate: 60,
	TypeRiskBreakdownUpdate:    55,
	TypeAlertsUpdate:           35,
	TypeConnection:             30,
}

// MapEnvelope folds an original event type into its envelope type.
// Unknown types land in dashboard_refresh.
func MapEnvelope(originalType string) string {
	if envelope, ok := envelopeMapping[originalType]; ok {
		return envelope
	}
	return EnvelopeDashboardRefresh
}

// PriorityFor returns the delivery priority for an original event type.
func PriorityFor(originalType string) int {
	if priority, ok := eventPriorities[originalType]; ok {
		return priority
	}
	return defaultPriority
}

// Envelope is the enriched payload stored in the event row and sent to
// SSE subscribers.
type Envelope struct {
	OriginalEventType string          `json:"original_event_type"`
	EventData         json.RawMessage `json:"event_data"`
	Timestamp         time.Time       `json:"timestamp"`
	Priority          int             `json:"priority"`
	EnvelopeType      string          `json:"envelope_type"`
}

// Event is one stored row of the sse_events table.
type Event struct {
	ID           int64     `db:"id"`
	EnvelopeType string    `db:"envelope_type"`
	OriginalType string    `db:"original_type"`
	Payload      string    `db:"payload"`
	Priority     int       `db:"priority"`
	Processed    bool      `db:"processed"`
	CreatedAt    time.Time `db:"created_at"`
}

// Store is the durable event log behind the emitter and the SSE
// endpoint.
type Store interface {
	// Append persists an event and returns its id.
	Append(ctx context.Context, event *Event) (int64, error)

	// EventsSince pages unprocessed events after the cursor, highest
	// priority first, then insertion order.
	EventsSince(ctx context.Context, afterID int64, limit int) ([]Event, error)

	// MaxID returns the current highest event id, 0 when empty.
	MaxID(ctx context.Context) (int64, error)

	MarkProcessed(ctx context.Context, ids []int64) error

	// Cleanup deletes processed events older than the retention cutoff
	// and reports how many rows went away.
	Cleanup(ctx context.Context, olderThan time.Time) (int64, error)
}
