package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sentinel/internal/events"
	"sentinel/internal/metrics"
	"sentinel/pkg/errors"
)

// EventRepository implements events.Store over the risk database.
type EventRepository struct {
	db DBTX
}

var _ events.Store = (*EventRepository)(nil)

// NewEventRepository creates an event log repository.
func NewEventRepository(db DBTX) *EventRepository {
	return &EventRepository{db: db}
}

// Append persists one event and returns its id.
func (r *EventRepository) Append(ctx context.Context, event *events.Event) (int64, error) {
	query := `
		INSERT INTO sse_events (envelope_type, original_type, payload, priority)
		VALUES (?, ?, ?, ?)
	`

	start := time.Now()
	res, err := r.db.ExecContext(ctx, query,
		event.EnvelopeType, event.OriginalType, event.Payload, event.Priority)
	metrics.RecordDBQuery("risk", "event_append", time.Since(start), err)
	if err != nil {
		return 0, errors.Wrap(err, "append event")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "event insert id")
	}
	return id, nil
}

// EventsSince pages unprocessed events after the cursor. High-priority
// events jump the queue; equal priorities keep insertion order.
func (r *EventRepository) EventsSince(ctx context.Context, afterID int64, limit int) ([]events.Event, error) {
	query := `
		SELECT id, envelope_type, original_type, payload, priority, processed, created_at
		FROM sse_events
		WHERE id > ? AND processed = 0
		ORDER BY priority DESC, id ASC
		LIMIT ?
	`

	var rows []events.Event
	start := time.Now()
	err := r.db.SelectContext(ctx, &rows, query, afterID, limit)
	metrics.RecordDBQuery("risk", "event_page", time.Since(start), err)
	if err != nil {
		return nil, errors.Wrap(err, "page events")
	}
	return rows, nil
}

// MaxID returns the highest event id, 0 for an empty log.
func (r *EventRepository) MaxID(ctx context.Context) (int64, error) {
	var max int64
	if err := r.db.GetContext(ctx, &max, `SELECT COALESCE(MAX(id), 0) FROM sse_events`); err != nil {
		return 0, errors.Wrap(err, "max event id")
	}
	return max, nil
}

// MarkProcessed flags delivered events.
func (r *EventRepository) MarkProcessed(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := fmt.Sprintf(`UPDATE sse_events SET processed = 1 WHERE id IN (%s)`, placeholders)

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "mark events processed")
	}
	return nil
}

// Cleanup removes processed events created before the cutoff.
func (r *EventRepository) Cleanup(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sse_events WHERE processed = 1 AND created_at < ?`, olderThan)
	if err != nil {
		return 0, errors.Wrap(err, "cleanup events")
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "cleanup rows affected")
	}
	return removed, nil
}
