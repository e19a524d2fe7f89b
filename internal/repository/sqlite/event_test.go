package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/events"
)

func appendEvent(t *testing.T, repo *EventRepository, originalType string, priority int) int64 {
	t.Helper()
	id, err := repo.Append(context.Background(), &events.Event{
		EnvelopeType: events.MapEnvelope(originalType),
		OriginalType: originalType,
		Payload:      `{"original_event_type":"` + originalType + `"}`,
		Priority:     priority,
	})
	require.NoError(t, err)
	return id
}

func TestEventsSincePriorityOrdering(t *testing.T) {
	db := newTestDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	first := appendEvent(t, repo, "connection", 10)
	urgent := appendEvent(t, repo, "error", 90)
	last := appendEvent(t, repo, "connection", 10)

	page, err := repo.EventsSince(ctx, 0, 50)
	require.NoError(t, err)
	require.Len(t, page, 3)

	// High priority jumps the queue; equal priorities keep insertion order.
	assert.Equal(t, urgent, page[0].ID)
	assert.Equal(t, first, page[1].ID)
	assert.Equal(t, last, page[2].ID)
}

func TestEventsSinceCursorAndProcessed(t *testing.T) {
	db := newTestDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	a := appendEvent(t, repo, "news_update", 70)
	b := appendEvent(t, repo, "news_update", 70)
	c := appendEvent(t, repo, "news_update", 70)

	page, err := repo.EventsSince(ctx, a, 50)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, b, page[0].ID)

	require.NoError(t, repo.MarkProcessed(ctx, []int64{b}))

	page, err = repo.EventsSince(ctx, a, 50)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, c, page[0].ID)
}

func TestEventsSinceLimit(t *testing.T) {
	db := newTestDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		appendEvent(t, repo, "news_update", 70)
	}

	page, err := repo.EventsSince(ctx, 0, 2)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestMaxID(t *testing.T) {
	db := newTestDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	max, err := repo.MaxID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), max)

	appendEvent(t, repo, "news_update", 70)
	last := appendEvent(t, repo, "news_update", 70)

	max, err = repo.MaxID(ctx)
	require.NoError(t, err)
	assert.Equal(t, last, max)
}

func TestCleanupRemovesOnlyOldProcessed(t *testing.T) {
	db := newTestDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	oldProcessed := appendEvent(t, repo, "news_update", 70)
	oldPending := appendEvent(t, repo, "news_update", 70)
	fresh := appendEvent(t, repo, "news_update", 70)

	longAgo := time.Now().UTC().AddDate(0, 0, -30)
	_, err := db.Exec(`UPDATE sse_events SET created_at = ? WHERE id IN (?, ?)`,
		longAgo, oldProcessed, oldPending)
	require.NoError(t, err)
	require.NoError(t, repo.MarkProcessed(ctx, []int64{oldProcessed, fresh}))

	removed, err := repo.Cleanup(ctx, time.Now().UTC().AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	var remaining []int64
	require.NoError(t, db.Select(&remaining, `SELECT id FROM sse_events ORDER BY id`))
	assert.Equal(t, []int64{oldPending, fresh}, remaining)
}

func TestMarkProcessedEmptyIsNoOp(t *testing.T) {
	db := newTestDB(t)
	repo := NewEventRepository(db)

	assert.NoError(t, repo.MarkProcessed(context.Background(), nil))
}
