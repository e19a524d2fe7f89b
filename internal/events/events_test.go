package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/pkg/logger"
)

type memoryStore struct {
	appended []Event
	nextID   int64
}

func (s *memoryStore) Append(_ context.Context, event *Event) (int64, error) {
	s.nextID++
	stored := *event
	stored.ID = s.nextID
	stored.CreatedAt = time.Now().UTC()
	s.appended = append(s.appended, stored)
	return stored.ID, nil
}

func (s *memoryStore) EventsSince(_ context.Context, afterID int64, limit int) ([]Event, error) {
	return nil, nil
}

func (s *memoryStore) MaxID(context.Context) (int64, error) { return s.nextID, nil }

func (s *memoryStore) MarkProcessed(context.Context, []int64) error { return nil }

func (s *memoryStore) Cleanup(context.Context, time.Time) (int64, error) { return 0, nil }

func TestMapEnvelope(t *testing.T) {
	assert.Equal(t, EnvelopeNewsUpdate, MapEnvelope("news_update"))
	assert.Equal(t, EnvelopeNewsUpdate, MapEnvelope("news_feed_update"))
	assert.Equal(t, EnvelopeRiskChange, MapEnvelope("risk_score_update"))
	assert.Equal(t, EnvelopeRiskChange, MapEnvelope("risk_calculation_update"))
	assert.Equal(t, EnvelopeAlertNew, MapEnvelope("error"))
	assert.Equal(t, EnvelopeAlertNew, MapEnvelope("alerts_update"))
	assert.Equal(t, EnvelopeDashboardRefresh, MapEnvelope("connection"))
	assert.Equal(t, EnvelopeDashboardRefresh, MapEnvelope("something_novel"))
}

func TestPriorityFor(t *testing.T) {
	assert.Equal(t, 90, PriorityFor("error"))
	assert.Equal(t, 85, PriorityFor("alert_new"))
	assert.Equal(t, 70, PriorityFor("news_update"))
	assert.Equal(t, 30, PriorityFor("connection"))
	assert.Equal(t, 50, PriorityFor("something_novel"))
}

func TestEmitterBuildsEnvelope(t *testing.T) {
	store := &memoryStore{}
	e := NewEmitter(store, NewChangeDetector(nil), logger.Get())

	err := e.EmitNewsUpdate(context.Background(), map[string]interface{}{"news_id": 7})
	require.NoError(t, err)
	require.Len(t, store.appended, 1)

	stored := store.appended[0]
	assert.Equal(t, EnvelopeNewsUpdate, stored.EnvelopeType)
	assert.Equal(t, TypeNewsUpdate, stored.OriginalType)
	assert.Equal(t, 70, stored.Priority)

	var envelope Envelope
	require.NoError(t, json.Unmarshal([]byte(stored.Payload), &envelope))
	assert.Equal(t, TypeNewsUpdate, envelope.OriginalEventType)
	assert.Equal(t, EnvelopeNewsUpdate, envelope.EnvelopeType)
	assert.Equal(t, 70, envelope.Priority)
	assert.JSONEq(t, `{"news_id": 7}`, string(envelope.EventData))
	assert.WithinDuration(t, time.Now().UTC(), envelope.Timestamp, time.Minute)
}

func TestEmitterSuppressesUnchangedReadModel(t *testing.T) {
	store := &memoryStore{}
	e := NewEmitter(store, NewChangeDetector(nil), logger.Get())
	ctx := context.Background()

	payload := map[string]interface{}{"total_news_today": 3}
	emitted, err := e.EmitDashboardSummary(ctx, payload)
	require.NoError(t, err)
	assert.True(t, emitted)

	emitted, err = e.EmitDashboardSummary(ctx, payload)
	require.NoError(t, err)
	assert.False(t, emitted)
	assert.Len(t, store.appended, 1)

	payload["total_news_today"] = 4
	emitted, err = e.EmitDashboardSummary(ctx, payload)
	require.NoError(t, err)
	assert.True(t, emitted)
	assert.Len(t, store.appended, 2)
}

func TestEmitterReadModelsUseSeparateBaselines(t *testing.T) {
	store := &memoryStore{}
	e := NewEmitter(store, NewChangeDetector(nil), logger.Get())
	ctx := context.Background()

	payload := map[string]interface{}{"count": 1}
	emitted, err := e.EmitNewsFeedUpdate(ctx, payload)
	require.NoError(t, err)
	assert.True(t, emitted)

	// Same bytes, different read-model: must not be suppressed.
	emitted, err = e.EmitRiskBreakdown(ctx, payload)
	require.NoError(t, err)
	assert.True(t, emitted)
}

func TestChangeDetectorIgnoresVolatileKeys(t *testing.T) {
	d := NewChangeDetector(nil)
	ctx := context.Background()

	first := []byte(`{"count": 5, "timestamp": "2025-03-10T09:00:00Z"}`)
	second := []byte(`{"count": 5, "timestamp": "2025-03-10T09:05:00Z", "last_check": "now"}`)
	third := []byte(`{"count": 6, "timestamp": "2025-03-10T09:10:00Z"}`)

	assert.True(t, d.Changed(ctx, "alerts", first))
	assert.False(t, d.Changed(ctx, "alerts", second))
	assert.True(t, d.Changed(ctx, "alerts", third))
}

func TestChangeDetectorNonObjectPayloads(t *testing.T) {
	d := NewChangeDetector(nil)
	ctx := context.Background()

	assert.True(t, d.Changed(ctx, "feed", []byte(`[1,2,3]`)))
	assert.False(t, d.Changed(ctx, "feed", []byte(`[1,2,3]`)))
	assert.True(t, d.Changed(ctx, "feed", []byte(`[1,2,3,4]`)))
}

type fakeHashCache struct {
	values map[string]string
}

func (c *fakeHashCache) Get(_ context.Context, key string, dest interface{}) error {
	v, ok := c.values[key]
	if !ok {
		return assert.AnError
	}
	*(dest.(*string)) = v
	return nil
}

func (c *fakeHashCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.values[key] = value.(string)
	return nil
}

func TestChangeDetectorSharedCacheSurvivesRestart(t *testing.T) {
	cache := &fakeHashCache{values: map[string]string{}}
	ctx := context.Background()
	payload := []byte(`{"count": 5}`)

	d1 := NewChangeDetector(cache)
	assert.True(t, d1.Changed(ctx, "alerts", payload))

	// Fresh process, same shared cache: unchanged payload stays quiet.
	d2 := NewChangeDetector(cache)
	assert.False(t, d2.Changed(ctx, "alerts", payload))

	d3 := NewChangeDetector(cache)
	assert.True(t, d3.Changed(ctx, "alerts", []byte(`{"count": 9}`)))
}
