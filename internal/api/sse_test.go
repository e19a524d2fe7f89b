package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/adapters/config"
	"sentinel/internal/domain/article"
	"sentinel/internal/events"
	"sentinel/pkg/logger"
)

func (s *fakeStore) isProcessed(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed[id]
}

type streamFixture struct {
	store   *fakeStore
	emitter *events.Emitter
	handler *StreamHandler
}

func newStreamFixture(articles *fakeArticles) *streamFixture {
	store := newFakeStore()
	emitter := events.NewEmitter(store, events.NewChangeDetector(nil), logger.Get())
	rm := NewReadModels(articles, &fakeCalcs{}, emitter, logger.Get())
	cfg := config.APIConfig{SSEPollDelay: 10 * time.Millisecond, SSEBatchSize: 50}
	return &streamFixture{
		store:   store,
		emitter: emitter,
		handler: NewStreamHandler(store, rm, cfg, logger.Get()),
	}
}

// serve runs the stream handler until cancel, then returns the body.
func (f *streamFixture) serve(t *testing.T, during func(ctx context.Context)) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		f.handler.ServeHTTP(rec, req)
		close(done)
	}()

	// Let the handler snapshot its cursor before events arrive.
	time.Sleep(30 * time.Millisecond)
	during(ctx)
	time.Sleep(150 * time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream handler did not stop on client disconnect")
	}
	return rec.Body.String()
}

func TestStreamDeliversNewEventsOnly(t *testing.T) {
	fixture := newStreamFixture(&fakeArticles{})
	ctx := context.Background()

	// History from before the subscriber connected must not replay.
	require.NoError(t, fixture.emitter.EmitRiskScoreUpdate(ctx, map[string]string{"marker": "historic"}))

	body := fixture.serve(t, func(ctx context.Context) {
		require.NoError(t, fixture.emitter.EmitRiskScoreUpdate(ctx, map[string]string{"marker": "fresh"}))
	})

	assert.Contains(t, body, "event: connection")
	assert.Contains(t, body, "event: risk_score_update")
	assert.Contains(t, body, "fresh")
	assert.NotContains(t, body, "historic")

	assert.True(t, fixture.store.isProcessed(2), "delivered event must be marked processed")
	assert.False(t, fixture.store.isProcessed(1), "skipped history must stay unprocessed")
}

func TestStreamEnvelopeFrames(t *testing.T) {
	fixture := newStreamFixture(&fakeArticles{})

	body := fixture.serve(t, func(ctx context.Context) {
		require.NoError(t, fixture.emitter.EmitError(ctx, map[string]string{"message": "backend degraded"}))
	})

	assert.Contains(t, body, "event: error\n")
	assert.Contains(t, body, `"envelope_type":"alert_new"`)
	assert.Contains(t, body, `"priority":90`)
	assert.Contains(t, body, `"original_event_type":"error"`)
}

func TestStreamCascadesReadModelsOnNewsUpdate(t *testing.T) {
	articles := &fakeArticles{
		feed:      []article.FeedItem{{ID: 7, Headline: "Liquidity crunch deepens"}},
		breakdown: []article.CategoryCount{{Category: "liquidity_risk", Count: 1}},
		critical:  1,
	}
	fixture := newStreamFixture(articles)

	body := fixture.serve(t, func(ctx context.Context) {
		require.NoError(t, fixture.emitter.EmitNewsUpdate(ctx, map[string]interface{}{"id": 7}))
	})

	assert.Contains(t, body, "event: news_update")
	assert.Contains(t, body, "event: news_feed_update")
	assert.Contains(t, body, "event: dashboard_summary_update")
	assert.Contains(t, body, "event: risk_breakdown_update")
	assert.Contains(t, body, "Liquidity crunch deepens")
}

func TestStreamHeartbeatWhenIdle(t *testing.T) {
	fixture := newStreamFixture(&fakeArticles{})

	body := fixture.serve(t, func(ctx context.Context) {})

	assert.Contains(t, body, ": heartbeat")
}

func TestStreamRejectsNonGet(t *testing.T) {
	fixture := newStreamFixture(&fakeArticles{})

	rec := httptest.NewRecorder()
	fixture.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/events/stream", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
