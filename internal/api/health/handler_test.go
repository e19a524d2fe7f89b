package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/adapters/config"
	adapter "sentinel/internal/adapters/sqlite"
	"sentinel/pkg/logger"
)

func newTestClient(t *testing.T) *adapter.Client {
	t.Helper()

	cfg := config.DatabaseConfig{
		MaxConnections: 2,
		BusyTimeout:    5 * time.Second,
	}
	client, err := adapter.NewClient(filepath.Join(t.TempDir(), "health.db"), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	logger.Init("error", "development")
	risk := newTestClient(t)
	knowledge := newTestClient(t)
	pool := adapter.NewPool(risk, 2, logger.Get())
	t.Cleanup(pool.Close)

	return New(logger.Get(), risk.DB(), knowledge.DB(), pool, nil, "sentinel-test", "test")
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) HealthStatus {
	t.Helper()
	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	return status
}

func TestHandleLiveness(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.HandleLiveness(rec, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")
}

func TestHandleReadinessAllHealthy(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeStatus(t, rec)
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "healthy", status.Checks["risk_db"].Status)
	assert.Equal(t, "healthy", status.Checks["knowledge_db"].Status)
	assert.Equal(t, "healthy", status.Checks["connection_pool"].Status)

	// Redis is not configured, so it must not be checked at all.
	_, checked := status.Checks["redis"]
	assert.False(t, checked)
}

func TestHandleReadinessFailsOnClosedDatabase(t *testing.T) {
	h := newTestHandler(t)
	require.NoError(t, h.riskDB.Close())

	rec := httptest.NewRecorder()
	h.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	status := decodeStatus(t, rec)
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "unhealthy", status.Checks["risk_db"].Status)
}

func TestHandleHealthDegraded(t *testing.T) {
	h := newTestHandler(t)
	require.NoError(t, h.riskDB.Close())

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	// Partially healthy still serves 200 with a degraded status.
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeStatus(t, rec)
	assert.Equal(t, "degraded", status.Status)
}

func TestHandleHealthReportsPoolExhaustion(t *testing.T) {
	h := newTestHandler(t)

	// Drain the pool so the check finds no free slot.
	ctx := httptest.NewRequest(http.MethodGet, "/health", nil).Context()
	c1, err := h.pool.Acquire(ctx)
	require.NoError(t, err)
	defer h.pool.Release(c1)
	c2, err := h.pool.Acquire(ctx)
	require.NoError(t, err)
	defer h.pool.Release(c2)

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	status := decodeStatus(t, rec)
	assert.Equal(t, "unhealthy", status.Checks["connection_pool"].Status)
	assert.Equal(t, "degraded", status.Status)
}
