package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	sentinelredis "sentinel/internal/adapters/redis"
	sentinelsqlite "sentinel/internal/adapters/sqlite"
	"sentinel/pkg/logger"
)

// Handler provides health check endpoints
type Handler struct {
	log         *logger.Logger
	riskDB      *sqlx.DB
	knowledgeDB *sqlx.DB
	pool        *sentinelsqlite.Pool
	redis       *sentinelredis.Client
	startTime   time.Time
	serviceName string
	version     string
}

// New creates a new health check handler. redis may be nil when the
// deployment runs without it.
func New(
	log *logger.Logger,
	riskDB *sqlx.DB,
	knowledgeDB *sqlx.DB,
	pool *sentinelsqlite.Pool,
	redis *sentinelredis.Client,
	serviceName string,
	version string,
) *Handler {
	return &Handler{
		log:         log,
		riskDB:      riskDB,
		knowledgeDB: knowledgeDB,
		pool:        pool,
		redis:       redis,
		startTime:   time.Now(),
		serviceName: serviceName,
		version:     version,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string                     `json:"status"` // "healthy", "degraded", "unhealthy"
	Service   string                     `json:"service"`
	Version   string                     `json:"version"`
	Uptime    string                     `json:"uptime"`
	Timestamp string                     `json:"timestamp"`
	Checks    map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

// HandleLiveness returns 200 OK if service is running
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "alive",
	})
}

// HandleReadiness checks if service is ready to accept traffic
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks, healthy, total := h.runChecks(ctx)

	status := HealthStatus{
		Status:    "healthy",
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    checks,
	}

	statusCode := http.StatusOK
	if healthy < total {
		status.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
		h.log.Warn("Readiness check failed", "checks", checks)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(status)
}

// HandleHealth returns detailed health status (includes all checks)
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	checks, healthy, total := h.runChecks(ctx)

	status := HealthStatus{
		Status:    "healthy",
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    checks,
	}

	statusCode := http.StatusOK
	if healthy == 0 {
		status.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	} else if healthy < total {
		// Still return 200 for degraded
		status.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(status)
}

func (h *Handler) runChecks(ctx context.Context) (map[string]ComponentHealth, int, int) {
	checks := make(map[string]ComponentHealth)
	healthy, total := 0, 0

	record := func(name string, component ComponentHealth) {
		checks[name] = component
		total++
		if component.Status == "healthy" {
			healthy++
		}
	}

	record("risk_db", h.checkDB(ctx, "risk_db", h.riskDB))
	record("knowledge_db", h.checkDB(ctx, "knowledge_db", h.knowledgeDB))
	if h.pool != nil {
		record("connection_pool", h.checkPool(ctx))
	}
	if h.redis != nil {
		record("redis", h.checkRedis(ctx))
	}

	return checks, healthy, total
}

// checkDB verifies database connectivity
func (h *Handler) checkDB(ctx context.Context, name string, db *sqlx.DB) ComponentHealth {
	start := time.Now()
	err := db.PingContext(ctx)
	elapsed := time.Since(start)

	if err != nil {
		h.log.Error("Database health check failed", "database", name, "error", err, "elapsed", elapsed)
		return ComponentHealth{
			Status:       "unhealthy",
			ResponseTime: elapsed.String(),
			Error:        err.Error(),
		}
	}

	return ComponentHealth{
		Status:       "healthy",
		ResponseTime: elapsed.String(),
	}
}

// checkPool verifies a pooled connection can be acquired. Exhaustion is
// reported as unhealthy so sustained saturation shows up on /health.
func (h *Handler) checkPool(ctx context.Context) ComponentHealth {
	start := time.Now()
	conn, err := h.pool.Acquire(ctx)
	elapsed := time.Since(start)

	if err != nil {
		h.log.Error("Pool health check failed", "error", err, "elapsed", elapsed)
		return ComponentHealth{
			Status:       "unhealthy",
			ResponseTime: elapsed.String(),
			Error:        err.Error(),
		}
	}
	h.pool.Release(conn)

	return ComponentHealth{
		Status:       "healthy",
		ResponseTime: elapsed.String(),
	}
}

// checkRedis verifies Redis connectivity
func (h *Handler) checkRedis(ctx context.Context) ComponentHealth {
	start := time.Now()
	err := h.redis.Health(ctx)
	elapsed := time.Since(start)

	if err != nil {
		h.log.Error("Redis health check failed", "error", err, "elapsed", elapsed)
		return ComponentHealth{
			Status:       "unhealthy",
			ResponseTime: elapsed.String(),
			Error:        err.Error(),
		}
	}

	return ComponentHealth{
		Status:       "healthy",
		ResponseTime: elapsed.String(),
	}
}
