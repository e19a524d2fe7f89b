package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Task queue metrics
	TaskExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_task_executions_total",
			Help: "Total number of task executions",
		},
		[]string{"task", "status"}, // status: success|retry|dead
	)

	TaskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_task_duration_seconds",
			Help:    "Task execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"task"},
	)

	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sentinel_queue_depth",
			Help: "Number of tasks waiting in the queue",
		},
		[]string{"backend"},
	)

	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_worker_executions_total",
			Help: "Total number of periodic worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sentinel_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// LLM metrics
	LLMCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_llm_calls_total",
			Help: "Total number of LLM chat completions",
		},
		[]string{"purpose", "model", "status"}, // status: success|error|rate_limited
	)

	LLMLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_llm_latency_seconds",
			Help:    "LLM call latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"purpose", "model"},
	)

	LLMTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_llm_tokens_total",
			Help: "Total tokens consumed by LLM calls",
		},
		[]string{"purpose", "model", "type"}, // type: input|output
	)

	// Refinement loop metrics
	OptimizationIterations = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_optimization_iterations",
			Help:    "Iterations used per accepted analysis",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
		[]string{"workflow"},
	)

	OptimizationOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_optimization_outcomes_total",
			Help: "Final evaluation verdicts of the refinement loop",
		},
		[]string{"verdict"}, // PASS|NEEDS_IMPROVEMENT|FAIL
	)

	// Pipeline metrics
	ArticlesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_articles_processed_total",
			Help: "Articles that completed the processing pipeline",
		},
		[]string{"outcome"}, // stored|skipped_prefilter|skipped_sentiment|skipped_low_impact|duplicate
	)

	// Event system metrics
	EventsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_events_emitted_total",
			Help: "Events appended to the event log",
		},
		[]string{"envelope_type"},
	)

	EventsSuppressed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_events_suppressed_total",
			Help: "Events suppressed by change detection",
		},
		[]string{"original_type"},
	)

	SSEConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_sse_connections",
			Help: "Current number of active SSE subscribers",
		},
	)

	// Database metrics
	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"}, // database: risk|knowledge|redis
	)

	DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"database", "operation"},
	)

	PoolExhaustions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_pool_exhaustions_total",
			Help: "Connection pool acquisitions rejected for lack of a free slot",
		},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	// Task queue metrics
	prometheus.MustRegister(TaskExecutions)
	prometheus.MustRegister(TaskDuration)
	prometheus.MustRegister(QueueDepth)

	// Worker metrics
	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)
	prometheus.MustRegister(WorkerLastRun)

	// LLM metrics
	prometheus.MustRegister(LLMCalls)
	prometheus.MustRegister(LLMLatency)
	prometheus.MustRegister(LLMTokens)

	// Refinement loop metrics
	prometheus.MustRegister(OptimizationIterations)
	prometheus.MustRegister(OptimizationOutcomes)

	// Pipeline metrics
	prometheus.MustRegister(ArticlesProcessed)

	// Event system metrics
	prometheus.MustRegister(EventsEmitted)
	prometheus.MustRegister(EventsSuppressed)
	prometheus.MustRegister(SSEConnections)

	// Database metrics
	prometheus.MustRegister(DBQueries)
	prometheus.MustRegister(DBQueryDuration)
	prometheus.MustRegister(PoolExhaustions)
}

// RegisterCollector adds a custom collector to the default registry
func RegisterCollector(c prometheus.Collector) {
	prometheus.MustRegister(c)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTaskExecution records a task dispatch outcome
func RecordTaskExecution(task, status string, duration time.Duration) {
	TaskExecutions.WithLabelValues(task, status).Inc()
	TaskDuration.WithLabelValues(task).Observe(duration.Seconds())
}

// RecordWorkerExecution records a periodic worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordLLMCall records an LLM chat completion
func RecordLLMCall(purpose, model string, latency time.Duration, inTokens, outTokens int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	LLMCalls.WithLabelValues(purpose, model, status).Inc()
	LLMLatency.WithLabelValues(purpose, model).Observe(latency.Seconds())

	if inTokens > 0 {
		LLMTokens.WithLabelValues(purpose, model, "input").Add(float64(inTokens))
	}
	if outTokens > 0 {
		LLMTokens.WithLabelValues(purpose, model, "output").Add(float64(outTokens))
	}
}

// RecordOptimization records a completed refinement loop
func RecordOptimization(workflow, verdict string, iterations int) {
	OptimizationIterations.WithLabelValues(workflow).Observe(float64(iterations))
	OptimizationOutcomes.WithLabelValues(verdict).Inc()
}

// RecordDBQuery records a database query
func RecordDBQuery(database, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	DBQueries.WithLabelValues(database, operation, status).Inc()
	DBQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}
