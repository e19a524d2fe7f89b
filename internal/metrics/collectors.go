package metrics

import (
	"context"
	"time"

	"sentinel/pkg/logger"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

// CustomCollector collects gauge metrics straight from the databases
type CustomCollector struct {
	log       *logger.Logger
	risk      *sqlx.DB
	knowledge *sqlx.DB

	// Descriptors
	totalArticles   *prometheus.Desc
	unprocessedRaw  *prometheus.Desc
	pendingEvents   *prometheus.Desc
	latestRiskScore *prometheus.Desc
}

// NewCustomCollector creates a new custom metrics collector
func NewCustomCollector(log *logger.Logger, risk, knowledge *sqlx.DB) *CustomCollector {
	return &CustomCollector{
		log:       log,
		risk:      risk,
		knowledge: knowledge,

		totalArticles: prometheus.NewDesc(
			"sentinel_total_articles",
			"Total number of analyzed articles by severity",
			[]string{"severity"}, nil,
		),
		unprocessedRaw: prometheus.NewDesc(
			"sentinel_unprocessed_raw_articles",
			"Raw news items awaiting analysis",
			nil, nil,
		),
		pendingEvents: prometheus.NewDesc(
			"sentinel_pending_events",
			"Unprocessed rows in the event log",
			nil, nil,
		),
		latestRiskScore: prometheus.NewDesc(
			"sentinel_latest_daily_risk_score",
			"Most recent daily risk score",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *CustomCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalArticles
	ch <- c.unprocessedRaw
	ch <- c.pendingEvents
	ch <- c.latestRiskScore
}

// Collect implements prometheus.Collector
func (c *CustomCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.collectArticles(ctx, ch)
	c.collectBacklog(ctx, ch)
	c.collectEvents(ctx, ch)
	c.collectRiskScore(ctx, ch)
}

func (c *CustomCollector) collectArticles(ctx context.Context, ch chan<- prometheus.Metric) {
	rows := []struct {
		Severity string `db:"severity_level"`
		Count    int64  `db:"count"`
	}{}
	err := c.risk.SelectContext(ctx, &rows,
		`SELECT severity_level, COUNT(*) AS count FROM news_articles GROUP BY severity_level`)
	if err != nil {
		c.log.Debug("Failed to collect article counts", "error", err)
		return
	}
	for _, r := range rows {
		ch <- prometheus.MustNewConstMetric(c.totalArticles, prometheus.GaugeValue, float64(r.Count), r.Severity)
	}
}

func (c *CustomCollector) collectBacklog(ctx context.Context, ch chan<- prometheus.Metric) {
	var n int64
	err := c.knowledge.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM raw_news_data WHERE processed = 0`)
	if err != nil {
		c.log.Debug("Failed to collect raw backlog", "error", err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.unprocessedRaw, prometheus.GaugeValue, float64(n))
}

func (c *CustomCollector) collectEvents(ctx context.Context, ch chan<- prometheus.Metric) {
	var n int64
	err := c.risk.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM sse_events WHERE processed = 0`)
	if err != nil {
		c.log.Debug("Failed to collect pending events", "error", err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.pendingEvents, prometheus.GaugeValue, float64(n))
}

func (c *CustomCollector) collectRiskScore(ctx context.Context, ch chan<- prometheus.Metric) {
	var score float64
	err := c.risk.GetContext(ctx, &score,
		`SELECT risk_score FROM risk_calculations ORDER BY calculation_date DESC LIMIT 1`)
	if err != nil {
		// No calculation yet is the normal empty-database case.
		return
	}
	ch <- prometheus.MustNewConstMetric(c.latestRiskScore, prometheus.GaugeValue, score)
}
