package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"sentinel/pkg/errors"
)

type Config struct {
	App           AppConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Queue         QueueConfig
	AI            AIConfig
	Pipeline      PipelineConfig
	API           APIConfig
	ErrorTracking ErrorTrackingConfig
	Workers       WorkerConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"sentinel"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type DatabaseConfig struct {
	RiskPath          string        `envconfig:"RISK_DB_PATH" default:"data/risk_dashboard.db"`
	KnowledgePath     string        `envconfig:"KNOWLEDGE_DB_PATH" default:"data/knowledge.db"`
	MaxConnections    int           `envconfig:"DB_MAX_CONNECTIONS" default:"5"`
	ConnectionTimeout time.Duration `envconfig:"DB_CONNECTION_TIMEOUT" default:"30s"`
	BusyTimeout       time.Duration `envconfig:"DB_BUSY_TIMEOUT" default:"30s"`
}

type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// QueueConfig controls the durable task queue. Backend is one of
// "sqlite", "redis" or "memory". SQLite keeps everything embedded in a
// single process; Redis allows multiple consumer processes.
type QueueConfig struct {
	Backend    string        `envconfig:"QUEUE_BACKEND" default:"sqlite"`
	Workers    int           `envconfig:"QUEUE_WORKERS" default:"2"`
	MaxRetries int           `envconfig:"QUEUE_MAX_RETRIES" default:"3"`
	RetryDelay time.Duration `envconfig:"QUEUE_RETRY_DELAY" default:"60s"`
	PollDelay  time.Duration `envconfig:"QUEUE_POLL_DELAY" default:"1s"`
	KeyPrefix  string        `envconfig:"QUEUE_KEY_PREFIX" default:"sentinel"`
}

type AIConfig struct {
	BaseURL        string        `envconfig:"AI_BASE_URL" default:"https://api.openai.com/v1"`
	APIKey         string        `envconfig:"AI_API_KEY"`
	Model          string        `envconfig:"AI_MODEL" default:"gpt-4o"`
	PrefilterModel string        `envconfig:"AI_PREFILTER_MODEL" default:"gpt-4o-mini"`
	Timeout        time.Duration `envconfig:"AI_TIMEOUT" default:"120s"`
	RequestsPerMin int           `envconfig:"AI_REQUESTS_PER_MINUTE" default:"60"`
}

// PipelineConfig holds the article processing policy knobs.
type PipelineConfig struct {
	MaxOptimizationIterations int     `envconfig:"MAX_OPTIMIZATION_ITERATIONS" default:"1"`
	ScoringContextSize        int     `envconfig:"SCORING_CONTEXT_SIZE" default:"50"`
	IngestBatchSize           int     `envconfig:"INGEST_BATCH_SIZE" default:"10"`
	PrefilterEnabled          bool    `envconfig:"PREFILTER_ENABLED" default:"true"`
	SentimentSkipThreshold    float64 `envconfig:"PIPELINE_SENTIMENT_SKIP_THRESHOLD" default:"0"`
	LowImpactSkipEnabled      bool    `envconfig:"PIPELINE_LOW_IMPACT_SKIP_ENABLED" default:"true"`
	LowImpactThreshold        int     `envconfig:"PIPELINE_LOW_IMPACT_THRESHOLD" default:"20"`
	EventRetentionDays        int     `envconfig:"EVENT_RETENTION_DAYS" default:"7"`
}

type APIConfig struct {
	Host         string        `envconfig:"API_HOST" default:"0.0.0.0"`
	Port         int           `envconfig:"API_PORT" default:"8000"`
	SSEPollDelay time.Duration `envconfig:"SSE_POLL_DELAY" default:"10s"`
	SSEBatchSize int           `envconfig:"SSE_BATCH_SIZE" default:"50"`
}

func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// WorkerConfig contains intervals for all background workers
type WorkerConfig struct {
	IngestInterval  time.Duration `envconfig:"WORKER_INGEST_INTERVAL" default:"1m"`   // Scan unprocessed news every minute
	RiskInterval    time.Duration `envconfig:"WORKER_RISK_INTERVAL" default:"6h"`     // Recompute daily risk every 6 hours
	CleanupInterval time.Duration `envconfig:"WORKER_CLEANUP_INTERVAL" default:"24h"` // Purge processed events daily
	AlertsInterval  time.Duration `envconfig:"WORKER_ALERTS_INTERVAL" default:"2m"`   // Refresh the critical alerts read model
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
