package article

import (
	"context"
	"time"
)

// RawRepository defines access to ingested news awaiting analysis
// (knowledge database)
type RawRepository interface {
	Get(ctx context.Context, id int64) (*Raw, error)
	Unprocessed(ctx context.Context, limit int) ([]Raw, error)
	MarkProcessed(ctx context.Context, id int64) error

	// MarkFailed records the latest processing error without touching
	// the processed flag, so the article stays eligible for retry.
	MarkFailed(ctx context.Context, id int64, reason string) error

	Insert(ctx context.Context, raw *Raw) (int64, error)
	Counts(ctx context.Context) (total int64, processed int64, err error)
}

// Repository defines access to analyzed articles (risk database)
type Repository interface {
	Insert(ctx context.Context, a *Article) (int64, error)
	Exists(ctx context.Context, headline, sourceName string, publishedAt time.Time) (bool, error)

	// RecentScoringContext returns prior analyses, newest first, for
	// grounding new assessments.
	RecentScoringContext(ctx context.Context, limit int) ([]ScoringContext, error)

	// Read models for the dashboard
	Feed(ctx context.Context, limit int) ([]FeedItem, error)
	Summary(ctx context.Context, since time.Time) (*Summary, error)
	CategoryBreakdown(ctx context.Context) ([]CategoryCount, error)
	CriticalCountSince(ctx context.Context, since time.Time) (int, error)

	// AllIDs lists stored article ids, newest first, optionally limited
	// (limit <= 0 means all). Used by the republish tooling.
	AllIDs(ctx context.Context, limit int) ([]int64, error)
	GetFeedItem(ctx context.Context, id int64) (*FeedItem, error)
	Count(ctx context.Context) (int64, error)
}

// ScoringContext is one line of historical grounding for the generator
// prompt.
type ScoringContext struct {
	Headline            string    `db:"headline"`
	PrimaryRiskCategory string    `db:"primary_risk_category"`
	SeverityLevel       string    `db:"severity_level"`
	OverallRiskScore    float64   `db:"overall_risk_score"`
	PublishedAt         time.Time `db:"published_date"`
}

// FeedItem is an article projected for the dashboard news feed
type FeedItem struct {
	ID                  int64     `db:"id" json:"id"`
	Headline            string    `db:"headline" json:"headline"`
	SourceName          string    `db:"source_name" json:"source_name"`
	URL                 string    `db:"url" json:"url"`
	PublishedAt         time.Time `db:"published_date" json:"published_date"`
	PrimaryRiskCategory string    `db:"primary_risk_category" json:"primary_risk_category"`
	SeverityLevel       string    `db:"severity_level" json:"severity_level"`
	OverallRiskScore    float64   `db:"overall_risk_score" json:"overall_risk_score"`
	DisplayPriority     int       `db:"display_priority" json:"display_priority"`
	RiskColor           string    `db:"risk_color" json:"risk_color"`
	Summary             string    `db:"summary" json:"summary"`
}

// Summary aggregates article counts for the dashboard header
type Summary struct {
	TotalArticles int64 `db:"total_articles" json:"total_articles"`
	CriticalCount int64 `db:"critical_count" json:"critical_count"`
	HighCount     int64 `db:"high_count" json:"high_count"`
	MediumCount   int64 `db:"medium_count" json:"medium_count"`
	LowCount      int64 `db:"low_count" json:"low_count"`
	BreakingCount int64 `db:"breaking_count" json:"breaking_count"`
	MarketMoving  int64 `db:"market_moving" json:"market_moving"`
}

// CategoryCount is one slice of the risk breakdown chart
type CategoryCount struct {
	Category string `db:"category" json:"category"`
	Count    int64  `db:"count" json:"count"`
	Color    string `db:"-" json:"color"`
}
