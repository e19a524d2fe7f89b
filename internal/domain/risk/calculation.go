package risk

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trend directions for the daily risk score
const (
	TrendRising   = "Rising"
	TrendFalling  = "Falling"
	TrendVolatile = "Volatile"
	TrendStable   = "Stable"
)

// DailyCalculation is the aggregated risk score for one calendar day
type DailyCalculation struct {
	ID                  int64           `db:"id"`
	Date                string          `db:"calculation_date"` // YYYY-MM-DD
	Score               float64         `db:"risk_score"`
	Trend               string          `db:"trend_direction"`
	ContributingFactors []string        `db:"-"`
	ArticleCount        int             `db:"article_count"`
	TotalExposure       decimal.Decimal `db:"total_financial_exposure"`
	UpdatedAt           time.Time       `db:"updated_at"`
}

// DayArticle is the slice of an analyzed article the daily aggregation
// needs.
type DayArticle struct {
	PrimaryRiskCategory string          `db:"primary_risk_category"`
	SeverityLevel       string          `db:"severity_level"`
	ConfidenceScore     int             `db:"confidence_score"`
	ImpactScore         int             `db:"impact_score"`
	SentimentScore      float64         `db:"sentiment_score"`
	FinancialExposure   decimal.Decimal `db:"financial_exposure"`
	RiskKeywords        []string        `db:"-"`
}
