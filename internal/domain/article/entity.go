package article

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Raw represents an ingested news item awaiting analysis
type Raw struct {
	ID              int64      `db:"id"`
	Headline        string     `db:"headline"`
	Content         string     `db:"content"`
	SourceName      string     `db:"source_name"`
	URL             string     `db:"url"`
	PublishedAt     time.Time  `db:"published_date"`
	Processed       bool       `db:"processed"`
	ProcessedAt     *time.Time `db:"processed_at"`
	ProcessingError string     `db:"processing_error"`
	CreatedAt       time.Time  `db:"created_at"`
}

// Article is a fully analyzed news article as stored in the risk database
type Article struct {
	ID          int64     `db:"id"`
	Headline    string    `db:"headline"`
	Content     string    `db:"content"`
	SourceName  string    `db:"source_name"`
	URL         string    `db:"url"`
	PublishedAt time.Time `db:"published_date"`

	Analysis RiskAnalysis `db:"-"`
	Theme    ThemeResult  `db:"-"`
	Meta     Meta         `db:"-"`

	OverallRiskScore float64   `db:"overall_risk_score"`
	DisplayPriority  int       `db:"display_priority"`
	RiskColor        string    `db:"risk_color"`
	Status           string    `db:"status"`
	CreatedAt        time.Time `db:"created_at"`
}

// Score is an integer score that tolerates fractional JSON numbers,
// which LLMs produce routinely ("confidence_score": 85.5).
type Score int

// UnmarshalJSON implements json.Unmarshaler
func (s *Score) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*s = Score(int(f))
	return nil
}

// RiskAnalysis is the structured output of the LLM risk assessment.
// JSON tags match the model response contract.
type RiskAnalysis struct {
	PrimaryRiskCategory        string          `json:"primary_risk_category"`
	SecondaryRiskCategories    []string        `json:"secondary_risk_categories"`
	RiskSubcategories          []string        `json:"risk_subcategories"`
	SeverityLevel              string          `json:"severity_level"`
	UrgencyLevel               string          `json:"urgency_level"`
	TemporalClassification     string          `json:"temporal_classification"`
	ConfidenceScore            Score           `json:"confidence_score"`
	ImpactScore                Score           `json:"impact_score"`
	SentimentScore             float64         `json:"sentiment_score"`
	IndustrySectors            []string        `json:"industry_sectors"`
	GeographicRegions          []string        `json:"geographic_regions"`
	AffectedCompanies          []string        `json:"affected_companies"`
	KeyRiskIndicators          []string        `json:"key_risk_indicators"`
	RiskKeywords               []string        `json:"risk_keywords"`
	FinancialExposure          decimal.Decimal `json:"financial_exposure"`
	ExposureCurrency           string          `json:"exposure_currency"`
	IsMarketMoving             bool            `json:"is_market_moving"`
	IsRegulatoryAction         bool            `json:"is_regulatory_action"`
	IsBreakingNews             bool            `json:"is_breaking_news"`
	RequiresImmediateAttention bool            `json:"requires_immediate_attention"`
	Summary                    string          `json:"summary"`
	Description                string          `json:"description"`
}

// ThemeResult is the outcome of financial theme classification
type ThemeResult struct {
	PrimaryTheme string `json:"primary_theme" db:"primary_theme"`
	DisplayName  string `json:"display_name" db:"theme_display_name"`
	Confidence   int    `json:"confidence" db:"theme_confidence"`
	Method       string `json:"method" db:"theme_method"`
	Reasoning    string `json:"reasoning,omitempty" db:"-"`

	// MatchedKeywords is populated by the keyword fallback only.
	MatchedKeywords []string `json:"matched_keywords,omitempty" db:"-"`
}

// Meta records how the refinement loop arrived at an accepted analysis
type Meta struct {
	IterationsUsed  int       `json:"iterations_used"`
	FinalEvaluation string    `json:"final_evaluation"`
	Timestamp       time.Time `json:"timestamp"`
	Workflow        string    `json:"workflow_type"`
}
