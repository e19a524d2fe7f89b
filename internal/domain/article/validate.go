package article

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"sentinel/pkg/errors"
	"sentinel/pkg/logger"
)

// Risk category taxonomy. The primary category must come from this set;
// anything else in the model output is rejected or stripped.
var ValidRiskCategories = []string{
	"market_risk",
	"credit_risk",
	"operational_risk",
	"liquidity_risk",
	"cybersecurity_risk",
	"regulatory_risk",
	"systemic_risk",
	"reputational_risk",
}

var ValidSeverityLevels = []string{"Critical", "High", "Medium", "Low"}

var ValidUrgencyLevels = []string{"Critical", "High", "Medium", "Low"}

var ValidTemporalClassifications = []string{"Immediate", "Short-term", "Medium-term", "Long-term"}

const (
	DefaultUrgencyLevel     = "Medium"
	DefaultTemporal         = "Medium-term"
	DefaultExposureCurrency = "USD"
)

var requiredFields = []string{
	"primary_risk_category",
	"severity_level",
	"confidence_score",
	"impact_score",
	"summary",
	"description",
}

// ParseAnalysis decodes a model response payload into a validated
// RiskAnalysis. Missing required fields, an unknown severity or an
// unknown primary category are hard errors; recoverable problems are
// normalized with a warning.
func ParseAnalysis(data []byte) (*RiskAnalysis, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrMalformedResponse, "analysis is not a JSON object")
	}
	for _, field := range requiredFields {
		v, ok := raw[field]
		if !ok || string(v) == "null" {
			return nil, errors.NewValidationError(field, "required field missing", nil)
		}
	}

	var a RiskAnalysis
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, errors.Wrap(errors.ErrMalformedResponse, err.Error())
	}
	if err := Validate(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Validate normalizes a RiskAnalysis in place. Hard failures: invalid
// severity, invalid primary category. Everything else is coerced to a
// safe value with a warning.
func Validate(a *RiskAnalysis) error {
	if !contains(ValidSeverityLevels, a.SeverityLevel) {
		return errors.NewValidationError("severity_level", "invalid severity level", a.SeverityLevel)
	}

	// Models occasionally return "market_risk|credit_risk". The first
	// segment becomes the primary, the remainder moves to secondary.
	if strings.Contains(a.PrimaryRiskCategory, "|") {
		parts := strings.Split(a.PrimaryRiskCategory, "|")
		a.PrimaryRiskCategory = strings.TrimSpace(parts[0])
		for _, extra := range parts[1:] {
			extra = strings.TrimSpace(extra)
			if contains(ValidRiskCategories, extra) && !contains(a.SecondaryRiskCategories, extra) {
				a.SecondaryRiskCategories = append(a.SecondaryRiskCategories, extra)
			}
		}
		logger.Warnf("Pipe-separated primary category normalized to %q", a.PrimaryRiskCategory)
	}
	if !contains(ValidRiskCategories, a.PrimaryRiskCategory) {
		return errors.NewValidationError("primary_risk_category", "invalid risk category", a.PrimaryRiskCategory)
	}

	kept := a.SecondaryRiskCategories[:0]
	for _, cat := range a.SecondaryRiskCategories {
		if contains(ValidRiskCategories, cat) {
			kept = append(kept, cat)
		} else {
			logger.Warnf("Dropping invalid secondary risk category %q", cat)
		}
	}
	a.SecondaryRiskCategories = kept

	if a.UrgencyLevel == "" {
		a.UrgencyLevel = DefaultUrgencyLevel
	} else if !contains(ValidUrgencyLevels, a.UrgencyLevel) {
		logger.Warnf("Invalid urgency level %q, defaulting to %s", a.UrgencyLevel, DefaultUrgencyLevel)
		a.UrgencyLevel = DefaultUrgencyLevel
	}

	if a.TemporalClassification == "" {
		a.TemporalClassification = DefaultTemporal
	} else if !contains(ValidTemporalClassifications, a.TemporalClassification) {
		logger.Warnf("Invalid temporal classification %q, defaulting to %s", a.TemporalClassification, DefaultTemporal)
		a.TemporalClassification = DefaultTemporal
	}

	a.ConfidenceScore = clampScore(a.ConfidenceScore)
	a.ImpactScore = clampScore(a.ImpactScore)
	a.SentimentScore = clampFloat(a.SentimentScore, -1, 1)

	applyDefaults(a)
	return nil
}

func applyDefaults(a *RiskAnalysis) {
	if a.SecondaryRiskCategories == nil {
		a.SecondaryRiskCategories = []string{}
	}
	if a.RiskSubcategories == nil {
		a.RiskSubcategories = []string{}
	}
	if a.IndustrySectors == nil {
		a.IndustrySectors = []string{"financial_services"}
	}
	if a.GeographicRegions == nil {
		a.GeographicRegions = []string{}
	}
	if a.AffectedCompanies == nil {
		a.AffectedCompanies = []string{}
	}
	if a.KeyRiskIndicators == nil {
		a.KeyRiskIndicators = []string{}
	}
	if a.RiskKeywords == nil {
		a.RiskKeywords = []string{}
	}
	if a.ExposureCurrency == "" {
		a.ExposureCurrency = DefaultExposureCurrency
	}
	if a.FinancialExposure.IsNegative() {
		a.FinancialExposure = decimal.Zero
	}
}

func clampScore(s Score) Score {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

func clampFloat(f, lo, hi float64) float64 {
	return math.Min(math.Max(f, lo), hi)
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
