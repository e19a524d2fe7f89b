package article

import (
	"math"

	"github.com/shopspring/decimal"
)

var severityBaseScore = map[string]float64{
	"Critical": 9,
	"High":     7,
	"Medium":   5,
	"Low":      3,
}

var severityColor = map[string]string{
	"Critical": "#DC2626",
	"High":     "#EA580C",
	"Medium":   "#CA8A04",
	"Low":      "#16A34A",
}

var severityPriority = map[string]int{
	"Critical": 90,
	"High":     70,
	"Medium":   50,
	"Low":      30,
}

// largeExposure is the threshold above which an article gets a
// priority bump for sheer financial size.
var largeExposure = decimal.NewFromInt(1_000_000_000)

// OverallRiskScore folds severity, confidence and impact into a single
// 0-10 score: base * (0.5 + 0.3*confidence + 0.2*impact), capped at 10
// and rounded to one decimal.
func (a *RiskAnalysis) OverallRiskScore() float64 {
	base, ok := severityBaseScore[a.SeverityLevel]
	if !ok {
		return 0
	}
	score := base * (0.5 + 0.3*float64(a.ConfidenceScore)/100 + 0.2*float64(a.ImpactScore)/100)
	return math.Round(math.Min(score, 10)*10) / 10
}

// RiskColor returns the dashboard color for the severity level.
func (a *RiskAnalysis) RiskColor() string {
	if c, ok := severityColor[a.SeverityLevel]; ok {
		return c
	}
	return "#6B7280"
}

// DisplayPriority ranks articles for the news feed: severity base plus
// bumps for breaking news, market-moving items and very large
// exposures, capped at 100.
func (a *RiskAnalysis) DisplayPriority() int {
	p := severityPriority[a.SeverityLevel]
	if a.IsBreakingNews {
		p += 10
	}
	if a.IsMarketMoving {
		p += 5
	}
	if a.FinancialExposure.GreaterThan(largeExposure) {
		p += 5
	}
	if p > 100 {
		p = 100
	}
	return p
}
