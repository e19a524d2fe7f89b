package risk

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domainRisk "sentinel/internal/domain/risk"
	"sentinel/internal/events"
	"sentinel/pkg/errors"
	"sentinel/pkg/logger"
)

var severityWeights = map[string]float64{
	"Critical": 4,
	"High":     3,
	"Medium":   2,
	"Low":      1,
}

// exposureCap is the financial exposure beyond which the exposure
// adjustment saturates.
var exposureCap = decimal.New(1, 10) // $10B

// Calculator maintains the daily aggregated risk score. Every
// recompute rebuilds the day from the full current dataset, so it is
// idempotent under out-of-order and concurrent article completions.
type Calculator struct {
	repo    domainRisk.Repository
	emitter *events.Emitter
	log     *logger.Logger
}

// NewCalculator creates a daily risk calculator.
func NewCalculator(repo domainRisk.Repository, emitter *events.Emitter, log *logger.Logger) *Calculator {
	return &Calculator{
		repo:    repo,
		emitter: emitter,
		log:     log.With("component", "risk_calculator"),
	}
}

// RecalculateLatest recomputes the aggregate for the newest article
// date. The day is the latest publication date in the data, not
// wall-clock today: a quiet news day must not zero out the score.
// Returns nil without error when there is nothing to aggregate.
func (c *Calculator) RecalculateLatest(ctx context.Context) (*domainRisk.DailyCalculation, error) {
	date, err := c.repo.LatestArticleDate(ctx)
	if err != nil {
		return nil, err
	}
	if date == "" {
		c.log.Debug("No articles available for risk calculation")
		return nil, nil
	}

	articles, err := c.repo.ArticlesForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, nil
	}

	exposure := totalExposure(articles)
	score := c.score(articles, exposure)
	trend := c.trend(ctx, date, score)

	calc := &domainRisk.DailyCalculation{
		Date:                date,
		Score:               score,
		Trend:               trend,
		ContributingFactors: contributingFactors(articles),
		ArticleCount:        len(articles),
		TotalExposure:       exposure,
	}

	changed, err := c.scoreChanged(ctx, date, score)
	if err != nil {
		return nil, err
	}
	if err := c.repo.Upsert(ctx, calc); err != nil {
		return nil, err
	}

	c.log.Info("Daily risk calculation updated",
		"date", date, "score", score, "trend", trend, "articles", len(articles))

	if changed {
		payload := map[string]interface{}{
			"calculation_date":     calc.Date,
			"overall_risk_score":   calc.Score,
			"risk_trend":           calc.Trend,
			"contributing_factors": calc.ContributingFactors,
			"action":               "risk_calculation_updated",
		}
		if err := c.emitter.Emit(ctx, events.TypeRiskCalculationUpdate, payload); err != nil {
			// Subscribers catch up on the next poll either way.
			c.log.Warn("Failed to emit risk calculation event", "error", err)
		}
	}
	return calc, nil
}

// score computes the 0-10 aggregate for one day's articles.
func (c *Calculator) score(articles []domainRisk.DayArticle, exposure decimal.Decimal) float64 {
	var points float64
	var negative int

	for _, a := range articles {
		weight, ok := severityWeights[a.SeverityLevel]
		if !ok {
			weight = 1
		}
		points += weight * float64(a.ConfidenceScore) / 100 * float64(a.ImpactScore) / 100
		if a.SentimentScore < -0.1 {
			negative++
		}
	}

	n := float64(len(articles))
	base := points / n * 2.5

	sentimentAdj := float64(negative) / n * 0.5
	exposureAdj := math.Min(exposureRatio(exposure), 1) * 0.5

	total := math.Min(base+sentimentAdj+exposureAdj, 10)
	return math.Round(total*10) / 10
}

func exposureRatio(total decimal.Decimal) float64 {
	ratio, _ := total.Div(exposureCap).Float64()
	return ratio
}

// totalExposure sums the day's financial exposure across articles.
func totalExposure(articles []domainRisk.DayArticle) decimal.Decimal {
	total := decimal.Zero
	for _, a := range articles {
		total = total.Add(a.FinancialExposure)
	}
	return total
}

// trend classifies the move against the previous calendar day's stored
// score. No prior day means Stable.
func (c *Calculator) trend(ctx context.Context, date string, score float64) string {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return domainRisk.TrendStable
	}
	previous, err := c.repo.ForDate(ctx, day.AddDate(0, 0, -1).Format("2006-01-02"))
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			c.log.Warn("Failed to load previous day score", "error", err)
		}
		return domainRisk.TrendStable
	}

	delta := score - previous.Score
	switch {
	case math.Abs(delta) > 1.0:
		return domainRisk.TrendVolatile
	case delta > 0.5:
		return domainRisk.TrendRising
	case delta < -0.5:
		return domainRisk.TrendFalling
	default:
		return domainRisk.TrendStable
	}
}

func (c *Calculator) scoreChanged(ctx context.Context, date string, score float64) (bool, error) {
	current, err := c.repo.ForDate(ctx, date)
	if errors.Is(err, errors.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return current.Score != score, nil
}

// contributingFactors lists the day's dominant Critical/High risk
// categories and repeated keywords.
func contributingFactors(articles []domainRisk.DayArticle) []string {
	categories := map[string]int{}
	keywords := map[string]int{}
	for _, a := range articles {
		if a.SeverityLevel != "Critical" && a.SeverityLevel != "High" {
			continue
		}
		categories[a.PrimaryRiskCategory]++
		for _, kw := range a.RiskKeywords {
			keywords[kw]++
		}
	}

	factors := []string{}
	for _, entry := range topCounts(categories, 3) {
		factors = append(factors, fmt.Sprintf("%s (%d news)", titleCase(entry.key), entry.count))
	}
	for _, entry := range topCounts(keywords, 2) {
		if entry.count > 1 {
			factors = append(factors, fmt.Sprintf("%s (%d mentions)", titleCase(entry.key), entry.count))
		}
	}
	return factors
}

type countEntry struct {
	key   string
	count int
}

func topCounts(counts map[string]int, limit int) []countEntry {
	entries := make([]countEntry, 0, len(counts))
	for key, count := range counts {
		entries = append(entries, countEntry{key, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// titleCase turns "market_risk" into "Market Risk".
func titleCase(s string) string {
	words := strings.Split(strings.ReplaceAll(s, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
