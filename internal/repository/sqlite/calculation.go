package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"sentinel/internal/domain/risk"
	"sentinel/pkg/errors"
)

// CalculationRepository implements risk.Repository over the risk
// database.
type CalculationRepository struct {
	db DBTX
}

var _ risk.Repository = (*CalculationRepository)(nil)

// NewCalculationRepository creates a daily risk calculation repository.
func NewCalculationRepository(db DBTX) *CalculationRepository {
	return &CalculationRepository{db: db}
}

// Upsert stores the calculation for its date, replacing any previous
// value. The aggregation always recomputes from the full day's data,
// so replacement is safe under concurrent recomputes.
func (r *CalculationRepository) Upsert(ctx context.Context, calc *risk.DailyCalculation) error {
	factors, err := json.Marshal(calc.ContributingFactors)
	if err != nil {
		return errors.Wrap(err, "marshal contributing factors")
	}

	query := `
		INSERT INTO risk_calculations (calculation_date, risk_score, trend_direction, contributing_factors, article_count, total_financial_exposure, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (calculation_date) DO UPDATE SET
			risk_score = excluded.risk_score,
			trend_direction = excluded.trend_direction,
			contributing_factors = excluded.contributing_factors,
			article_count = excluded.article_count,
			total_financial_exposure = excluded.total_financial_exposure,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err = r.db.ExecContext(ctx, query,
		calc.Date, calc.Score, calc.Trend, string(factors), calc.ArticleCount,
		calc.TotalExposure.String())
	if err != nil {
		return errors.Wrap(err, "upsert risk calculation")
	}
	return nil
}

// ForDate returns the stored calculation for a YYYY-MM-DD date.
func (r *CalculationRepository) ForDate(ctx context.Context, date string) (*risk.DailyCalculation, error) {
	return r.get(ctx, `WHERE calculation_date = ?`, date)
}

// Latest returns the newest stored calculation.
func (r *CalculationRepository) Latest(ctx context.Context) (*risk.DailyCalculation, error) {
	return r.get(ctx, `ORDER BY calculation_date DESC LIMIT 1`)
}

func (r *CalculationRepository) get(ctx context.Context, clause string, args ...interface{}) (*risk.DailyCalculation, error) {
	query := `
		SELECT id, calculation_date, risk_score, trend_direction, contributing_factors,
		       article_count, total_financial_exposure, updated_at
		FROM risk_calculations ` + clause

	var row struct {
		risk.DailyCalculation
		Factors string `db:"contributing_factors"`
	}
	err := r.db.GetContext(ctx, &row, query, args...)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(errors.ErrNotFound, "risk calculation")
	}
	if err != nil {
		return nil, errors.Wrap(err, "get risk calculation")
	}

	calc := row.DailyCalculation
	if err := json.Unmarshal([]byte(row.Factors), &calc.ContributingFactors); err != nil {
		return nil, errors.Wrap(err, "unmarshal contributing factors")
	}
	return &calc, nil
}

// LatestArticleDate returns the calendar date of the newest
// non-archived article, or "" when the database is empty.
func (r *CalculationRepository) LatestArticleDate(ctx context.Context) (string, error) {
	var date sql.NullString
	query := `
		SELECT DATE(MAX(published_date)) FROM news_articles
		WHERE status != 'Archived'
	`
	if err := r.db.GetContext(ctx, &date, query); err != nil {
		return "", errors.Wrap(err, "latest article date")
	}
	if !date.Valid {
		return "", nil
	}
	return date.String, nil
}

// ArticlesForDate loads the aggregation inputs for one calendar date.
func (r *CalculationRepository) ArticlesForDate(ctx context.Context, date string) ([]risk.DayArticle, error) {
	query := `
		SELECT primary_risk_category, severity_level, confidence_score, impact_score,
		       sentiment_score, financial_exposure, risk_keywords
		FROM news_articles
		WHERE status != 'Archived' AND DATE(published_date) = ?
	`

	var rows []struct {
		risk.DayArticle
		Keywords string `db:"risk_keywords"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, date); err != nil {
		return nil, errors.Wrap(err, "load articles for date")
	}

	articles := make([]risk.DayArticle, 0, len(rows))
	for _, row := range rows {
		a := row.DayArticle
		if err := json.Unmarshal([]byte(row.Keywords), &a.RiskKeywords); err != nil {
			return nil, errors.Wrap(err, "unmarshal risk keywords")
		}
		articles = append(articles, a)
	}
	return articles, nil
}
