package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"sentinel/internal/domain/article"
	"sentinel/pkg/errors"
)

// ArticleRepository implements article.Repository over the risk
// database.
type ArticleRepository struct {
	db DBTX
}

var _ article.Repository = (*ArticleRepository)(nil)

// NewArticleRepository creates an analyzed article repository.
func NewArticleRepository(db DBTX) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// Insert stores a fully analyzed article and returns its id.
func (r *ArticleRepository) Insert(ctx context.Context, a *article.Article) (int64, error) {
	meta, err := json.Marshal(a.Meta)
	if err != nil {
		return 0, errors.Wrap(err, "marshal optimization meta")
	}

	query := `
		INSERT INTO news_articles (
			headline, content, source_name, url, published_date,
			primary_risk_category, secondary_risk_categories, risk_subcategories,
			severity_level, urgency_level, temporal_classification,
			confidence_score, impact_score, sentiment_score, overall_risk_score,
			industry_sectors, geographic_regions, affected_companies,
			key_risk_indicators, risk_keywords,
			financial_exposure, exposure_currency,
			is_market_moving, is_regulatory_action, is_breaking_news,
			requires_immediate_attention,
			summary, description,
			primary_theme, theme_display_name, theme_confidence, theme_method,
			status, display_priority, risk_color, optimization_meta
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := r.db.ExecContext(ctx, query,
		a.Headline, a.Content, a.SourceName, a.URL, a.PublishedAt,
		a.Analysis.PrimaryRiskCategory, jsonList(a.Analysis.SecondaryRiskCategories), jsonList(a.Analysis.RiskSubcategories),
		a.Analysis.SeverityLevel, a.Analysis.UrgencyLevel, a.Analysis.TemporalClassification,
		int(a.Analysis.ConfidenceScore), int(a.Analysis.ImpactScore), a.Analysis.SentimentScore, a.OverallRiskScore,
		jsonList(a.Analysis.IndustrySectors), jsonList(a.Analysis.GeographicRegions), jsonList(a.Analysis.AffectedCompanies),
		jsonList(a.Analysis.KeyRiskIndicators), jsonList(a.Analysis.RiskKeywords),
		a.Analysis.FinancialExposure.String(), a.Analysis.ExposureCurrency,
		a.Analysis.IsMarketMoving, a.Analysis.IsRegulatoryAction, a.Analysis.IsBreakingNews,
		a.Analysis.RequiresImmediateAttention,
		a.Analysis.Summary, a.Analysis.Description,
		a.Theme.PrimaryTheme, a.Theme.DisplayName, a.Theme.Confidence, a.Theme.Method,
		a.Status, a.DisplayPriority, a.RiskColor, string(meta),
	)
	if err != nil {
		return 0, errors.Wrap(err, "insert article")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "article insert id")
	}
	return id, nil
}

// Exists reports whether an article with the same identity was already
// stored. Identity is (headline, source, publication time), which makes
// pipeline replays after a crash idempotent.
func (r *ArticleRepository) Exists(ctx context.Context, headline, sourceName string, publishedAt time.Time) (bool, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM news_articles
		WHERE headline = ? AND source_name = ? AND published_date = ?
	`
	if err := r.db.GetContext(ctx, &count, query, headline, sourceName, publishedAt); err != nil {
		return false, errors.Wrap(err, "check article existence")
	}
	return count > 0, nil
}

// RecentScoringContext returns the newest analyses for grounding new
// assessments.
func (r *ArticleRepository) RecentScoringContext(ctx context.Context, limit int) ([]article.ScoringContext, error) {
	query := `
		SELECT headline, primary_risk_category, severity_level, overall_risk_score, published_date
		FROM news_articles
		WHERE status != 'Archived'
		ORDER BY published_date DESC, id DESC
		LIMIT ?
	`

	var rows []article.ScoringContext
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, errors.Wrap(err, "load scoring context")
	}
	return rows, nil
}

// Feed returns the dashboard news feed, highest display priority first.
func (r *ArticleRepository) Feed(ctx context.Context, limit int) ([]article.FeedItem, error) {
	query := feedSelect + `
		WHERE status != 'Archived'
		ORDER BY display_priority DESC, published_date DESC
		LIMIT ?
	`

	var rows []article.FeedItem
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, errors.Wrap(err, "load news feed")
	}
	return rows, nil
}

const feedSelect = `
		SELECT id, headline, source_name, url, published_date,
		       primary_risk_category, severity_level, overall_risk_score,
		       display_priority, risk_color, summary
		FROM news_articles
`

// GetFeedItem returns one article projected for the feed.
func (r *ArticleRepository) GetFeedItem(ctx context.Context, id int64) (*article.FeedItem, error) {
	item := &article.FeedItem{}
	err := r.db.GetContext(ctx, item, feedSelect+` WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "article %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get feed item")
	}
	return item, nil
}

// Summary aggregates severity counts for the dashboard header.
func (r *ArticleRepository) Summary(ctx context.Context, since time.Time) (*article.Summary, error) {
	query := `
		SELECT COUNT(*) AS total_articles,
		       COALESCE(SUM(severity_level = 'Critical'), 0) AS critical_count,
		       COALESCE(SUM(severity_level = 'High'), 0) AS high_count,
		       COALESCE(SUM(severity_level = 'Medium'), 0) AS medium_count,
		       COALESCE(SUM(severity_level = 'Low'), 0) AS low_count,
		       COALESCE(SUM(is_breaking_news), 0) AS breaking_count,
		       COALESCE(SUM(is_market_moving), 0) AS market_moving
		FROM news_articles
		WHERE status != 'Archived' AND published_date >= ?
	`

	s := &article.Summary{}
	if err := r.db.GetContext(ctx, s, query, since); err != nil {
		return nil, errors.Wrap(err, "load dashboard summary")
	}
	return s, nil
}

// CategoryBreakdown counts articles per primary risk category.
func (r *ArticleRepository) CategoryBreakdown(ctx context.Context) ([]article.CategoryCount, error) {
	query := `
		SELECT primary_risk_category AS category, COUNT(*) AS count
		FROM news_articles
		WHERE status != 'Archived'
		GROUP BY primary_risk_category
		ORDER BY count DESC, category ASC
	`

	var rows []article.CategoryCount
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "load category breakdown")
	}
	return rows, nil
}

// CriticalCountSince counts critical-severity articles published after
// the cutoff.
func (r *ArticleRepository) CriticalCountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM news_articles
		WHERE status != 'Archived' AND severity_level = 'Critical' AND published_date >= ?
	`
	if err := r.db.GetContext(ctx, &count, query, since); err != nil {
		return 0, errors.Wrap(err, "count critical articles")
	}
	return count, nil
}

// AllIDs lists stored article ids, newest first. limit <= 0 means all.
func (r *ArticleRepository) AllIDs(ctx context.Context, limit int) ([]int64, error) {
	query := `SELECT id FROM news_articles ORDER BY id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, errors.Wrap(err, "list article ids")
	}
	return ids, nil
}

// Count returns the number of stored articles.
func (r *ArticleRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM news_articles`); err != nil {
		return 0, errors.Wrap(err, "count articles")
	}
	return count, nil
}

// jsonList marshals a string slice for a TEXT column, treating nil as
// the empty list.
func jsonList(values []string) string {
	if values == nil {
		values = []string{}
	}
	b, _ := json.Marshal(values)
	return string(b)
}
