package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/domain/article"
	"sentinel/pkg/errors"
)

func storedArticle(headline string, publishedAt time.Time) *article.Article {
	return &article.Article{
		Headline:    headline,
		Content:     "body",
		SourceName:  "newswire",
		URL:         "https://example.com/a",
		PublishedAt: publishedAt,
		Analysis: article.RiskAnalysis{
			PrimaryRiskCategory:     "market_risk",
			SecondaryRiskCategories: []string{"credit_risk"},
			SeverityLevel:           "High",
			UrgencyLevel:            "Medium",
			TemporalClassification:  "Short-term",
			ConfidenceScore:         80,
			ImpactScore:             70,
			SentimentScore:          -0.6,
			RiskKeywords:            []string{"selloff", "rates"},
			FinancialExposure:       decimal.NewFromInt(2_000_000_000),
			ExposureCurrency:        "USD",
			IsBreakingNews:          true,
			Summary:                 "Markets fell.",
			Description:             "A broad selloff followed the announcement.",
		},
		Theme: article.ThemeResult{
			PrimaryTheme: "market_volatility",
			DisplayName:  "Market Volatility Surge",
			Confidence:   85,
			Method:       "llm_classification",
		},
		Meta: article.Meta{
			IterationsUsed:  1,
			FinalEvaluation: "PASS",
			Timestamp:       publishedAt,
			Workflow:        "evaluator_optimizer",
		},
		OverallRiskScore: 6.2,
		DisplayPriority:  75,
		RiskColor:        "#EA580C",
		Status:           "New",
	}
}

func TestArticleInsertAndFeed(t *testing.T) {
	db := newTestDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	published := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	id, err := repo.Insert(ctx, storedArticle("Markets plunge on rate decision", published))
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	item, err := repo.GetFeedItem(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Markets plunge on rate decision", item.Headline)
	assert.Equal(t, "market_risk", item.PrimaryRiskCategory)
	assert.Equal(t, "High", item.SeverityLevel)
	assert.InDelta(t, 6.2, item.OverallRiskScore, 0.001)
	assert.Equal(t, 75, item.DisplayPriority)
	assert.Equal(t, "#EA580C", item.RiskColor)
}

func TestArticleExists(t *testing.T) {
	db := newTestDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	published := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	_, err := repo.Insert(ctx, storedArticle("Bank fined", published))
	require.NoError(t, err)

	exists, err := repo.Exists(ctx, "Bank fined", "newswire", published)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, "Bank fined", "other-source", published)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.Exists(ctx, "Bank fined", "newswire", published.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestArticleFeedOrdering(t *testing.T) {
	db := newTestDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	low := storedArticle("low priority", base.Add(2*time.Hour))
	low.DisplayPriority = 40
	high := storedArticle("high priority", base)
	high.DisplayPriority = 90
	archived := storedArticle("archived", base)
	archived.DisplayPriority = 100
	archived.Status = "Archived"

	for _, a := range []*article.Article{low, high, archived} {
		_, err := repo.Insert(ctx, a)
		require.NoError(t, err)
	}

	feed, err := repo.Feed(ctx, 5)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, "high priority", feed[0].Headline)
	assert.Equal(t, "low priority", feed[1].Headline)
}

func TestArticleSummaryCounts(t *testing.T) {
	db := newTestDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	critical := storedArticle("critical one", base)
	critical.Analysis.SeverityLevel = "Critical"
	high := storedArticle("high one", base)
	old := storedArticle("old one", base.AddDate(0, 0, -30))

	for _, a := range []*article.Article{critical, high, old} {
		_, err := repo.Insert(ctx, a)
		require.NoError(t, err)
	}

	summary, err := repo.Summary(ctx, base.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.TotalArticles)
	assert.Equal(t, int64(1), summary.CriticalCount)
	assert.Equal(t, int64(1), summary.HighCount)
	assert.Equal(t, int64(2), summary.BreakingCount)
}

func TestArticleScoringContext(t *testing.T) {
	db := newTestDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := repo.Insert(ctx, storedArticle("article", base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}

	entries, err := repo.RecentScoringContext(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].PublishedAt.After(entries[1].PublishedAt))
}

func TestArticleCategoryBreakdown(t *testing.T) {
	db := newTestDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	a := storedArticle("a", base)
	b := storedArticle("b", base.Add(time.Hour))
	c := storedArticle("c", base.Add(2*time.Hour))
	c.Analysis.PrimaryRiskCategory = "credit_risk"

	for _, art := range []*article.Article{a, b, c} {
		_, err := repo.Insert(ctx, art)
		require.NoError(t, err)
	}

	breakdown, err := repo.CategoryBreakdown(ctx)
	require.NoError(t, err)
	require.Len(t, breakdown, 2)
	assert.Equal(t, "market_risk", breakdown[0].Category)
	assert.Equal(t, int64(2), breakdown[0].Count)
	assert.Equal(t, "credit_risk", breakdown[1].Category)
}

func TestGetFeedItemNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewArticleRepository(db)

	_, err := repo.GetFeedItem(context.Background(), 12345)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
