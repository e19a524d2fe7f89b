package risk

import "context"

// Repository defines access to stored daily risk calculations
type Repository interface {
	Upsert(ctx context.Context, calc *DailyCalculation) error
	ForDate(ctx context.Context, date string) (*DailyCalculation, error)
	Latest(ctx context.Context) (*DailyCalculation, error)

	// LatestArticleDate returns the calendar date (YYYY-MM-DD) of the
	// newest non-archived article, or "" when none exist.
	LatestArticleDate(ctx context.Context) (string, error)

	// ArticlesForDate returns the aggregation inputs for all
	// non-archived articles published on the given date.
	ArticlesForDate(ctx context.Context, date string) ([]DayArticle, error)
}
