package sqlite

// Idempotent schema, applied on every open. All JSON-ish columns are
// TEXT holding marshalled JSON; financial_exposure is stored as a
// decimal string to avoid float drift.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS raw_news_data (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		headline         TEXT NOT NULL,
		content          TEXT NOT NULL DEFAULT '',
		source_name      TEXT NOT NULL DEFAULT '',
		url              TEXT NOT NULL DEFAULT '',
		published_date   DATETIME NOT NULL,
		processed        INTEGER NOT NULL DEFAULT 0,
		processed_at     DATETIME,
		processing_error TEXT NOT NULL DEFAULT '',
		created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_raw_news_unprocessed
		ON raw_news_data (processed, published_date)`,

	`CREATE TABLE IF NOT EXISTS news_articles (
		id                           INTEGER PRIMARY KEY AUTOINCREMENT,
		headline                     TEXT NOT NULL,
		content                      TEXT NOT NULL DEFAULT '',
		source_name                  TEXT NOT NULL DEFAULT '',
		url                          TEXT NOT NULL DEFAULT '',
		published_date               DATETIME NOT NULL,
		primary_risk_category        TEXT NOT NULL,
		secondary_risk_categories    TEXT NOT NULL DEFAULT '[]',
		risk_subcategories           TEXT NOT NULL DEFAULT '[]',
		severity_level               TEXT NOT NULL,
		urgency_level                TEXT NOT NULL DEFAULT 'Medium',
		temporal_classification      TEXT NOT NULL DEFAULT 'Medium-term',
		confidence_score             INTEGER NOT NULL,
		impact_score                 INTEGER NOT NULL,
		sentiment_score              REAL NOT NULL DEFAULT 0,
		overall_risk_score           REAL NOT NULL DEFAULT 0,
		industry_sectors             TEXT NOT NULL DEFAULT '[]',
		geographic_regions           TEXT NOT NULL DEFAULT '[]',
		affected_companies           TEXT NOT NULL DEFAULT '[]',
		key_risk_indicators          TEXT NOT NULL DEFAULT '[]',
		risk_keywords                TEXT NOT NULL DEFAULT '[]',
		financial_exposure           TEXT NOT NULL DEFAULT '0',
		exposure_currency            TEXT NOT NULL DEFAULT 'USD',
		is_market_moving             INTEGER NOT NULL DEFAULT 0,
		is_regulatory_action         INTEGER NOT NULL DEFAULT 0,
		is_breaking_news             INTEGER NOT NULL DEFAULT 0,
		requires_immediate_attention INTEGER NOT NULL DEFAULT 0,
		summary                      TEXT NOT NULL,
		description                  TEXT NOT NULL,
		primary_theme                TEXT NOT NULL DEFAULT 'other_financial_risks',
		theme_display_name           TEXT NOT NULL DEFAULT '',
		theme_confidence             INTEGER NOT NULL DEFAULT 0,
		theme_method                 TEXT NOT NULL DEFAULT '',
		status                       TEXT NOT NULL DEFAULT 'New',
		display_priority             INTEGER NOT NULL DEFAULT 50,
		risk_color                   TEXT NOT NULL DEFAULT '#6B7280',
		optimization_meta            TEXT NOT NULL DEFAULT '{}',
		created_at                   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_identity
		ON news_articles (headline, source_name, published_date)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_feed
		ON news_articles (display_priority DESC, published_date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_date
		ON news_articles (published_date)`,

	`CREATE TABLE IF NOT EXISTS risk_calculations (
		id                       INTEGER PRIMARY KEY AUTOINCREMENT,
		calculation_date         TEXT NOT NULL UNIQUE,
		risk_score               REAL NOT NULL,
		trend_direction          TEXT NOT NULL DEFAULT 'Stable',
		contributing_factors     TEXT NOT NULL DEFAULT '[]',
		article_count            INTEGER NOT NULL DEFAULT 0,
		total_financial_exposure TEXT NOT NULL DEFAULT '0',
		updated_at               DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS sse_events (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		envelope_type TEXT NOT NULL,
		original_type TEXT NOT NULL,
		payload       TEXT NOT NULL,
		priority      INTEGER NOT NULL DEFAULT 50,
		processed     INTEGER NOT NULL DEFAULT 0,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sse_events_cursor
		ON sse_events (id, processed)`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		args       TEXT NOT NULL DEFAULT '{}',
		status     TEXT NOT NULL DEFAULT 'queued',
		retries    INTEGER NOT NULL DEFAULT 0,
		max_retries INTEGER NOT NULL DEFAULT 3,
		execute_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_ready
		ON tasks (status, execute_at, created_at)`,
}
