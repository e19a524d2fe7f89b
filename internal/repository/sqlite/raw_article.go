package sqlite

import (
	"context"
	"database/sql"

	"sentinel/internal/domain/article"
	"sentinel/pkg/errors"
)

// RawArticleRepository implements article.RawRepository over the
// knowledge database.
type RawArticleRepository struct {
	db DBTX
}

var _ article.RawRepository = (*RawArticleRepository)(nil)

// NewRawArticleRepository creates a raw article repository.
func NewRawArticleRepository(db DBTX) *RawArticleRepository {
	return &RawArticleRepository{db: db}
}

// Get retrieves one raw article by id.
func (r *RawArticleRepository) Get(ctx context.Context, id int64) (*article.Raw, error) {
	query := `
		SELECT id, headline, content, source_name, url, published_date,
		       processed, processed_at, processing_error, created_at
		FROM raw_news_data
		WHERE id = ?
	`

	raw := &article.Raw{}
	err := r.db.GetContext(ctx, raw, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "raw article %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get raw article")
	}
	return raw, nil
}

// Unprocessed returns up to limit raw articles awaiting analysis,
// oldest publication first.
func (r *RawArticleRepository) Unprocessed(ctx context.Context, limit int) ([]article.Raw, error) {
	query := `
		SELECT id, headline, content, source_name, url, published_date,
		       processed, processed_at, processing_error, created_at
		FROM raw_news_data
		WHERE processed = 0
		ORDER BY published_date ASC, id ASC
		LIMIT ?
	`

	var rows []article.Raw
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, errors.Wrap(err, "list unprocessed raw articles")
	}
	return rows, nil
}

// MarkProcessed flags a raw article as fully handled and stamps the
// completion time. It is the last step of the pipeline: a crash before
// this point makes the article eligible for reprocessing. A stale
// error from an earlier failed attempt is cleared.
func (r *RawArticleRepository) MarkProcessed(ctx context.Context, id int64) error {
	query := `
		UPDATE raw_news_data
		SET processed = 1, processed_at = CURRENT_TIMESTAMP, processing_error = ''
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return errors.Wrap(err, "mark raw article processed")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "raw article %d", id)
	}
	return nil
}

// MarkFailed records the latest processing error for operators. The
// processed flag stays 0 so the article remains retryable.
func (r *RawArticleRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE raw_news_data SET processing_error = ? WHERE id = ?`, reason, id)
	return errors.Wrap(err, "mark raw article failed")
}

// Insert stores a new raw article and returns its id.
func (r *RawArticleRepository) Insert(ctx context.Context, raw *article.Raw) (int64, error) {
	query := `
		INSERT INTO raw_news_data (headline, content, source_name, url, published_date, processed)
		VALUES (?, ?, ?, ?, ?, 0)
	`

	res, err := r.db.ExecContext(ctx, query,
		raw.Headline, raw.Content, raw.SourceName, raw.URL, raw.PublishedAt)
	if err != nil {
		return 0, errors.Wrap(err, "insert raw article")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "raw article insert id")
	}
	return id, nil
}

// Counts reports total and processed raw article counts.
func (r *RawArticleRepository) Counts(ctx context.Context) (int64, int64, error) {
	var counts struct {
		Total     int64 `db:"total"`
		Processed int64 `db:"processed"`
	}
	query := `
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(processed), 0) AS processed
		FROM raw_news_data
	`
	if err := r.db.GetContext(ctx, &counts, query); err != nil {
		return 0, 0, errors.Wrap(err, "count raw articles")
	}
	return counts.Total, counts.Processed, nil
}
