package sqlite

import (
	"context"
	"database/sql"
)

// DBTX is the query surface repositories need. *sqlx.DB, *sqlx.Tx and
// *PooledDB all satisfy it, so repositories can run over a raw handle,
// inside a transaction, or through the bounded connection pool.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}
