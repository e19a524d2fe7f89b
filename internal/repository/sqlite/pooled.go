package sqlite

import (
	"context"
	"database/sql"

	adapter "sentinel/internal/adapters/sqlite"
)

// PooledDB runs every statement on a connection checked out of the
// bounded pool, so repository traffic inherits the pool's fail-fast
// exhaustion behavior instead of queueing inside database/sql.
type PooledDB struct {
	pool *adapter.Pool
}

var _ DBTX = (*PooledDB)(nil)

// NewPooledDB wraps a connection pool as a repository handle.
func NewPooledDB(pool *adapter.Pool) *PooledDB {
	return &PooledDB{pool: pool}
}

func (p *PooledDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.pool.Release(conn)
	return conn.ExecContext(ctx, query, args...)
}

func (p *PooledDB) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.pool.Release(conn)
	return conn.GetContext(ctx, dest, query, args...)
}

func (p *PooledDB) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.pool.Release(conn)
	return conn.SelectContext(ctx, dest, query, args...)
}
