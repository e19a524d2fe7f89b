package sqlite

import (
	"context"
	"sync"

	"github.com/jmoiron/sqlx"

	"sentinel/internal/metrics"
	"sentinel/pkg/errors"
	"sentinel/pkg/logger"
)

// Pool is a bounded connection pool over a sqlite Client. Unlike the
// lazy database/sql pool it fails fast: when all slots are in use,
// Acquire returns ErrPoolExhausted instead of queueing the caller.
type Pool struct {
	db      *sqlx.DB
	max     int
	timeout func(context.Context) (context.Context, context.CancelFunc)

	mu    sync.Mutex
	idle  []*sqlx.Conn
	total int

	log *logger.Logger
}

// PoolStats is a snapshot of pool occupancy.
type PoolStats struct {
	Max   int
	Idle  int
	InUse int
}

// NewPool creates a pool handing out at most max connections.
func NewPool(client *Client, max int, log *logger.Logger) *Pool {
	if max <= 0 {
		max = 1
	}
	return &Pool{
		db:  client.DB(),
		max: max,
		log: log.With("component", "sqlite_pool"),
	}
}

// Acquire returns a healthy connection, reusing an idle one when
// possible. Exhaustion is immediate: no waiting, no queueing.
func (p *Pool) Acquire(ctx context.Context) (*sqlx.Conn, error) {
	for {
		p.mu.Lock()
		if n := len(p.idle); n > 0 {
			conn := p.idle[n-1]
			p.idle = p.idle[:n-1]
			p.mu.Unlock()

			if err := probe(ctx, conn); err != nil {
				p.log.Warn("Discarding broken idle connection", "error", err)
				p.discard(conn)
				continue
			}
			return conn, nil
		}

		if p.total >= p.max {
			p.mu.Unlock()
			metrics.PoolExhaustions.Inc()
			return nil, errors.Wrapf(errors.ErrPoolExhausted, "all %d connections in use", p.max)
		}
		p.total++
		p.mu.Unlock()

		conn, err := p.db.Connx(ctx)
		if err != nil {
			p.mu.Lock()
			p.total--
			p.mu.Unlock()
			return nil, errors.Wrap(err, "open connection")
		}
		return conn, nil
	}
}

// Release returns a connection to the pool. A connection that fails the
// liveness probe is closed and its slot freed.
func (p *Pool) Release(conn *sqlx.Conn) {
	if conn == nil {
		return
	}
	if err := probe(context.Background(), conn); err != nil {
		p.log.Warn("Closing broken connection on release", "error", err)
		p.discard(conn)
		return
	}
	p.mu.Lock()
	p.idle = append(p.idle, conn)
	p.mu.Unlock()
}

// Close closes all idle connections. Connections currently in use are
// closed by their holders via Release after the probe fails, or
// directly when the process exits.
func (p *Pool) Close() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.total -= len(idle)
	p.mu.Unlock()

	for _, conn := range idle {
		_ = conn.Close()
	}
}

// Stats reports current pool occupancy.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		Max:   p.max,
		Idle:  len(p.idle),
		InUse: p.total - len(p.idle),
	}
}

func (p *Pool) discard(conn *sqlx.Conn) {
	_ = conn.Close()
	p.mu.Lock()
	p.total--
	p.mu.Unlock()
}

func probe(ctx context.Context, conn *sqlx.Conn) error {
	var one int
	return conn.GetContext(ctx, &one, "SELECT 1")
}
