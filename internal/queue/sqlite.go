package queue

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"sentinel/pkg/errors"
)

// SQLiteBackend stores tasks in the embedded risk database. WAL mode
// plus the single-UPDATE claim makes it safe for multiple goroutines in
// one process, which is the embedded deployment's consumer model.
type SQLiteBackend struct {
	db *sqlx.DB
}

var _ Backend = (*SQLiteBackend)(nil)

// NewSQLiteBackend creates a backend over an already-migrated database.
func NewSQLiteBackend(db *sqlx.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

func (b *SQLiteBackend) Enqueue(ctx context.Context, task *Task) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO tasks (id, name, args, status, retries, max_retries, execute_at, created_at, updated_at)
		 VALUES (?, ?, ?, 'queued', ?, ?, ?, ?, ?)`,
		task.ID, task.Name, string(task.Args), task.Retries, task.MaxRetries,
		task.ExecuteAt.UTC(), task.CreatedAt.UTC(), time.Now().UTC(),
	)
	return errors.Wrap(err, "insert task")
}

func (b *SQLiteBackend) Claim(ctx context.Context) (*Task, error) {
	var task Task
	err := b.db.GetContext(ctx, &task,
		`UPDATE tasks SET status = 'running', updated_at = ?
		 WHERE id = (
			SELECT id FROM tasks
			WHERE status = 'queued' AND execute_at <= ?
			ORDER BY created_at, rowid
			LIMIT 1
		 )
		 RETURNING id, name, args, retries, max_retries, execute_at, created_at`,
		time.Now().UTC(), time.Now().UTC(),
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "claim task")
	}
	return &task, nil
}

func (b *SQLiteBackend) Ack(ctx context.Context, task *Task) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, task.ID)
	return errors.Wrap(err, "ack task")
}

func (b *SQLiteBackend) Retry(ctx context.Context, task *Task, delay time.Duration) error {
	_, err := b.db.ExecContext(ctx,
		`UPDATE tasks SET status = 'queued', retries = retries + 1, execute_at = ?, updated_at = ?
		 WHERE id = ?`,
		time.Now().UTC().Add(delay), time.Now().UTC(), task.ID,
	)
	return errors.Wrap(err, "retry task")
}

func (b *SQLiteBackend) Dead(ctx context.Context, task *Task) error {
	_, err := b.db.ExecContext(ctx,
		`UPDATE tasks SET status = 'dead', updated_at = ? WHERE id = ?`,
		time.Now().UTC(), task.ID,
	)
	return errors.Wrap(err, "dead-letter task")
}

func (b *SQLiteBackend) Depth(ctx context.Context) (int64, error) {
	var n int64
	err := b.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM tasks WHERE status = 'queued'`)
	return n, errors.Wrap(err, "queue depth")
}

// Requeue returns tasks stuck in 'running' (a previous process died
// mid-claim) to the queue. Called once at startup.
func (b *SQLiteBackend) Requeue(ctx context.Context) (int64, error) {
	res, err := b.db.ExecContext(ctx,
		`UPDATE tasks SET status = 'queued', updated_at = ? WHERE status = 'running'`,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, errors.Wrap(err, "requeue running tasks")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (b *SQLiteBackend) Close() error {
	// The shared database client owns the connection.
	return nil
}
