package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Task is one unit of deferred work. Args is an opaque JSON payload
// interpreted by the registered handler.
type Task struct {
	ID         string          `db:"id" json:"id"`
	Name       string          `db:"name" json:"name"`
	Args       json.RawMessage `db:"args" json:"args"`
	Retries    int             `db:"retries" json:"retries"`
	MaxRetries int             `db:"max_retries" json:"max_retries"`
	ExecuteAt  time.Time       `db:"execute_at" json:"execute_at"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// NewTask builds a task ready for immediate execution.
func NewTask(name string, args json.RawMessage, maxRetries int) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:         uuid.NewString(),
		Name:       name,
		Args:       args,
		MaxRetries: maxRetries,
		ExecuteAt:  now,
		CreatedAt:  now,
	}
}

// Backend is the durable storage behind the queue. Implementations must
// make Claim atomic under concurrent consumers: a queued task is handed
// to exactly one claimant (delivery to the handler remains
// at-least-once, a crash between claim and ack replays the task after
// requeue).
type Backend interface {
	// Enqueue persists a task. Tasks with a future ExecuteAt stay
	// invisible to Claim until due.
	Enqueue(ctx context.Context, task *Task) error

	// Claim atomically takes the oldest due task, or returns (nil, nil)
	// when nothing is due.
	Claim(ctx context.Context) (*Task, error)

	// Ack marks a claimed task as completed and removes it.
	Ack(ctx context.Context, task *Task) error

	// Retry returns a claimed task to the queue with an incremented
	// retry count, due again after delay.
	Retry(ctx context.Context, task *Task, delay time.Duration) error

	// Dead parks a claimed task permanently.
	Dead(ctx context.Context, task *Task) error

	// Depth reports the number of tasks waiting (due or scheduled).
	Depth(ctx context.Context) (int64, error)

	Close() error
}
