package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"sentinel/internal/adapters/config"
	"sentinel/internal/metrics"
	"sentinel/pkg/errors"
	"sentinel/pkg/logger"
)

// HandlerFunc processes one task payload. Returning an error wrapped
// with errors.ErrFatal dead-letters the task immediately; any other
// error consumes a retry.
type HandlerFunc func(ctx context.Context, args json.RawMessage) error

// Queue dispatches durable tasks to registered handlers with an
// at-least-once guarantee.
type Queue struct {
	backend  Backend
	cfg      config.QueueConfig
	log      *logger.Logger
	handlers map[string]HandlerFunc

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a queue over the given backend.
func New(backend Backend, cfg config.QueueConfig, log *logger.Logger) *Queue {
	return &Queue{
		backend:  backend,
		cfg:      cfg,
		log:      log.With("component", "queue"),
		handlers: make(map[string]HandlerFunc),
	}
}

// Register binds a handler to a task name. Must be called before Start.
func (q *Queue) Register(name string, handler HandlerFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		q.log.Warn("Cannot register handler after queue start", "task", name)
		return
	}
	q.handlers[name] = handler
}

// Enqueue persists a task for immediate execution and returns its id.
func (q *Queue) Enqueue(ctx context.Context, name string, args interface{}) (string, error) {
	return q.EnqueueIn(ctx, name, args, 0)
}

// EnqueueIn persists a task due after the given delay.
func (q *Queue) EnqueueIn(ctx context.Context, name string, args interface{}, delay time.Duration) (string, error) {
	payload, err := json.Marshal(args)
	if err != nil {
		return "", errors.Wrap(err, "marshal task args")
	}

	task := NewTask(name, payload, q.cfg.MaxRetries)
	if delay > 0 {
		task.ExecuteAt = task.ExecuteAt.Add(delay)
	}

	if err := q.backend.Enqueue(ctx, task); err != nil {
		return "", errors.Wrapf(err, "enqueue %s", name)
	}

	q.log.Debug("Task enqueued", "task", name, "id", task.ID, "delay", delay)
	return task.ID, nil
}

// Depth reports the number of waiting tasks.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.backend.Depth(ctx)
}

// Start launches the consumer goroutines.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return errors.Wrap(errors.ErrInternal, "queue already started")
	}
	q.started = true
	ctx, q.cancel = context.WithCancel(ctx)
	q.mu.Unlock()

	workers := q.cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	q.log.Info("Starting queue consumers",
		"backend", q.cfg.Backend,
		"workers", workers,
	)

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.consume(ctx, i)
	}

	// Depth gauge refresher.
	q.wg.Add(1)
	go q.reportDepth(ctx)

	return nil
}

// Stop cancels the consumers and waits for in-flight tasks.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.started = false
	q.mu.Unlock()

	q.wg.Wait()
	q.log.Info("Queue consumers stopped")
}

func (q *Queue) consume(ctx context.Context, id int) {
	defer q.wg.Done()

	log := q.log.With("consumer", id)
	log.Debug("Consumer started")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, err := q.backend.Claim(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("Claim failed", "error", err)
			sleep(ctx, q.cfg.PollDelay)
			continue
		}
		if task == nil {
			sleep(ctx, q.cfg.PollDelay)
			continue
		}

		q.dispatch(ctx, task, log)
	}
}

func (q *Queue) dispatch(ctx context.Context, task *Task, log *logger.Logger) {
	handler, ok := q.handlers[task.Name]
	if !ok {
		log.Error("No handler registered for task", "task", task.Name, "id", task.ID)
		_ = q.backend.Dead(ctx, task)
		metrics.RecordTaskExecution(task.Name, "dead", 0)
		return
	}

	start := time.Now()
	err := q.run(ctx, handler, task)
	duration := time.Since(start)

	switch {
	case err == nil:
		if ackErr := q.backend.Ack(ctx, task); ackErr != nil {
			log.Error("Ack failed, task will be redelivered", "task", task.Name, "id", task.ID, "error", ackErr)
		}
		metrics.RecordTaskExecution(task.Name, "success", duration)
		log.Debug("Task completed", "task", task.Name, "id", task.ID, "duration", duration)

	case errors.IsFatal(err):
		log.Error("Task failed fatally",
			"task", task.Name,
			"id", task.ID,
			"error", err,
		)
		_ = q.backend.Dead(ctx, task)
		metrics.RecordTaskExecution(task.Name, "dead", duration)

	case task.Retries+1 > task.MaxRetries:
		log.Error("Task exhausted retry budget",
			"task", task.Name,
			"id", task.ID,
			"retries", task.Retries,
			"error", errors.Wrap(errors.ErrRetriesExhausted, err.Error()),
		)
		_ = q.backend.Dead(ctx, task)
		metrics.RecordTaskExecution(task.Name, "dead", duration)

	default:
		log.Warn("Task failed, scheduling retry",
			"task", task.Name,
			"id", task.ID,
			"attempt", task.Retries+1,
			"max_retries", task.MaxRetries,
			"delay", q.cfg.RetryDelay,
			"error", err,
		)
		if retryErr := q.backend.Retry(ctx, task, q.cfg.RetryDelay); retryErr != nil {
			log.Error("Retry scheduling failed", "task", task.Name, "id", task.ID, "error", retryErr)
		}
		metrics.RecordTaskExecution(task.Name, "retry", duration)
	}
}

// run executes the handler with panic containment. A panicking handler
// is treated as a fatal failure.
func (q *Queue) run(ctx context.Context, handler HandlerFunc, task *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Fatal(fmt.Errorf("task panicked: %v", r))
		}
	}()
	return handler(ctx, task.Args)
}

func (q *Queue) reportDepth(ctx context.Context) {
	defer q.wg.Done()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			depth, err := q.backend.Depth(ctx)
			if err != nil {
				continue
			}
			metrics.QueueDepth.WithLabelValues(q.cfg.Backend).Set(float64(depth))
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		d = time.Second
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
