package queue

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend keeps tasks in process memory. Used by tests and
// throwaway development runs; nothing survives a restart.
type MemoryBackend struct {
	mu      sync.Mutex
	pending []*Task
	dead    []*Task
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) Enqueue(ctx context.Context, task *Task) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	copied := *task
	b.pending = append(b.pending, &copied)
	return nil
}

func (b *MemoryBackend) Claim(ctx context.Context) (*Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	for i, task := range b.pending {
		if !task.ExecuteAt.After(now) {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			return task, nil
		}
	}
	return nil, nil
}

func (b *MemoryBackend) Ack(ctx context.Context, task *Task) error {
	return nil
}

func (b *MemoryBackend) Retry(ctx context.Context, task *Task, delay time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	task.Retries++
	task.ExecuteAt = time.Now().Add(delay)
	b.pending = append(b.pending, task)
	return nil
}

func (b *MemoryBackend) Dead(ctx context.Context, task *Task) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dead = append(b.dead, task)
	return nil
}

func (b *MemoryBackend) Depth(ctx context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.pending)), nil
}

// DeadTasks returns dead-lettered tasks, for inspection in tests.
func (b *MemoryBackend) DeadTasks() []*Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Task, len(b.dead))
	copy(out, b.dead)
	return out
}

func (b *MemoryBackend) Close() error {
	return nil
}
