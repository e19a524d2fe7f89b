package queue

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/adapters/config"
	"sentinel/pkg/errors"
	"sentinel/pkg/logger"
)

func testQueueConfig() config.QueueConfig {
	return config.QueueConfig{
		Backend:    "memory",
		Workers:    2,
		MaxRetries: 2,
		RetryDelay: 10 * time.Millisecond,
		PollDelay:  10 * time.Millisecond,
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestQueueProcessesTask(t *testing.T) {
	backend := NewMemoryBackend()
	q := New(backend, testQueueConfig(), logger.Get())

	var got atomic.Value
	q.Register("echo", func(ctx context.Context, args json.RawMessage) error {
		got.Store(string(args))
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, q.Start(ctx))
	defer q.Stop()

	_, err := q.Enqueue(ctx, "echo", map[string]int{"article_id": 42})
	require.NoError(t, err)

	waitFor(t, 2*time.Second, func() bool { return got.Load() != nil })
	assert.JSONEq(t, `{"article_id": 42}`, got.Load().(string))
}

func TestQueueRetriesThenDeadLetters(t *testing.T) {
	backend := NewMemoryBackend()
	q := New(backend, testQueueConfig(), logger.Get())

	var attempts atomic.Int32
	q.Register("flaky", func(ctx context.Context, args json.RawMessage) error {
		attempts.Add(1)
		return errors.Transient(errors.New("upstream down"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, q.Start(ctx))
	defer q.Stop()

	_, err := q.Enqueue(ctx, "flaky", nil)
	require.NoError(t, err)

	// MaxRetries=2 means the initial attempt plus two retries.
	waitFor(t, 5*time.Second, func() bool { return len(backend.DeadTasks()) == 1 })
	assert.Equal(t, int32(3), attempts.Load())
}

func TestQueueFatalErrorSkipsRetries(t *testing.T) {
	backend := NewMemoryBackend()
	q := New(backend, testQueueConfig(), logger.Get())

	var attempts atomic.Int32
	q.Register("broken", func(ctx context.Context, args json.RawMessage) error {
		attempts.Add(1)
		return errors.Fatal(errors.New("article does not exist"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, q.Start(ctx))
	defer q.Stop()

	_, err := q.Enqueue(ctx, "broken", nil)
	require.NoError(t, err)

	waitFor(t, 2*time.Second, func() bool { return len(backend.DeadTasks()) == 1 })
	assert.Equal(t, int32(1), attempts.Load())
}

func TestQueueRecoversHandlerPanic(t *testing.T) {
	backend := NewMemoryBackend()
	q := New(backend, testQueueConfig(), logger.Get())

	q.Register("panicky", func(ctx context.Context, args json.RawMessage) error {
		panic("boom")
	})
	q.Register("echo", func(ctx context.Context, args json.RawMessage) error {
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, q.Start(ctx))
	defer q.Stop()

	_, err := q.Enqueue(ctx, "panicky", nil)
	require.NoError(t, err)

	// A panic dead-letters the task and the consumer keeps going.
	waitFor(t, 2*time.Second, func() bool { return len(backend.DeadTasks()) == 1 })

	_, err = q.Enqueue(ctx, "echo", nil)
	require.NoError(t, err)
	waitFor(t, 2*time.Second, func() bool {
		depth, _ := backend.Depth(ctx)
		return depth == 0
	})
}

func TestQueueUnknownTaskDeadLetters(t *testing.T) {
	backend := NewMemoryBackend()
	q := New(backend, testQueueConfig(), logger.Get())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, q.Start(ctx))
	defer q.Stop()

	_, err := q.Enqueue(ctx, "never_registered", nil)
	require.NoError(t, err)

	waitFor(t, 2*time.Second, func() bool { return len(backend.DeadTasks()) == 1 })
}

func TestEnqueueInStaysInvisibleUntilDue(t *testing.T) {
	backend := NewMemoryBackend()
	q := New(backend, testQueueConfig(), logger.Get())

	ctx := context.Background()
	_, err := q.EnqueueIn(ctx, "later", nil, time.Hour)
	require.NoError(t, err)

	task, err := backend.Claim(ctx)
	require.NoError(t, err)
	assert.Nil(t, task, "future task must not be claimable")

	depth, err := backend.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)
}
