package queue

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"sentinel/internal/adapters/redis"
	"sentinel/pkg/errors"
)

// RedisBackend stores tasks in Redis lists so multiple consumer
// processes can share one queue. Ready tasks live in a list, scheduled
// tasks in a sorted set keyed by due time. Claimed tasks sit in a
// processing list until acked, so a crash mid-task leaves the payload
// recoverable via Requeue.
type RedisBackend struct {
	rdb        *goredis.Client
	ready      string
	scheduled  string
	processing string
	dead       string
	popWait    time.Duration

	mu       sync.Mutex
	inflight map[string]string // task ID -> claimed payload
}

var _ Backend = (*RedisBackend)(nil)

// NewRedisBackend creates a backend over the shared Redis client.
func NewRedisBackend(client *redis.Client, keyPrefix string, popWait time.Duration) *RedisBackend {
	if popWait <= 0 {
		popWait = time.Second
	}
	return &RedisBackend{
		rdb:        client.Client(),
		ready:      keyPrefix + ":tasks:ready",
		scheduled:  keyPrefix + ":tasks:scheduled",
		processing: keyPrefix + ":tasks:processing",
		dead:       keyPrefix + ":tasks:dead",
		popWait:    popWait,
		inflight:   make(map[string]string),
	}
}

func (b *RedisBackend) Enqueue(ctx context.Context, task *Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return errors.Wrap(err, "marshal task")
	}

	if task.ExecuteAt.After(time.Now()) {
		err = b.rdb.ZAdd(ctx, b.scheduled, goredis.Z{
			Score:  float64(task.ExecuteAt.Unix()),
			Member: payload,
		}).Err()
		return errors.Wrap(err, "schedule task")
	}

	return errors.Wrap(b.rdb.LPush(ctx, b.ready, payload).Err(), "push task")
}

// Claim atomically moves a ready task onto the processing list. The
// payload stays there until Ack, Retry or Dead removes it, so a
// consumer crash never loses the only copy.
func (b *RedisBackend) Claim(ctx context.Context) (*Task, error) {
	if err := b.promoteDue(ctx); err != nil {
		return nil, err
	}

	payload, err := b.rdb.BLMove(ctx, b.ready, b.processing, "RIGHT", "LEFT", b.popWait).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "pop task")
	}

	var task Task
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		// Drop the unreadable payload so it cannot wedge the list.
		_ = b.rdb.LRem(ctx, b.processing, 1, payload).Err()
		return nil, errors.Wrap(err, "unmarshal task")
	}

	b.mu.Lock()
	b.inflight[task.ID] = payload
	b.mu.Unlock()
	return &task, nil
}

func (b *RedisBackend) Ack(ctx context.Context, task *Task) error {
	return b.settle(ctx, task.ID)
}

func (b *RedisBackend) Retry(ctx context.Context, task *Task, delay time.Duration) error {
	if err := b.settle(ctx, task.ID); err != nil {
		return err
	}

	task.Retries++
	task.ExecuteAt = time.Now().UTC().Add(delay)

	payload, err := json.Marshal(task)
	if err != nil {
		return errors.Wrap(err, "marshal task")
	}
	err = b.rdb.ZAdd(ctx, b.scheduled, goredis.Z{
		Score:  float64(task.ExecuteAt.Unix()),
		Member: payload,
	}).Err()
	return errors.Wrap(err, "reschedule task")
}

func (b *RedisBackend) Dead(ctx context.Context, task *Task) error {
	if err := b.settle(ctx, task.ID); err != nil {
		return err
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return errors.Wrap(err, "marshal task")
	}
	return errors.Wrap(b.rdb.LPush(ctx, b.dead, payload).Err(), "dead-letter task")
}

// settle removes a claimed payload from the processing list. Unknown
// IDs are a no-op: the payload was already recovered by another
// process's Requeue.
func (b *RedisBackend) settle(ctx context.Context, taskID string) error {
	b.mu.Lock()
	payload, ok := b.inflight[taskID]
	delete(b.inflight, taskID)
	b.mu.Unlock()
	if !ok {
		return nil
	}
	return errors.Wrap(b.rdb.LRem(ctx, b.processing, 1, payload).Err(), "settle task")
}

// Requeue moves everything left on the processing list back to ready.
// Called once at startup, before any consumer claims, to recover tasks
// a previous crash left in flight.
func (b *RedisBackend) Requeue(ctx context.Context) (int64, error) {
	var moved int64
	for {
		_, err := b.rdb.LMove(ctx, b.processing, b.ready, "RIGHT", "LEFT").Result()
		if err == goredis.Nil {
			return moved, nil
		}
		if err != nil {
			return moved, errors.Wrap(err, "requeue task")
		}
		moved++
	}
}

func (b *RedisBackend) Depth(ctx context.Context) (int64, error) {
	ready, err := b.rdb.LLen(ctx, b.ready).Result()
	if err != nil {
		return 0, errors.Wrap(err, "ready depth")
	}
	scheduled, err := b.rdb.ZCard(ctx, b.scheduled).Result()
	if err != nil {
		return 0, errors.Wrap(err, "scheduled depth")
	}
	return ready + scheduled, nil
}

func (b *RedisBackend) Close() error {
	// The shared Redis client owns the connection.
	return nil
}

// promoteDue moves due scheduled tasks onto the ready list. ZRem before
// LPush keeps concurrent consumers from promoting the same member
// twice.
func (b *RedisBackend) promoteDue(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	members, err := b.rdb.ZRangeByScore(ctx, b.scheduled, &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   now,
		Count: 100,
	}).Result()
	if err != nil {
		return errors.Wrap(err, "scan scheduled tasks")
	}

	for _, member := range members {
		removed, err := b.rdb.ZRem(ctx, b.scheduled, member).Result()
		if err != nil {
			return errors.Wrap(err, "promote task")
		}
		if removed == 0 {
			continue // another consumer won the race
		}
		if err := b.rdb.LPush(ctx, b.ready, member).Err(); err != nil {
			return errors.Wrap(err, "push promoted task")
		}
	}
	return nil
}
