package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"sentinel/internal/adapters/config"
	"sentinel/pkg/errors"
	"sentinel/pkg/logger"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	cfg := config.DatabaseConfig{
		MaxConnections: 5,
		BusyTimeout:    5 * time.Second,
	}
	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"), cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestPoolAcquireRelease(t *testing.T) {
	client := newTestClient(t)
	pool := NewPool(client, 2, logger.Get())
	defer pool.Close()

	ctx := context.Background()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	stats := pool.Stats()
	if stats.InUse != 1 {
		t.Errorf("InUse = %d, want 1", stats.InUse)
	}

	pool.Release(conn)

	stats = pool.Stats()
	if stats.InUse != 0 || stats.Idle != 1 {
		t.Errorf("after release: InUse = %d, Idle = %d, want 0/1", stats.InUse, stats.Idle)
	}
}

func TestPoolReusesIdleConnection(t *testing.T) {
	client := newTestClient(t)
	pool := NewPool(client, 2, logger.Get())
	defer pool.Close()

	ctx := context.Background()

	first, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	pool.Release(first)

	second, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	defer pool.Release(second)

	if pool.Stats().Max != 2 {
		t.Errorf("Max = %d, want 2", pool.Stats().Max)
	}
	if got := pool.Stats().InUse; got != 1 {
		t.Errorf("InUse = %d, want 1 (idle connection should be reused)", got)
	}
}

func TestPoolExhaustionFailsFast(t *testing.T) {
	client := newTestClient(t)
	pool := NewPool(client, 2, logger.Get())
	defer pool.Close()

	ctx := context.Background()

	a, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire 1: %v", err)
	}
	b, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire 2: %v", err)
	}

	start := time.Now()
	_, err = pool.Acquire(ctx)
	if !errors.Is(err, errors.ErrPoolExhausted) {
		t.Fatalf("Acquire 3 error = %v, want ErrPoolExhausted", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("exhausted Acquire took %v, expected immediate failure", elapsed)
	}

	pool.Release(a)
	pool.Release(b)

	// A slot freed by Release must be acquirable again.
	c, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	pool.Release(c)
}

func TestPoolStatsSnapshot(t *testing.T) {
	client := newTestClient(t)
	pool := NewPool(client, 3, logger.Get())
	defer pool.Close()

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := pool.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
	}

	stats := pool.Stats()
	if stats.InUse != 3 || stats.Idle != 0 || stats.Max != 3 {
		t.Errorf("Stats = %+v, want InUse=3 Idle=0 Max=3", stats)
	}
}
