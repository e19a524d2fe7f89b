package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/adapters/config"
	adapter "sentinel/internal/adapters/sqlite"
	"sentinel/internal/domain/article"
	"sentinel/pkg/errors"
	"sentinel/pkg/logger"
)

func newTestPool(t *testing.T, max int) *adapter.Pool {
	t.Helper()

	cfg := config.DatabaseConfig{
		MaxConnections: 5,
		BusyTimeout:    5 * time.Second,
	}
	client, err := adapter.NewClient(filepath.Join(t.TempDir(), "test.db"), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	pool := adapter.NewPool(client, max, logger.Get())
	t.Cleanup(pool.Close)
	return pool
}

func TestPooledDBRunsRepositoryQueries(t *testing.T) {
	pool := newTestPool(t, 2)
	repo := NewRawArticleRepository(NewPooledDB(pool))
	ctx := context.Background()

	id, err := repo.Insert(ctx, &article.Raw{
		Headline:    "Fed cuts rates",
		PublishedAt: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	raw, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Fed cuts rates", raw.Headline)

	// Every statement returns its connection before completing.
	assert.Equal(t, 0, pool.Stats().InUse)
}

func TestPooledDBFailsFastOnExhaustion(t *testing.T) {
	pool := newTestPool(t, 1)
	repo := NewRawArticleRepository(NewPooledDB(pool))
	ctx := context.Background()

	conn, err := pool.Acquire(ctx)
	require.NoError(t, err)
	defer pool.Release(conn)

	// The only slot is held, so the query fails instead of queueing.
	_, err = repo.Get(ctx, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPoolExhausted))
}
