package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	adapter "sentinel/internal/adapters/sqlite"
	"sentinel/internal/adapters/config"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	cfg := config.DatabaseConfig{
		MaxConnections: 5,
		BusyTimeout:    5 * time.Second,
	}
	client, err := adapter.NewClient(filepath.Join(t.TempDir(), "test.db"), cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client.DB()
}
