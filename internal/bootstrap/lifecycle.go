package bootstrap

import (
	"context"
	"time"

	"sentinel/pkg/errors"
)

const shutdownTimeout = 30 * time.Second

// Start launches the queue consumers and the worker scheduler. The
// HTTP server is started by the caller because it blocks.
func (c *Container) Start(ctx context.Context) error {
	// Tasks stuck in 'running' from a previous crash go back to the
	// queue before consumers start.
	if c.sqliteBackend != nil {
		n, err := c.sqliteBackend.Requeue(ctx)
		if err != nil {
			return errors.Wrap(err, "requeue interrupted tasks")
		}
		if n > 0 {
			c.Log.Info("Requeued interrupted tasks", "count", n)
		}
	}
	if c.redisBackend != nil {
		n, err := c.redisBackend.Requeue(ctx)
		if err != nil {
			return errors.Wrap(err, "requeue interrupted tasks")
		}
		if n > 0 {
			c.Log.Info("Requeued interrupted tasks", "count", n)
		}
	}

	if err := c.Queue.Start(ctx); err != nil {
		return errors.Wrap(err, "start queue")
	}
	if err := c.Scheduler.Start(ctx); err != nil {
		return errors.Wrap(err, "start scheduler")
	}

	return nil
}

// Shutdown stops components in reverse dependency order: HTTP first so
// no new work arrives, then workers, then queue consumers, then the
// data stores.
func (c *Container) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := c.Server.Shutdown(ctx); err != nil {
		c.Log.Warn("HTTP shutdown failed", "error", err)
	}
	if err := c.Scheduler.Stop(); err != nil {
		c.Log.Warn("Scheduler shutdown failed", "error", err)
	}
	c.Queue.Stop()
	c.Close()

	c.Log.Info("Shutdown complete")
}
