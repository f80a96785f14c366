// Package scheduler runs the background sweep that purges cancelled
// events after their grace period.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// PurgeStore deletes cancelled events (and their tickets) whose
// cancellation predates the cutoff, returning how many events went.
type PurgeStore interface {
	PurgeCancelledBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Cleanup deletes soft-cancelled events once their grace period expires.
// Cancellation is deliberately two-phase: the cancel endpoint only marks
// the event, and this sweeper does the destructive part later, so a
// mis-click leaves a recovery window.
type Cleanup struct {
	store    PurgeStore
	interval time.Duration
	grace    time.Duration
	log      *zap.Logger
}

func NewCleanup(store PurgeStore, interval, grace time.Duration, log *zap.Logger) *Cleanup {
	if interval <= 0 {
		interval = time.Hour
	}
	if grace < 0 {
		grace = 0
	}
	return &Cleanup{store: store, interval: interval, grace: grace, log: log}
}

// PurgeExpired runs one sweep with the given reference time.
func (c *Cleanup) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	return c.store.PurgeCancelledBefore(ctx, now.Add(-c.grace))
}

// Run sweeps immediately, then on every interval tick until ctx is
// cancelled.  Sweep failures are logged and the loop keeps going.
func (c *Cleanup) Run(ctx context.Context) {
	c.sweep(ctx)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *Cleanup) sweep(ctx context.Context) {
	n, err := c.PurgeExpired(ctx, time.Now().UTC())
	if err != nil {
		c.log.Error("cleanup sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		c.log.Info("cleanup sweep purged cancelled events", zap.Int("events", n))
	}
}
