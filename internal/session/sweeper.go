package session

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper runs SweepExpired on a fixed period
type Sweeper struct {
	store    *Store
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a sweeper over the given store
func NewSweeper(store *Store, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until the context is canceled, sweeping on every tick
func (sw *Sweeper) Run(ctx context.Context) {
	sw.logger.Info("Session sweeper started",
		slog.Duration("interval", sw.interval),
	)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sw.logger.Info("Session sweeper stopping - context canceled")
			return
		case <-ticker.C:
			sw.store.SweepExpired()
		}
	}
}
