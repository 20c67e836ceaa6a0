// Package scheduler runs the periodic housekeeping jobs of the server.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TempPruner is the part of ticket.TempStore the janitor needs.
type TempPruner interface {
	PruneBefore(day time.Time) (int, error)
	RemoveOlderThan(age time.Duration, now time.Time) (int, error)
}

// TokenPurger deletes expired refresh tokens.
type TokenPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Janitor removes stale ticket files and expired refresh tokens.
type Janitor struct {
	Store     TempPruner
	Tokens    TokenPurger // optional
	Interval  time.Duration
	Retention time.Duration
	Logger    *zap.Logger
	Now       func() time.Time
}

func (j *Janitor) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

// Run sweeps once immediately and then every Interval until ctx is done.
func (j *Janitor) Run(ctx context.Context) error {
	interval := j.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	j.Sweep(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup pass. Failures are logged; the next pass retries.
func (j *Janitor) Sweep(ctx context.Context) {
	logger := j.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := j.now()

	// yesterday's directories and older
	if n, err := j.Store.PruneBefore(now); err != nil {
		logger.Warn("prune temp days", zap.Error(err))
	} else if n > 0 {
		logger.Info("pruned temp days", zap.Int("removed", n))
	}

	retention := j.Retention
	if retention <= 0 {
		retention = time.Hour
	}
	if n, err := j.Store.RemoveOlderThan(retention, now); err != nil {
		logger.Warn("remove expired tickets", zap.Error(err))
	} else if n > 0 {
		logger.Info("removed expired tickets", zap.Int("removed", n))
	}

	if j.Tokens != nil {
		n, err := j.Tokens.PurgeExpired(ctx, now.UTC())
		if err != nil {
			logger.Warn("purge refresh tokens", zap.Error(err))
		} else if n > 0 {
			logger.Info("purged refresh tokens", zap.Int64("removed", n))
		}
	}
}
