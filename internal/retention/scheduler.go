package retention

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Pruner deletes archived sessions that ended before a cutoff.
type Pruner interface {
	DeleteOldSessions(ctx context.Context, before time.Time) (int64, error)
}

// Scheduler prunes the session archive once at startup, then at every UTC midnight.
type Scheduler struct {
	Pruner Pruner
	MaxAge time.Duration
	Logger *zap.Logger

	// Now is overridable in tests
	Now func() time.Time
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	// Run immediately once at startup
	s.RunOnce(ctx)

	// Wait until next UTC midnight
	timer := time.NewTimer(UntilNextMidnight(s.now()))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	// Then run once every 24 hours
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		s.RunOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce deletes sessions older than MaxAge and returns how many were removed.
func (s *Scheduler) RunOnce(ctx context.Context) int64 {
	cutoff := s.now().Add(-s.MaxAge)

	deleted, err := s.Pruner.DeleteOldSessions(ctx, cutoff)
	if err != nil {
		s.Logger.Warn("failed to prune session archive", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0
	}

	s.Logger.Info("pruned session archive", zap.Time("cutoff", cutoff), zap.Int64("deleted", deleted))
	return deleted
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// UntilNextMidnight returns the wait from now to the next 00:00 UTC.
func UntilNextMidnight(now time.Time) time.Duration {
	now = now.UTC()
	next := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	return next.Sub(now)
}
