package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/tilawa/backend/internal/metrics"
)

// Sweeper periodically evicts idle sessions.
type Sweeper struct {
	store    Store
	maxAge   time.Duration
	interval time.Duration
	logger   *zap.SugaredLogger
	metrics  *metrics.Metrics
}

// NewSweeper wires a sweeper. Non-positive durations fall back to 60m / 15m.
func NewSweeper(store Store, maxAge, interval time.Duration, logger *zap.SugaredLogger, m *metrics.Metrics) *Sweeper {
	if maxAge <= 0 {
		maxAge = 60 * time.Minute
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Sweeper{store: store, maxAge: maxAge, interval: interval, logger: logger, metrics: m}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep performs a single eviction pass and returns the removed count.
func (s *Sweeper) Sweep() int {
	removed := s.store.EvictOlderThan(s.maxAge)
	remaining := s.store.Len()

	s.metrics.Evicted(removed)
	s.metrics.SetActiveSessions(remaining)

	if removed > 0 {
		s.logger.Infow("evicted idle sessions", "removed", removed, "remaining", remaining, "maxAge", s.maxAge)
	}
	return removed
}
