package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dirtyBatch = 100

// DirtySet holds webinars whose engagement changed since the last sweep.
type DirtySet interface {
	PopDirtyWebinars(ctx context.Context, n int64) ([]uuid.UUID, error)
}

// ActivityLog lists webinars with recent engagement events.
type ActivityLog interface {
	WebinarsWithEventsSince(ctx context.Context, since time.Time) ([]uuid.UUID, error)
}

// Sweeper periodically runs RecalculateForWebinar for webinars with recent engagement so scores
// whose best-effort recalculation was dropped converge.
type Sweeper struct {
	calc     Calculator
	dirty    DirtySet
	activity ActivityLog
	interval time.Duration
	lookback time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewSweeper creates a sweeper. activity may be nil to rely on the dirty set only.
func NewSweeper(calc Calculator, dirty DirtySet, activity ActivityLog, interval, lookback time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		calc:     calc,
		dirty:    dirty,
		activity: activity,
		interval: interval,
		lookback: lookback,
		logger:   logger,
		now:      time.Now,
	}
}

// Run sweeps every interval until ctx is done. A zero interval disables the sweeper.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("score sweep disabled")
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("score sweep stopping")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep recalculates each candidate webinar once and returns how many webinars were swept.
func (s *Sweeper) Sweep(ctx context.Context) int {
	seen := make(map[uuid.UUID]struct{})
	var webinars []uuid.UUID
	add := func(ids []uuid.UUID) {
		for _, id := range ids {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				webinars = append(webinars, id)
			}
		}
	}

	for {
		ids, err := s.dirty.PopDirtyWebinars(ctx, dirtyBatch)
		if err != nil {
			s.logger.Warn("pop dirty webinars failed", zap.Error(err))
			break
		}
		add(ids)
		if len(ids) < dirtyBatch {
			break
		}
	}
	if s.activity != nil {
		ids, err := s.activity.WebinarsWithEventsSince(ctx, s.now().Add(-s.lookback))
		if err != nil {
			s.logger.Warn("list active webinars failed", zap.Error(err))
		}
		add(ids)
	}

	for _, id := range webinars {
		if ctx.Err() != nil {
			break
		}
		n, err := s.calc.RecalculateForWebinar(ctx, id)
		if err != nil {
			s.logger.Warn("webinar sweep incomplete", zap.Error(err), zap.String("webinar_id", id.String()), zap.Int("processed", n))
		}
	}
	if len(webinars) > 0 {
		s.logger.Info("score sweep finished", zap.Int("webinars", len(webinars)))
	}
	return len(webinars)
}
