// Package leadscore computes and persists per-registration lead scores.
package leadscore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aura-webinar/engagement/internal/apperr"
	"github.com/aura-webinar/engagement/internal/metrics"
	"github.com/aura-webinar/engagement/internal/models"
)

const (
	attendedBonus      = 10
	watchedReplayBonus = 5
)

// EventTotals sums frozen engagement points.
type EventTotals interface {
	SumPointsByRegistration(ctx context.Context, registrationID uuid.UUID) (int, error)
}

// WatchTotals sums watch seconds across sessions.
type WatchTotals interface {
	SumWatchSecondsByRegistration(ctx context.Context, registrationID uuid.UUID) (int64, error)
}

// Registrations is the registration store contract the calculator consumes.
type Registrations interface {
	// GetAttendanceFlags returns apperr.ErrNotFound for an unknown registration.
	GetAttendanceFlags(ctx context.Context, registrationID uuid.UUID) (models.AttendanceFlags, error)
	ListIDsByWebinar(ctx context.Context, webinarID uuid.UUID) ([]uuid.UUID, error)
}

// Store persists lead scores.
type Store interface {
	Upsert(ctx context.Context, s *models.LeadScore) error
	GetByRegistration(ctx context.Context, registrationID uuid.UUID) (*models.LeadScore, error)
}

// Compute derives the score components. total = engagement + watch time + interaction.
func Compute(points int, watchSeconds int64, flags models.AttendanceFlags) models.LeadScore {
	s := models.LeadScore{
		EngagementScore: points,
		WatchTimeScore:  int(watchSeconds / 60),
	}
	if flags.Attended {
		s.InteractionScore += attendedBonus
	}
	if flags.WatchedReplay {
		s.InteractionScore += watchedReplayBonus
	}
	s.TotalScore = s.EngagementScore + s.WatchTimeScore + s.InteractionScore
	return s
}

// Calculator recomputes lead scores from the full event and session history.
type Calculator struct {
	events        EventTotals
	watch         WatchTotals
	registrations Registrations
	store         Store
	concurrency   int
	logger        *zap.Logger
	now           func() time.Time
}

// NewCalculator creates a calculator. concurrency bounds RecalculateForWebinar fan-out; 1 is sequential.
func NewCalculator(events EventTotals, watch WatchTotals, registrations Registrations, store Store, concurrency int, logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Calculator{
		events:        events,
		watch:         watch,
		registrations: registrations,
		store:         store,
		concurrency:   concurrency,
		logger:        logger,
		now:           time.Now,
	}
}

// Calculate recomputes and upserts the lead score of one registration.
func (c *Calculator) Calculate(ctx context.Context, registrationID uuid.UUID) (*models.LeadScore, error) {
	start := time.Now()
	s, err := c.calculate(ctx, registrationID)
	metrics.LeadScoreCalculationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LeadScoreCalculations.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.LeadScoreCalculations.WithLabelValues("ok").Inc()
	return s, nil
}

func (c *Calculator) calculate(ctx context.Context, registrationID uuid.UUID) (*models.LeadScore, error) {
	flags, err := c.registrations.GetAttendanceFlags(ctx, registrationID)
	if err != nil {
		return nil, apperr.Unavailable("load attendance flags", err)
	}
	points, err := c.events.SumPointsByRegistration(ctx, registrationID)
	if err != nil {
		return nil, apperr.Unavailable("sum engagement points", err)
	}
	seconds, err := c.watch.SumWatchSecondsByRegistration(ctx, registrationID)
	if err != nil {
		return nil, apperr.Unavailable("sum watch seconds", err)
	}

	s := Compute(points, seconds, flags)
	s.RegistrationID = registrationID
	s.LastCalculatedAt = c.now().UTC()
	if err := c.store.Upsert(ctx, &s); err != nil {
		return nil, apperr.Unavailable("upsert lead score", err)
	}
	c.logger.Debug("lead score calculated",
		zap.String("registration_id", registrationID.String()),
		zap.Int("total_score", s.TotalScore),
	)
	return &s, nil
}

// Get returns the stored lead score, or apperr.ErrNotFound if it was never calculated.
func (c *Calculator) Get(ctx context.Context, registrationID uuid.UUID) (*models.LeadScore, error) {
	s, err := c.store.GetByRegistration(ctx, registrationID)
	if err != nil {
		return nil, apperr.Unavailable("get lead score", err)
	}
	return s, nil
}

// RecalculateForWebinar recalculates every registration of the webinar, each independently.
// A failed registration does not stop the others; it returns the number of successful
// calculations and the joined failures.
func (c *Calculator) RecalculateForWebinar(ctx context.Context, webinarID uuid.UUID) (int, error) {
	ids, err := c.registrations.ListIDsByWebinar(ctx, webinarID)
	if err != nil {
		return 0, apperr.Unavailable("list registrations", err)
	}

	var (
		processed atomic.Int64
		mu        sync.Mutex
		errs      []error
	)
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		id := id
		g.Go(func() error {
			if _, err := c.Calculate(ctx, id); err != nil {
				c.logger.Warn("recalculate lead score failed", zap.Error(err),
					zap.String("webinar_id", webinarID.String()),
					zap.String("registration_id", id.String()),
				)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			processed.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}

	n := int(processed.Load())
	c.logger.Info("webinar lead scores recalculated",
		zap.String("webinar_id", webinarID.String()),
		zap.Int("registrations", len(ids)),
		zap.Int("processed", n),
		zap.Int("failed", len(errs)),
	)
	return n, errors.Join(errs...)
}
