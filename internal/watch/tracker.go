// Package watch tracks per-viewer watch sessions and detects progress milestones.
package watch

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/engagement/internal/apperr"
	"github.com/aura-webinar/engagement/internal/metrics"
	"github.com/aura-webinar/engagement/internal/models"
)

// Store persists watch sessions.
type Store interface {
	// GetOpen returns the open session for the pair, or nil.
	GetOpen(ctx context.Context, webinarID, registrationID uuid.UUID) (*models.WatchSession, error)
	// CreateOpen inserts an open session; if one already exists for the pair it is returned
	// with created=false.
	CreateOpen(ctx context.Context, webinarID, registrationID uuid.UUID) (s *models.WatchSession, created bool, err error)
	// Get returns a session by id. Unknown ids are apperr.ErrNotFound.
	Get(ctx context.Context, sessionID uuid.UUID) (*models.WatchSession, error)
	// Update loads the session under an exclusive per-session lock, applies fn and persists the
	// result together with the events fn returns, atomically, before releasing the lock.
	// Unknown ids are apperr.ErrNotFound.
	Update(ctx context.Context, sessionID uuid.UUID, fn func(s *models.WatchSession) ([]*models.EngagementEvent, error)) (*models.WatchSession, error)
	// End stamps session_end (keeping an earlier end if already set). Unknown ids are apperr.ErrNotFound.
	End(ctx context.Context, sessionID uuid.UUID) (*models.WatchSession, error)
}

// MilestonePricer builds priced watch_milestone events for the store to insert and is told
// once they are committed.
type MilestonePricer interface {
	MilestoneEvents(ctx context.Context, webinarID, registrationID uuid.UUID, milestones []int) ([]*models.EngagementEvent, error)
	Recorded(events ...*models.EngagementEvent)
}

// ProgressResult is the outcome of one progress report.
type ProgressResult struct {
	Session       *models.WatchSession `json:"session"`
	NewMilestones []int                `json:"new_milestones"`
}

// Tracker owns the lifecycle of watch sessions.
type Tracker struct {
	store      Store
	milestones MilestonePricer
	logger     *zap.Logger
}

// NewTracker creates a watch session tracker.
func NewTracker(store Store, milestones MilestonePricer, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{store: store, milestones: milestones, logger: logger}
}

// GetOrCreate returns the open session for the pair, creating one if none is open.
// Repeated calls without an intervening End return the same session.
func (t *Tracker) GetOrCreate(ctx context.Context, webinarID, registrationID uuid.UUID) (*models.WatchSession, error) {
	s, err := t.store.GetOpen(ctx, webinarID, registrationID)
	if err != nil {
		return nil, apperr.Unavailable("get open watch session", err)
	}
	if s != nil {
		return s, nil
	}
	s, created, err := t.store.CreateOpen(ctx, webinarID, registrationID)
	if err != nil {
		return nil, apperr.Unavailable("create watch session", err)
	}
	if created {
		metrics.WatchSessionsStarted.Inc()
		t.logger.Debug("watch session started",
			zap.String("session_id", s.ID.String()),
			zap.String("webinar_id", webinarID.String()),
			zap.String("registration_id", registrationID.String()),
		)
	}
	return s, nil
}

// Start is GetOrCreate; it resumes the open session after a reconnect.
func (t *Tracker) Start(ctx context.Context, webinarID, registrationID uuid.UUID) (*models.WatchSession, error) {
	return t.GetOrCreate(ctx, webinarID, registrationID)
}

// Progress applies a playback position report. Milestones crossed for the first time are
// committed together with their watch_milestone events and the watch seconds under the session
// lock, so a failed write leaves them unreached and a retry detects them again.
func (t *Tracker) Progress(ctx context.Context, sessionID uuid.UUID, currentSeconds, totalDurationSeconds float64) (*ProgressResult, error) {
	if currentSeconds < 0 || currentSeconds > MaxSeconds || math.IsNaN(currentSeconds) {
		return nil, apperr.Invalid("current_seconds must be between 0 and %d", MaxSeconds)
	}
	if totalDurationSeconds > MaxSeconds || math.IsNaN(totalDurationSeconds) || math.IsInf(totalDurationSeconds, 0) {
		return nil, apperr.Invalid("total_duration_seconds must be a finite number up to %d", MaxSeconds)
	}
	percentage := Percentage(currentSeconds, totalDurationSeconds)
	watched := int64(math.Floor(currentSeconds))

	// Price candidates before taking the lock. Milestones only grow, so the set found under the
	// lock is a subset of these.
	current, err := t.store.Get(ctx, sessionID)
	if err != nil {
		return nil, apperr.Unavailable("load watch session", err)
	}
	if !current.Open() {
		return nil, apperr.Invalid("watch session %s already ended", current.ID)
	}
	priced := make(map[int]*models.EngagementEvent)
	if candidates := NewMilestones(current.MilestonesReached, percentage); len(candidates) > 0 {
		events, err := t.milestones.MilestoneEvents(ctx, current.WebinarID, current.RegistrationID, candidates)
		if err != nil {
			return nil, apperr.Unavailable("price watch milestones", err)
		}
		for i, m := range candidates {
			priced[m] = events[i]
		}
	}

	var newly []int
	var events []*models.EngagementEvent
	s, err := t.store.Update(ctx, sessionID, func(s *models.WatchSession) ([]*models.EngagementEvent, error) {
		if !s.Open() {
			return nil, apperr.Invalid("watch session %s already ended", s.ID)
		}
		newly = NewMilestones(s.MilestonesReached, percentage)
		events = events[:0]
		for _, m := range newly {
			ev, ok := priced[m]
			if !ok {
				return nil, fmt.Errorf("milestone %d reached without a priced event", m)
			}
			events = append(events, ev)
		}
		s.MilestonesReached = MergeMilestones(s.MilestonesReached, newly)
		if watched > s.TotalWatchSeconds {
			s.TotalWatchSeconds = watched
		}
		return events, nil
	})
	if err != nil {
		if len(newly) > 0 {
			t.logger.Error("watch progress with milestones not committed", zap.Error(err),
				zap.String("session_id", sessionID.String()),
				zap.Ints("milestones", newly),
			)
		}
		return nil, apperr.Unavailable("update watch session", err)
	}

	for _, m := range newly {
		metrics.WatchMilestonesReached.WithLabelValues(strconv.Itoa(m)).Inc()
	}
	t.milestones.Recorded(events...)
	return &ProgressResult{Session: s, NewMilestones: newly}, nil
}

// End closes the session.
func (t *Tracker) End(ctx context.Context, sessionID uuid.UUID) (*models.WatchSession, error) {
	s, err := t.store.End(ctx, sessionID)
	if err != nil {
		return nil, apperr.Unavailable("end watch session", err)
	}
	t.logger.Debug("watch session ended",
		zap.String("session_id", s.ID.String()),
		zap.Int64("total_watch_seconds", s.TotalWatchSeconds),
	)
	return s, nil
}
