package leadscore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/engagement/internal/metrics"
	"github.com/aura-webinar/engagement/pkg/queue"
)

const enqueueTimeout = 2 * time.Second

// JobQueue hands recalculation work to the background worker.
type JobQueue interface {
	EnqueueRegistrationRecalc(ctx context.Context, payload queue.RecalcRegistrationPayload) error
	MarkWebinarDirty(ctx context.Context, webinarID uuid.UUID) error
}

// Scheduler requests best-effort recalculation after engagement is recorded.
// It never reports failure to the caller; the periodic sweep repairs scores it missed.
type Scheduler struct {
	jobs   JobQueue
	logger *zap.Logger
}

// NewScheduler creates a scheduler backed by the job queue.
func NewScheduler(jobs JobQueue, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{jobs: jobs, logger: logger}
}

// Trigger enqueues a recalculation for the registration and marks the webinar for the sweep.
// It detaches from the request context so a client disconnect does not drop the job.
func (s *Scheduler) Trigger(ctx context.Context, webinarID, registrationID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), enqueueTimeout)
	defer cancel()

	if err := s.jobs.MarkWebinarDirty(ctx, webinarID); err != nil {
		s.logger.Warn("mark webinar dirty failed", zap.Error(err), zap.String("webinar_id", webinarID.String()))
	}
	err := s.jobs.EnqueueRegistrationRecalc(ctx, queue.RecalcRegistrationPayload{
		WebinarID:      webinarID,
		RegistrationID: registrationID,
	})
	if err != nil {
		metrics.RecalcJobsEnqueued.WithLabelValues("dropped").Inc()
		s.logger.Warn("enqueue lead score recalculation failed", zap.Error(err),
			zap.String("webinar_id", webinarID.String()),
			zap.String("registration_id", registrationID.String()),
		)
		return
	}
	metrics.RecalcJobsEnqueued.WithLabelValues("ok").Inc()
}
