// Package worker runs lead score recalculation jobs off the request path.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/engagement/internal/apperr"
	"github.com/aura-webinar/engagement/internal/models"
	"github.com/aura-webinar/engagement/pkg/queue"
)

const dequeueTimeout = 5 * time.Second

// Calculator is the lead score engine the worker drives.
type Calculator interface {
	Calculate(ctx context.Context, registrationID uuid.UUID) (*models.LeadScore, error)
	RecalculateForWebinar(ctx context.Context, webinarID uuid.UUID) (int, error)
}

// JobSource is the queue the worker consumes.
type JobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// RecalcProcessor processes lead score recalculation jobs.
type RecalcProcessor struct {
	calc    Calculator
	queue   JobSource
	backoff time.Duration
	logger  *zap.Logger
}

// NewRecalcProcessor creates a recalculation job processor.
func NewRecalcProcessor(calc Calculator, q JobSource, logger *zap.Logger) *RecalcProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecalcProcessor{calc: calc, queue: q, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one job. A registration that no longer exists is dropped without retry.
func (p *RecalcProcessor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeRecalcRegistration:
		var payload queue.RecalcRegistrationPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		if _, err := p.calc.Calculate(ctx, payload.RegistrationID); err != nil {
			if apperr.IsNotFound(err) {
				p.logger.Info("dropping recalc job for missing registration",
					zap.String("job_id", job.ID),
					zap.String("registration_id", payload.RegistrationID.String()),
				)
				return nil
			}
			return err
		}
		return nil

	case queue.JobTypeRecalcWebinar:
		var payload queue.RecalcWebinarPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		_, err := p.calc.RecalculateForWebinar(ctx, payload.WebinarID)
		return err

	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *RecalcProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("recalc worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			sleep(ctx, p.backoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			sleep(ctx, p.backoff)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
