package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueScoreRecalc is the Redis list key for lead score recalculation jobs.
	QueueScoreRecalc = "worker:score_recalc"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// DirtyWebinarsKey is the Redis set of webinars with engagement not yet covered by a sweep.
	DirtyWebinarsKey = "scoring:dirty_webinars"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeRecalcRegistration JobType = "recalc_registration"
	JobTypeRecalcWebinar      JobType = "recalc_webinar"
)

// RecalcRegistrationPayload is the payload for single-registration recalculation jobs.
type RecalcRegistrationPayload struct {
	WebinarID      uuid.UUID `json:"webinar_id"`
	RegistrationID uuid.UUID `json:"registration_id"`
}

// RecalcWebinarPayload is the payload for whole-webinar recalculation jobs.
type RecalcWebinarPayload struct {
	WebinarID uuid.UUID `json:"webinar_id"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewJob wraps payload in an envelope with a fresh id.
func NewJob(t JobType, payload any) (*Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Job{
		ID:        uuid.New().String(),
		Type:      t,
		Payload:   body,
		CreatedAt: time.Now(),
	}, nil
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueRegistrationRecalc enqueues a recalculation of one registration's lead score.
func (q *Queue) EnqueueRegistrationRecalc(ctx context.Context, payload RecalcRegistrationPayload) error {
	job, err := NewJob(JobTypeRecalcRegistration, payload)
	if err != nil {
		return err
	}
	if err := q.push(ctx, QueueScoreRecalc, job); err != nil {
		return err
	}
	q.logger.Debug("enqueued registration recalc job", zap.String("job_id", job.ID), zap.String("registration_id", payload.RegistrationID.String()))
	return nil
}

// EnqueueWebinarRecalc enqueues a recalculation of every registration of a webinar.
func (q *Queue) EnqueueWebinarRecalc(ctx context.Context, payload RecalcWebinarPayload) error {
	job, err := NewJob(JobTypeRecalcWebinar, payload)
	if err != nil {
		return err
	}
	if err := q.push(ctx, QueueScoreRecalc, job); err != nil {
		return err
	}
	q.logger.Debug("enqueued webinar recalc job", zap.String("job_id", job.ID), zap.String("webinar_id", payload.WebinarID.String()))
	return nil
}

// MarkWebinarDirty adds the webinar to the sweep set.
func (q *Queue) MarkWebinarDirty(ctx context.Context, webinarID uuid.UUID) error {
	if err := q.client.SAdd(ctx, DirtyWebinarsKey, webinarID.String()).Err(); err != nil {
		return fmt.Errorf("sadd: %w", err)
	}
	return nil
}

// PopDirtyWebinars removes and returns up to n webinars from the sweep set.
func (q *Queue) PopDirtyWebinars(ctx context.Context, n int64) ([]uuid.UUID, error) {
	members, err := q.client.SPopN(ctx, DirtyWebinarsKey, n).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("spop: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			q.logger.Warn("invalid dirty webinar id", zap.String("raw", m))
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Dequeue blocks until a job is available or ctx is done. Returns job and key (queue name).
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, string, error) {
	result, err := q.client.BLPop(ctx, timeout, QueueScoreRecalc).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, "", nil
		}
		return nil, "", err
	}
	if len(result) < 2 {
		return nil, "", nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, "", nil
	}
	return &job, result[0], nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	if job.Attempt >= MaxRetries {
		if err := q.push(ctx, QueueDLQ, job); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.push(ctx, QueueScoreRecalc, job); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}

func (q *Queue) push(ctx context.Context, key string, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	return nil
}
