package engagement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/engagement/internal/apperr"
	"github.com/aura-webinar/engagement/internal/models"
)

// Repository handles engagement_events persistence. Rows are insert-only.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an engagement events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// queryRower is satisfied by both the pool and a transaction.
type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Insert appends an event and fills its id and created_at.
func (r *Repository) Insert(ctx context.Context, e *models.EngagementEvent) error {
	return insertEvent(ctx, r.pool, e)
}

// InsertTx appends an event inside the caller's transaction.
func (r *Repository) InsertTx(ctx context.Context, tx pgx.Tx, e *models.EngagementEvent) error {
	return insertEvent(ctx, tx, e)
}

func insertEvent(ctx context.Context, db queryRower, e *models.EngagementEvent) error {
	const q = `INSERT INTO engagement_events (id, webinar_id, registration_id, event_type, event_data, points_earned)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, created_at`
	err := db.QueryRow(ctx, q, e.WebinarID, e.RegistrationID, string(e.EventType), e.EventData, e.PointsEarned).
		Scan(&e.ID, &e.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return apperr.NotFound("registration for webinar")
	}
	return err
}

// ListByWebinar returns the newest events of a webinar, optionally for one registration.
func (r *Repository) ListByWebinar(ctx context.Context, webinarID uuid.UUID, registrationID *uuid.UUID, limit int) ([]models.EngagementEvent, error) {
	const q = `SELECT id, webinar_id, registration_id, event_type, event_data, points_earned, created_at
		FROM engagement_events
		WHERE webinar_id = $1 AND ($2::uuid IS NULL OR registration_id = $2)
		ORDER BY created_at DESC, id
		LIMIT $3`
	rows, err := r.pool.Query(ctx, q, webinarID, registrationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]models.EngagementEvent, 0)
	for rows.Next() {
		var e models.EngagementEvent
		var eventType string
		if err := rows.Scan(&e.ID, &e.WebinarID, &e.RegistrationID, &eventType, &e.EventData, &e.PointsEarned, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.EventType = models.EventType(eventType)
		list = append(list, e)
	}
	return list, rows.Err()
}

// SumPointsByRegistration returns the all-time points of a registration.
func (r *Repository) SumPointsByRegistration(ctx context.Context, registrationID uuid.UUID) (int, error) {
	const q = `SELECT COALESCE(SUM(points_earned), 0) FROM engagement_events WHERE registration_id = $1`
	var total int
	err := r.pool.QueryRow(ctx, q, registrationID).Scan(&total)
	return total, err
}

// WebinarsWithEventsSince returns webinars that received at least one event after since.
func (r *Repository) WebinarsWithEventsSince(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT webinar_id FROM engagement_events WHERE created_at >= $1`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
