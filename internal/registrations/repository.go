package registrations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/engagement/internal/apperr"
	"github.com/aura-webinar/engagement/internal/models"
)

// Repository reads registrations and records attendance.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns a registration by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	const q = `SELECT id, webinar_id, email, full_name, attended_at, watched_replay_at, created_at, updated_at
		FROM registrations WHERE id = $1`
	var reg models.Registration
	err := r.pool.QueryRow(ctx, q, id).Scan(&reg.ID, &reg.WebinarID, &reg.Email, &reg.FullName,
		&reg.AttendedAt, &reg.WatchedReplayAt, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("registration")
		}
		return nil, err
	}
	return &reg, nil
}

// GetWebinarID returns the webinar a registration belongs to.
func (r *Repository) GetWebinarID(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var webinarID uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT webinar_id FROM registrations WHERE id = $1`, id).Scan(&webinarID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, apperr.NotFound("registration")
	}
	return webinarID, err
}

// GetAttendanceFlags returns whether the registrant attended live and watched the replay.
func (r *Repository) GetAttendanceFlags(ctx context.Context, id uuid.UUID) (models.AttendanceFlags, error) {
	const q = `SELECT attended_at IS NOT NULL, watched_replay_at IS NOT NULL FROM registrations WHERE id = $1`
	var f models.AttendanceFlags
	err := r.pool.QueryRow(ctx, q, id).Scan(&f.Attended, &f.WatchedReplay)
	if errors.Is(err, pgx.ErrNoRows) {
		return f, apperr.NotFound("registration")
	}
	return f, err
}

// ListIDsByWebinar returns the ids of every registration of a webinar, oldest first.
func (r *Repository) ListIDsByWebinar(ctx context.Context, webinarID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM registrations WHERE webinar_id = $1 ORDER BY created_at, id`, webinarID)
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

// MarkAttended sets attended_at for a registration.
func (r *Repository) MarkAttended(ctx context.Context, registrationID uuid.UUID) error {
	const q = `UPDATE registrations SET attended_at = NOW(), updated_at = NOW() WHERE id = $1 AND attended_at IS NULL`
	_, err := r.pool.Exec(ctx, q, registrationID)
	return err
}

// MarkWatchedReplay sets watched_replay_at for a registration.
func (r *Repository) MarkWatchedReplay(ctx context.Context, registrationID uuid.UUID) error {
	const q = `UPDATE registrations SET watched_replay_at = NOW(), updated_at = NOW() WHERE id = $1 AND watched_replay_at IS NULL`
	_, err := r.pool.Exec(ctx, q, registrationID)
	return err
}
