package watch

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/engagement/internal/apperr"
	"github.com/aura-webinar/engagement/internal/models"
)

// EventWriter inserts engagement events inside a transaction.
type EventWriter interface {
	InsertTx(ctx context.Context, tx pgx.Tx, e *models.EngagementEvent) error
}

// Repository handles watch_sessions persistence.
type Repository struct {
	pool   *pgxpool.Pool
	events EventWriter
}

// NewRepository creates a watch session repository. Milestone events returned by Update
// callbacks are written through events.
func NewRepository(pool *pgxpool.Pool, events EventWriter) *Repository {
	return &Repository{pool: pool, events: events}
}

const sessionColumns = `id, webinar_id, registration_id, session_start, session_end, total_watch_seconds, milestones_reached, created_at, updated_at`

// foreignKeyViolation is the Postgres SQLSTATE for an unknown webinar or registration reference.
const foreignKeyViolation = "23503"

func scanSession(row pgx.Row) (*models.WatchSession, error) {
	var s models.WatchSession
	var milestones []int32
	if err := row.Scan(&s.ID, &s.WebinarID, &s.RegistrationID, &s.SessionStart, &s.SessionEnd,
		&s.TotalWatchSeconds, &milestones, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.MilestonesReached = make([]int, len(milestones))
	for i, m := range milestones {
		s.MilestonesReached[i] = int(m)
	}
	return &s, nil
}

func milestoneArray(ms []int) []int32 {
	out := make([]int32, len(ms))
	for i, m := range ms {
		out[i] = int32(m)
	}
	return out
}

// GetOpen returns the open session for the pair, or nil when none is open.
func (r *Repository) GetOpen(ctx context.Context, webinarID, registrationID uuid.UUID) (*models.WatchSession, error) {
	q := `SELECT ` + sessionColumns + ` FROM watch_sessions
		WHERE webinar_id = $1 AND registration_id = $2 AND session_end IS NULL`
	s, err := scanSession(r.pool.QueryRow(ctx, q, webinarID, registrationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// CreateOpen inserts an open session. The partial unique index on open sessions turns a
// concurrent duplicate start into a read of the winner's row.
func (r *Repository) CreateOpen(ctx context.Context, webinarID, registrationID uuid.UUID) (*models.WatchSession, bool, error) {
	q := `INSERT INTO watch_sessions (id, webinar_id, registration_id, session_start, total_watch_seconds, milestones_reached)
		VALUES (gen_random_uuid(), $1, $2, NOW(), 0, '{}')
		ON CONFLICT (webinar_id, registration_id) WHERE session_end IS NULL DO NOTHING
		RETURNING ` + sessionColumns
	s, err := scanSession(r.pool.QueryRow(ctx, q, webinarID, registrationID))
	if err == nil {
		return s, true, nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return nil, false, apperr.NotFound("webinar registration")
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}
	s, err = r.GetOpen(ctx, webinarID, registrationID)
	if err != nil {
		return nil, false, err
	}
	if s == nil {
		return nil, false, fmt.Errorf("open session for registration %s vanished after conflict", registrationID)
	}
	return s, false, nil
}

// Get returns a session by ID.
func (r *Repository) Get(ctx context.Context, sessionID uuid.UUID) (*models.WatchSession, error) {
	q := `SELECT ` + sessionColumns + ` FROM watch_sessions WHERE id = $1`
	s, err := scanSession(r.pool.QueryRow(ctx, q, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("watch session")
	}
	return s, err
}

// Update runs fn on the session while holding its row lock (SELECT ... FOR UPDATE), so
// overlapping progress reports for one session are applied one after another. Events returned
// by fn are inserted in the same transaction: either the session and its events commit or neither does.
func (r *Repository) Update(ctx context.Context, sessionID uuid.UUID, fn func(s *models.WatchSession) ([]*models.EngagementEvent, error)) (*models.WatchSession, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	q := `SELECT ` + sessionColumns + ` FROM watch_sessions WHERE id = $1 FOR UPDATE`
	s, err := scanSession(tx.QueryRow(ctx, q, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("watch session")
		}
		return nil, err
	}
	events, err := fn(s)
	if err != nil {
		return nil, err
	}
	const upd = `UPDATE watch_sessions SET total_watch_seconds = $1, milestones_reached = $2, updated_at = NOW()
		WHERE id = $3 RETURNING updated_at`
	if err := tx.QueryRow(ctx, upd, s.TotalWatchSeconds, milestoneArray(s.MilestonesReached), s.ID).Scan(&s.UpdatedAt); err != nil {
		return nil, err
	}
	for _, e := range events {
		if err := r.events.InsertTx(ctx, tx, e); err != nil {
			return nil, fmt.Errorf("insert milestone event: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s, nil
}

// End stamps session_end. An already-ended session keeps its first end time.
func (r *Repository) End(ctx context.Context, sessionID uuid.UUID) (*models.WatchSession, error) {
	q := `UPDATE watch_sessions SET session_end = COALESCE(session_end, NOW()), updated_at = NOW()
		WHERE id = $1 RETURNING ` + sessionColumns
	s, err := scanSession(r.pool.QueryRow(ctx, q, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("watch session")
	}
	return s, err
}

// SumWatchSecondsByRegistration returns the watch seconds of every session of a registration.
// Overlapping sessions are counted independently.
func (r *Repository) SumWatchSecondsByRegistration(ctx context.Context, registrationID uuid.UUID) (int64, error) {
	const q = `SELECT COALESCE(SUM(total_watch_seconds), 0)::BIGINT FROM watch_sessions WHERE registration_id = $1`
	var total int64
	err := r.pool.QueryRow(ctx, q, registrationID).Scan(&total)
	return total, err
}

// ListByWebinar returns the sessions of a webinar, newest first (attendee view).
func (r *Repository) ListByWebinar(ctx context.Context, webinarID uuid.UUID) ([]models.WatchSession, error) {
	q := `SELECT ` + sessionColumns + ` FROM watch_sessions WHERE webinar_id = $1 ORDER BY session_start DESC`
	rows, err := r.pool.Query(ctx, q, webinarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]models.WatchSession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}
