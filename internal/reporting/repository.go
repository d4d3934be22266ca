package reporting

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/engagement/internal/models"
)

// Repository reads lead scores joined with registrant identity.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a reporting repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Leaderboard returns scored registrants of a webinar ranked by total score.
func (r *Repository) Leaderboard(ctx context.Context, webinarID uuid.UUID, limit, offset int, minScore *int) ([]models.LeaderboardEntry, error) {
	const q = `SELECT ls.id, ls.registration_id, ls.total_score, ls.engagement_score, ls.watch_time_score,
			ls.interaction_score, ls.last_calculated_at,
			r.email, r.full_name, r.attended_at IS NOT NULL, r.watched_replay_at IS NOT NULL, r.created_at
		FROM lead_scores ls
		JOIN registrations r ON r.id = ls.registration_id
		WHERE r.webinar_id = $1 AND ($2::int IS NULL OR ls.total_score >= $2)
		ORDER BY ls.total_score DESC, ls.registration_id ASC
		LIMIT $3 OFFSET $4`
	rows, err := r.pool.Query(ctx, q, webinarID, minScore, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]models.LeaderboardEntry, 0)
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.ID, &e.RegistrationID, &e.TotalScore, &e.EngagementScore, &e.WatchTimeScore,
			&e.InteractionScore, &e.LastCalculatedAt,
			&e.Email, &e.FullName, &e.Attended, &e.WatchedReplay, &e.RegisteredAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// TotalScores returns every scored registrant's total, ascending.
func (r *Repository) TotalScores(ctx context.Context, webinarID uuid.UUID) ([]int, error) {
	const q = `SELECT ls.total_score FROM lead_scores ls
		JOIN registrations r ON r.id = ls.registration_id
		WHERE r.webinar_id = $1 ORDER BY ls.total_score`
	rows, err := r.pool.Query(ctx, q, webinarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	scores := make([]int, 0)
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}
