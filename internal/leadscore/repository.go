package leadscore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/engagement/internal/apperr"
	"github.com/aura-webinar/engagement/internal/models"
)

// Repository handles lead score persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a lead score repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert writes the score keyed by registration_id, overwriting an existing row.
func (r *Repository) Upsert(ctx context.Context, s *models.LeadScore) error {
	const q = `INSERT INTO lead_scores (id, registration_id, total_score, engagement_score, watch_time_score, interaction_score, last_calculated_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
		ON CONFLICT (registration_id) DO UPDATE SET
			total_score = EXCLUDED.total_score,
			engagement_score = EXCLUDED.engagement_score,
			watch_time_score = EXCLUDED.watch_time_score,
			interaction_score = EXCLUDED.interaction_score,
			last_calculated_at = EXCLUDED.last_calculated_at
		RETURNING id`
	return r.pool.QueryRow(ctx, q, s.RegistrationID, s.TotalScore, s.EngagementScore, s.WatchTimeScore,
		s.InteractionScore, s.LastCalculatedAt).Scan(&s.ID)
}

// GetByRegistration returns the score of a registration.
func (r *Repository) GetByRegistration(ctx context.Context, registrationID uuid.UUID) (*models.LeadScore, error) {
	const q = `SELECT id, registration_id, total_score, engagement_score, watch_time_score, interaction_score, last_calculated_at
		FROM lead_scores WHERE registration_id = $1`
	var s models.LeadScore
	err := r.pool.QueryRow(ctx, q, registrationID).Scan(&s.ID, &s.RegistrationID, &s.TotalScore,
		&s.EngagementScore, &s.WatchTimeScore, &s.InteractionScore, &s.LastCalculatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("lead score")
		}
		return nil, err
	}
	return &s, nil
}
