package scoring

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/engagement/internal/models"
)

// Repository handles scoring_configs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a scoring config repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const configColumns = `tenant_id, chat_message, qa_submit, qa_upvote, poll_response, reaction, cta_click,
	milestone_25, milestone_50, milestone_75, milestone_100, created_at, updated_at`

// GetByTenant returns the tenant's overrides, or nil when none were ever written.
func (r *Repository) GetByTenant(ctx context.Context, tenantID uuid.UUID) (*models.ScoringConfig, error) {
	q := `SELECT ` + configColumns + ` FROM scoring_configs WHERE tenant_id = $1`
	var c models.ScoringConfig
	err := r.pool.QueryRow(ctx, q, tenantID).Scan(
		&c.TenantID, &c.ChatMessage, &c.QASubmit, &c.QAUpvote, &c.PollResponse, &c.Reaction, &c.CTAClick,
		&c.Milestone25, &c.Milestone50, &c.Milestone75, &c.Milestone100, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// Upsert writes the tenant's overrides, replacing any previous row.
func (r *Repository) Upsert(ctx context.Context, c *models.ScoringConfig) error {
	q := `INSERT INTO scoring_configs (tenant_id, chat_message, qa_submit, qa_upvote, poll_response, reaction, cta_click,
		milestone_25, milestone_50, milestone_75, milestone_100)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (tenant_id) DO UPDATE SET
			chat_message = EXCLUDED.chat_message, qa_submit = EXCLUDED.qa_submit, qa_upvote = EXCLUDED.qa_upvote,
			poll_response = EXCLUDED.poll_response, reaction = EXCLUDED.reaction, cta_click = EXCLUDED.cta_click,
			milestone_25 = EXCLUDED.milestone_25, milestone_50 = EXCLUDED.milestone_50,
			milestone_75 = EXCLUDED.milestone_75, milestone_100 = EXCLUDED.milestone_100, updated_at = NOW()
		RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, q, c.TenantID, c.ChatMessage, c.QASubmit, c.QAUpvote, c.PollResponse, c.Reaction, c.CTAClick,
		c.Milestone25, c.Milestone50, c.Milestone75, c.Milestone100).Scan(&c.CreatedAt, &c.UpdatedAt)
}
