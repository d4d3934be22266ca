package webinars

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/engagement/internal/apperr"
	"github.com/aura-webinar/engagement/internal/models"
)

// Repository reads webinars owned by the platform's webinar service.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a webinar repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns a webinar by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error) {
	const q = `SELECT id, title, starts_at, ends_at, created_by, organization_id, created_at, updated_at
		FROM webinars WHERE id = $1`
	var w models.Webinar
	err := r.pool.QueryRow(ctx, q, id).Scan(&w.ID, &w.Title, &w.StartsAt, &w.EndsAt, &w.CreatedBy, &w.OrganizationID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("webinar")
		}
		return nil, err
	}
	return &w, nil
}

// GetTenantID returns the webinar's organization, or uuid.Nil when it has none.
func (r *Repository) GetTenantID(ctx context.Context, webinarID uuid.UUID) (uuid.UUID, error) {
	const q = `SELECT organization_id FROM webinars WHERE id = $1`
	var orgID *uuid.UUID
	if err := r.pool.QueryRow(ctx, q, webinarID).Scan(&orgID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, apperr.NotFound("webinar")
		}
		return uuid.Nil, err
	}
	if orgID == nil {
		return uuid.Nil, nil
	}
	return *orgID, nil
}

// IsAdminOrSpeaker returns true if the user created the webinar or is a speaker.
func (r *Repository) IsAdminOrSpeaker(ctx context.Context, webinarID, userID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM webinars WHERE id = $1 AND created_by = $2
		UNION ALL
		SELECT 1 FROM webinar_speakers WHERE webinar_id = $1 AND user_id = $2)`
	var ok bool
	err := r.pool.QueryRow(ctx, q, webinarID, userID).Scan(&ok)
	return ok, err
}
