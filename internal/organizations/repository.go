package organizations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/engagement/internal/models"
)

// Repository reads organization membership.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an organizations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetUserRole returns the user's role in the organization, or empty if not a member.
func (r *Repository) GetUserRole(ctx context.Context, orgID, userID uuid.UUID) (string, error) {
	const q = `SELECT role FROM organization_users WHERE organization_id = $1 AND user_id = $2`
	var role string
	err := r.pool.QueryRow(ctx, q, orgID, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return role, err
}

// UserHasOrgAccess returns true if user is owner, event_manager, or moderator in the org.
func (r *Repository) UserHasOrgAccess(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	role, err := r.GetUserRole(ctx, orgID, userID)
	if err != nil {
		return false, err
	}
	return CanManageScoring(role), nil
}

// CanManageScoring reports whether an organization role may read and configure lead scoring.
func CanManageScoring(role string) bool {
	return role == models.OrgRoleOwner || role == models.OrgRoleEventManager || role == models.OrgRoleModerator
}
