package scoring

import (
	"context"

	"github.com/google/uuid"

	"github.com/aura-webinar/engagement/internal/apperr"
	"github.com/aura-webinar/engagement/internal/models"
)

// Store reads a tenant's scoring overrides. It returns (nil, nil) when the tenant has none.
type Store interface {
	GetByTenant(ctx context.Context, tenantID uuid.UUID) (*models.ScoringConfig, error)
}

// Resolver produces the effective point table for a tenant.
type Resolver struct {
	store Store
}

// NewResolver creates a resolver backed by store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the tenant's overrides merged with Defaults.
// A missing config row and uuid.Nil (webinar without a tenant) both resolve to Defaults.
func (r *Resolver) Resolve(ctx context.Context, tenantID uuid.UUID) (PointTable, error) {
	if tenantID == uuid.Nil {
		return Defaults, nil
	}
	cfg, err := r.store.GetByTenant(ctx, tenantID)
	if err != nil {
		return PointTable{}, apperr.Unavailable("load scoring config", err)
	}
	return Merge(cfg), nil
}
