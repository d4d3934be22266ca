package organizations

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-webinar/engagement/internal/middleware"
	"github.com/aura-webinar/engagement/pkg/response"
)

// AccessChecker reports whether a user may manage an organization.
type AccessChecker interface {
	UserHasOrgAccess(ctx context.Context, orgID, userID uuid.UUID) (bool, error)
}

// RequireOrgAccess guards routes keyed by organization id (:id). Call after JWT.
func RequireOrgAccess(orgs AccessChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid organization id")
			c.Abort()
			return
		}
		userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
		ok, err := orgs.UserHasOrgAccess(c.Request.Context(), orgID, userID)
		if err != nil {
			response.ServiceUnavailable(c, "failed to check organization access")
			c.Abort()
			return
		}
		if !ok {
			response.Forbidden(c, "not authorized for this organization")
			c.Abort()
			return
		}
		c.Next()
	}
}
