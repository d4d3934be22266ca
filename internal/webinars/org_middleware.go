package webinars

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-webinar/engagement/internal/apperr"
	"github.com/aura-webinar/engagement/internal/middleware"
	"github.com/aura-webinar/engagement/internal/models"
	"github.com/aura-webinar/engagement/pkg/response"
)

// ContextOrganizationID is the context key for organization ID when org access is enforced.
const ContextOrganizationID = "organization_id"

// WebinarLookup loads webinars for access checks.
type WebinarLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error)
	IsAdminOrSpeaker(ctx context.Context, webinarID, userID uuid.UUID) (bool, error)
}

// OrgAccess reports whether a user may manage an organization's data.
type OrgAccess interface {
	UserHasOrgAccess(ctx context.Context, orgID, userID uuid.UUID) (bool, error)
}

// RegistrationWebinars maps a registration to its webinar.
type RegistrationWebinars interface {
	GetWebinarID(ctx context.Context, registrationID uuid.UUID) (uuid.UUID, error)
}

// RequireWebinarOrgAccess validates that the user may read the webinar's scoring data.
// Call after JWT. Webinars with an organization require org membership; webinars without one
// require the user to be its creator or a speaker.
func RequireWebinarOrgAccess(webinars WebinarLookup, orgs OrgAccess) gin.HandlerFunc {
	return func(c *gin.Context) {
		webinarID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid webinar id")
			c.Abort()
			return
		}
		authorize(c, webinars, orgs, webinarID)
	}
}

// RequireRegistrationOrgAccess is RequireWebinarOrgAccess for routes keyed by registration id.
func RequireRegistrationOrgAccess(regs RegistrationWebinars, webinars WebinarLookup, orgs OrgAccess) gin.HandlerFunc {
	return func(c *gin.Context) {
		registrationID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid registration id")
			c.Abort()
			return
		}
		webinarID, err := regs.GetWebinarID(c.Request.Context(), registrationID)
		if err != nil {
			response.Error(c, err, "failed to load registration")
			c.Abort()
			return
		}
		authorize(c, webinars, orgs, webinarID)
	}
}

func authorize(c *gin.Context, webinars WebinarLookup, orgs OrgAccess, webinarID uuid.UUID) {
	ctx := c.Request.Context()
	w, err := webinars.GetByID(ctx, webinarID)
	if err != nil {
		if apperr.IsNotFound(err) {
			response.NotFound(c, "webinar not found")
		} else {
			response.ServiceUnavailable(c, "failed to load webinar")
		}
		c.Abort()
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var ok bool
	if w.OrganizationID == nil {
		ok, _ = webinars.IsAdminOrSpeaker(ctx, webinarID, userID)
	} else {
		ok, _ = orgs.UserHasOrgAccess(ctx, *w.OrganizationID, userID)
	}
	if !ok {
		response.Forbidden(c, "not authorized for this webinar")
		c.Abort()
		return
	}
	if w.OrganizationID != nil {
		c.Set(ContextOrganizationID, *w.OrganizationID)
	}
	c.Next()
}
