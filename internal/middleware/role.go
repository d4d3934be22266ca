package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/aura-webinar/engagement/pkg/response"
)

// Platform roles carried in the JWT.
const (
	RoleAdmin    = "admin"
	RoleSpeaker  = "speaker"
	RoleAttendee = "attendee"
)

// RequireRole returns a middleware that allows only the given roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		val, ok := c.Get(ContextUserRole)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		role, _ := val.(string)
		if _, ok := allowed[role]; !ok {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireScoringAccess allows the roles that may read reports and trigger recalculation.
func RequireScoringAccess() gin.HandlerFunc {
	return RequireRole(RoleAdmin, RoleSpeaker)
}

// Caller returns the authenticated caller's email and whether their role may act on any
// registration (admin or speaker).
func Caller(c *gin.Context) (email string, privileged bool) {
	email = c.GetString(ContextUserEmail)
	switch c.GetString(ContextUserRole) {
	case RoleAdmin, RoleSpeaker:
		privileged = true
	}
	return email, privileged
}
