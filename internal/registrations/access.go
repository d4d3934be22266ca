package registrations

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/aura-webinar/engagement/internal/apperr"
	"github.com/aura-webinar/engagement/internal/models"
)

// Lookup loads a registration by id.
type Lookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
}

// VerifyOwnership checks that registrationID is a registration of webinarID and, unless the
// caller is privileged, that it was made with the caller's email.
// A registration of another webinar is reported as apperr.ErrNotFound.
func VerifyOwnership(ctx context.Context, regs Lookup, webinarID, registrationID uuid.UUID, callerEmail string, privileged bool) (*models.Registration, error) {
	reg, err := regs.GetByID(ctx, registrationID)
	if err != nil {
		return nil, apperr.Unavailable("load registration", err)
	}
	if reg.WebinarID != webinarID {
		return nil, apperr.NotFound("registration for webinar")
	}
	if !privileged && !strings.EqualFold(reg.Email, callerEmail) {
		return nil, apperr.Forbidden("registration belongs to another user")
	}
	return reg, nil
}
