package registrations

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/aura-webinar/engagement/internal/apperr"
	"github.com/aura-webinar/engagement/internal/models"
)

type mapLookup struct {
	regs map[uuid.UUID]*models.Registration
	err  error
}

func (m mapLookup) GetByID(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	if m.err != nil {
		return nil, m.err
	}
	reg, ok := m.regs[id]
	if !ok {
		return nil, apperr.NotFound("registration")
	}
	return reg, nil
}

func TestVerifyOwnership(t *testing.T) {
	webinar, other := uuid.New(), uuid.New()
	reg := &models.Registration{ID: uuid.New(), WebinarID: webinar, Email: "Ada@Example.com"}
	lookup := mapLookup{regs: map[uuid.UUID]*models.Registration{reg.ID: reg}}
	ctx := context.Background()

	tests := []struct {
		name         string
		lookup       Lookup
		webinar      uuid.UUID
		registration uuid.UUID
		email        string
		privileged   bool
		check        func(error) bool
	}{
		{"owner", lookup, webinar, reg.ID, "ada@example.com", false, func(err error) bool { return err == nil }},
		{"privileged caller", lookup, webinar, reg.ID, "host@example.com", true, func(err error) bool { return err == nil }},
		{"other webinar", lookup, other, reg.ID, "ada@example.com", true, apperr.IsNotFound},
		{"unknown registration", lookup, webinar, uuid.New(), "ada@example.com", true, apperr.IsNotFound},
		{"other attendee", lookup, webinar, reg.ID, "eve@example.com", false, apperr.IsForbidden},
		{"store down", mapLookup{err: errors.New("conn reset")}, webinar, reg.ID, "ada@example.com", false, apperr.IsUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyOwnership(ctx, tt.lookup, tt.webinar, tt.registration, tt.email, tt.privileged)
			if !tt.check(err) {
				t.Fatalf("err = %v", err)
			}
		})
	}
}
