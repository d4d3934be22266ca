package models

import (
	"time"

	"github.com/google/uuid"
)

// Webinar represents a webinar session. OrganizationID is the owning tenant, if any.
type Webinar struct {
	ID             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	StartsAt       time.Time  `json:"starts_at"`
	EndsAt         *time.Time `json:"ends_at,omitempty"`
	CreatedBy      uuid.UUID  `json:"created_by"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
