package models

import (
	"time"

	"github.com/google/uuid"
)

// Registration is an attendee registration for a webinar.
type Registration struct {
	ID              uuid.UUID  `json:"id"`
	WebinarID       uuid.UUID  `json:"webinar_id"`
	Email           string     `json:"email"`
	FullName        string     `json:"full_name"`
	AttendedAt      *time.Time `json:"attended_at,omitempty"`
	WatchedReplayAt *time.Time `json:"watched_replay_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// AttendanceFlags are the registration facts the interaction score is derived from.
type AttendanceFlags struct {
	Attended      bool `json:"attended"`
	WatchedReplay bool `json:"watched_replay"`
}
