package models

import (
	"time"

	"github.com/google/uuid"
)

// LeadScore is the current score snapshot of one registration.
// TotalScore always equals EngagementScore + WatchTimeScore + InteractionScore.
type LeadScore struct {
	ID               uuid.UUID `json:"id"`
	RegistrationID   uuid.UUID `json:"registration_id"`
	TotalScore       int       `json:"total_score"`
	EngagementScore  int       `json:"engagement_score"`
	WatchTimeScore   int       `json:"watch_time_score"`
	InteractionScore int       `json:"interaction_score"`
	LastCalculatedAt time.Time `json:"last_calculated_at"`
}

// LeaderboardEntry is a lead score joined with the registrant's identity.
type LeaderboardEntry struct {
	LeadScore
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	Attended      bool      `json:"attended"`
	WatchedReplay bool      `json:"watched_replay"`
	RegisteredAt  time.Time `json:"registered_at"`
}
