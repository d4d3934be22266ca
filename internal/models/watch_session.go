package models

import (
	"time"

	"github.com/google/uuid"
)

// Milestones are the watch-progress percentages that earn a one-time bonus, ascending.
var Milestones = [4]int{25, 50, 75, 100}

// IsMilestone reports whether m is one of the canonical thresholds.
func IsMilestone(m int) bool {
	for _, v := range Milestones {
		if v == m {
			return true
		}
	}
	return false
}

// WatchSession is one span of a registrant watching a webinar.
// At most one session per (webinar, registration) has a nil SessionEnd.
type WatchSession struct {
	ID                uuid.UUID  `json:"id"`
	WebinarID         uuid.UUID  `json:"webinar_id"`
	RegistrationID    uuid.UUID  `json:"registration_id"`
	SessionStart      time.Time  `json:"session_start"`
	SessionEnd        *time.Time `json:"session_end,omitempty"`
	TotalWatchSeconds int64      `json:"total_watch_seconds"`
	MilestonesReached []int      `json:"milestones_reached"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Open reports whether the session has not been ended.
func (s *WatchSession) Open() bool {
	return s.SessionEnd == nil
}

// HasMilestone reports whether milestone m was already reached in this session.
func (s *WatchSession) HasMilestone(m int) bool {
	for _, v := range s.MilestonesReached {
		if v == m {
			return true
		}
	}
	return false
}
