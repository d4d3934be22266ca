package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a point-earning interaction.
type EventType string

const (
	EventChatMessage    EventType = "chat_message"
	EventQASubmit       EventType = "qa_submit"
	EventQAUpvote       EventType = "qa_upvote"
	EventPollResponse   EventType = "poll_response"
	EventReaction       EventType = "reaction"
	EventCTAClick       EventType = "cta_click"
	EventWatchMilestone EventType = "watch_milestone"
)

// EventTypes lists every event type in a stable order.
var EventTypes = []EventType{
	EventChatMessage,
	EventQASubmit,
	EventQAUpvote,
	EventPollResponse,
	EventReaction,
	EventCTAClick,
	EventWatchMilestone,
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventChatMessage, EventQASubmit, EventQAUpvote, EventPollResponse,
		EventReaction, EventCTAClick, EventWatchMilestone:
		return true
	}
	return false
}

// EventDataMilestone is the event_data key carrying the milestone percentage of a watch_milestone event.
const EventDataMilestone = "milestone"

// EngagementEvent is an immutable record of one point-earning action.
// PointsEarned is computed from the tenant's scoring config at write time and never changes.
type EngagementEvent struct {
	ID             uuid.UUID      `json:"id"`
	WebinarID      uuid.UUID      `json:"webinar_id"`
	RegistrationID uuid.UUID      `json:"registration_id"`
	EventType      EventType      `json:"event_type"`
	EventData      map[string]any `json:"event_data,omitempty"`
	PointsEarned   int            `json:"points_earned"`
	CreatedAt      time.Time      `json:"created_at"`
}
