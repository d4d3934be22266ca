// Package scoring resolves a tenant's point-value table for engagement events.
package scoring

import (
	"github.com/aura-webinar/engagement/internal/models"
)

// PointTable is a complete point-value table: every event type and every milestone has a value.
type PointTable struct {
	ChatMessage  int `json:"chat_message"`
	QASubmit     int `json:"qa_submit"`
	QAUpvote     int `json:"qa_upvote"`
	PollResponse int `json:"poll_response"`
	Reaction     int `json:"reaction"`
	CTAClick     int `json:"cta_click"`
	Milestone25  int `json:"milestone_25"`
	Milestone50  int `json:"milestone_50"`
	Milestone75  int `json:"milestone_75"`
	Milestone100 int `json:"milestone_100"`
}

// Defaults is the system point table used for any field a tenant has not overridden.
var Defaults = PointTable{
	ChatMessage:  1,
	QASubmit:     3,
	QAUpvote:     1,
	PollResponse: 2,
	Reaction:     1,
	CTAClick:     5,
	Milestone25:  5,
	Milestone50:  10,
	Milestone75:  15,
	Milestone100: 25,
}

// EventPoints returns the points for a non-milestone event type.
// watch_milestone and unknown types return 0; milestones are priced by MilestonePoints.
func (p PointTable) EventPoints(t models.EventType) int {
	switch t {
	case models.EventChatMessage:
		return p.ChatMessage
	case models.EventQASubmit:
		return p.QASubmit
	case models.EventQAUpvote:
		return p.QAUpvote
	case models.EventPollResponse:
		return p.PollResponse
	case models.EventReaction:
		return p.Reaction
	case models.EventCTAClick:
		return p.CTAClick
	default:
		return 0
	}
}

// MilestonePoints returns the bonus for a milestone percentage, 0 for non-canonical values.
func (p PointTable) MilestonePoints(milestone int) int {
	switch milestone {
	case 25:
		return p.Milestone25
	case 50:
		return p.Milestone50
	case 75:
		return p.Milestone75
	case 100:
		return p.Milestone100
	default:
		return 0
	}
}

// Merge overlays a tenant's overrides on Defaults. A nil config yields Defaults.
func Merge(cfg *models.ScoringConfig) PointTable {
	out := Defaults
	if cfg == nil {
		return out
	}
	pick(&out.ChatMessage, cfg.ChatMessage)
	pick(&out.QASubmit, cfg.QASubmit)
	pick(&out.QAUpvote, cfg.QAUpvote)
	pick(&out.PollResponse, cfg.PollResponse)
	pick(&out.Reaction, cfg.Reaction)
	pick(&out.CTAClick, cfg.CTAClick)
	pick(&out.Milestone25, cfg.Milestone25)
	pick(&out.Milestone50, cfg.Milestone50)
	pick(&out.Milestone75, cfg.Milestone75)
	pick(&out.Milestone100, cfg.Milestone100)
	return out
}

func pick(dst *int, override *int) {
	if override != nil {
		*dst = *override
	}
}
