package models

import (
	"time"

	"github.com/google/uuid"
)

// ScoringConfig holds a tenant's point overrides. A nil field falls back to the system default.
type ScoringConfig struct {
	TenantID     uuid.UUID `json:"tenant_id"`
	ChatMessage  *int      `json:"chat_message"`
	QASubmit     *int      `json:"qa_submit"`
	QAUpvote     *int      `json:"qa_upvote"`
	PollResponse *int      `json:"poll_response"`
	Reaction     *int      `json:"reaction"`
	CTAClick     *int      `json:"cta_click"`
	Milestone25  *int      `json:"milestone_25"`
	Milestone50  *int      `json:"milestone_50"`
	Milestone75  *int      `json:"milestone_75"`
	Milestone100 *int      `json:"milestone_100"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
