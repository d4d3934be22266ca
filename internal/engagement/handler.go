package engagement

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/engagement/internal/middleware"
	"github.com/aura-webinar/engagement/internal/models"
	"github.com/aura-webinar/engagement/internal/registrations"
	"github.com/aura-webinar/engagement/pkg/response"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// RecalcTrigger schedules a best-effort lead score recalculation. It must not fail the caller.
type RecalcTrigger interface {
	Trigger(ctx context.Context, webinarID, registrationID uuid.UUID)
}

// EventLister scans a webinar's events.
type EventLister interface {
	ListByWebinar(ctx context.Context, webinarID uuid.UUID, registrationID *uuid.UUID, limit int) ([]models.EngagementEvent, error)
}

// RecordRequest is the body for POST /webinars/:id/engagement.
type RecordRequest struct {
	RegistrationID uuid.UUID      `json:"registration_id" binding:"required"`
	EventType      string         `json:"event_type" binding:"required"`
	EventData      map[string]any `json:"event_data,omitempty"`
}

// Handler handles engagement event endpoints.
type Handler struct {
	recorder      *Recorder
	events        EventLister
	registrations registrations.Lookup
	trigger       RecalcTrigger
	logger        *zap.Logger
}

// NewHandler creates an engagement handler.
func NewHandler(recorder *Recorder, events EventLister, regs registrations.Lookup, trigger RecalcTrigger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{recorder: recorder, events: events, registrations: regs, trigger: trigger, logger: logger}
}

// Record handles POST /webinars/:id/engagement. The registration must belong to the webinar and,
// for attendees, to the caller. Recalculation is triggered after the event is stored.
func (h *Handler) Record(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	var req RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	email, privileged := middleware.Caller(c)
	if _, err := registrations.VerifyOwnership(ctx, h.registrations, webinarID, req.RegistrationID, email, privileged); err != nil {
		h.logger.Warn("engagement registration rejected", zap.Error(err),
			zap.String("webinar_id", webinarID.String()), zap.String("registration_id", req.RegistrationID.String()))
		response.Error(c, err, "failed to verify registration")
		return
	}
	ev, err := h.recorder.Record(ctx, webinarID, req.RegistrationID, models.EventType(req.EventType), req.EventData)
	if err != nil {
		h.logger.Warn("record engagement event failed", zap.Error(err),
			zap.String("webinar_id", webinarID.String()), zap.String("registration_id", req.RegistrationID.String()))
		response.Error(c, err, "failed to record engagement event")
		return
	}
	if h.trigger != nil {
		h.trigger.Trigger(ctx, webinarID, req.RegistrationID)
	}
	response.Created(c, ev)
}

// List handles GET /webinars/:id/engagement?registration_id=&limit=.
func (h *Handler) List(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	var registrationID *uuid.UUID
	if s := c.Query("registration_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			response.BadRequest(c, "invalid registration_id")
			return
		}
		registrationID = &id
	}
	limit := defaultListLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxListLimit {
			response.BadRequest(c, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}
	list, err := h.events.ListByWebinar(c.Request.Context(), webinarID, registrationID, limit)
	if err != nil {
		h.logger.Error("list engagement events failed", zap.Error(err), zap.String("webinar_id", webinarID.String()))
		response.ServiceUnavailable(c, "failed to list engagement events")
		return
	}
	response.OK(c, gin.H{"events": list})
}
