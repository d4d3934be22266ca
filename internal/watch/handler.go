package watch

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/engagement/internal/middleware"
	"github.com/aura-webinar/engagement/internal/models"
	"github.com/aura-webinar/engagement/internal/registrations"
	"github.com/aura-webinar/engagement/pkg/response"
)

// AttendanceMarker records that a registrant watched live or the replay.
type AttendanceMarker interface {
	MarkAttended(ctx context.Context, registrationID uuid.UUID) error
	MarkWatchedReplay(ctx context.Context, registrationID uuid.UUID) error
}

// RecalcTrigger schedules a best-effort lead score recalculation.
type RecalcTrigger interface {
	Trigger(ctx context.Context, webinarID, registrationID uuid.UUID)
}

// SessionLister lists a webinar's sessions.
type SessionLister interface {
	ListByWebinar(ctx context.Context, webinarID uuid.UUID) ([]models.WatchSession, error)
}

// StartRequest is the body for POST /webinars/:id/watch/start.
type StartRequest struct {
	RegistrationID uuid.UUID `json:"registration_id" binding:"required"`
	Replay         bool      `json:"replay"`
}

// ProgressRequest is the body for POST /watch-sessions/:id/progress.
type ProgressRequest struct {
	CurrentSeconds       *float64 `json:"current_seconds" binding:"required"`
	TotalDurationSeconds float64  `json:"total_duration_seconds"`
}

// Handler handles watch session endpoints.
type Handler struct {
	tracker       *Tracker
	sessions      SessionLister
	registrations registrations.Lookup
	attendance    AttendanceMarker
	trigger       RecalcTrigger
	logger        *zap.Logger
}

// NewHandler creates a watch session handler.
func NewHandler(tracker *Tracker, sessions SessionLister, regs registrations.Lookup, attendance AttendanceMarker, trigger RecalcTrigger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{tracker: tracker, sessions: sessions, registrations: regs, attendance: attendance, trigger: trigger, logger: logger}
}

// Start handles POST /webinars/:id/watch/start. The registration must belong to the webinar
// and, for attendees, to the caller. Starting marks the registration attended (live) or
// watched_replay (replay).
func (h *Handler) Start(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	email, privileged := middleware.Caller(c)
	if _, err := registrations.VerifyOwnership(ctx, h.registrations, webinarID, req.RegistrationID, email, privileged); err != nil {
		h.logger.Warn("watch registration rejected", zap.Error(err),
			zap.String("webinar_id", webinarID.String()), zap.String("registration_id", req.RegistrationID.String()))
		response.Error(c, err, "failed to verify registration")
		return
	}
	s, err := h.tracker.Start(ctx, webinarID, req.RegistrationID)
	if err != nil {
		h.logger.Warn("start watch session failed", zap.Error(err), zap.String("registration_id", req.RegistrationID.String()))
		response.Error(c, err, "failed to start watch session")
		return
	}
	h.markAttendance(ctx, req.RegistrationID, req.Replay)
	h.triggerRecalc(ctx, s)
	response.OK(c, s)
}

// Progress handles POST /watch-sessions/:id/progress.
func (h *Handler) Progress(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.tracker.Progress(c.Request.Context(), sessionID, *req.CurrentSeconds, req.TotalDurationSeconds)
	if err != nil {
		response.Error(c, err, "failed to update watch progress")
		return
	}
	if len(res.NewMilestones) > 0 {
		h.triggerRecalc(c.Request.Context(), res.Session)
	}
	response.OK(c, res)
}

// End handles POST /watch-sessions/:id/end.
func (h *Handler) End(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	s, err := h.tracker.End(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err, "failed to end watch session")
		return
	}
	h.triggerRecalc(c.Request.Context(), s)
	response.OK(c, s)
}

// ListByWebinar handles GET /webinars/:id/watch-sessions (admin/speaker attendee view).
func (h *Handler) ListByWebinar(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	list, err := h.sessions.ListByWebinar(c.Request.Context(), webinarID)
	if err != nil {
		h.logger.Error("list watch sessions failed", zap.Error(err), zap.String("webinar_id", webinarID.String()))
		response.ServiceUnavailable(c, "failed to list watch sessions")
		return
	}
	response.OK(c, gin.H{"sessions": list})
}

func (h *Handler) markAttendance(ctx context.Context, registrationID uuid.UUID, replay bool) {
	if h.attendance == nil {
		return
	}
	var err error
	if replay {
		err = h.attendance.MarkWatchedReplay(ctx, registrationID)
	} else {
		err = h.attendance.MarkAttended(ctx, registrationID)
	}
	if err != nil {
		h.logger.Warn("mark attendance failed", zap.Error(err),
			zap.String("registration_id", registrationID.String()), zap.Bool("replay", replay))
	}
}

func (h *Handler) triggerRecalc(ctx context.Context, s *models.WatchSession) {
	if h.trigger != nil {
		h.trigger.Trigger(ctx, s.WebinarID, s.RegistrationID)
	}
}
