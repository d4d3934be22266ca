package leadscore

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/engagement/pkg/response"
)

// Handler handles lead score endpoints.
type Handler struct {
	calc   *Calculator
	logger *zap.Logger
}

// NewHandler creates a lead score handler.
func NewHandler(calc *Calculator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{calc: calc, logger: logger}
}

// Calculate handles POST /registrations/:id/lead-score/calculate.
func (h *Handler) Calculate(c *gin.Context) {
	registrationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	s, err := h.calc.Calculate(c.Request.Context(), registrationID)
	if err != nil {
		h.logger.Warn("calculate lead score failed", zap.Error(err), zap.String("registration_id", registrationID.String()))
		response.Error(c, err, "failed to calculate lead score")
		return
	}
	response.OK(c, s)
}

// Get handles GET /registrations/:id/lead-score.
func (h *Handler) Get(c *gin.Context) {
	registrationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	s, err := h.calc.Get(c.Request.Context(), registrationID)
	if err != nil {
		response.Error(c, err, "failed to get lead score")
		return
	}
	response.OK(c, s)
}

// Recalculate handles POST /webinars/:id/lead-scores/recalculate. Registrations that fail are
// reported in failed; the successful ones stay written.
func (h *Handler) Recalculate(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	processed, err := h.calc.RecalculateForWebinar(c.Request.Context(), webinarID)
	if err != nil && processed == 0 {
		h.logger.Error("recalculate webinar failed", zap.Error(err), zap.String("webinar_id", webinarID.String()))
		response.Error(c, err, "failed to recalculate lead scores")
		return
	}
	response.OK(c, gin.H{"processed": processed, "complete": err == nil})
}
