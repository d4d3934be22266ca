package scoring

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/engagement/internal/apperr"
	"github.com/aura-webinar/engagement/internal/models"
	"github.com/aura-webinar/engagement/pkg/response"
)

// ConfigStore reads and writes tenant overrides.
type ConfigStore interface {
	Store
	Upsert(ctx context.Context, c *models.ScoringConfig) error
}

// UpdateRequest is the body for PUT /organizations/:id/scoring-config.
// Omitted or null fields clear the override and fall back to the default.
type UpdateRequest struct {
	ChatMessage  *int `json:"chat_message"`
	QASubmit     *int `json:"qa_submit"`
	QAUpvote     *int `json:"qa_upvote"`
	PollResponse *int `json:"poll_response"`
	Reaction     *int `json:"reaction"`
	CTAClick     *int `json:"cta_click"`
	Milestone25  *int `json:"milestone_25"`
	Milestone50  *int `json:"milestone_50"`
	Milestone75  *int `json:"milestone_75"`
	Milestone100 *int `json:"milestone_100"`
}

// ConfigResponse shows the stored overrides next to the effective table.
type ConfigResponse struct {
	TenantID  uuid.UUID             `json:"tenant_id"`
	Overrides *models.ScoringConfig `json:"overrides"`
	Resolved  PointTable            `json:"resolved"`
}

// Handler handles tenant scoring config endpoints.
type Handler struct {
	store  ConfigStore
	logger *zap.Logger
}

// NewHandler creates a scoring config handler.
func NewHandler(store ConfigStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// Get handles GET /organizations/:id/scoring-config.
func (h *Handler) Get(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	cfg, err := h.store.GetByTenant(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("load scoring config failed", zap.Error(err), zap.String("tenant_id", tenantID.String()))
		response.ServiceUnavailable(c, "failed to load scoring config")
		return
	}
	response.OK(c, ConfigResponse{TenantID: tenantID, Overrides: cfg, Resolved: Merge(cfg)})
}

// Update handles PUT /organizations/:id/scoring-config. The first write creates the tenant's row.
func (h *Handler) Update(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	cfg := &models.ScoringConfig{
		TenantID:     tenantID,
		ChatMessage:  req.ChatMessage,
		QASubmit:     req.QASubmit,
		QAUpvote:     req.QAUpvote,
		PollResponse: req.PollResponse,
		Reaction:     req.Reaction,
		CTAClick:     req.CTAClick,
		Milestone25:  req.Milestone25,
		Milestone50:  req.Milestone50,
		Milestone75:  req.Milestone75,
		Milestone100: req.Milestone100,
	}
	if err := validate(cfg); err != nil {
		response.Error(c, err, "invalid scoring config")
		return
	}
	if err := h.store.Upsert(c.Request.Context(), cfg); err != nil {
		h.logger.Error("save scoring config failed", zap.Error(err), zap.String("tenant_id", tenantID.String()))
		response.ServiceUnavailable(c, "failed to save scoring config")
		return
	}
	h.logger.Info("scoring config updated", zap.String("tenant_id", tenantID.String()))
	response.OK(c, ConfigResponse{TenantID: tenantID, Overrides: cfg, Resolved: Merge(cfg)})
}

func validate(cfg *models.ScoringConfig) error {
	fields := []struct {
		name string
		v    *int
	}{
		{"chat_message", cfg.ChatMessage},
		{"qa_submit", cfg.QASubmit},
		{"qa_upvote", cfg.QAUpvote},
		{"poll_response", cfg.PollResponse},
		{"reaction", cfg.Reaction},
		{"cta_click", cfg.CTAClick},
		{"milestone_25", cfg.Milestone25},
		{"milestone_50", cfg.Milestone50},
		{"milestone_75", cfg.Milestone75},
		{"milestone_100", cfg.Milestone100},
	}
	for _, f := range fields {
		if f.v != nil && *f.v < 0 {
			return apperr.Invalid("%s must be >= 0, got %d", f.name, *f.v)
		}
	}
	return nil
}
