package reporting

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/engagement/pkg/response"
)

// Handler handles lead score reporting endpoints.
type Handler struct {
	reporter *Reporter
	archiver *Archiver
	logger   *zap.Logger
}

// NewHandler creates a reporting handler.
func NewHandler(reporter *Reporter, archiver *Archiver, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{reporter: reporter, archiver: archiver, logger: logger}
}

func webinarParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return uuid.Nil, false
	}
	return id, true
}

// Leaderboard handles GET /webinars/:id/lead-scores/leaderboard?limit=&offset=&min_score=.
func (h *Handler) Leaderboard(c *gin.Context) {
	webinarID, ok := webinarParam(c)
	if !ok {
		return
	}
	limit, err := queryInt(c, "limit", DefaultLimit)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	var minScore *int
	if c.Query("min_score") != "" {
		v, err := queryInt(c, "min_score", 0)
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		minScore = &v
	}
	list, err := h.reporter.Leaderboard(c.Request.Context(), webinarID, limit, offset, minScore)
	if err != nil {
		response.Error(c, err, "failed to load leaderboard")
		return
	}
	response.OK(c, gin.H{"entries": list, "limit": limit, "offset": offset})
}

// Distribution handles GET /webinars/:id/lead-scores/distribution.
func (h *Handler) Distribution(c *gin.Context) {
	webinarID, ok := webinarParam(c)
	if !ok {
		return
	}
	buckets, err := h.reporter.Distribution(c.Request.Context(), webinarID)
	if err != nil {
		response.Error(c, err, "failed to load score distribution")
		return
	}
	response.OK(c, gin.H{"buckets": buckets})
}

// Summary handles GET /webinars/:id/lead-scores/summary.
func (h *Handler) Summary(c *gin.Context) {
	webinarID, ok := webinarParam(c)
	if !ok {
		return
	}
	sum, err := h.reporter.Summary(c.Request.Context(), webinarID)
	if err != nil {
		response.Error(c, err, "failed to load score summary")
		return
	}
	response.OK(c, sum)
}

// Export handles GET /webinars/:id/lead-scores/export as a CSV attachment.
func (h *Handler) Export(c *gin.Context) {
	webinarID, ok := webinarParam(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	rows, err := h.reporter.Export(c.Request.Context(), webinarID, &buf)
	if err != nil {
		h.logger.Error("export lead scores failed", zap.Error(err), zap.String("webinar_id", webinarID.String()))
		response.Error(c, err, "failed to export lead scores")
		return
	}
	h.logger.Debug("lead scores exported", zap.String("webinar_id", webinarID.String()), zap.Int("rows", rows))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="lead-scores-%s.csv"`, webinarID))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Archive handles POST /webinars/:id/lead-scores/export/archive.
func (h *Handler) Archive(c *gin.Context) {
	webinarID, ok := webinarParam(c)
	if !ok {
		return
	}
	if h.archiver == nil || !h.archiver.Enabled() {
		response.ServiceUnavailable(c, "export archive storage not configured")
		return
	}
	a, err := h.archiver.Archive(c.Request.Context(), webinarID)
	if err != nil {
		h.logger.Error("archive lead scores failed", zap.Error(err), zap.String("webinar_id", webinarID.String()))
		response.Error(c, err, "failed to archive lead scores")
		return
	}
	response.Created(c, a)
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return v, nil
}
