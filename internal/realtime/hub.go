package realtime

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/engagement/internal/metrics"
	"github.com/aura-webinar/engagement/pkg/response"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Hub tracks viewer connections per webinar. Frames are acknowledged to their sender only,
// so the hub never broadcasts.
type Hub struct {
	// webinarID -> map[clientID]*Client
	webinars map[uuid.UUID]map[string]*Client
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewHub creates a new viewer hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		webinars: make(map[uuid.UUID]map[string]*Client),
		logger:   logger,
	}
}

// Register adds a client to its webinar.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.webinars[c.WebinarID] == nil {
		h.webinars[c.WebinarID] = make(map[string]*Client)
	}
	h.webinars[c.WebinarID][c.ID] = c
	h.mu.Unlock()
	metrics.WebSocketConnections.Inc()
	h.logger.Debug("viewer connected",
		zap.String("client_id", c.ID),
		zap.String("webinar_id", c.WebinarID.String()),
		zap.String("registration_id", c.RegistrationID.String()),
	)
}

// Unregister removes a client from its webinar.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	removed := false
	if m, ok := h.webinars[c.WebinarID]; ok {
		if _, ok := m[c.ID]; ok {
			delete(m, c.ID)
			removed = true
		}
		if len(m) == 0 {
			delete(h.webinars, c.WebinarID)
		}
	}
	h.mu.Unlock()
	if removed {
		metrics.WebSocketConnections.Dec()
	}
	h.logger.Debug("viewer disconnected", zap.String("client_id", c.ID), zap.String("webinar_id", c.WebinarID.String()))
}

// ViewerCount returns the number of connected viewers of a webinar.
func (h *Hub) ViewerCount(webinarID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.webinars[webinarID])
}

// ViewerCountHandler handles GET /webinars/:id/viewers.
func (h *Hub) ViewerCountHandler(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	response.OK(c, gin.H{"webinar_id": webinarID, "viewers": h.ViewerCount(webinarID)})
}
