package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aura-webinar/engagement/internal/apperr"
	"github.com/aura-webinar/engagement/internal/auth"
	"github.com/aura-webinar/engagement/internal/registrations"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// TokenValidator validates the viewer's JWT.
type TokenValidator func(token string) (*auth.Claims, error)

// Client represents a single viewer WebSocket connection.
type Client struct {
	ID             string
	WebinarID      uuid.UUID
	RegistrationID uuid.UUID
	hub            *Hub
	viewer         *Viewer
	conn           *websocket.Conn
	send           chan WSMessage
	logger         *zap.Logger
}

// ServeWatch handles GET /ws/watch?webinar_id=&registration_id=&token=[&replay=true].
// The token's email must match the registration's email.
func ServeWatch(hub *Hub, deps Deps, regs registrations.Lookup, validate TokenValidator, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		token := c.Query("token")
		webinarID, err1 := uuid.Parse(c.Query("webinar_id"))
		registrationID, err2 := uuid.Parse(c.Query("registration_id"))
		if token == "" || err1 != nil || err2 != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "webinar_id, registration_id and token required"})
			return
		}
		claims, err := validate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		_, err = registrations.VerifyOwnership(c.Request.Context(), regs, webinarID, registrationID, claims.Email, false)
		switch {
		case err == nil:
		case apperr.IsForbidden(err):
			c.JSON(http.StatusForbidden, gin.H{"error": "registration belongs to another user"})
			return
		case apperr.IsNotFound(err):
			c.JSON(http.StatusNotFound, gin.H{"error": "registration not found for webinar"})
			return
		default:
			logger.Warn("registration lookup failed", zap.Error(err), zap.String("registration_id", registrationID.String()))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to load registration"})
			return
		}

		viewer := NewViewer(deps, webinarID, registrationID, c.Query("replay") == "true", logger)
		joined, err := viewer.Join(c.Request.Context())
		if err != nil {
			logger.Warn("viewer join failed", zap.Error(err), zap.String("registration_id", registrationID.String()))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to start watch session"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		client := &Client{
			ID:             uuid.New().String(),
			WebinarID:      webinarID,
			RegistrationID: registrationID,
			hub:            hub,
			viewer:         viewer,
			conn:           conn,
			send:           make(chan WSMessage, 16),
			logger:         logger,
		}
		hub.Register(client)
		client.trySend(joined)
		go client.writePump()
		client.readPump(context.WithoutCancel(c.Request.Context()))
	}
}

// readPump owns the viewer state; frames are handled one at a time in arrival order.
// A dropped connection leaves the session open so a reconnect resumes it. A viewer that stops
// draining its acks is disconnected rather than stalling the reader.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		close(c.send)
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		var msg WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			if !c.trySend(errorReply("", "malformed frame")) {
				break
			}
			continue
		}
		reply, done := c.viewer.Handle(ctx, msg)
		if !c.trySend(reply) || done {
			break
		}
	}
}

// trySend queues msg without blocking. It reports false when the send buffer is full.
func (c *Client) trySend(msg WSMessage) bool {
	select {
	case c.send <- msg:
		return true
	default:
		c.logger.Warn("viewer send buffer full, disconnecting",
			zap.String("client_id", c.ID),
			zap.String("registration_id", c.RegistrationID.String()),
			zap.String("event", msg.Event),
		)
		return false
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			raw, err := json.Marshal(msg)
			if err != nil {
				c.logger.Warn("marshal ack failed", zap.Error(err))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
