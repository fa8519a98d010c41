// Package ws is the real-time surface: a bidirectional connection that
// authenticates once at handshake, subscribes to channel topics and
// produces fire-and-forget message events through the ingestion gateway.
package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/saipul12c/my-portofolio-sub004/internal/gateway"
	"github.com/saipul12c/my-portofolio-sub004/internal/hub"
	"github.com/saipul12c/my-portofolio-sub004/internal/presence"
	"github.com/saipul12c/my-portofolio-sub004/pkg/jwt"
	"github.com/saipul12c/my-portofolio-sub004/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
}

// clientEvent is the envelope for client-to-server events.
type clientEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Client-to-server payloads, as the wire defines them.
type joinPayload struct {
	ChannelID string `json:"channelId"`
}

type messagePayload struct {
	ChannelID string `json:"channelId"`
	Content   string `json:"content"`
}

type typingPayload struct {
	ChannelID string `json:"channel_id"`
	Typing    bool   `json:"typing"`
}

// Handler upgrades connections and dispatches their events.
type Handler struct {
	broker  *hub.Broker
	gateway *gateway.Gateway
	tracker *presence.Tracker
	jwt     *jwt.Service
	log     *logger.Logger
}

// NewHandler creates the websocket handler.
func NewHandler(broker *hub.Broker, gw *gateway.Gateway, tracker *presence.Tracker, jwtService *jwt.Service, log *logger.Logger) *Handler {
	return &Handler{broker: broker, gateway: gw, tracker: tracker, jwt: jwtService, log: log}
}

// Serve upgrades the request. The signed token travels in the handshake
// (`token` query parameter); a missing or invalid token rejects the
// connection before the upgrade.
func (h *Handler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token is required"})
		return
	}

	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.LogError(err, "websocket upgrade failed")
		return
	}

	client := &Client{
		conn:    conn,
		send:    make(chan []byte, 256),
		userID:  claims.UserID(),
		bot:     claims.Bot,
		handler: h,
	}

	h.broker.Register(client)
	h.log.Info("websocket connection established", "user_id", client.userID)

	go client.writePump()
	go client.readPump()

	client.sendEvent(hub.Event{
		Type: hub.EventAuthenticated,
		Data: map[string]string{"user_id": client.userID},
	})
}

// handleEvent dispatches one client event. Identity was resolved at
// handshake time; caller-supplied ids on the wire are never trusted.
func (h *Handler) handleEvent(c *Client, ev clientEvent) {
	switch ev.Type {
	case "join":
		var p joinPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil || p.ChannelID == "" {
			c.sendError("join requires channelId")
			return
		}
		h.broker.Subscribe(p.ChannelID, c)
		c.sendEvent(hub.Event{Type: hub.EventJoined, Data: map[string]string{"channelId": p.ChannelID}})

	case "leave":
		var p joinPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil || p.ChannelID == "" {
			c.sendError("leave requires channelId")
			return
		}
		h.broker.Unsubscribe(p.ChannelID, c)

	case "message":
		var p messagePayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			c.sendError("malformed message event")
			return
		}
		// Fire-and-forget: errors go back to the sender only, there
		// is no response payload on success.
		_, err := h.gateway.CreateMessage(gateway.Inbound{
			ChannelID: p.ChannelID,
			UserID:    c.userID,
			Content:   p.Content,
			Bot:       c.bot,
		})
		if err != nil {
			c.sendError(err.Error())
		}

	case "typing":
		var p typingPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil || p.ChannelID == "" {
			c.sendError("typing requires channel_id")
			return
		}
		h.tracker.EmitTyping(p.ChannelID, c.userID, p.Typing)

	case "ping":
		c.sendEvent(hub.Event{Type: "pong"})

	default:
		c.sendError("unknown event type: " + ev.Type)
	}
}
