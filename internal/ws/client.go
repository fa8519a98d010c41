package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/saipul12c/my-portofolio-sub004/internal/hub"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer
	maxMessageSize = 64 * 1024
)

// Client is one live connection. Its identity is resolved once at
// handshake time and reused for every event on the connection.
type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	userID  string
	bot     bool
	handler *Handler

	mu     sync.Mutex
	closed bool
}

// Deliver implements hub.Sink. The send must not block: a full buffer
// means the connection is too slow and the broker drops it.
func (c *Client) Deliver(ev hub.Event) bool {
	data, err := json.Marshal(ev)
	if err != nil {
		c.handler.log.LogError(err, "marshal outbound event", "type", ev.Type)
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// shutdown marks the client dead and releases the write pump. Safe to
// call once; Deliver refuses afterwards.
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump reads client events until the connection dies.
func (c *Client) readPump() {
	defer func() {
		c.handler.broker.Deregister(c)
		c.shutdown()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.handler.log.LogError(err, "websocket read failed", "user_id", c.userID)
			}
			return
		}

		var ev clientEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			c.sendError("malformed event")
			continue
		}

		c.handler.handleEvent(c, ev)
	}
}

// writePump drains the send channel onto the wire and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) sendEvent(ev hub.Event) {
	c.Deliver(ev)
}

func (c *Client) sendError(message string) {
	c.sendEvent(hub.Event{Type: hub.EventError, Data: map[string]string{"message": message}})
}
