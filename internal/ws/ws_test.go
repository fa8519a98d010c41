package ws

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/saipul12c/my-portofolio-sub004/internal/gateway"
	"github.com/saipul12c/my-portofolio-sub004/internal/hub"
	"github.com/saipul12c/my-portofolio-sub004/internal/presence"
	"github.com/saipul12c/my-portofolio-sub004/internal/store"
	"github.com/saipul12c/my-portofolio-sub004/pkg/jwt"
	"github.com/saipul12c/my-portofolio-sub004/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsFixture struct {
	server *httptest.Server
	jwt    *jwt.Service
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.New(logger.Config{Level: "error", JSON: true, Output: io.Discard})
	st, err := store.Open(t.TempDir(), log, store.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	broker := hub.NewBroker(log)
	gw := gateway.New(st, broker, gateway.NewDirectory(), log, gateway.DefaultOptions())
	tracker := presence.NewTracker(presence.NewMemoryStore(), broker, log)
	jwtService := jwt.NewService("test-secret", time.Hour)

	engine := gin.New()
	engine.GET("/ws", NewHandler(broker, gw, tracker, jwtService, log).Serve)

	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)

	return &wsFixture{server: server, jwt: jwtService}
}

// dial connects as userID and consumes the authenticated handshake event.
func (f *wsFixture) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()

	token, err := f.jwt.GenerateToken(userID)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ev := readEvent(t, conn)
	require.Equal(t, hub.EventAuthenticated, ev.Type)

	var data map[string]string
	require.NoError(t, json.Unmarshal(ev.Data, &data))
	require.Equal(t, userID, data["user_id"])

	return conn
}

type serverEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readEvent(t *testing.T, conn *websocket.Conn) serverEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev serverEvent
	require.NoError(t, json.Unmarshal(raw, &ev))
	return ev
}

func sendEvent(t *testing.T, conn *websocket.Conn, eventType string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	raw, err := json.Marshal(map[string]json.RawMessage{
		"type": json.RawMessage(`"` + eventType + `"`),
		"data": payload,
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
}

// join subscribes the connection and waits for the acknowledgement.
func join(t *testing.T, conn *websocket.Conn, channelID string) {
	t.Helper()
	sendEvent(t, conn, "join", gin.H{"channelId": channelID})
	ev := readEvent(t, conn)
	require.Equal(t, hub.EventJoined, ev.Type)
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "timeout") || websocket.IsUnexpectedCloseError(err))
}

func TestRejectsMissingToken(t *testing.T) {
	f := newWSFixture(t)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRejectsInvalidToken(t *testing.T) {
	f := newWSFixture(t)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMessageFansOutToChannelSubscribersOnly(t *testing.T) {
	f := newWSFixture(t)

	sender := f.dial(t, "alice")
	listener := f.dial(t, "bob")
	outsider := f.dial(t, "carol")

	join(t, sender, "general")
	join(t, listener, "general")
	join(t, outsider, "random")

	sendEvent(t, sender, "message", gin.H{"channelId": "general", "content": "hello"})

	for _, conn := range []*websocket.Conn{sender, listener} {
		ev := readEvent(t, conn)
		require.Equal(t, hub.EventMessage, ev.Type)

		var enriched gateway.Enriched
		require.NoError(t, json.Unmarshal(ev.Data, &enriched))
		assert.Equal(t, "hello", enriched.Message.Content)
		require.NotNil(t, enriched.Message.UserID)
		assert.Equal(t, "alice", *enriched.Message.UserID)
	}

	expectSilence(t, outsider)
}

func TestSocketIdentityIsHandshakeIdentity(t *testing.T) {
	f := newWSFixture(t)

	conn := f.dial(t, "alice")
	join(t, conn, "general")

	// The wire payload carries no user id; the message is attributed
	// to the handshake identity regardless.
	sendEvent(t, conn, "message", gin.H{"channelId": "general", "content": "mine"})

	ev := readEvent(t, conn)
	require.Equal(t, hub.EventMessage, ev.Type)
	var enriched gateway.Enriched
	require.NoError(t, json.Unmarshal(ev.Data, &enriched))
	require.NotNil(t, enriched.Message.UserID)
	assert.Equal(t, "alice", *enriched.Message.UserID)
}

func TestLeaveStopsDelivery(t *testing.T) {
	f := newWSFixture(t)

	sender := f.dial(t, "alice")
	listener := f.dial(t, "bob")

	join(t, sender, "general")
	join(t, listener, "general")

	sendEvent(t, listener, "leave", gin.H{"channelId": "general"})

	// Leave has no acknowledgement; give the read pump a beat.
	time.Sleep(50 * time.Millisecond)

	sendEvent(t, sender, "message", gin.H{"channelId": "general", "content": "after leave"})

	ev := readEvent(t, sender)
	require.Equal(t, hub.EventMessage, ev.Type)
	expectSilence(t, listener)
}

func TestTypingReachesChannelSubscribers(t *testing.T) {
	f := newWSFixture(t)

	typer := f.dial(t, "alice")
	watcher := f.dial(t, "bob")

	join(t, typer, "general")
	join(t, watcher, "general")

	sendEvent(t, typer, "typing", gin.H{"channel_id": "general", "typing": true})

	ev := readEvent(t, watcher)
	require.Equal(t, hub.EventTyping, ev.Type)

	var data struct {
		ChannelID string `json:"channel_id"`
		UserID    string `json:"user_id"`
		Typing    bool   `json:"typing"`
	}
	require.NoError(t, json.Unmarshal(ev.Data, &data))
	assert.Equal(t, "general", data.ChannelID)
	assert.Equal(t, "alice", data.UserID)
	assert.True(t, data.Typing)
}

func TestInvalidMessageErrorsGoToSenderOnly(t *testing.T) {
	f := newWSFixture(t)

	sender := f.dial(t, "alice")
	listener := f.dial(t, "bob")

	join(t, sender, "general")
	join(t, listener, "general")

	// Missing channel id fails gateway validation.
	sendEvent(t, sender, "message", gin.H{"content": "nowhere"})

	ev := readEvent(t, sender)
	require.Equal(t, hub.EventError, ev.Type)
	expectSilence(t, listener)
}

func TestPingPong(t *testing.T) {
	f := newWSFixture(t)

	conn := f.dial(t, "alice")
	sendEvent(t, conn, "ping", gin.H{})

	ev := readEvent(t, conn)
	assert.Equal(t, "pong", ev.Type)
}

func TestUnknownEventType(t *testing.T) {
	f := newWSFixture(t)

	conn := f.dial(t, "alice")
	sendEvent(t, conn, "dance", gin.H{})

	ev := readEvent(t, conn)
	require.Equal(t, hub.EventError, ev.Type)
}
