package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/casino-builder/internal/config"
	apperrors "github.com/wfunc/casino-builder/internal/errors"
	"github.com/wfunc/casino-builder/internal/game"
	"github.com/wfunc/casino-builder/internal/sfx"
)

func testSlotsConfig() config.SlotsConfig {
	return config.SlotsConfig{
		ReelCount:   3,
		Symbols:     []string{"cherry", "lemon", "orange", "grape", "seven"},
		StripRepeat: 2,
		Timing: config.TimingConfig{
			BaseDelay:          30 * time.Millisecond,
			Stagger:            10 * time.Millisecond,
			NearMissPause:      40 * time.Millisecond,
			CascadeInterval:    5 * time.Millisecond,
			SimultaneousWindow: 10 * time.Millisecond,
		},
		MinBet:          1,
		MaxBet:          100,
		SessionTimeout:  time.Hour,
		CleanupInterval: time.Minute,
		MaxSessions:     10,
	}
}

type wsFixture struct {
	hub     *Hub
	service *game.GameService
	server  *httptest.Server
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(nil)
	svc, err := game.NewGameService(game.ServiceConfig{
		Slots:      testSlotsConfig(),
		Settlement: game.NewDemoSettlement(7),
		Hooks:      []game.SessionHook{hub.SFXHook(sfx.NewService(config.SFXConfig{Enabled: true}, nil))},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	handler := NewHandler(ctx, hub, svc, config.WebSocketConfig{SendBuffer: 64}, nil)
	r := gin.New()
	r.GET("/ws", handler.Handle)
	server := httptest.NewServer(r)

	t.Cleanup(func() {
		hub.CloseAll()
		server.Close()
		cancel()
		svc.Shutdown()
	})
	return &wsFixture{hub: hub, service: svc, server: server}
}

func (f *wsFixture) dial(t *testing.T, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?session_id=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHandler_RejectsBadRequests(t *testing.T) {
	f := newWSFixture(t)

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"缺少会话", "", http.StatusBadRequest},
		{"会话不存在", "?session_id=missing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(f.server.URL + "/ws" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)

			var body apperrors.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
		})
	}
}

func TestHandler_SpinOverWebSocket(t *testing.T) {
	f := newWSFixture(t)
	created, err := f.service.CreateSession(context.Background(), "demo")
	require.NoError(t, err)
	sid := created.SessionID

	conn := f.dial(t, sid)
	hello := readMessage(t, conn)
	assert.Equal(t, MessageTypeConnected, hello.Type)
	assert.Equal(t, sid, hello.SessionID)

	var info game.SessionInfo
	require.NoError(t, json.Unmarshal(hello.Data, &info))
	assert.Equal(t, game.StateIdle, info.State)
	assert.Equal(t, 1, f.hub.SessionClients(sid))

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": MessageTypeSpin,
		"data": SpinRequest{Bet: 1},
	}))

	seen := map[string]int{}
	var result game.SpinResult
	for seen[MessageTypeSpinComplete] == 0 || seen[MessageTypeSpinResult] == 0 {
		msg := readMessage(t, conn)
		seen[msg.Type]++
		if msg.Type == MessageTypeSpinResult {
			require.NoError(t, json.Unmarshal(msg.Data, &result))
		}
		require.NotEqual(t, MessageTypeError, msg.Type, string(msg.Data))
	}

	// 每个卷轴至少有开始和停止两条指令
	assert.GreaterOrEqual(t, seen[MessageTypeReelCommand], 6)
	assert.NotZero(t, seen[MessageTypeReelState])
	assert.NotZero(t, seen[MessageTypeSFX])
	assert.Len(t, result.Positions, 3)
	assert.Equal(t, sid, result.SessionID)
}

func TestHandler_InvalidMessageKeepsConnection(t *testing.T) {
	f := newWSFixture(t)
	created, err := f.service.CreateSession(context.Background(), "demo")
	require.NoError(t, err)

	conn := f.dial(t, created.SessionID)
	readMessage(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeError, msg.Type)

	var appErr apperrors.AppError
	require.NoError(t, json.Unmarshal(msg.Data, &appErr))
	assert.Equal(t, apperrors.ErrMessageFormat, appErr.Code)

	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypeSpin, Data: json.RawMessage(`{"bet":1000}`)}))
	msg = readMessage(t, conn)
	assert.Equal(t, MessageTypeError, msg.Type)
	require.NoError(t, json.Unmarshal(msg.Data, &appErr))
	assert.Equal(t, apperrors.ErrInvalidBet, appErr.Code)

	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypeState}))
	msg = readMessage(t, conn)
	assert.Equal(t, MessageTypeState, msg.Type)
}

func TestHandler_DisconnectDetachesListener(t *testing.T) {
	f := newWSFixture(t)
	ctx := context.Background()
	created, err := f.service.CreateSession(ctx, "demo")
	require.NoError(t, err)
	session, err := f.service.Session(ctx, created.SessionID)
	require.NoError(t, err)

	// 音效观察者在创建时已挂上
	require.Equal(t, 1, session.ListenerCount())

	conn := f.dial(t, created.SessionID)
	readMessage(t, conn)
	assert.Equal(t, 2, session.ListenerCount())

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return session.ListenerCount() == 1 && f.hub.GetOnlineCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClient_EnqueueDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	c := NewClient(hub, nil, "s1", nil, ClientOptions{SendBuffer: 2})
	hub.Register(c)

	assert.Equal(t, 1, hub.SendToSession("s1", MessageTypePing, nil))
	assert.Equal(t, 1, hub.SendToSession("s1", MessageTypePing, nil))
	// 缓冲区满时丢弃
	assert.Zero(t, hub.SendToSession("s1", MessageTypePing, nil))
	assert.True(t, apperrors.Is(c.SendMessage(MessageTypePing, nil), apperrors.ErrClientBufferFull))
	assert.Zero(t, hub.SendToSession("other", MessageTypePing, nil))

	hub.Unregister(c)
	hub.Unregister(c)
	assert.Zero(t, hub.GetOnlineCount())
	assert.True(t, apperrors.Is(c.SendMessage(MessageTypePing, nil), apperrors.ErrWebSocketClosed))

	// 已排队的消息仍可读出，随后通道关闭
	var drained int
	for range c.send {
		drained++
	}
	assert.Equal(t, 2, drained)
}

func TestHub_PushCueAndDisconnectSession(t *testing.T) {
	hub := NewHub(nil)
	a := NewClient(hub, nil, "s1", nil, ClientOptions{})
	b := NewClient(hub, nil, "s1", nil, ClientOptions{})
	other := NewClient(hub, nil, "s2", nil, ClientOptions{})
	for _, c := range []*Client{a, b, other} {
		hub.Register(c)
	}

	hub.PushCue(sfx.Cue{SessionID: "s1", Tier: sfx.TierWin})
	for _, c := range []*Client{a, b} {
		var msg Message
		require.NoError(t, json.Unmarshal(<-c.send, &msg))
		assert.Equal(t, MessageTypeSFX, msg.Type)
		assert.Contains(t, string(msg.Data), `"tier":"win"`)
	}
	assert.Empty(t, other.send)

	hub.DisconnectSession("s1")
	assert.Zero(t, hub.SessionClients("s1"))
	assert.Equal(t, 1, hub.GetOnlineCount())
}
