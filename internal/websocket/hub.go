package websocket

import (
	"sync"

	"github.com/wfunc/casino-builder/internal/game"
	"github.com/wfunc/casino-builder/internal/sfx"
	"go.uber.org/zap"
)

// Hub WebSocket连接管理中心，按会话分组
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	sessions map[string]map[string]*Client

	logger *zap.Logger
}

// NewHub 创建Hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:  make(map[string]*Client),
		sessions: make(map[string]map[string]*Client),
		logger:   logger,
	}
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	group, ok := h.sessions[client.SessionID]
	if !ok {
		group = make(map[string]*Client)
		h.sessions[client.SessionID] = group
	}
	group[client.ID] = client
	h.mu.Unlock()

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID),
		zap.String("session_id", client.SessionID))
}

// Unregister 注销客户端并关闭发送通道，重复调用无副作用
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client.ID]
	if ok {
		delete(h.clients, client.ID)
		if group := h.sessions[client.SessionID]; group != nil {
			delete(group, client.ID)
			if len(group) == 0 {
				delete(h.sessions, client.SessionID)
			}
		}
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	client.shutdown()

	h.logger.Info("WebSocket客户端断开",
		zap.String("client_id", client.ID),
		zap.String("session_id", client.SessionID))
}

// SendToSession 发送消息给会话的所有客户端，返回送达数量
func (h *Hub) SendToSession(sessionID, msgType string, data interface{}) int {
	payload, err := newMessage(msgType, sessionID, data)
	if err != nil {
		h.logger.Error("序列化消息失败", zap.String("type", msgType), zap.Error(err))
		return 0
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.sessions[sessionID]))
	for _, c := range h.sessions[sessionID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if c.enqueue(payload) == nil {
			sent++
		}
	}
	return sent
}

// DisconnectSession 断开会话的所有客户端
func (h *Hub) DisconnectSession(sessionID string) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.sessions[sessionID]))
	for _, c := range h.sessions[sessionID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.Unregister(c)
	}
}

// CloseAll 断开所有客户端
func (h *Hub) CloseAll() {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.Unregister(c)
	}
}

// GetOnlineCount 在线连接数
func (h *Hub) GetOnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SessionClients 会话的连接数
func (h *Hub) SessionClients(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// PushCue 把音效推送给会话的所有客户端，可作为 sfx.Sink
func (h *Hub) PushCue(cue sfx.Cue) {
	h.SendToSession(cue.SessionID, MessageTypeSFX, cue)
}

// SFXHook 会话创建时挂上音效观察者
//
// 观察者按会话挂一次，同一会话的多个连接共享一个去重器。
func (h *Hub) SFXHook(service *sfx.Service) game.SessionHook {
	return func(s *game.SlotSession) {
		if !service.Enabled() {
			return
		}
		s.AddListener(sfx.NewWatcher(s.ID(), service.For(s.ID()), h.PushCue, h.logger))
	}
}
