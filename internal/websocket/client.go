package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	apperrors "github.com/wfunc/casino-builder/internal/errors"
	"github.com/wfunc/casino-builder/internal/game"
	"github.com/wfunc/casino-builder/internal/game/reel"
	"github.com/wfunc/casino-builder/internal/logger"
	"go.uber.org/zap"
)

// 连接参数未配置时的默认值
const (
	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 8192
	defaultSendBuffer     = 256
)

// SessionController 客户端可以发起的会话操作
type SessionController interface {
	Spin(ctx context.Context, sessionID string, bet float64) (*game.SpinResult, error)
	Skip(ctx context.Context, sessionID string) error
	GetSession(ctx context.Context, sessionID string) (*game.SessionInfo, error)
}

// ClientOptions 客户端参数
type ClientOptions struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

func (o *ClientOptions) withDefaults() {
	if o.WriteWait <= 0 {
		o.WriteWait = defaultWriteWait
	}
	if o.PongWait <= 0 {
		o.PongWait = defaultPongWait
	}
	// ping周期必须小于pong等待时间
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = defaultMaxMessageSize
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = defaultSendBuffer
	}
}

// Client WebSocket客户端，订阅一个会话的卷轴事件
type Client struct {
	ID        string
	SessionID string

	hub        *Hub
	conn       *websocket.Conn
	controller SessionController
	opts       ClientOptions
	logger     *zap.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
	detach func()
}

// NewClient 创建客户端
func NewClient(hub *Hub, conn *websocket.Conn, sessionID string, controller SessionController, opts ClientOptions) *Client {
	opts.withDefaults()
	id := uuid.New().String()
	return &Client{
		ID:         id,
		SessionID:  sessionID,
		hub:        hub,
		conn:       conn,
		controller: controller,
		opts:       opts,
		logger:     hub.logger.With(zap.String("client_id", id), zap.String("session_id", sessionID)),
		send:       make(chan []byte, opts.SendBuffer),
	}
}

// Attach 订阅会话事件，客户端注销时自动取消
func (c *Client) Attach(session *game.SlotSession) {
	remove := session.AddListener(c)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		remove()
		return
	}
	c.detach = remove
	c.mu.Unlock()
}

// enqueue 非阻塞写入发送队列，在编排器回调里调用
func (c *Client) enqueue(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return apperrors.New(apperrors.ErrWebSocketClosed)
	}
	select {
	case c.send <- payload:
		return nil
	default:
		c.logger.Warn("客户端发送缓冲区满，丢弃消息")
		return apperrors.New(apperrors.ErrClientBufferFull)
	}
}

// shutdown 关闭发送通道并取消订阅
func (c *Client) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	detach := c.detach
	c.detach = nil
	c.mu.Unlock()

	if detach != nil {
		detach()
	}
}

// SendMessage 发送消息给客户端
func (c *Client) SendMessage(msgType string, data interface{}) error {
	payload, err := newMessage(msgType, c.SessionID, data)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrMessageFormat)
	}
	return c.enqueue(payload)
}

func (c *Client) push(msgType string, data interface{}) {
	if err := c.SendMessage(msgType, data); err != nil {
		c.logger.Debug("推送失败", zap.String("type", msgType), zap.Error(err))
	}
}

// OnReelCommand 推送卷轴指令
func (c *Client) OnReelCommand(cmd reel.ReelCommand) {
	c.push(MessageTypeReelCommand, cmd)
}

// OnStateChange 推送卷轴状态快照
func (c *Client) OnStateChange(states []reel.ReelState) {
	c.push(MessageTypeReelState, states)
}

// OnSpinComplete 推送本轮结束
func (c *Client) OnSpinComplete(summary reel.SpinSummary) {
	c.push(MessageTypeSpinComplete, summary)
}

func (c *Client) sendError(err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Wrap(err, apperrors.ErrUnknown)
	}
	c.push(MessageTypeError, appErr)
}

// ReadPump 读取消息，连接断开时注销
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket读取错误", zap.Error(err))
			}
			return
		}
		c.handleMessage(ctx, data)
	}
}

// WritePump 写入消息，每条消息一帧
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 处理客户端消息，格式错误只回错误不断开
func (c *Client) handleMessage(ctx context.Context, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
		c.sendError(apperrors.New(apperrors.ErrMessageFormat))
		return
	}
	logger.LogWebSocketMessage("receive", msg.Type, c.SessionID)

	switch msg.Type {
	case MessageTypePing:
		c.push(MessageTypePong, nil)

	case MessageTypePong:

	case MessageTypeState:
		info, err := c.controller.GetSession(ctx, c.SessionID)
		if err != nil {
			c.sendError(err)
			return
		}
		c.push(MessageTypeState, info)

	case MessageTypeSpin:
		var req SpinRequest
		if len(msg.Data) == 0 || json.Unmarshal(msg.Data, &req) != nil {
			c.sendError(apperrors.New(apperrors.ErrMessageFormat, "缺少投注金额"))
			return
		}
		result, err := c.controller.Spin(ctx, c.SessionID, req.Bet)
		if err != nil {
			c.sendError(err)
			return
		}
		c.push(MessageTypeSpinResult, result)

	case MessageTypeSkip:
		if err := c.controller.Skip(ctx, c.SessionID); err != nil {
			c.sendError(err)
		}

	default:
		c.sendError(apperrors.New(apperrors.ErrMessageFormat, "不支持的消息类型: "+msg.Type))
	}
}
