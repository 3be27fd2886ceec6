package websocket

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wfunc/casino-builder/internal/config"
	apperrors "github.com/wfunc/casino-builder/internal/errors"
	"github.com/wfunc/casino-builder/internal/game"
	"github.com/wfunc/casino-builder/internal/middleware"
	"go.uber.org/zap"
)

// SessionSource 查找会话并执行操作
type SessionSource interface {
	SessionController
	Session(ctx context.Context, sessionID string) (*game.SlotSession, error)
}

// Handler 处理 /ws 升级
type Handler struct {
	hub      *Hub
	sessions SessionSource
	upgrader websocket.Upgrader
	opts     ClientOptions
	logger   *zap.Logger

	// ctx 连接内发起的操作使用，服务关闭时取消
	ctx context.Context
}

// NewHandler 创建处理器
func NewHandler(ctx context.Context, hub *Hub, sessions SessionSource, cfg config.WebSocketConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		hub:      hub,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    cfg.ReadBufferSize,
			WriteBufferSize:   cfg.WriteBufferSize,
			EnableCompression: cfg.EnableCompression,
			// 页面与服务可能不同源
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		opts: ClientOptions{
			WriteWait:      cfg.WriteTimeout,
			PongWait:       cfg.PongTimeout,
			PingPeriod:     cfg.PingInterval,
			MaxMessageSize: cfg.MaxMessageSize,
			SendBuffer:     cfg.SendBuffer,
		},
		logger: logger,
		ctx:    ctx,
	}
}

// Handle GET /ws?session_id=
func (h *Handler) Handle(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		middleware.AbortWithError(c, apperrors.New(apperrors.ErrInvalidParam, "缺少session_id"))
		return
	}

	session, err := h.sessions.Session(c.Request.Context(), sessionID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade已经写了响应
		h.logger.Warn("WebSocket升级失败", zap.String("session_id", sessionID), zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, sessionID, h.sessions, h.opts)
	h.hub.Register(client)
	client.Attach(session)

	// 晚加入的客户端先拿到当前状态
	client.push(MessageTypeConnected, session.Info())

	go client.WritePump()
	go client.ReadPump(h.ctx)
}
