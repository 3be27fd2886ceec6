package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wfunc/casino-builder/internal/config"
	"github.com/wfunc/casino-builder/internal/game"
	"github.com/wfunc/casino-builder/internal/metrics"
	"github.com/wfunc/casino-builder/internal/middleware"
	"github.com/wfunc/casino-builder/internal/service"
	"github.com/wfunc/casino-builder/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RouterConfig 路由依赖
type RouterConfig struct {
	Config    *config.Config
	DB        *gorm.DB // 可选，用于健康检查
	Services  *service.Services
	Games     *game.GameService
	WebSocket *websocket.Handler // 可选
	Hub       *websocket.Hub     // 可选
	Logger    *zap.Logger
}

// Router API路由器
type Router struct {
	engine         *gin.Engine
	cfg            RouterConfig
	casinoHandler  *CasinoHandler
	sessionHandler *SessionHandler
	authMiddleware *middleware.AuthMiddleware
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(cfg RouterConfig) *Router {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	engine := gin.New()

	// 全局中间件
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Recovery())
	engine.Use(middleware.AccessLog())
	if cfg.Config.Monitor.Enabled {
		engine.Use(metrics.Middleware())
	}

	router := &Router{
		engine:         engine,
		cfg:            cfg,
		casinoHandler:  NewCasinoHandler(cfg.Services.Casino, cfg.Games, cfg.Logger),
		sessionHandler: NewSessionHandler(cfg.Games),
		authMiddleware: middleware.NewAuthMiddleware(cfg.Services.JWT),
		log:            cfg.Logger,
	}

	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.healthCheck)

	if r.cfg.Config.Monitor.Enabled {
		path := r.cfg.Config.Monitor.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.engine.Group("/api/v1")
	{
		casinos := v1.Group("/casinos")
		{
			casinos.POST("", r.casinoHandler.Create)
			casinos.GET("", r.casinoHandler.List)
			casinos.GET("/:id", r.casinoHandler.Get)
			casinos.PUT("/:id", r.authMiddleware.RequireEditor("id"), r.casinoHandler.Update)
			casinos.DELETE("/:id", r.authMiddleware.RequireEditor("id"), r.casinoHandler.Delete)
			casinos.POST("/:id/slots/sessions", r.casinoHandler.CreateSession)
		}

		sessions := v1.Group("/slots/sessions")
		{
			sessions.GET("/:sid", r.sessionHandler.Get)
			sessions.DELETE("/:sid", r.sessionHandler.Delete)
			sessions.POST("/:sid/spin", r.sessionHandler.Spin)
			sessions.POST("/:sid/skip", r.sessionHandler.Skip)
			sessions.GET("/:sid/history", r.sessionHandler.History)
		}
	}

	if r.cfg.WebSocket != nil {
		path := r.cfg.Config.WebSocket.Path
		if path == "" {
			path = "/ws"
		}
		r.engine.GET(path, r.cfg.WebSocket.Handle)
	}

	r.engine.NoRoute(noRoute)
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	if r.cfg.DB != nil {
		sqlDB, err := r.cfg.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			r.log.Warn("健康检查数据库失败", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"message": "数据库连接失败",
			})
			return
		}
	}

	stats := r.cfg.Games.Stats()
	body := gin.H{
		"status":          "healthy",
		"active_sessions": stats.ActiveSessions,
		"max_sessions":    stats.MaxSessions,
	}
	if r.cfg.Hub != nil {
		body["ws_clients"] = r.cfg.Hub.GetOnlineCount()
	}
	c.JSON(http.StatusOK, body)
}

// Handler 返回http.Handler
func (r *Router) Handler() http.Handler {
	return r.engine
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
