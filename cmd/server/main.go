package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/casino-builder/internal/api"
	"github.com/wfunc/casino-builder/internal/config"
	"github.com/wfunc/casino-builder/internal/database"
	"github.com/wfunc/casino-builder/internal/errors"
	"github.com/wfunc/casino-builder/internal/game"
	"github.com/wfunc/casino-builder/internal/logger"
	"github.com/wfunc/casino-builder/internal/metrics"
	"github.com/wfunc/casino-builder/internal/repository"
	"github.com/wfunc/casino-builder/internal/service"
	"github.com/wfunc/casino-builder/internal/sfx"
	"github.com/wfunc/casino-builder/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	db      *gorm.DB
	games   *game.GameService
	hub     *websocket.Hub
	sfx     *sfx.Service
	httpSrv *http.Server

	// 关闭控制
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
	)
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Get()

	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Cleanup()

	setupSystem(&cfg.System)

	server := NewServer(cfg)
	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	server.WaitForShutdown()

	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:    cfg,
		logger: logger.GetLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 初始化组件并开始监听
func (s *Server) Start() error {
	s.logger.Info("正在启动赌场搭建服务...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
	)

	if err := s.initDatabase(); err != nil {
		return err
	}

	handler, err := s.initComponents()
	if err != nil {
		return errors.Wrap(err, errors.ErrUnknown, "初始化组件失败")
	}

	addr := net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP服务异常退出", zap.Error(err))
			s.cancel()
		}
	}()

	s.games.Start(s.ctx)

	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置已更新，正在重新加载...")
		s.reloadConfig(newCfg)
	})

	s.logger.Info("服务器启动成功",
		zap.String("http", addr),
		zap.String("websocket", s.cfg.WebSocket.Path),
	)
	return nil
}

// initDatabase 初始化数据库
func (s *Server) initDatabase() error {
	if err := database.Init(&s.cfg.Database); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseConnect, "初始化数据库连接失败")
	}
	s.db = database.DB

	if s.cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(s.db); err != nil {
			return err
		}
	}
	if !database.IsConnected(s.db) {
		return errors.New(errors.ErrDatabaseConnect, "数据库连接检查失败")
	}
	return nil
}

// initComponents 组装业务组件，返回HTTP处理器
func (s *Server) initComponents() (http.Handler, error) {
	var opts []repository.ManagerOption
	if cache := s.cfg.System.Cache; cache.Enabled {
		opts = append(opts, repository.WithCasinoCache(cache.Size, cache.TTL))
	}
	repos := repository.NewManager(s.db, opts...)

	gameLog := logger.GetModuleLogger(logger.ModuleGame)
	settlement, err := game.NewSettlement(s.cfg.Game.Settlement, gameLog)
	if err != nil {
		return nil, err
	}
	if s.cfg.Monitor.Enabled {
		settlement = game.ObserveSettlement(settlement, metrics.ObserveSettlementError)
	}

	s.hub = websocket.NewHub(logger.GetModuleLogger(logger.ModuleWebSocket))
	s.sfx = sfx.NewService(s.cfg.Game.SFX, logger.GetModuleLogger(logger.ModuleSFX))

	hooks := []game.SessionHook{s.hub.SFXHook(s.sfx)}
	if s.cfg.Monitor.Enabled {
		hooks = append(hooks, func(session *game.SlotSession) {
			session.AddListener(metrics.SpinListener{})
		})
	}

	s.games, err = game.NewGameService(game.ServiceConfig{
		Slots:      s.cfg.Game.Slots,
		Casinos:    repos.Casino(),
		Records:    repos.SpinRecord(),
		Settlement: settlement,
		Persister:  game.NewRepositoryStatePersister(repos.SessionState()),
		Logger:     gameLog,
		Hooks:      hooks,
		OnClose: func(sessionID string) {
			s.hub.DisconnectSession(sessionID)
			s.sfx.Release(sessionID)
		},
	})
	if err != nil {
		return nil, err
	}
	if s.cfg.Monitor.Enabled {
		metrics.RegisterSessionsGauge(func() float64 {
			return float64(s.games.Stats().ActiveSessions)
		})
	}

	gin.SetMode(s.cfg.Server.Mode)
	router := api.NewRouter(api.RouterConfig{
		Config:    s.cfg,
		DB:        s.db,
		Services:  service.NewServices(repos, s.cfg, logger.GetModuleLogger(logger.ModuleAPI)),
		Games:     s.games,
		WebSocket: websocket.NewHandler(s.ctx, s.hub, s.games, s.cfg.WebSocket, logger.GetModuleLogger(logger.ModuleWebSocket)),
		Hub:       s.hub,
		Logger:    logger.GetModuleLogger(logger.ModuleAPI),
	})
	return router.Handler(), nil
}

// WaitForShutdown 等待退出信号或服务异常
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case sig := <-sigCh:
		s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
	case <-s.ctx.Done():
	}
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// 先停止接收新请求
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP服务关闭超时", zap.Error(err))
	}
	s.cancel()

	s.hub.CloseAll()
	s.games.Shutdown()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		return errors.New(errors.ErrTimeout, "关闭超时")
	}

	if err := database.Close(s.db); err != nil {
		s.logger.Error("关闭数据库失败", zap.Error(err))
	}
	return nil
}

// reloadConfig 热更新日志级别，其余配置重启后生效
func (s *Server) reloadConfig(newCfg *config.Config) {
	logger.SetLevel(newCfg.Log.Level)
	s.logger.Info("配置重新加载完成", zap.String("log_level", newCfg.Log.Level))
}

// setupSystem 设置系统参数
func setupSystem(cfg *config.SystemConfig) {
	if cfg.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			time.Local = loc
		}
	}
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("赌场搭建服务\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
