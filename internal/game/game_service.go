package game

import (
	"context"

	"github.com/wfunc/casino-builder/internal/config"
	apperrors "github.com/wfunc/casino-builder/internal/errors"
	"github.com/wfunc/casino-builder/internal/game/reel"
	"github.com/wfunc/casino-builder/internal/models"
	"github.com/wfunc/casino-builder/internal/repository"
	"go.uber.org/zap"
)

// CasinoLookup 读取赌场配置
type CasinoLookup interface {
	GetByID(ctx context.Context, id string) (*models.Casino, error)
}

// SessionHook 会话构建完成后调用，用于挂载音效、指标等订阅者
type SessionHook func(session *SlotSession)

// ServiceConfig 游戏服务配置
type ServiceConfig struct {
	Slots      config.SlotsConfig
	Casinos    CasinoLookup                    // 为空时所有会话使用默认规则
	Records    repository.SpinRecordRepository // 可选
	Settlement Settlement
	Persister  StatePersister // 可选，配置后支持重启恢复
	Scheduler  reel.Scheduler // 可选
	Logger     *zap.Logger
	Hooks      []SessionHook
	OnClose    func(sessionID string)
}

// GameService 老虎机会话服务（业务逻辑层）
type GameService struct {
	slots      config.SlotsConfig
	defaults   SlotRules
	timing     reel.TimingConfig
	casinos    CasinoLookup
	records    repository.SpinRecordRepository
	settlement Settlement
	persister  StatePersister
	scheduler  reel.Scheduler
	hooks      []SessionHook
	manager    *SessionManager
	logger     *zap.Logger
}

// NewGameService 创建游戏服务
func NewGameService(cfg ServiceConfig) (*GameService, error) {
	if cfg.Settlement == nil {
		return nil, apperrors.New(apperrors.ErrSettlementUnavailable, "未配置结算服务")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &GameService{
		slots:      cfg.Slots,
		defaults:   DefaultRules(cfg.Slots),
		timing:     TimingFromConfig(cfg.Slots.Timing),
		casinos:    cfg.Casinos,
		records:    cfg.Records,
		settlement: cfg.Settlement,
		persister:  cfg.Persister,
		scheduler:  cfg.Scheduler,
		hooks:      cfg.Hooks,
		logger:     cfg.Logger,
	}

	var recovery *RecoveryManager
	if cfg.Persister != nil {
		recovery = NewRecoveryManager(cfg.Logger, cfg.Persister, cfg.Slots.SessionTimeout)
	}

	s.manager = NewSessionManager(ManagerConfig{
		Logger:         cfg.Logger,
		MaxSessions:    cfg.Slots.MaxSessions,
		SessionTimeout: cfg.Slots.SessionTimeout,
		Builder:        s.build,
		Persister:      cfg.Persister,
		Recovery:       recovery,
		OnClose:        cfg.OnClose,
	})
	return s, nil
}

// rulesFor 默认规则叠加赌场配置
func (s *GameService) rulesFor(ctx context.Context, casinoID string) (SlotRules, error) {
	if s.casinos == nil {
		return s.defaults, nil
	}
	casino, err := s.casinos.GetByID(ctx, casinoID)
	if err != nil {
		return SlotRules{}, err
	}
	return s.defaults.Merge(casino.Slots), nil
}

// build 会话构建器，sm非空表示恢复
func (s *GameService) build(ctx context.Context, sessionID, casinoID string, sm *StateMachine) (*SlotSession, error) {
	rules, err := s.rulesFor(ctx, casinoID)
	if err != nil {
		return nil, err
	}

	opts := SessionOptions{
		ID:         sessionID,
		CasinoID:   casinoID,
		Rules:      rules,
		Timing:     s.timing,
		Settlement: s.settlement,
		Persister:  s.persister,
		State:      sm,
		Scheduler:  s.scheduler,
		Logger:     s.logger,
	}
	if s.records != nil {
		opts.Recorder = s.records
	}

	session, err := NewSlotSession(opts)
	if err != nil {
		return nil, err
	}
	for _, hook := range s.hooks {
		hook(session)
	}
	return session, nil
}

// CreateSession 为赌场创建老虎机会话
func (s *GameService) CreateSession(ctx context.Context, casinoID string) (*CreateSessionResponse, error) {
	session, err := s.manager.Create(ctx, casinoID)
	if err != nil {
		return nil, err
	}
	return &CreateSessionResponse{
		SessionID: session.ID(),
		Session:   session.Info(),
	}, nil
}

// Session 获取会话对象，供推送层订阅
func (s *GameService) Session(ctx context.Context, sessionID string) (*SlotSession, error) {
	return s.manager.Get(ctx, sessionID)
}

// GetSession 会话信息
func (s *GameService) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	session, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Info(), nil
}

// Spin 转动
func (s *GameService) Spin(ctx context.Context, sessionID string, bet float64) (*SpinResult, error) {
	session, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Spin(ctx, bet)
}

// Skip 跳过当前动画
func (s *GameService) Skip(ctx context.Context, sessionID string) error {
	session, err := s.manager.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	return session.Skip(ctx)
}

// EndSession 结束会话
func (s *GameService) EndSession(ctx context.Context, sessionID string) error {
	return s.manager.Remove(ctx, sessionID)
}

// History 会话的转动记录，最新的在前
func (s *GameService) History(ctx context.Context, sessionID string, page, pageSize int) ([]*models.SpinRecord, *repository.Pagination, error) {
	p := repository.NewPagination(page, pageSize)
	if s.records == nil {
		return []*models.SpinRecord{}, p, nil
	}
	records, err := s.records.FindBySessionID(ctx, sessionID, p)
	if err != nil {
		return nil, nil, err
	}
	return records, p, nil
}

// Stats 会话统计
func (s *GameService) Stats() SessionStats {
	return s.manager.Stats()
}

// Manager 会话管理器
func (s *GameService) Manager() *SessionManager {
	return s.manager
}

// Start 启动后台任务
func (s *GameService) Start(ctx context.Context) {
	s.manager.StartCleanupTask(ctx, s.slots.CleanupInterval)
	s.logger.Info("游戏服务已启动",
		zap.Int("max_sessions", s.slots.MaxSessions),
		zap.Duration("session_timeout", s.slots.SessionTimeout))
}

// Shutdown 关闭全部会话
func (s *GameService) Shutdown() {
	s.manager.CloseAll()
	s.logger.Info("游戏服务已停止")
}
