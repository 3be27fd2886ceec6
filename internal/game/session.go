package game

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	apperrors "github.com/wfunc/casino-builder/internal/errors"
	"github.com/wfunc/casino-builder/internal/game/reel"
	"github.com/wfunc/casino-builder/internal/models"
	"go.uber.org/zap"
)

// SpinRecorder 转动记录写入
type SpinRecorder interface {
	Create(ctx context.Context, record *models.SpinRecord) error
}

// SessionOptions 创建会话所需的依赖
type SessionOptions struct {
	ID         string
	CasinoID   string
	Rules      SlotRules
	Timing     reel.TimingConfig
	Settlement Settlement
	Recorder   SpinRecorder   // 可选
	Persister  StatePersister // 可选
	State      *StateMachine  // 可选，恢复会话时传入
	Scheduler  reel.Scheduler // 可选，默认真实定时器
	Selector   *reel.Selector // 可选
	Logger     *zap.Logger
}

// SlotSession 一个玩家的老虎机会话：结算 -> 位置映射 -> 结果分析 -> 卷轴编排
type SlotSession struct {
	id       string
	casinoID string
	rules    SlotRules

	analyzer   *reel.Analyzer
	mapper     *reel.Mapper
	orch       *reel.Orchestrator
	sm         *StateMachine
	settlement Settlement
	recorder   SpinRecorder
	logger     *zap.Logger

	mu           sync.RWMutex
	listeners    map[uint64]reel.Listener
	nextListener uint64
	last         *SpinResult
	createdAt    time.Time
	lastActivity time.Time
}

// NewSlotSession 创建会话
func NewSlotSession(opts SessionOptions) (*SlotSession, error) {
	if err := opts.Rules.Validate(); err != nil {
		return nil, err
	}
	if opts.Settlement == nil {
		return nil, apperrors.New(apperrors.ErrSettlementUnavailable, "未配置结算服务")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	log := opts.Logger.With(zap.String("session_id", opts.ID))

	analyzer, err := reel.NewAnalyzer(opts.Rules.Symbols, reel.WithStripRepeat(opts.Rules.StripRepeat))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInvalidReelConfig)
	}

	s := &SlotSession{
		id:           opts.ID,
		casinoID:     opts.CasinoID,
		rules:        opts.Rules,
		analyzer:     analyzer,
		mapper:       reel.NewMapper(analyzer),
		settlement:   opts.Settlement,
		recorder:     opts.Recorder,
		logger:       log,
		listeners:    make(map[uint64]reel.Listener),
		createdAt:    time.Now(),
		lastActivity: time.Now(),
	}

	s.orch, err = reel.NewOrchestrator(reel.OrchestratorConfig{
		ReelCount: opts.Rules.ReelCount,
		Timing:    opts.Timing,
		Scheduler: opts.Scheduler,
		Selector:  opts.Selector,
		Listener:  s,
		Logger:    log,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInvalidReelConfig)
	}

	s.sm = opts.State
	if s.sm == nil {
		s.sm = NewStateMachine(opts.ID, opts.CasinoID, log, opts.Persister)
	}
	return s, nil
}

// ID 会话ID
func (s *SlotSession) ID() string { return s.id }

// CasinoID 所属赌场
func (s *SlotSession) CasinoID() string { return s.casinoID }

// Rules 玩法规则
func (s *SlotSession) Rules() SlotRules { return s.rules }

// State 会话状态
func (s *SlotSession) State() SessionState { return s.sm.GetState() }

// Orchestrator 卷轴编排器
func (s *SlotSession) Orchestrator() *reel.Orchestrator { return s.orch }

// Spin 发起一次转动，结算完成后返回结果，卷轴动画异步进行
func (s *SlotSession) Spin(ctx context.Context, bet float64) (*SpinResult, error) {
	if err := s.rules.ValidateBet(bet); err != nil {
		return nil, err
	}

	s.sm.SetBet(bet)
	if err := s.sm.Trigger(ctx, EventStartSpin); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrSpinInProgress, string(s.sm.GetState()))
	}
	s.touch()

	s.orch.StartSpin()

	settled, err := s.settlement.Settle(ctx, SettleRequest{
		CasinoID:  s.casinoID,
		SessionID: s.id,
		Stake:     decimal.NewFromFloat(bet),
	})
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	reelCount := s.rules.ReelCount
	target := s.mapper.GetClosestValidPayout(settled.Multiplier, reelCount)
	positions := s.mapper.Map(target, settled.TrialID, reelCount)
	analysis := s.analyzer.Analyze(positions)

	s.sm.SetResult(settled.TrialID, target)
	if err := s.sm.Trigger(ctx, EventResult); err != nil {
		return nil, s.fail(ctx, err)
	}

	strategy := s.orch.ProcessResult(positions, analysis, reel.ProcessOptions{
		AllowedStrategies: s.rules.AllowedStrategies,
		BetMultiplier:     bet / s.rules.MinBet,
	})
	if strategy == nil {
		return nil, s.fail(ctx, apperrors.New(apperrors.ErrNoActiveSpin, "编排器未处于转动状态"))
	}
	s.sm.SetStrategy(strategy.Name)

	result := &SpinResult{
		SessionID:         s.id,
		TrialID:           settled.TrialID,
		Bet:               bet,
		Payout:            settled.Payout.InexactFloat64(),
		SettledMultiplier: settled.Multiplier,
		Multiplier:        target,
		Strategy:          strategy.Name,
		Effect:            string(strategy.Effect),
		Positions:         positions,
		Analysis:          analysis,
	}

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()

	s.record(ctx, result)

	s.logger.Info("转动结算完成",
		zap.String("trial_id", result.TrialID),
		zap.Float64("bet", bet),
		zap.Float64("multiplier", target),
		zap.String("strategy", strategy.Name),
		zap.Ints("positions", positions))

	return result, nil
}

// fail 转动失败，复位编排器并恢复到待机
func (s *SlotSession) fail(ctx context.Context, cause error) error {
	s.sm.SetError(cause.Error())
	if err := s.sm.Trigger(ctx, EventError); err != nil {
		s.logger.Warn("切换到错误状态失败", zap.Error(err))
	}
	s.orch.Reset()
	if err := s.sm.Trigger(ctx, EventRecover); err != nil {
		s.logger.Warn("恢复待机失败", zap.Error(err))
	}

	s.logger.Warn("转动失败", zap.Error(cause))
	return cause
}

// record 写入转动记录，失败只记日志
func (s *SlotSession) record(ctx context.Context, r *SpinResult) {
	if s.recorder == nil {
		return
	}
	rec := &models.SpinRecord{
		SessionID:  s.id,
		CasinoID:   s.casinoID,
		TrialID:    r.TrialID,
		Bet:        r.Bet,
		Multiplier: r.Multiplier,
		Payout:     r.Payout,
		Strategy:   r.Strategy,
		Positions:  r.Positions,
		IsNearMiss: r.Analysis.IsNearMiss,
		IsJackpot:  r.Analysis.IsJackpot,
		Details: models.JSONMap{
			"settled_multiplier": r.SettledMultiplier,
			"near_miss_reels":    r.Analysis.NearMissReels,
			"matching_symbols":   r.Analysis.MatchingSymbols,
		},
	}
	if err := s.recorder.Create(ctx, rec); err != nil {
		s.logger.Error("写入转动记录失败", zap.Error(err))
	}
}

// Skip 跳过动画，立即停在结果位置
func (s *SlotSession) Skip(ctx context.Context) error {
	if s.sm.GetState() != StatePresenting {
		return apperrors.New(apperrors.ErrNoActiveSpin, string(s.sm.GetState()))
	}
	// 结果尚未交给编排器时没有可停的位置
	if _, ok := s.orch.CurrentStrategy(); !ok || !s.orch.IsActive() {
		return apperrors.New(apperrors.ErrNoActiveSpin, "结果尚未就绪")
	}
	s.touch()

	// 停止位置以编排器持有的本轮结果为准
	s.orch.ForceStopAll(nil)
	return nil
}

// Info 会话快照
func (s *SlotSession) Info() *SessionInfo {
	s.mu.RLock()
	last := s.last
	createdAt, lastActivity := s.createdAt, s.lastActivity
	s.mu.RUnlock()

	info := &SessionInfo{
		SessionID:    s.id,
		CasinoID:     s.casinoID,
		State:        s.sm.GetState(),
		Spins:        s.sm.Spins(),
		Rules:        s.rules,
		ReelStates:   s.orch.ReelStates(),
		Context:      s.orch.Context(),
		LastSpin:     last,
		ValidEvents:  s.sm.GetValidEvents(),
		CreatedAt:    createdAt,
		LastActivity: lastActivity,
	}
	if strategy, ok := s.orch.CurrentStrategy(); ok {
		info.Strategy = strategy.Name
	}
	return info
}

// AddListener 订阅卷轴事件，返回取消函数
func (s *SlotSession) AddListener(l reel.Listener) func() {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// ListenerCount 当前订阅数
func (s *SlotSession) ListenerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}

func (s *SlotSession) snapshotListeners() []reel.Listener {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]reel.Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		out = append(out, l)
	}
	return out
}

// OnReelCommand 转发给订阅者
func (s *SlotSession) OnReelCommand(cmd reel.ReelCommand) {
	for _, l := range s.snapshotListeners() {
		l.OnReelCommand(cmd)
	}
}

// OnStateChange 转发给订阅者
func (s *SlotSession) OnStateChange(states []reel.ReelState) {
	for _, l := range s.snapshotListeners() {
		l.OnStateChange(states)
	}
}

// OnSpinComplete 所有卷轴停止，会话回到待机后通知订阅者
func (s *SlotSession) OnSpinComplete(summary reel.SpinSummary) {
	if err := s.sm.Trigger(context.Background(), EventComplete); err != nil {
		s.logger.Warn("完成事件被拒绝", zap.Error(err))
	}
	reel.MultiListener(s.snapshotListeners()).OnSpinComplete(summary)
}

// IdleSince 最后活动时间
func (s *SlotSession) IdleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

func (s *SlotSession) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// Close 销毁编排器并清空订阅
func (s *SlotSession) Close() {
	s.orch.Destroy()
	s.mu.Lock()
	s.listeners = make(map[uint64]reel.Listener)
	s.mu.Unlock()
}
