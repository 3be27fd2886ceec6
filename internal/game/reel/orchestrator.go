package reel

import (
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// OrchestratorConfig 编排器配置
type OrchestratorConfig struct {
	ReelCount int
	Timing    TimingConfig
	Scheduler Scheduler // 默认TimerScheduler
	Selector  *Selector // 默认NewSelector()
	Listener  Listener
	Logger    *zap.Logger
	Rand      Rand // 同时停止的抖动随机源
}

// ProcessOptions 处理结果的选项
type ProcessOptions struct {
	ForcedStrategy    string   // 非空且存在时跳过选择器
	AllowedStrategies []string // 选择范围，空表示不限制
	StopOrder         []int    // 按停止先后列出的卷轴下标
	BetMultiplier     float64  // >0时更新上下文中的下注倍数
}

// Orchestrator 卷轴动画编排器
//
// 每个卷轴: idle -> spinning(steady) -> spinning(切换后的动画) -> stopped
// 编排器: inactive -> active -> inactive
//
// 状态变更和指令/状态回调在同一把锁内完成，Listener不能在这两个回调里同步调用编排器。
// 完成回调在释放锁之后执行。
type Orchestrator struct {
	mu sync.Mutex

	reelCount       int
	isActive        bool
	destroyed       bool
	cycle           uint64 // 每次重新调度递增，过期的定时回调据此丢弃
	currentStrategy *Strategy
	reelStates      []ReelState
	context         *AnimationContext
	positions       []int
	analysis        *Analysis

	tasks    *taskSet
	selector *Selector
	timing   TimingConfig
	listener Listener
	logger   *zap.Logger
	rnd      Rand
	started  time.Time
}

// NewOrchestrator 创建编排器
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.ReelCount < 1 {
		return nil, ErrInvalidReelCount
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = TimerScheduler{}
	}
	if cfg.Selector == nil {
		cfg.Selector = NewSelector()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Rand == nil {
		cfg.Rand = DefaultRand
	}
	if cfg.Timing == (TimingConfig{}) {
		cfg.Timing = DefaultTimingConfig()
	}

	o := &Orchestrator{
		reelCount: cfg.ReelCount,
		context:   &AnimationContext{},
		tasks:     newTaskSet(cfg.Scheduler),
		selector:  cfg.Selector,
		timing:    cfg.Timing,
		listener:  cfg.Listener,
		logger:    cfg.Logger,
		rnd:       cfg.Rand,
	}
	o.reelStates = o.defaultStates()
	return o, nil
}

func (o *Orchestrator) defaultStates() []ReelState {
	states := make([]ReelState, o.reelCount)
	for i := range states {
		states[i] = newReelState(i)
	}
	return states
}

// StartSpin 开始一轮转动。调用方保证不会在转动中重复调用
func (o *Orchestrator) StartSpin() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.destroyed {
		o.logger.Warn("编排器已销毁，忽略StartSpin")
		return
	}

	o.tasks.cancelAll()
	o.cycle++
	o.currentStrategy = nil
	o.positions = nil
	o.analysis = nil
	for i := range o.reelStates {
		o.reelStates[i] = ReelState{
			Index:            i,
			IsSpinning:       true,
			CurrentAnimation: AnimationSteady,
		}
	}
	o.isActive = true
	o.started = time.Now()

	for i := range o.reelStates {
		o.emitCommand(ReelCommand{ReelIndex: i, Type: CommandStart, Animation: AnimationSteady})
	}
	o.emitState()

	o.logger.Debug("开始转动", zap.Int("reel_count", o.reelCount), zap.Uint64("cycle", o.cycle))
}

// ProcessResult 根据最终位置调度每个卷轴的切换和停止。
// 非转动状态下调用只记录警告并返回nil
func (o *Orchestrator) ProcessResult(positions []int, analysis *Analysis, opts ProcessOptions) *Strategy {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.destroyed || !o.isActive {
		o.logger.Warn("编排器未处于转动状态，忽略结果",
			zap.Int("reel_count", o.reelCount),
			zap.Bool("destroyed", o.destroyed))
		return nil
	}
	if analysis == nil {
		analysis = &Analysis{NearMissReels: []int{}}
	}
	if len(positions) != o.reelCount {
		o.logger.Warn("停止位置数量与卷轴数不一致",
			zap.Int("reel_count", o.reelCount),
			zap.Int("positions", len(positions)))
	}

	if opts.BetMultiplier > 0 {
		o.context.BetMultiplier = opts.BetMultiplier
	}
	name := opts.ForcedStrategy
	if _, ok := DefaultStrategies[name]; !ok {
		name = o.selector.Select(analysis, o.context, opts.AllowedStrategies)
	}
	UpdateContext(o.context, name, analysis.IsWin)
	strategy := LookupStrategy(name)

	transitionDelays, stopDelays := o.delaysFor(strategy, analysis)
	if len(opts.StopOrder) > 0 {
		if isPermutation(opts.StopOrder, o.reelCount) {
			transitionDelays = reorderDelays(transitionDelays, opts.StopOrder)
			stopDelays = reorderDelays(stopDelays, opts.StopOrder)
		} else {
			o.logger.Warn("无效的停止顺序，按默认顺序停止", zap.Ints("stop_order", opts.StopOrder))
		}
	}

	o.tasks.cancelAll()
	o.cycle++
	cycle := o.cycle
	o.currentStrategy = &strategy
	o.positions = append([]int(nil), positions...)
	o.analysis = analysis

	for i := 0; i < o.reelCount; i++ {
		reel := i
		o.tasks.schedule(taskKey{reel, PhaseTransition}, transitionDelays[i], func() {
			o.fireTransition(cycle, reel)
		})
		o.tasks.schedule(taskKey{reel, PhaseStop}, stopDelays[i], func() {
			o.fireStop(cycle, reel)
		})
	}

	o.logger.Debug("调度卷轴停止",
		zap.String("strategy", strategy.Name),
		zap.Durations("transition_delays", transitionDelays),
		zap.Durations("stop_delays", stopDelays),
		zap.Strings("tasks", o.tasks.keys()))

	result := strategy
	return &result
}

// delaysFor 策略模板的错峰延时，特殊效果覆盖停止延时
func (o *Orchestrator) delaysFor(strategy Strategy, analysis *Analysis) (transition, stop []time.Duration) {
	t := strategy.Timing
	transition = CalculateStaggeredDelays(o.reelCount, t.BaseTransitionDelay, t.TransitionStagger, t.Mode)
	stop = CalculateStaggeredDelays(o.reelCount, t.BaseStopDelay, t.StopStagger, t.Mode)

	switch strategy.Effect {
	case EffectNearMiss:
		stop = ApplyNearMissPause(stop, analysis.NearMissReels, o.timing.NearMissPause)
	case EffectCascade:
		stop = CalculateCascadeTimings(o.reelCount, TimingConfig{
			BaseDelay:       t.BaseStopDelay,
			CascadeInterval: o.timing.CascadeInterval,
		})
	case EffectSimultaneous:
		stop = CalculateSimultaneousTimings(o.reelCount, TimingConfig{
			BaseDelay:          t.BaseStopDelay,
			SimultaneousWindow: o.timing.SimultaneousWindow,
		}, o.rnd)
	}
	return transition, stop
}

// fireTransition 切换到策略动画
func (o *Orchestrator) fireTransition(cycle uint64, reel int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if cycle != o.cycle || !o.isActive {
		return
	}
	o.tasks.done(taskKey{reel, PhaseTransition})

	st := &o.reelStates[reel]
	if st.HasStopped {
		return
	}
	st.CurrentAnimation = o.currentStrategy.Animation
	st.HasTransitioned = true

	o.emitCommand(ReelCommand{ReelIndex: reel, Type: CommandTransition, Animation: st.CurrentAnimation})
	o.emitState()
}

// fireStop 停止卷轴，全部停止后结束本轮
func (o *Orchestrator) fireStop(cycle uint64, reel int) {
	o.mu.Lock()
	notify := o.stopReel(cycle, reel)
	o.mu.Unlock()
	notify()
}

func (o *Orchestrator) stopReel(cycle uint64, reel int) func() {
	if cycle != o.cycle || !o.isActive {
		return noop
	}
	o.tasks.done(taskKey{reel, PhaseStop})

	st := &o.reelStates[reel]
	st.IsSpinning = false
	st.HasStopped = true
	if reel < len(o.positions) {
		st.TargetPosition = intPtr(o.positions[reel])
	}

	o.emitCommand(ReelCommand{
		ReelIndex:      reel,
		Type:           CommandStop,
		Animation:      st.CurrentAnimation,
		TargetPosition: copyInt(st.TargetPosition),
	})
	o.emitState()

	for _, s := range o.reelStates {
		if !s.HasStopped {
			return noop
		}
	}
	return o.complete(false)
}

func noop() {}

// complete 本轮结束，只会在active时执行一次。
// 返回的通知必须在释放锁之后调用
func (o *Orchestrator) complete(forced bool) func() {
	if !o.isActive {
		return noop
	}
	o.isActive = false
	o.tasks.cancelAll()

	summary := SpinSummary{
		Positions: append([]int(nil), o.positions...),
		Forced:    forced,
		Elapsed:   time.Since(o.started),
		Analysis:  o.analysis,
	}
	if o.currentStrategy != nil {
		summary.Strategy = o.currentStrategy.Name
	}

	o.logger.Debug("转动结束",
		zap.String("strategy", summary.Strategy),
		zap.Bool("forced", forced),
		zap.Duration("elapsed", summary.Elapsed))

	cl, ok := o.listener.(CompletionListener)
	if !ok {
		return noop
	}
	return func() { cl.OnSpinComplete(summary) }
}

// ForceStopAll 跳过调度，立即停在给定位置。positions为nil时沿用本轮结果
func (o *Orchestrator) ForceStopAll(positions []int) {
	o.mu.Lock()
	notify := o.forceStop(positions)
	o.mu.Unlock()
	notify()
}

func (o *Orchestrator) forceStop(positions []int) func() {
	if o.destroyed {
		return noop
	}
	o.tasks.cancelAll()
	o.cycle++
	if positions != nil {
		o.positions = append([]int(nil), positions...)
	}

	for i := range o.reelStates {
		st := &o.reelStates[i]
		st.IsSpinning = false
		st.HasStopped = true
		if i < len(o.positions) {
			st.TargetPosition = intPtr(o.positions[i])
		}
		o.emitCommand(ReelCommand{
			ReelIndex:      i,
			Type:           CommandStop,
			Animation:      st.CurrentAnimation,
			TargetPosition: copyInt(st.TargetPosition),
		})
	}
	o.emitState()
	return o.complete(true)
}

// Reset 清除定时器并恢复默认状态
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.destroyed {
		return
	}
	o.reset()
	for i := range o.reelStates {
		o.emitCommand(ReelCommand{ReelIndex: i, Type: CommandReset})
	}
	o.emitState()
}

func (o *Orchestrator) reset() {
	o.tasks.cancelAll()
	o.cycle++
	o.isActive = false
	o.currentStrategy = nil
	o.positions = nil
	o.analysis = nil
	o.reelStates = o.defaultStates()
	o.context = &AnimationContext{BetMultiplier: o.context.BetMultiplier}
}

// Destroy 终止编排器，之后的调用全部忽略
func (o *Orchestrator) Destroy() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.destroyed {
		return
	}
	o.reset()
	o.destroyed = true
	o.listener = nil
}

// SetListener 替换渲染层回调
func (o *Orchestrator) SetListener(l Listener) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.destroyed {
		o.listener = l
	}
}

// IsActive 是否在转动中
func (o *Orchestrator) IsActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.isActive
}

// ReelCount 卷轴数
func (o *Orchestrator) ReelCount() int {
	return o.reelCount
}

// ReelStates 卷轴状态快照
func (o *Orchestrator) ReelStates() []ReelState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshot()
}

// CurrentStrategy 当前策略
func (o *Orchestrator) CurrentStrategy() (Strategy, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.currentStrategy == nil {
		return Strategy{}, false
	}
	return *o.currentStrategy, true
}

// Context 动画上下文快照
func (o *Orchestrator) Context() *AnimationContext {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.context.Clone()
}

// PendingTasks 未触发的定时任务数
func (o *Orchestrator) PendingTasks() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tasks.pending()
}

func (o *Orchestrator) snapshot() []ReelState {
	states := make([]ReelState, len(o.reelStates))
	for i, s := range o.reelStates {
		s.TargetPosition = copyInt(s.TargetPosition)
		states[i] = s
	}
	return states
}

func (o *Orchestrator) emitCommand(cmd ReelCommand) {
	if o.listener != nil {
		o.listener.OnReelCommand(cmd)
	}
}

func (o *Orchestrator) emitState() {
	if o.listener != nil {
		o.listener.OnStateChange(o.snapshot())
	}
}

// isPermutation order是否为0..n-1的排列
func isPermutation(order []int, n int) bool {
	if len(order) != n {
		return false
	}
	seen := make([]bool, n)
	for _, idx := range order {
		if idx < 0 || idx >= n || seen[idx] {
			return false
		}
		seen[idx] = true
	}
	return true
}

// reorderDelays order[k]为第k个停止的卷轴，分配第k小的延时
func reorderDelays(delays []time.Duration, order []int) []time.Duration {
	sorted := append([]time.Duration(nil), delays...)
	slices.Sort(sorted)
	out := make([]time.Duration, len(delays))
	for k, reel := range order {
		out[reel] = sorted[k]
	}
	return out
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	return intPtr(*p)
}
