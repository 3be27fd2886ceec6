package game

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SessionState 会话状态枚举
type SessionState string

const (
	StateIdle       SessionState = "idle"       // 待机，可以转动
	StateSpinning   SessionState = "spinning"   // 已开始转动，等待结算
	StatePresenting SessionState = "presenting" // 结算完成，卷轴动画进行中
	StateError      SessionState = "error"      // 错误状态
)

// 状态机事件
const (
	EventStartSpin = "start_spin"
	EventResult    = "result"
	EventComplete  = "complete"
	EventError     = "error"
	EventRecover   = "recover"
)

// StateTransition 状态转换定义
type StateTransition struct {
	From   SessionState
	Event  string
	To     SessionState
	Action func(ctx context.Context, sm *StateMachine) error
}

// StateMachine 会话状态机
type StateMachine struct {
	mu           sync.RWMutex
	currentState SessionState
	sessionID    string
	casinoID     string
	transitions  map[string][]StateTransition
	logger       *zap.Logger

	// 状态数据
	bet        float64   // 本轮投注
	multiplier float64   // 本轮倍数
	trialID    string    // 结算编号
	strategy   string    // 本轮动画策略
	spins      int       // 累计完成的转动
	startTime  time.Time // 本轮开始时间
	lastUpdate time.Time // 最后更新时间
	errorMsg   string    // 错误信息

	// 回调函数
	onStateChange func(from, to SessionState)

	// 持久化接口
	persister StatePersister
}

// StatePersister 状态持久化接口
type StatePersister interface {
	Save(ctx context.Context, sessionID string, state *StateMachineData) error
	Load(ctx context.Context, sessionID string) (*StateMachineData, error)
	Delete(ctx context.Context, sessionID string) error
}

// StateMachineData 状态机数据（用于持久化）
type StateMachineData struct {
	SessionID    string       `json:"session_id"`
	CasinoID     string       `json:"casino_id"`
	CurrentState SessionState `json:"current_state"`
	Bet          float64      `json:"bet"`
	Multiplier   float64      `json:"multiplier"`
	TrialID      string       `json:"trial_id,omitempty"`
	Strategy     string       `json:"strategy,omitempty"`
	Spins        int          `json:"spins"`
	StartTime    time.Time    `json:"start_time"`
	LastUpdate   time.Time    `json:"last_update"`
	ErrorMsg     string       `json:"error_msg,omitempty"`
}

// NewStateMachine 创建新的状态机
func NewStateMachine(sessionID, casinoID string, logger *zap.Logger, persister StatePersister) *StateMachine {
	if logger == nil {
		logger = zap.NewNop()
	}
	sm := &StateMachine{
		currentState: StateIdle,
		sessionID:    sessionID,
		casinoID:     casinoID,
		transitions:  make(map[string][]StateTransition),
		logger:       logger,
		lastUpdate:   time.Now(),
		persister:    persister,
	}

	sm.initTransitions()
	return sm
}

// initTransitions 初始化状态转换规则
func (sm *StateMachine) initTransitions() {
	// 待机 -> 转动中
	sm.addTransition(StateTransition{
		From:  StateIdle,
		Event: EventStartSpin,
		To:    StateSpinning,
		Action: func(ctx context.Context, sm *StateMachine) error {
			if sm.bet <= 0 {
				return fmt.Errorf("投注金额无效: %v", sm.bet)
			}
			sm.startTime = time.Now()
			sm.multiplier = 0
			sm.trialID = ""
			sm.strategy = ""
			return nil
		},
	})

	// 转动中 -> 展示（结算返回）
	sm.addTransition(StateTransition{
		From:  StateSpinning,
		Event: EventResult,
		To:    StatePresenting,
		Action: func(ctx context.Context, sm *StateMachine) error {
			if sm.trialID == "" {
				return fmt.Errorf("缺少结算编号")
			}
			return nil
		},
	})

	// 展示 -> 待机（所有卷轴停止）
	sm.addTransition(StateTransition{
		From:  StatePresenting,
		Event: EventComplete,
		To:    StateIdle,
		Action: func(ctx context.Context, sm *StateMachine) error {
			sm.spins++
			sm.logger.Debug("转动完成",
				zap.String("session_id", sm.sessionID),
				zap.String("strategy", sm.strategy),
				zap.Float64("multiplier", sm.multiplier),
				zap.Duration("duration", time.Since(sm.startTime)))
			return nil
		},
	})

	// 任何状态 -> 错误状态
	for _, state := range []SessionState{StateIdle, StateSpinning, StatePresenting} {
		sm.addTransition(StateTransition{
			From:  state,
			Event: EventError,
			To:    StateError,
			Action: func(ctx context.Context, sm *StateMachine) error {
				sm.logger.Error("会话出错",
					zap.String("session_id", sm.sessionID),
					zap.String("error", sm.errorMsg))
				return nil
			},
		})
	}

	// 错误状态 -> 待机（恢复）
	sm.addTransition(StateTransition{
		From:  StateError,
		Event: EventRecover,
		To:    StateIdle,
		Action: func(ctx context.Context, sm *StateMachine) error {
			sm.errorMsg = ""
			sm.bet = 0
			sm.multiplier = 0
			sm.trialID = ""
			return nil
		},
	})
}

// addTransition 添加状态转换
func (sm *StateMachine) addTransition(transition StateTransition) {
	key := transitionKey(transition.From, transition.Event)
	sm.transitions[key] = append(sm.transitions[key], transition)
}

// transitionKey 生成转换键
func transitionKey(state SessionState, event string) string {
	return fmt.Sprintf("%s:%s", state, event)
}

// Trigger 触发事件
func (sm *StateMachine) Trigger(ctx context.Context, event string) error {
	sm.mu.Lock()

	key := transitionKey(sm.currentState, event)
	transitions, exists := sm.transitions[key]
	if !exists || len(transitions) == 0 {
		state := sm.currentState
		sm.mu.Unlock()
		return fmt.Errorf("无效的状态转换: 状态=%s, 事件=%s", state, event)
	}

	// 执行第一个匹配的转换
	transition := transitions[0]
	oldState := sm.currentState

	if transition.Action != nil {
		if err := transition.Action(ctx, sm); err != nil {
			// 转换失败，保持原状态
			sm.mu.Unlock()
			return fmt.Errorf("状态转换失败: %w", err)
		}
	}

	sm.currentState = transition.To
	sm.lastUpdate = time.Now()
	data := sm.toData()
	onChange := sm.onStateChange
	sm.mu.Unlock()

	if onChange != nil {
		onChange(oldState, transition.To)
	}

	// 持久化状态
	if sm.persister != nil {
		if err := sm.persister.Save(ctx, sm.sessionID, data); err != nil {
			sm.logger.Error("持久化状态失败",
				zap.Error(err),
				zap.String("session_id", sm.sessionID))
		}
	}

	sm.logger.Debug("状态转换",
		zap.String("session_id", sm.sessionID),
		zap.String("from", string(oldState)),
		zap.String("to", string(transition.To)),
		zap.String("event", event))

	return nil
}

// GetState 获取当前状态
func (sm *StateMachine) GetState() SessionState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState
}

// SetBet 设置本轮投注
func (sm *StateMachine) SetBet(bet float64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.bet = bet
}

// SetResult 记录结算结果
func (sm *StateMachine) SetResult(trialID string, multiplier float64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.trialID = trialID
	sm.multiplier = multiplier
}

// SetStrategy 记录本轮动画策略
func (sm *StateMachine) SetStrategy(name string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.strategy = name
}

// SetError 设置错误信息
func (sm *StateMachine) SetError(err string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.errorMsg = err
}

// Spins 已完成的转动次数
func (sm *StateMachine) Spins() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.spins
}

// LastUpdate 最后一次状态变化时间
func (sm *StateMachine) LastUpdate() time.Time {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.lastUpdate
}

// OnStateChange 设置状态变更回调
func (sm *StateMachine) OnStateChange(fn func(from, to SessionState)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onStateChange = fn
}

// CanTransition 检查是否可以转换
func (sm *StateMachine) CanTransition(event string) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	transitions, exists := sm.transitions[transitionKey(sm.currentState, event)]
	return exists && len(transitions) > 0
}

// GetValidEvents 获取当前状态下的有效事件
func (sm *StateMachine) GetValidEvents() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	var events []string
	prefix := string(sm.currentState) + ":"
	for key := range sm.transitions {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			events = append(events, key[len(prefix):])
		}
	}
	sort.Strings(events)
	return events
}

// Data 当前状态快照
func (sm *StateMachine) Data() *StateMachineData {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.toData()
}

// toData 转换为持久化数据
func (sm *StateMachine) toData() *StateMachineData {
	return &StateMachineData{
		SessionID:    sm.sessionID,
		CasinoID:     sm.casinoID,
		CurrentState: sm.currentState,
		Bet:          sm.bet,
		Multiplier:   sm.multiplier,
		TrialID:      sm.trialID,
		Strategy:     sm.strategy,
		Spins:        sm.spins,
		StartTime:    sm.startTime,
		LastUpdate:   sm.lastUpdate,
		ErrorMsg:     sm.errorMsg,
	}
}

// LoadFromData 从持久化数据加载
func (sm *StateMachine) LoadFromData(data *StateMachineData) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.sessionID = data.SessionID
	sm.casinoID = data.CasinoID
	sm.currentState = data.CurrentState
	sm.bet = data.Bet
	sm.multiplier = data.Multiplier
	sm.trialID = data.TrialID
	sm.strategy = data.Strategy
	sm.spins = data.Spins
	sm.startTime = data.StartTime
	sm.lastUpdate = data.LastUpdate
	sm.errorMsg = data.ErrorMsg
}

// Reset 重置状态机
func (sm *StateMachine) Reset() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.currentState = StateIdle
	sm.bet = 0
	sm.multiplier = 0
	sm.trialID = ""
	sm.strategy = ""
	sm.startTime = time.Time{}
	sm.lastUpdate = time.Now()
	sm.errorMsg = ""
}
