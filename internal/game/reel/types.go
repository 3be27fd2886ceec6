package reel

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidReelCount = errors.New("无效的卷轴数量")
	ErrEmptySymbols     = errors.New("符号集为空")
)

// AnimationTag 卷轴动画标签
type AnimationTag string

const (
	AnimationSteady AnimationTag = "steady" // 匀速
	AnimationBasic  AnimationTag = "basic"  // 基础
	AnimationTurbo  AnimationTag = "turbo"  // 加速
	AnimationTease  AnimationTag = "tease"  // 吊胃口
)

// CommandType 渲染指令类型
type CommandType string

const (
	CommandStart      CommandType = "start"
	CommandTransition CommandType = "transition"
	CommandStop       CommandType = "stop"
	CommandReset      CommandType = "reset"
)

// ReelState 单个卷轴状态
type ReelState struct {
	Index            int          `json:"index"`
	IsSpinning       bool         `json:"is_spinning"`
	CurrentAnimation AnimationTag `json:"current_animation"`
	TargetPosition   *int         `json:"target_position"` // 未分配时为nil
	HasTransitioned  bool         `json:"has_transitioned"`
	HasStopped       bool         `json:"has_stopped"`
}

func newReelState(index int) ReelState {
	return ReelState{Index: index, CurrentAnimation: AnimationSteady}
}

// ReelCommand 发往渲染层的指令
type ReelCommand struct {
	ReelIndex      int          `json:"reel_index"`
	Type           CommandType  `json:"type"`
	Animation      AnimationTag `json:"animation,omitempty"`
	TargetPosition *int         `json:"target_position,omitempty"`
}

// String 便于日志输出
func (c ReelCommand) String() string {
	if c.TargetPosition != nil {
		return fmt.Sprintf("%s#%d@%d", c.Type, c.ReelIndex, *c.TargetPosition)
	}
	return fmt.Sprintf("%s#%d", c.Type, c.ReelIndex)
}

// WinLineResult 单条中奖线
type WinLineResult struct {
	LineNumber int      `json:"line_number"`
	Pattern    []int    `json:"pattern"`  // 每个卷轴读取的行
	Symbols    []string `json:"symbols"`  // 线上显示的符号
	MatchCount int      `json:"match_count"`
	Payout     float64  `json:"payout"`
}

// Analysis 结果分析
type Analysis struct {
	IsWin           bool            `json:"is_win"`
	IsJackpot       bool            `json:"is_jackpot"`
	IsNearMiss      bool            `json:"is_near_miss"`
	WinMultiplier   float64         `json:"win_multiplier"`
	MatchingSymbols int             `json:"matching_symbols"`
	NearMissReels   []int           `json:"near_miss_reels"`
	WinLines        []WinLineResult `json:"win_lines"`
}

// AnimationContext 近期动画统计
type AnimationContext struct {
	ConsecutiveWins   int      `json:"consecutive_wins"`
	ConsecutiveLosses int      `json:"consecutive_losses"`
	SpinsSinceSpecial int      `json:"spins_since_special"`
	LastAnimations    []string `json:"last_animations"` // 最新在前
	BetMultiplier     float64  `json:"bet_multiplier"`
}

// maxLastAnimations 历史记录上限
const maxLastAnimations = 10

// Clone 深拷贝
func (c *AnimationContext) Clone() *AnimationContext {
	if c == nil {
		return nil
	}
	cp := *c
	cp.LastAnimations = append([]string(nil), c.LastAnimations...)
	return &cp
}

// Previous 上一次使用的策略
func (c *AnimationContext) Previous() string {
	if c == nil || len(c.LastAnimations) == 0 {
		return ""
	}
	return c.LastAnimations[0]
}

// Listener 渲染层回调
type Listener interface {
	OnReelCommand(cmd ReelCommand)
	OnStateChange(states []ReelState)
}

// CompletionListener 可选接口，所有卷轴停止后回调一次
type CompletionListener interface {
	OnSpinComplete(summary SpinSummary)
}

// SpinSummary 一轮转动的结果摘要
type SpinSummary struct {
	Strategy  string        `json:"strategy"`
	Positions []int         `json:"positions"`
	Forced    bool          `json:"forced"` // 是否由ForceStopAll结束
	Elapsed   time.Duration `json:"elapsed"`
	Analysis  *Analysis     `json:"analysis,omitempty"`
}

// ListenerFuncs 函数式Listener，未设置的回调忽略
type ListenerFuncs struct {
	Command  func(cmd ReelCommand)
	State    func(states []ReelState)
	Complete func(summary SpinSummary)
}

func (l ListenerFuncs) OnReelCommand(cmd ReelCommand) {
	if l.Command != nil {
		l.Command(cmd)
	}
}

func (l ListenerFuncs) OnStateChange(states []ReelState) {
	if l.State != nil {
		l.State(states)
	}
}

func (l ListenerFuncs) OnSpinComplete(summary SpinSummary) {
	if l.Complete != nil {
		l.Complete(summary)
	}
}

// MultiListener 把事件分发给多个Listener
type MultiListener []Listener

func (m MultiListener) OnReelCommand(cmd ReelCommand) {
	for _, l := range m {
		l.OnReelCommand(cmd)
	}
}

func (m MultiListener) OnStateChange(states []ReelState) {
	for _, l := range m {
		l.OnStateChange(states)
	}
}

func (m MultiListener) OnSpinComplete(summary SpinSummary) {
	for _, l := range m {
		if cl, ok := l.(CompletionListener); ok {
			cl.OnSpinComplete(summary)
		}
	}
}

func intPtr(v int) *int {
	return &v
}
