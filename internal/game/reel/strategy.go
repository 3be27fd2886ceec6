package reel

import (
	"slices"
	"time"
)

// 策略名称
const (
	StrategyBasicStandard    = "basicStandard"
	StrategyStandard         = "standard"
	StrategyTurboStandard    = "turboStandard"
	StrategyTease            = "tease"
	StrategyLossWithFlourish = "lossWithFlourish"
	StrategySimultaneous     = "simultaneous"
	StrategyCascade          = "cascade"
	StrategyNearMiss         = "nearMiss"
	StrategyBigWin           = "bigWin"
	StrategyJackpot          = "jackpot"
)

// SpecialEffect 特殊时序效果
type SpecialEffect string

const (
	EffectNone         SpecialEffect = ""
	EffectNearMiss     SpecialEffect = "nearMiss"
	EffectCascade      SpecialEffect = "cascade"
	EffectSimultaneous SpecialEffect = "simultaneous"
)

// StaggerMode 错峰方式
type StaggerMode string

const (
	StaggerLinear      StaggerMode = "linear"
	StaggerExponential StaggerMode = "exponential"
	StaggerReverse     StaggerMode = "reverse"
)

// StrategyTiming 策略时序模板
type StrategyTiming struct {
	BaseTransitionDelay time.Duration `json:"base_transition_delay"`
	TransitionStagger   time.Duration `json:"transition_stagger"`
	BaseStopDelay       time.Duration `json:"base_stop_delay"`
	StopStagger         time.Duration `json:"stop_stagger"`
	Mode                StaggerMode   `json:"mode"`
}

// Strategy 一组动画参数
type Strategy struct {
	Name      string         `json:"name"`
	Animation AnimationTag   `json:"animation"` // transition阶段切换到的动画
	Effect    SpecialEffect  `json:"effect"`
	Timing    StrategyTiming `json:"timing"`
}

// standardStrategies 普通策略
var standardStrategies = []string{StrategyBasicStandard, StrategyStandard, StrategyTurboStandard}

// specialStrategies 受冷却影响的特殊策略
var specialStrategies = []string{StrategyJackpot, StrategyBigWin, StrategyNearMiss, StrategyCascade}

// IsStandard 是否为普通策略
func IsStandard(name string) bool {
	return slices.Contains(standardStrategies, name)
}

// IsSpecial 是否为特殊策略
func IsSpecial(name string) bool {
	return slices.Contains(specialStrategies, name)
}

func timing(baseTransition, transitionStagger, baseStop, stopStagger int, mode StaggerMode) StrategyTiming {
	return StrategyTiming{
		BaseTransitionDelay: time.Duration(baseTransition) * time.Millisecond,
		TransitionStagger:   time.Duration(transitionStagger) * time.Millisecond,
		BaseStopDelay:       time.Duration(baseStop) * time.Millisecond,
		StopStagger:         time.Duration(stopStagger) * time.Millisecond,
		Mode:                mode,
	}
}

// DefaultStrategies 策略目录
var DefaultStrategies = map[string]Strategy{
	StrategyBasicStandard:    {Name: StrategyBasicStandard, Animation: AnimationBasic, Timing: timing(300, 100, 1000, 200, StaggerLinear)},
	StrategyStandard:         {Name: StrategyStandard, Animation: AnimationBasic, Timing: timing(400, 120, 1200, 250, StaggerLinear)},
	StrategyTurboStandard:    {Name: StrategyTurboStandard, Animation: AnimationTurbo, Timing: timing(150, 50, 600, 100, StaggerLinear)},
	StrategyTease:            {Name: StrategyTease, Animation: AnimationTease, Timing: timing(400, 150, 1400, 300, StaggerExponential)},
	StrategyLossWithFlourish: {Name: StrategyLossWithFlourish, Animation: AnimationTurbo, Timing: timing(300, 80, 1100, 220, StaggerReverse)},
	StrategySimultaneous:     {Name: StrategySimultaneous, Animation: AnimationTurbo, Effect: EffectSimultaneous, Timing: timing(300, 0, 1300, 0, StaggerLinear)},
	StrategyCascade:          {Name: StrategyCascade, Animation: AnimationBasic, Effect: EffectCascade, Timing: timing(300, 60, 1000, 150, StaggerLinear)},
	StrategyNearMiss:         {Name: StrategyNearMiss, Animation: AnimationTease, Effect: EffectNearMiss, Timing: timing(400, 120, 1200, 300, StaggerLinear)},
	StrategyBigWin:           {Name: StrategyBigWin, Animation: AnimationTurbo, Timing: timing(400, 150, 1500, 350, StaggerExponential)},
	StrategyJackpot:          {Name: StrategyJackpot, Animation: AnimationTease, Effect: EffectNearMiss, Timing: timing(500, 200, 1800, 450, StaggerExponential)},
}

// LookupStrategy 查找策略，未知名称回落到basicStandard
func LookupStrategy(name string) Strategy {
	if s, ok := DefaultStrategies[name]; ok {
		return s
	}
	return DefaultStrategies[StrategyBasicStandard]
}

// StrategyNames 全部策略名
func StrategyNames() []string {
	names := make([]string, 0, len(DefaultStrategies))
	for name := range DefaultStrategies {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Conditions 权重项的准入条件，nil字段表示不限制
type Conditions struct {
	RequiresWin      bool     `json:"requires_win,omitempty"`
	RequiresLoss     bool     `json:"requires_loss,omitempty"`
	RequiresNearMiss bool     `json:"requires_near_miss,omitempty"`
	RequiresJackpot  bool     `json:"requires_jackpot,omitempty"`
	MinWinMultiplier *float64 `json:"min_win_multiplier,omitempty"`
	MaxWinMultiplier *float64 `json:"max_win_multiplier,omitempty"`
}

// Satisfied 分析结果是否满足全部条件
func (c *Conditions) Satisfied(a *Analysis) bool {
	if c == nil {
		return true
	}
	if a == nil {
		a = &Analysis{}
	}
	if c.RequiresWin && !a.IsWin {
		return false
	}
	if c.RequiresLoss && a.IsWin {
		return false
	}
	if c.RequiresNearMiss && !a.IsNearMiss {
		return false
	}
	if c.RequiresJackpot && !a.IsJackpot {
		return false
	}
	if c.MinWinMultiplier != nil && a.WinMultiplier < *c.MinWinMultiplier {
		return false
	}
	if c.MaxWinMultiplier != nil && a.WinMultiplier > *c.MaxWinMultiplier {
		return false
	}
	return true
}

// AnimationWeight 权重表条目
type AnimationWeight struct {
	StrategyName string      `json:"strategy_name"`
	BaseWeight   float64     `json:"base_weight"`
	Conditions   *Conditions `json:"conditions,omitempty"`
}

func multiplier(v float64) *float64 {
	return &v
}

// DefaultAnimationWeights 默认权重表
var DefaultAnimationWeights = []AnimationWeight{
	{StrategyName: StrategyBasicStandard, BaseWeight: 40},
	{StrategyName: StrategyStandard, BaseWeight: 25},
	{StrategyName: StrategyTurboStandard, BaseWeight: 15},
	{StrategyName: StrategyTease, BaseWeight: 8, Conditions: &Conditions{RequiresLoss: true}},
	{StrategyName: StrategyLossWithFlourish, BaseWeight: 5, Conditions: &Conditions{RequiresLoss: true}},
	{StrategyName: StrategySimultaneous, BaseWeight: 6, Conditions: &Conditions{RequiresWin: true, MaxWinMultiplier: multiplier(5)}},
	{StrategyName: StrategyCascade, BaseWeight: 10, Conditions: &Conditions{RequiresWin: true, MinWinMultiplier: multiplier(2)}},
	{StrategyName: StrategyNearMiss, BaseWeight: 20, Conditions: &Conditions{RequiresNearMiss: true}},
	{StrategyName: StrategyBigWin, BaseWeight: 15, Conditions: &Conditions{RequiresWin: true, MinWinMultiplier: multiplier(10)}},
	{StrategyName: StrategyJackpot, BaseWeight: 50, Conditions: &Conditions{RequiresJackpot: true}},
}
