package reel

import (
	"math"
	"slices"
)

// Adjustment 根据上下文给候选策略的权重乘一个系数
type Adjustment func(name string, ctx *AnimationContext) float64

// 上下文调整参数
const (
	specialCooldownSpins  = 3
	specialCooldownFactor = 0.5
	flourishLossStreak    = 5
	flourishBoost         = 1.5
	highBetThreshold      = 10
	highBetBoost          = 1.2
	repetitionPenalty     = 0.1
	nearMissOverrideMatch = 4
	nearMissOverrideProb  = 0.7
)

// SpecialCooldown 距上次特殊策略不足3次时特殊策略减半
func SpecialCooldown(name string, ctx *AnimationContext) float64 {
	if IsSpecial(name) && ctx.SpinsSinceSpecial < specialCooldownSpins {
		return specialCooldownFactor
	}
	return 1
}

// FlourishAfterLosses 连输超过5次时放大lossWithFlourish
func FlourishAfterLosses(name string, ctx *AnimationContext) float64 {
	if name == StrategyLossWithFlourish && ctx.ConsecutiveLosses > flourishLossStreak {
		return flourishBoost
	}
	return 1
}

// HighBetBoost 高倍下注时放大大奖类策略
func HighBetBoost(name string, ctx *AnimationContext) float64 {
	switch name {
	case StrategyBigWin, StrategyJackpot, StrategyCascade:
		if ctx.BetMultiplier > highBetThreshold {
			return highBetBoost
		}
	}
	return 1
}

// AntiRepetition 非普通策略与上一次相同时大幅压低
func AntiRepetition(name string, ctx *AnimationContext) float64 {
	if !IsStandard(name) && ctx.Previous() == name {
		return repetitionPenalty
	}
	return 1
}

// DefaultAdjustments 默认调整流水线，按顺序相乘
var DefaultAdjustments = []Adjustment{SpecialCooldown, FlourishAfterLosses, HighBetBoost, AntiRepetition}

// fallbackOrder 无候选时的回落顺序
var fallbackOrder = []string{StrategyBasicStandard, StrategyStandard, StrategyTurboStandard}

// valueBand 按倍率强制选择的区间
type valueBand struct {
	min, max float64 // [min, max)
	buckets  []bucket
}

type bucket struct {
	strategy string
	prob     float64
}

// valueBands 倍率覆盖规则，未覆盖的概率质量直接进入下一条规则
var valueBands = []valueBand{
	{min: 80, max: math.Inf(1), buckets: []bucket{{StrategyJackpot, 1}}},
	{min: 30, max: 80, buckets: []bucket{{StrategyBigWin, 0.8}, {StrategyCascade, 0.2}}},
	{min: 10, max: 30, buckets: []bucket{{StrategyBigWin, 0.6}, {StrategyCascade, 0.3}}},
	{min: 5, max: 10, buckets: []bucket{{StrategyCascade, 0.7}}},
}

// Selector 策略选择器
type Selector struct {
	weights     []AnimationWeight
	adjustments []Adjustment
	rnd         Rand
}

// SelectorOption 选择器选项
type SelectorOption func(*Selector)

// WithWeights 自定义权重表
func WithWeights(weights []AnimationWeight) SelectorOption {
	return func(s *Selector) {
		s.weights = weights
	}
}

// WithAdjustments 自定义调整流水线
func WithAdjustments(adjustments ...Adjustment) SelectorOption {
	return func(s *Selector) {
		s.adjustments = adjustments
	}
}

// WithRand 自定义随机源
func WithRand(rnd Rand) SelectorOption {
	return func(s *Selector) {
		if rnd != nil {
			s.rnd = rnd
		}
	}
}

// NewSelector 创建策略选择器
func NewSelector(opts ...SelectorOption) *Selector {
	s := &Selector{
		weights:     DefaultAnimationWeights,
		adjustments: DefaultAdjustments,
		rnd:         DefaultRand,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select 选择策略。allowed为空表示不限制；结果总是allowed中的成员
func (s *Selector) Select(analysis *Analysis, ctx *AnimationContext, allowed []string) string {
	if analysis == nil {
		analysis = &Analysis{}
	}
	isAllowed := func(name string) bool {
		return len(allowed) == 0 || slices.Contains(allowed, name)
	}

	if name := s.valueOverride(analysis, isAllowed); name != "" {
		return name
	}
	if name := s.nearMissOverride(analysis, isAllowed); name != "" {
		return name
	}
	if name := s.weighted(analysis, ctx, isAllowed); name != "" {
		return name
	}
	return fallback(allowed)
}

// valueOverride 大额中奖跳过权重表
func (s *Selector) valueOverride(analysis *Analysis, isAllowed func(string) bool) string {
	m := analysis.WinMultiplier
	for _, band := range valueBands {
		if m < band.min || m >= band.max {
			continue
		}
		r := s.rnd.Float64()
		cum := 0.0
		for _, b := range band.buckets {
			cum += b.prob
			if r < cum {
				if isAllowed(b.strategy) {
					return b.strategy
				}
				return ""
			}
		}
		return ""
	}
	return ""
}

// nearMissOverride 4个相同的近失有70%概率强制nearMiss
func (s *Selector) nearMissOverride(analysis *Analysis, isAllowed func(string) bool) string {
	if !analysis.IsNearMiss || analysis.MatchingSymbols != nearMissOverrideMatch {
		return ""
	}
	if s.rnd.Float64() < nearMissOverrideProb && isAllowed(StrategyNearMiss) {
		return StrategyNearMiss
	}
	return ""
}

type candidate struct {
	name   string
	weight float64
}

// weighted 过滤、调整、归一化后轮盘抽样
func (s *Selector) weighted(analysis *Analysis, ctx *AnimationContext, isAllowed func(string) bool) string {
	var (
		candidates []candidate
		total      float64
	)
	for _, w := range s.weights {
		if w.BaseWeight <= 0 || !isAllowed(w.StrategyName) || !w.Conditions.Satisfied(analysis) {
			continue
		}
		weight := w.BaseWeight
		if ctx != nil {
			for _, adjust := range s.adjustments {
				weight *= adjust(w.StrategyName, ctx)
			}
		}
		if weight <= 0 {
			continue
		}
		candidates = append(candidates, candidate{name: w.StrategyName, weight: weight})
		total += weight
	}
	if len(candidates) == 0 {
		return ""
	}

	r := s.rnd.Float64() * total
	cum := 0.0
	for _, c := range candidates {
		cum += c.weight
		if r < cum {
			return c.name
		}
	}
	return candidates[len(candidates)-1].name
}

// fallback 固定回落链，不会失败
func fallback(allowed []string) string {
	for _, name := range fallbackOrder {
		if len(allowed) == 0 || slices.Contains(allowed, name) {
			return name
		}
	}
	if len(allowed) > 0 {
		return allowed[0]
	}
	return StrategyBasicStandard
}

// UpdateContext 记录一次选择结果
func UpdateContext(ctx *AnimationContext, strategy string, isWin bool) {
	if ctx == nil {
		return
	}
	if isWin {
		ctx.ConsecutiveWins++
		ctx.ConsecutiveLosses = 0
	} else {
		ctx.ConsecutiveLosses++
		ctx.ConsecutiveWins = 0
	}
	if IsStandard(strategy) {
		ctx.SpinsSinceSpecial++
	} else {
		ctx.SpinsSinceSpecial = 0
	}
	ctx.LastAnimations = append([]string{strategy}, ctx.LastAnimations...)
	if len(ctx.LastAnimations) > maxLastAnimations {
		ctx.LastAnimations = ctx.LastAnimations[:maxLastAnimations]
	}
}
