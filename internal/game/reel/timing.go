package reel

import (
	"math"
	"math/rand/v2"
	"time"
)

// Rand 均匀随机源，[0,1)
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// DefaultRand 进程级随机源
var DefaultRand Rand = globalRand{}

// TimingConfig 时序配置
type TimingConfig struct {
	BaseDelay          time.Duration `json:"base_delay" mapstructure:"base_delay"`
	Stagger            time.Duration `json:"stagger" mapstructure:"stagger"`
	NearMissPause      time.Duration `json:"near_miss_pause" mapstructure:"near_miss_pause"`
	CascadeInterval    time.Duration `json:"cascade_interval" mapstructure:"cascade_interval"`
	SimultaneousWindow time.Duration `json:"simultaneous_window" mapstructure:"simultaneous_window"`
}

// DefaultTimingConfig 默认时序
func DefaultTimingConfig() TimingConfig {
	return TimingConfig{
		BaseDelay:          1000 * time.Millisecond,
		Stagger:            200 * time.Millisecond,
		NearMissPause:      800 * time.Millisecond,
		CascadeInterval:    80 * time.Millisecond,
		SimultaneousWindow: 120 * time.Millisecond,
	}
}

// CalculateStaggeredDelays 错峰延时
//   - linear:      base + i*stagger
//   - exponential: base + 1.5^i*stagger
//   - reverse:     base + (n-1-i)*stagger
func CalculateStaggeredDelays(reelCount int, base, stagger time.Duration, mode StaggerMode) []time.Duration {
	if reelCount <= 0 {
		return []time.Duration{}
	}
	delays := make([]time.Duration, reelCount)
	for i := range delays {
		var d time.Duration
		switch mode {
		case StaggerExponential:
			d = base + time.Duration(math.Pow(1.5, float64(i))*float64(stagger))
		case StaggerReverse:
			d = base + time.Duration(reelCount-1-i)*stagger
		default:
			d = base + time.Duration(i)*stagger
		}
		delays[i] = max(d, 0)
	}
	return delays
}

// ApplyNearMissPause 近失卷轴及其后的所有卷轴都加上pause，保持从左到右的顺序
func ApplyNearMissPause(delays []time.Duration, nearMissReels []int, pause time.Duration) []time.Duration {
	out := append([]time.Duration{}, delays...)
	for _, reel := range nearMissReels {
		if reel < 0 || reel >= len(out) {
			continue
		}
		for i := reel; i < len(out); i++ {
			out[i] = max(out[i]+pause, 0)
		}
	}
	return out
}

// CalculateNearMissTimings 近失时序
func CalculateNearMissTimings(reelCount int, cfg TimingConfig, nearMissReels []int) []time.Duration {
	base := CalculateStaggeredDelays(reelCount, cfg.BaseDelay, cfg.Stagger, StaggerLinear)
	return ApplyNearMissPause(base, nearMissReels, cfg.NearMissPause)
}

// CalculateCascadeTimings 瀑布时序，用较短的固定间隔代替默认错峰
func CalculateCascadeTimings(reelCount int, cfg TimingConfig) []time.Duration {
	return CalculateStaggeredDelays(reelCount, cfg.BaseDelay, cfg.CascadeInterval, StaggerLinear)
}

// CalculateSimultaneousTimings 同时停止，每个卷轴带[0, window)的随机抖动
func CalculateSimultaneousTimings(reelCount int, cfg TimingConfig, rnd Rand) []time.Duration {
	if reelCount <= 0 {
		return []time.Duration{}
	}
	if rnd == nil {
		rnd = DefaultRand
	}
	delays := make([]time.Duration, reelCount)
	for i := range delays {
		jitter := time.Duration(rnd.Float64() * float64(cfg.SimultaneousWindow))
		delays[i] = max(cfg.BaseDelay+jitter, 0)
	}
	return delays
}
