package metrics

import (
	"github.com/wfunc/casino-builder/internal/game/reel"
)

// SpinListener 把编排器事件计入指标
type SpinListener struct{}

// OnReelCommand 不计数
func (SpinListener) OnReelCommand(reel.ReelCommand) {}

// OnStateChange 不计数
func (SpinListener) OnStateChange([]reel.ReelState) {}

// OnSpinComplete 记录策略、完成方式和时长
func (SpinListener) OnSpinComplete(summary reel.SpinSummary) {
	ObserveSpin(summary)
}

// ObserveSpin 记录一轮转动
func ObserveSpin(summary reel.SpinSummary) {
	if summary.Strategy != "" {
		StrategySelected.WithLabelValues(summary.Strategy).Inc()
	}
	mode := ModeNatural
	if summary.Forced {
		mode = ModeForced
	}
	SpinsCompleted.WithLabelValues(mode).Inc()
	SpinDuration.Observe(summary.Elapsed.Seconds())
}
