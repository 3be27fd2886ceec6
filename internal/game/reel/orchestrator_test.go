package reel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(t *testing.T, reelCount int) (*Orchestrator, *fakeScheduler, *recorder) {
	t.Helper()
	sched := &fakeScheduler{}
	rec := &recorder{}
	o, err := NewOrchestrator(OrchestratorConfig{
		ReelCount: reelCount,
		Scheduler: sched,
		Selector:  NewSelector(WithRand(newSeqRand(0))),
		Listener:  rec,
		Rand:      newSeqRand(0),
	})
	require.NoError(t, err)
	return o, sched, rec
}

func TestNewOrchestrator_InvalidReelCount(t *testing.T) {
	_, err := NewOrchestrator(OrchestratorConfig{ReelCount: 0})
	assert.ErrorIs(t, err, ErrInvalidReelCount)

	o, err := NewOrchestrator(OrchestratorConfig{ReelCount: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, o.ReelCount())
	assert.False(t, o.IsActive())
}

func TestOrchestrator_FullCycle(t *testing.T) {
	o, sched, rec := newTestOrchestrator(t, 3)
	positions := []int{4, 1, 6}

	o.StartSpin()
	assert.True(t, o.IsActive())
	assert.Len(t, rec.commandsOf(CommandStart), 3)
	for _, s := range o.ReelStates() {
		assert.True(t, s.IsSpinning)
		assert.Equal(t, AnimationSteady, s.CurrentAnimation)
		assert.Nil(t, s.TargetPosition)
	}

	strategy := o.ProcessResult(positions, lossAnalysis(), ProcessOptions{ForcedStrategy: StrategyBasicStandard})
	require.NotNil(t, strategy)
	assert.Equal(t, StrategyBasicStandard, strategy.Name)
	assert.Equal(t, 6, o.PendingTasks())

	// basicStandard: 切换 300/400/500, 停止 1000/1200/1400
	sched.Advance(ms(300))
	states := o.ReelStates()
	assert.True(t, states[0].HasTransitioned)
	assert.Equal(t, AnimationBasic, states[0].CurrentAnimation)
	assert.False(t, states[1].HasTransitioned)

	sched.Advance(ms(700))
	states = o.ReelStates()
	assert.True(t, states[0].HasStopped)
	assert.False(t, states[0].IsSpinning)
	require.NotNil(t, states[0].TargetPosition)
	assert.Equal(t, 4, *states[0].TargetPosition)
	assert.True(t, o.IsActive())
	assert.Empty(t, rec.completions())

	sched.Advance(ms(400))
	assert.False(t, o.IsActive())
	assert.Zero(t, o.PendingTasks())
	assert.Zero(t, sched.Live())

	completions := rec.completions()
	require.Len(t, completions, 1)
	assert.Equal(t, StrategyBasicStandard, completions[0].Strategy)
	assert.Equal(t, positions, completions[0].Positions)
	assert.False(t, completions[0].Forced)

	stops := rec.commandsOf(CommandStop)
	require.Len(t, stops, 3)
	for i, cmd := range stops {
		assert.Equal(t, i, cmd.ReelIndex)
		assert.Equal(t, positions[i], *cmd.TargetPosition)
	}
	assert.Len(t, rec.commandsOf(CommandTransition), 3)

	sched.Advance(ms(5000))
	assert.Len(t, rec.completions(), 1)
}

func TestOrchestrator_ProcessResultWhenInactive(t *testing.T) {
	o, sched, rec := newTestOrchestrator(t, 3)

	assert.Nil(t, o.ProcessResult([]int{1, 2, 3}, lossAnalysis(), ProcessOptions{}))
	assert.Zero(t, sched.Live())
	assert.Empty(t, rec.commands)

	// 重新StartSpin后可以恢复
	o.StartSpin()
	assert.NotNil(t, o.ProcessResult([]int{1, 2, 3}, lossAnalysis(), ProcessOptions{}))
}

func TestOrchestrator_StaleTimersIgnored(t *testing.T) {
	o, sched, rec := newTestOrchestrator(t, 3)
	sched.leaky = true

	o.StartSpin()
	o.ProcessResult([]int{1, 2, 3}, lossAnalysis(), ProcessOptions{ForcedStrategy: StrategyBasicStandard})
	sched.Advance(ms(100))

	// 旧定时器取消失败，仍会触发
	o.StartSpin()
	sched.Advance(ms(2000))

	assert.Empty(t, rec.commandsOf(CommandTransition))
	assert.Empty(t, rec.commandsOf(CommandStop))
	assert.Empty(t, rec.completions())
	assert.True(t, o.IsActive())
	for _, s := range o.ReelStates() {
		assert.True(t, s.IsSpinning)
	}
}

func TestOrchestrator_ForceStopAll(t *testing.T) {
	o, sched, rec := newTestOrchestrator(t, 5)

	o.StartSpin()
	o.ProcessResult([]int{0, 0, 0, 0, 0}, winAnalysis(1), ProcessOptions{ForcedStrategy: StrategyStandard})
	sched.Advance(ms(500))

	o.ForceStopAll([]int{3, 3, 3, 3, 3})
	assert.False(t, o.IsActive())
	assert.Zero(t, sched.Live())
	for _, s := range o.ReelStates() {
		assert.True(t, s.HasStopped)
		assert.False(t, s.IsSpinning)
		assert.Equal(t, 3, *s.TargetPosition)
	}

	completions := rec.completions()
	require.Len(t, completions, 1)
	assert.True(t, completions[0].Forced)
	assert.Equal(t, []int{3, 3, 3, 3, 3}, completions[0].Positions)

	sched.Advance(ms(10000))
	assert.Len(t, rec.completions(), 1)
	assert.Len(t, rec.commandsOf(CommandStop), 5)

	// 非转动状态下再次强停不会重复结束
	o.ForceStopAll(nil)
	assert.Len(t, rec.completions(), 1)
}

func TestOrchestrator_ForceStopKeepsResultPositions(t *testing.T) {
	o, _, rec := newTestOrchestrator(t, 3)

	o.StartSpin()
	o.ProcessResult([]int{5, 2, 7}, lossAnalysis(), ProcessOptions{ForcedStrategy: StrategyBasicStandard})
	o.ForceStopAll(nil)

	completions := rec.completions()
	require.Len(t, completions, 1)
	assert.Equal(t, []int{5, 2, 7}, completions[0].Positions)
	for i, s := range o.ReelStates() {
		require.NotNil(t, s.TargetPosition)
		assert.Equal(t, completions[0].Positions[i], *s.TargetPosition)
	}
}

func TestOrchestrator_CompletionCallbackCanReadState(t *testing.T) {
	for _, forced := range []bool{false, true} {
		t.Run(map[bool]string{false: "定时停止", true: "强制停止"}[forced], func(t *testing.T) {
			sched := &fakeScheduler{}
			var (
				o        *Orchestrator
				active   bool
				states   []ReelState
				finished int
			)
			o, err := NewOrchestrator(OrchestratorConfig{
				ReelCount: 3,
				Scheduler: sched,
				Listener: ListenerFuncs{
					Complete: func(SpinSummary) {
						// 完成回调里读取编排器不会死锁
						active = o.IsActive()
						states = o.ReelStates()
						finished++
					},
				},
			})
			require.NoError(t, err)

			o.StartSpin()
			o.ProcessResult([]int{1, 2, 3}, lossAnalysis(), ProcessOptions{ForcedStrategy: StrategyTurboStandard})
			if forced {
				o.ForceStopAll(nil)
			} else {
				sched.Advance(ms(5000))
			}

			assert.Equal(t, 1, finished)
			assert.False(t, active)
			require.Len(t, states, 3)
			for _, s := range states {
				assert.True(t, s.HasStopped)
			}
		})
	}
}

func TestOrchestrator_ForceStopBeforeResult(t *testing.T) {
	o, _, rec := newTestOrchestrator(t, 3)

	o.StartSpin()
	o.ForceStopAll([]int{1, 2, 3})

	completions := rec.completions()
	require.Len(t, completions, 1)
	assert.Empty(t, completions[0].Strategy)
	assert.Equal(t, []int{1, 2, 3}, completions[0].Positions)
}

func TestOrchestrator_StopOrder(t *testing.T) {
	o, sched, rec := newTestOrchestrator(t, 3)

	o.StartSpin()
	o.ProcessResult([]int{1, 2, 3}, lossAnalysis(), ProcessOptions{
		ForcedStrategy: StrategyBasicStandard,
		StopOrder:      []int{2, 0, 1},
	})
	sched.Advance(ms(5000))

	stops := rec.commandsOf(CommandStop)
	require.Len(t, stops, 3)
	assert.Equal(t, []int{2, 0, 1}, []int{stops[0].ReelIndex, stops[1].ReelIndex, stops[2].ReelIndex})
}

func TestOrchestrator_InvalidStopOrderIgnored(t *testing.T) {
	for _, order := range [][]int{{0, 0, 1}, {0, 1}, {0, 1, 5}} {
		o, sched, rec := newTestOrchestrator(t, 3)
		o.StartSpin()
		o.ProcessResult([]int{1, 2, 3}, lossAnalysis(), ProcessOptions{
			ForcedStrategy: StrategyBasicStandard,
			StopOrder:      order,
		})
		sched.Advance(ms(5000))

		stops := rec.commandsOf(CommandStop)
		require.Len(t, stops, 3)
		assert.Equal(t, []int{0, 1, 2}, []int{stops[0].ReelIndex, stops[1].ReelIndex, stops[2].ReelIndex})
	}
}

func TestOrchestrator_NearMissPause(t *testing.T) {
	o, sched, _ := newTestOrchestrator(t, 5)
	analysis := &Analysis{IsNearMiss: true, MatchingSymbols: 4, NearMissReels: []int{4}}

	o.StartSpin()
	strategy := o.ProcessResult([]int{2, 2, 2, 2, 5}, analysis, ProcessOptions{ForcedStrategy: StrategyNearMiss})
	require.NotNil(t, strategy)
	assert.Equal(t, EffectNearMiss, strategy.Effect)

	// nearMiss: 停止 1200 + 300*i，第4个卷轴再加800
	sched.Advance(ms(2400))
	states := o.ReelStates()
	for i := 0; i < 4; i++ {
		assert.True(t, states[i].HasStopped, "reel %d", i)
	}
	assert.False(t, states[4].HasStopped)
	assert.Equal(t, AnimationTease, states[4].CurrentAnimation)

	sched.Advance(ms(799))
	assert.True(t, o.IsActive())
	sched.Advance(ms(1))
	assert.False(t, o.IsActive())
}

func TestOrchestrator_SimultaneousStop(t *testing.T) {
	o, sched, _ := newTestOrchestrator(t, 4)

	o.StartSpin()
	o.ProcessResult([]int{1, 2, 3, 4}, winAnalysis(2), ProcessOptions{ForcedStrategy: StrategySimultaneous})

	sched.Advance(ms(1299))
	for _, s := range o.ReelStates() {
		assert.False(t, s.HasStopped)
	}
	sched.Advance(ms(1))
	assert.False(t, o.IsActive())
}

func TestOrchestrator_CascadeStop(t *testing.T) {
	o, sched, _ := newTestOrchestrator(t, 3)

	o.StartSpin()
	o.ProcessResult([]int{1, 2, 3}, winAnalysis(6), ProcessOptions{ForcedStrategy: StrategyCascade})

	// cascade: 停止 1000 + 80*i
	sched.Advance(ms(1080))
	states := o.ReelStates()
	assert.True(t, states[1].HasStopped)
	assert.False(t, states[2].HasStopped)
	sched.Advance(ms(80))
	assert.False(t, o.IsActive())
}

func TestOrchestrator_SelectorAndContext(t *testing.T) {
	o, sched, _ := newTestOrchestrator(t, 3)

	o.StartSpin()
	strategy := o.ProcessResult([]int{1, 2, 3}, lossAnalysis(), ProcessOptions{
		ForcedStrategy:    "unknown",
		AllowedStrategies: []string{StrategyTurboStandard},
		BetMultiplier:     4,
	})
	require.NotNil(t, strategy)
	assert.Equal(t, StrategyTurboStandard, strategy.Name)

	current, ok := o.CurrentStrategy()
	assert.True(t, ok)
	assert.Equal(t, StrategyTurboStandard, current.Name)

	ctx := o.Context()
	assert.Equal(t, []string{StrategyTurboStandard}, ctx.LastAnimations)
	assert.Equal(t, 1, ctx.ConsecutiveLosses)
	assert.Equal(t, 4.0, ctx.BetMultiplier)

	// 快照与内部状态隔离
	ctx.LastAnimations[0] = "changed"
	assert.Equal(t, StrategyTurboStandard, o.Context().LastAnimations[0])

	sched.Advance(ms(5000))
	assert.False(t, o.IsActive())
}

func TestOrchestrator_Reset(t *testing.T) {
	o, sched, rec := newTestOrchestrator(t, 3)

	o.StartSpin()
	o.ProcessResult([]int{1, 2, 3}, lossAnalysis(), ProcessOptions{BetMultiplier: 12})
	sched.Advance(ms(350))

	o.Reset()
	assert.False(t, o.IsActive())
	assert.Zero(t, sched.Live())
	assert.Len(t, rec.commandsOf(CommandReset), 3)
	for i, s := range o.ReelStates() {
		assert.Equal(t, newReelState(i), s)
	}
	_, ok := o.CurrentStrategy()
	assert.False(t, ok)

	ctx := o.Context()
	assert.Empty(t, ctx.LastAnimations)
	assert.Zero(t, ctx.ConsecutiveLosses)
	assert.Equal(t, 12.0, ctx.BetMultiplier)

	sched.Advance(ms(5000))
	assert.Empty(t, rec.completions())
}

func TestOrchestrator_Destroy(t *testing.T) {
	o, sched, rec := newTestOrchestrator(t, 3)

	o.StartSpin()
	o.ProcessResult([]int{1, 2, 3}, lossAnalysis(), ProcessOptions{})
	o.Destroy()
	assert.Zero(t, sched.Live())

	before := len(rec.commands)
	o.StartSpin()
	assert.False(t, o.IsActive())
	assert.Nil(t, o.ProcessResult([]int{1, 2, 3}, lossAnalysis(), ProcessOptions{}))
	o.ForceStopAll([]int{1, 2, 3})
	o.Reset()
	o.Destroy()
	assert.Equal(t, before, len(rec.commands))
	assert.Empty(t, rec.completions())
}

func TestOrchestrator_ListenerWithoutCompletion(t *testing.T) {
	sched := &fakeScheduler{}
	var stops int
	o, err := NewOrchestrator(OrchestratorConfig{
		ReelCount: 2,
		Scheduler: sched,
		Listener: struct{ Listener }{ListenerFuncs{
			Command: func(cmd ReelCommand) {
				if cmd.Type == CommandStop {
					stops++
				}
			},
		}},
	})
	require.NoError(t, err)

	o.StartSpin()
	o.ProcessResult([]int{1, 2}, lossAnalysis(), ProcessOptions{ForcedStrategy: StrategyTurboStandard})
	sched.Advance(ms(5000))
	assert.Equal(t, 2, stops)
	assert.False(t, o.IsActive())
}
