package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateMachine_SpinCycle(t *testing.T) {
	ctx := context.Background()
	persister := NewMemoryStatePersister()
	sm := NewStateMachine("s1", "c1", nil, persister)

	var changes [][2]SessionState
	sm.OnStateChange(func(from, to SessionState) {
		changes = append(changes, [2]SessionState{from, to})
	})

	// 未下注不能开始
	require.Error(t, sm.Trigger(ctx, EventStartSpin))
	assert.Equal(t, StateIdle, sm.GetState())

	sm.SetBet(5)
	require.NoError(t, sm.Trigger(ctx, EventStartSpin))
	assert.Equal(t, StateSpinning, sm.GetState())

	// 没有结算编号不能进入展示
	require.Error(t, sm.Trigger(ctx, EventResult))

	sm.SetResult("trial-1", 2)
	require.NoError(t, sm.Trigger(ctx, EventResult))
	sm.SetStrategy("cascade")
	require.NoError(t, sm.Trigger(ctx, EventComplete))

	assert.Equal(t, StateIdle, sm.GetState())
	assert.Equal(t, 1, sm.Spins())
	assert.Equal(t, [][2]SessionState{
		{StateIdle, StateSpinning},
		{StateSpinning, StatePresenting},
		{StatePresenting, StateIdle},
	}, changes)

	saved, err := persister.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, StateIdle, saved.CurrentState)
	assert.Equal(t, "trial-1", saved.TrialID)
	assert.Equal(t, "cascade", saved.Strategy)
	assert.Equal(t, 1, saved.Spins)
}

func TestStateMachine_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(sm *StateMachine)
		event string
	}{
		{"idle不能完成", func(sm *StateMachine) {}, EventComplete},
		{"idle不能收到结果", func(sm *StateMachine) {}, EventResult},
		{"idle不能恢复", func(sm *StateMachine) {}, EventRecover},
		{"转动中不能再次开始", func(sm *StateMachine) {
			sm.SetBet(1)
			_ = sm.Trigger(context.Background(), EventStartSpin)
		}, EventStartSpin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewStateMachine("s", "c", nil, nil)
			tt.setup(sm)
			before := sm.GetState()
			assert.False(t, sm.CanTransition(tt.event))
			assert.Error(t, sm.Trigger(context.Background(), tt.event))
			assert.Equal(t, before, sm.GetState())
		})
	}
}

func TestStateMachine_ErrorAndRecover(t *testing.T) {
	ctx := context.Background()
	sm := NewStateMachine("s", "c", nil, nil)
	sm.SetBet(3)
	require.NoError(t, sm.Trigger(ctx, EventStartSpin))

	sm.SetError("结算超时")
	require.NoError(t, sm.Trigger(ctx, EventError))
	assert.Equal(t, StateError, sm.GetState())
	assert.Equal(t, []string{EventRecover}, sm.GetValidEvents())

	require.NoError(t, sm.Trigger(ctx, EventRecover))
	data := sm.Data()
	assert.Equal(t, StateIdle, data.CurrentState)
	assert.Empty(t, data.ErrorMsg)
	assert.Zero(t, data.Bet)
	assert.Zero(t, data.Spins)
}

func TestStateMachine_ValidEvents(t *testing.T) {
	sm := NewStateMachine("s", "c", nil, nil)
	assert.Equal(t, []string{EventError, EventStartSpin}, sm.GetValidEvents())
}

func TestStateMachine_LoadFromData(t *testing.T) {
	src := NewStateMachine("s", "c", nil, nil)
	src.SetBet(2)
	require.NoError(t, src.Trigger(context.Background(), EventStartSpin))

	dst := NewStateMachine("", "", nil, nil)
	dst.LoadFromData(src.Data())
	assert.Equal(t, StateSpinning, dst.GetState())
	assert.Equal(t, "c", dst.Data().CasinoID)
	assert.Equal(t, 2.0, dst.Data().Bet)

	dst.Reset()
	assert.Equal(t, StateIdle, dst.GetState())
	assert.Zero(t, dst.Data().Bet)
}
