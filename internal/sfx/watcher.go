package sfx

import (
	"github.com/wfunc/casino-builder/internal/game/reel"
	"go.uber.org/zap"
)

// Cue 一次需要播放的音效
type Cue struct {
	SessionID string `json:"session_id"`
	Tier      Tier   `json:"tier"`
	ReelIndex *int   `json:"reel_index,omitempty"`
}

// Sink 接收音效，在编排器回调内同步调用，不能阻塞
type Sink func(cue Cue)

// Watcher 观察卷轴状态变化得出音效
//
//   - 任一卷轴开始转动: spin
//   - 卷轴停下: reelStop
//   - 本轮结束: 按结果选择 jackpot / bigWin / win / nearMiss
type Watcher struct {
	sessionID string
	guard     *Guard
	sink      Sink
	logger    *zap.Logger
	prev      []reel.ReelState
}

// NewWatcher 创建观察者
func NewWatcher(sessionID string, guard *Guard, sink Sink, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		sessionID: sessionID,
		guard:     guard,
		sink:      sink,
		logger:    logger,
	}
}

// OnReelCommand 指令不参与判断
func (w *Watcher) OnReelCommand(reel.ReelCommand) {}

// OnStateChange 比较前后两次快照
func (w *Watcher) OnStateChange(states []reel.ReelState) {
	started := false
	for i, st := range states {
		var before reel.ReelState
		if i < len(w.prev) {
			before = w.prev[i]
		}
		if st.IsSpinning && !before.IsSpinning {
			started = true
		}
		if st.HasStopped && !before.HasStopped {
			w.emit(TierReelStop, intPtr(st.Index))
		}
	}
	if started {
		w.emit(TierSpin, nil)
	}
	w.prev = append(w.prev[:0], states...)
}

// OnSpinComplete 按结果选择档位
func (w *Watcher) OnSpinComplete(summary reel.SpinSummary) {
	if tier, ok := OutcomeTier(summary.Analysis); ok {
		w.emit(tier, nil)
	}
}

// OutcomeTier 结果对应的档位，没有需要播放的返回false
func OutcomeTier(a *reel.Analysis) (Tier, bool) {
	switch {
	case a == nil:
		return "", false
	case a.IsJackpot:
		return TierJackpot, true
	case a.WinMultiplier >= BigWinMultiplier:
		return TierBigWin, true
	case a.WinMultiplier > 0:
		return TierWin, true
	case a.IsNearMiss:
		return TierNearMiss, true
	}
	return "", false
}

func (w *Watcher) emit(tier Tier, reelIndex *int) {
	if !w.guard.Trigger(tier) {
		w.logger.Debug("音效冷却中", zap.String("tier", string(tier)))
		return
	}
	if w.sink != nil {
		w.sink(Cue{SessionID: w.sessionID, Tier: tier, ReelIndex: reelIndex})
	}
}

func intPtr(v int) *int {
	return &v
}
