package game

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wfunc/casino-builder/internal/config"
	"github.com/wfunc/casino-builder/internal/game/reel"
	"github.com/wfunc/casino-builder/internal/models"
)

// manualScheduler 虚拟时钟，Advance时按到期顺序执行
type manualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	s        *manualScheduler
	deadline time.Duration
	seq      int
	fn       func()
	done     bool
}

func (t *manualTask) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

func (s *manualScheduler) AfterFunc(d time.Duration, fn func()) reel.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &manualTask{s: s, deadline: s.now + d, seq: s.seq, fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

func (s *manualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		var next *manualTask
		for _, t := range s.tasks {
			if t.done || t.deadline > target {
				continue
			}
			if next == nil || t.deadline < next.deadline || (t.deadline == next.deadline && t.seq < next.seq) {
				next = t
			}
		}
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		next.done = true
		s.now = next.deadline
		s.mu.Unlock()

		next.fn()
	}
}

// fixedSettlement 固定倍数的结算
type fixedSettlement struct {
	mu         sync.Mutex
	multiplier float64
	err        error
	calls      int
	requests   []SettleRequest
}

func (f *fixedSettlement) Settle(ctx context.Context, req SettleRequest) (*SettleResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return finalize(&SettleResult{
		TrialID: "trial-" + decimal.NewFromInt(int64(f.calls)).String(),
		Stake:   req.Stake,
		Payout:  req.Stake.Mul(decimal.NewFromFloat(f.multiplier)),
	})
}

// memoryRecorder 内存转动记录
type memoryRecorder struct {
	mu      sync.Mutex
	records []*models.SpinRecord
}

func (m *memoryRecorder) Create(ctx context.Context, record *models.SpinRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *memoryRecorder) all() []*models.SpinRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.SpinRecord(nil), m.records...)
}

// eventLog 记录会话转发的卷轴事件
type eventLog struct {
	mu        sync.Mutex
	commands  []reel.ReelCommand
	states    int
	summaries []reel.SpinSummary
}

func (e *eventLog) OnReelCommand(cmd reel.ReelCommand) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commands = append(e.commands, cmd)
}

func (e *eventLog) OnStateChange(states []reel.ReelState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.states++
}

func (e *eventLog) OnSpinComplete(summary reel.SpinSummary) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.summaries = append(e.summaries, summary)
}

func (e *eventLog) completions() []reel.SpinSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]reel.SpinSummary(nil), e.summaries...)
}

func (e *eventLog) commandCount(typ reel.CommandType) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.commands {
		if c.Type == typ {
			n++
		}
	}
	return n
}

func testSlotsConfig() config.SlotsConfig {
	return config.SlotsConfig{
		ReelCount:   3,
		Symbols:     []string{"cherry", "lemon", "orange", "grape", "seven"},
		StripRepeat: 2,
		Timing: config.TimingConfig{
			BaseDelay:          100 * time.Millisecond,
			Stagger:            50 * time.Millisecond,
			NearMissPause:      200 * time.Millisecond,
			CascadeInterval:    20 * time.Millisecond,
			SimultaneousWindow: 30 * time.Millisecond,
		},
		MinBet:          1,
		MaxBet:          100,
		SessionTimeout:  time.Hour,
		CleanupInterval: time.Minute,
		MaxSessions:     10,
	}
}

func testRules() SlotRules {
	return DefaultRules(testSlotsConfig())
}

// settleAll 推进足够长的虚拟时间让所有卷轴停下
func settleAll(s *manualScheduler) {
	s.Advance(time.Minute)
}
