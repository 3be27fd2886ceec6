package reel

import (
	"sync"
	"time"
)

// fakeScheduler 虚拟时钟调度器，Advance时按到期顺序触发
type fakeScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*fakeTask
	leaky bool // Stop不阻止触发，模拟已经到期正在等锁的定时器
}

type fakeTask struct {
	s        *fakeScheduler
	deadline time.Duration
	seq      int
	fn       func()
	stopped  bool
	fired    bool
}

func (t *fakeTask) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	if !t.s.leaky {
		t.stopped = true
	}
	return true
}

func (s *fakeScheduler) AfterFunc(d time.Duration, fn func()) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	task := &fakeTask{s: s, deadline: s.now + d, seq: s.seq, fn: fn}
	s.tasks = append(s.tasks, task)
	return task
}

// Advance 推进虚拟时间并执行到期任务
func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		var next *fakeTask
		for _, t := range s.tasks {
			if t.fired || t.stopped || t.deadline > target {
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
		next.fired = true
		s.now = next.deadline
		s.mu.Unlock()

		next.fn()
	}
}

// Live 未触发且未取消的任务数
func (s *fakeScheduler) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

// seqRand 循环返回固定序列
type seqRand struct {
	mu   sync.Mutex
	vals []float64
	i    int
}

func newSeqRand(vals ...float64) *seqRand {
	return &seqRand{vals: vals}
}

func (r *seqRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}

// recorder 记录编排器回调
type recorder struct {
	mu        sync.Mutex
	commands  []ReelCommand
	states    [][]ReelState
	summaries []SpinSummary
}

func (r *recorder) OnReelCommand(cmd ReelCommand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
}

func (r *recorder) OnStateChange(states []ReelState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, states)
}

func (r *recorder) OnSpinComplete(summary SpinSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, summary)
}

func (r *recorder) commandsOf(typ CommandType) []ReelCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ReelCommand
	for _, c := range r.commands {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

func (r *recorder) completions() []SpinSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SpinSummary(nil), r.summaries...)
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
