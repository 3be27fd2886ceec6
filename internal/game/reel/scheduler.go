package reel

import (
	"fmt"
	"time"
)

// Task 可取消的定时任务
type Task interface {
	Stop() bool
}

// Scheduler 定时调度器
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Task
}

// TimerScheduler 基于time.AfterFunc的调度器
type TimerScheduler struct{}

// AfterFunc 延时执行
func (TimerScheduler) AfterFunc(d time.Duration, fn func()) Task {
	return time.AfterFunc(d, fn)
}

// Phase 卷轴调度阶段
type Phase string

const (
	PhaseTransition Phase = "transition"
	PhaseStop       Phase = "stop"
)

// taskKey (卷轴, 阶段)
type taskKey struct {
	reel  int
	phase Phase
}

func (k taskKey) String() string {
	return fmt.Sprintf("%s-%d", k.phase, k.reel)
}

// taskSet 按键保存的任务句柄
type taskSet struct {
	scheduler Scheduler
	tasks     map[taskKey]Task
}

func newTaskSet(s Scheduler) *taskSet {
	return &taskSet{scheduler: s, tasks: make(map[taskKey]Task)}
}

// schedule 同键的旧任务先取消
func (t *taskSet) schedule(key taskKey, d time.Duration, fn func()) {
	if old, ok := t.tasks[key]; ok {
		old.Stop()
	}
	t.tasks[key] = t.scheduler.AfterFunc(d, fn)
}

// done 任务已触发，移除句柄
func (t *taskSet) done(key taskKey) {
	delete(t.tasks, key)
}

// cancelAll 取消全部任务
func (t *taskSet) cancelAll() {
	for key, task := range t.tasks {
		task.Stop()
		delete(t.tasks, key)
	}
}

// pending 未触发任务数
func (t *taskSet) pending() int {
	return len(t.tasks)
}

// keys 用于调试
func (t *taskSet) keys() []string {
	keys := make([]string, 0, len(t.tasks))
	for k := range t.tasks {
		keys = append(keys, k.String())
	}
	return keys
}
