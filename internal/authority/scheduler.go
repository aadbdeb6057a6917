package authority

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcoot/arenasession/internal/dependencies/clock"
)

// Scheduler runs tasks on an Executor after a delay
type Scheduler struct {
	clock clock.Clock
	exec  Executor
}

// NewScheduler creates a scheduler that posts due tasks to exec
func NewScheduler(clk clock.Clock, exec Executor) *Scheduler {
	return &Scheduler{clock: clk, exec: exec}
}

// Timer is a scheduled task. Cancel may be called from any goroutine.
type Timer struct {
	cancelled atomic.Bool
	fired     atomic.Bool

	mu    sync.Mutex
	timer clock.Timer
}

// setTimer records the clock timer currently armed for t. A timer armed
// after Cancel is stopped straight away.
func (t *Timer) setTimer(ct clock.Timer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer = ct
	if t.cancelled.Load() {
		ct.Stop()
	}
}

// After runs fn on the executor once d has elapsed, unless cancelled first
func (s *Scheduler) After(d time.Duration, fn func()) *Timer {
	t := &Timer{}
	t.setTimer(s.clock.AfterFunc(d, func() {
		s.exec.Post(func() {
			if t.cancelled.Load() {
				return
			}
			t.fired.Store(true)
			fn()
		})
	}))
	return t
}

// Every runs fn every d until the returned timer is cancelled. The next
// period starts once fn has run on the executor.
func (s *Scheduler) Every(d time.Duration, fn func()) *Timer {
	t := &Timer{}
	var arm func()
	arm = func() {
		t.setTimer(s.clock.AfterFunc(d, func() {
			s.exec.Post(func() {
				if t.cancelled.Load() {
					return
				}
				fn()
				if !t.cancelled.Load() {
					arm()
				}
			})
		}))
	}
	arm()
	return t
}

// Cancel stops the task if it has not run yet, reporting whether it did so.
// A repeating task is stopped before its next run.
func (t *Timer) Cancel() bool {
	if t == nil || t.fired.Load() {
		return false
	}
	if !t.cancelled.CompareAndSwap(false, true) {
		return false
	}

	t.mu.Lock()
	ct := t.timer
	t.mu.Unlock()
	if ct != nil {
		ct.Stop()
	}
	return true
}

// Pending reports whether the task is still waiting to run
func (t *Timer) Pending() bool {
	return t != nil && !t.fired.Load() && !t.cancelled.Load()
}
