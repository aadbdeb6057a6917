// Package authority runs a role's state mutations on one goroutine.
package authority

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Executor queues work for the authority goroutine
type Executor interface {
	Post(task func())
}

// Loop is the single authority goroutine for one role. Every mutation of
// session, phase and lifecycle state happens inside a posted task.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	running bool
	logger  *slog.Logger
}

// Ensure Loop implements Executor
var _ Executor = (*Loop)(nil)

// NewLoop creates a loop. Tasks run once Run is started or Drain is called.
func NewLoop(logger *slog.Logger) *Loop {
	return &Loop{
		wake:   make(chan struct{}, 1),
		logger: logger.With(slog.String("component", "authority")),
	}
}

// Post appends a task. Safe from any goroutine, including the loop itself.
func (l *Loop) Post(task func()) {
	l.mu.Lock()
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Call runs fn on the loop and waits for it. Never call from inside a task.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes tasks until ctx is cancelled
func (l *Loop) Run(ctx context.Context) {
	l.mu.Lock()
	l.running = true
	l.mu.Unlock()
	l.logger.Info("authority loop started")

	for {
		l.Drain()
		select {
		case <-l.wake:
		case <-ctx.Done():
			l.mu.Lock()
			l.running = false
			dropped := len(l.queue)
			l.mu.Unlock()
			l.logger.Info("authority loop stopped", slog.Int("dropped_tasks", dropped))
			return
		}
	}
}

// Drain runs queued tasks, including ones they post, until the queue is empty
func (l *Loop) Drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, task := range batch {
			l.runTask(task)
		}
	}
}

// Pending returns the number of queued tasks
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Loop) runTask(task func()) {
	defer func() {
		if err := recover(); err != nil {
			l.logger.Error("authority task panicked",
				slog.Any("error", err),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	task()
}
