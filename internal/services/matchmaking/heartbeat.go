package matchmaking

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcoot/arenasession/internal/authority"
)

// DefaultHeartbeatPeriod is used when no period is configured
const DefaultHeartbeatPeriod = 15 * time.Second

// Heartbeater keeps the current lobby alive. Ticks come from the authority
// scheduler; the heartbeat call itself runs off the loop and a tick is skipped
// while the previous call is still in flight.
type Heartbeater struct {
	provider  Provider
	scheduler *authority.Scheduler
	period    time.Duration
	logger    *slog.Logger

	inflight atomic.Bool
	mu       sync.Mutex
	stopped  bool
	wg       sync.WaitGroup
}

// NewHeartbeater creates a heartbeater
func NewHeartbeater(provider Provider, scheduler *authority.Scheduler, period time.Duration, logger *slog.Logger) *Heartbeater {
	if period <= 0 {
		period = DefaultHeartbeatPeriod
	}
	return &Heartbeater{
		provider:  provider,
		scheduler: scheduler,
		period:    period,
		logger:    logger.With(slog.String("component", "heartbeat")),
	}
}

// Run beats every period until ctx is done, then waits for the last call
func (h *Heartbeater) Run(ctx context.Context) {
	timer := h.scheduler.Every(h.period, func() { h.beat(ctx) })
	<-ctx.Done()
	timer.Cancel()

	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *Heartbeater) beat(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped || !h.inflight.CompareAndSwap(false, true) {
		return
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer h.inflight.Store(false)
		if err := h.provider.Heartbeat(ctx); err != nil {
			h.logger.Warn("lobby heartbeat failed", slog.String("error", err.Error()))
		}
	}()
}
