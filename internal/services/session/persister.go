package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/storage"
)

// DefaultRetryDelay is how long the persister waits before retrying failed saves
const DefaultRetryDelay = 2 * time.Second

// Persister writes session records behind the authority loop. Pending writes
// are coalesced per identity, so only the latest copy is saved.
type Persister struct {
	storage    storage.Storage
	logger     *slog.Logger
	retryDelay time.Duration

	mu      sync.Mutex
	pending map[model.PlayerIdentity]write
	order   []model.PlayerIdentity
	wake    chan struct{}
}

// write is a queued save, or a removal when remove is set
type write struct {
	rec    model.SessionRecord
	remove bool
}

// NewPersister creates a persister saving to store
func NewPersister(store storage.Storage, logger *slog.Logger) *Persister {
	return &Persister{
		storage:    store,
		logger:     logger.With(slog.String("component", "session_persister")),
		retryDelay: DefaultRetryDelay,
		pending:    make(map[model.PlayerIdentity]write),
		wake:       make(chan struct{}, 1),
	}
}

// Enqueue schedules rec for saving without blocking
func (p *Persister) Enqueue(rec model.SessionRecord) {
	p.queue(write{rec: rec})
}

// Remove schedules the stored record for identity to be deleted. It replaces
// any save still pending for that identity.
func (p *Persister) Remove(identity model.PlayerIdentity) {
	p.queue(write{rec: model.SessionRecord{PlayerIdentity: identity}, remove: true})
}

func (p *Persister) queue(w write) {
	identity := w.rec.PlayerIdentity
	p.mu.Lock()
	if _, ok := p.pending[identity]; !ok {
		p.order = append(p.order, identity)
	}
	p.pending[identity] = w
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of identities with a write waiting
func (p *Persister) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Run saves records as they arrive until ctx is done, then flushes. Records
// that fail to save are retried after the retry delay.
func (p *Persister) Run(ctx context.Context) {
	retry := time.NewTimer(p.retryDelay)
	retry.Stop()
	defer retry.Stop()

	flush := func() {
		if err := p.Flush(ctx); err != nil {
			p.logger.Error("session persist failed", slog.String("error", err.Error()), slog.Int("pending", p.Pending()))
			retry.Reset(p.retryDelay)
		}
	}

	for {
		select {
		case <-p.wake:
			flush()
		case <-retry.C:
			flush()
		case <-ctx.Done():
			if err := p.Flush(context.WithoutCancel(ctx)); err != nil {
				p.logger.Error("final session persist failed", slog.String("error", err.Error()), slog.Int("unsaved", p.Pending()))
			}
			return
		}
	}
}

// Flush writes everything pending. The first error is returned; writes that
// failed stay queued unless a newer one was queued meanwhile.
func (p *Persister) Flush(ctx context.Context) error {
	p.mu.Lock()
	pending, order := p.pending, p.order
	p.pending = make(map[model.PlayerIdentity]write)
	p.order = nil
	p.mu.Unlock()

	var (
		firstErr error
		failed   []write
	)
	for _, identity := range order {
		w := pending[identity]
		var err error
		if w.remove {
			err = p.storage.DeleteSessionRecord(ctx, identity)
		} else {
			err = p.storage.SaveSessionRecord(ctx, &w.rec)
		}
		if err != nil {
			p.logger.Warn("session record not written",
				slog.String("identity", string(identity)),
				slog.Bool("remove", w.remove),
				slog.String("error", err.Error()),
			)
			failed = append(failed, w)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if len(failed) > 0 {
		p.requeue(failed)
	}
	return firstErr
}

// requeue puts failed writes back ahead of anything queued since
func (p *Persister) requeue(writes []write) {
	p.mu.Lock()
	defer p.mu.Unlock()

	order := make([]model.PlayerIdentity, 0, len(writes)+len(p.order))
	for _, w := range writes {
		identity := w.rec.PlayerIdentity
		if _, newer := p.pending[identity]; newer {
			continue
		}
		p.pending[identity] = w
		order = append(order, identity)
	}
	p.order = append(order, p.order...)
}
