// Package loading aggregates per-client scene load progress.
package loading

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/mcoot/arenasession/internal/eventbus"
	"github.com/mcoot/arenasession/internal/events"
	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/replicated"
)

// FieldName is the replication key of progress trackers
const FieldName = "load_progress"

type tracker struct {
	field *replicated.Field[float64]
	sub   *eventbus.Subscription
}

// Coordinator owns one progress tracker per connected client
type Coordinator struct {
	bus    *events.Bus
	logger *slog.Logger

	mu       sync.RWMutex
	trackers map[model.ClientID]*tracker
	sink     replicated.Sink
	loadSeq  int

	// local participant; attached is nil when not connected
	attached *model.ClientID
	local    float64
}

// NewCoordinator creates a coordinator publishing progress on bus
func NewCoordinator(bus *events.Bus, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		bus:      bus,
		logger:   logger.With(slog.String("component", "loading")),
		trackers: make(map[model.ClientID]*tracker),
	}
}

// SetSink sets where tracker writes replicate to
func (c *Coordinator) SetSink(sink replicated.Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
	for _, t := range c.trackers {
		t.field.SetSink(sink)
	}
}

// AddTracker creates the tracker for a connected client
func (c *Coordinator) AddTracker(clientID model.ClientID) {
	field := replicated.NewField(FieldName, 0.0, replicated.OwnerWrite, clientID)
	sub := field.OnChanged(func(ch replicated.Change[float64]) {
		c.bus.ProgressUpdated.Publish(model.ProgressUpdated{ClientID: clientID, Progress: ch.Current})
	})

	c.mu.Lock()
	if old, ok := c.trackers[clientID]; ok {
		old.sub.Unsubscribe()
		old.field.Close()
	}
	if c.sink != nil {
		field.SetSink(c.sink)
	}
	c.trackers[clientID] = &tracker{field: field, sub: sub}
	c.mu.Unlock()

	c.logger.Debug("tracker added", slog.Uint64("client_id", uint64(clientID)))
}

// RemoveTracker drops clientID from every aggregate
func (c *Coordinator) RemoveTracker(clientID model.ClientID) {
	c.mu.Lock()
	t, ok := c.trackers[clientID]
	delete(c.trackers, clientID)
	c.mu.Unlock()

	if ok {
		t.sub.Unsubscribe()
		t.field.Retract()
		c.logger.Debug("tracker removed", slog.Uint64("client_id", uint64(clientID)))
	}
}

// Report records progress written by writer for clientID. Only the owning
// client may write. Values are clamped to [0,1] and regressions within one
// load operation are ignored.
func (c *Coordinator) Report(writer, clientID model.ClientID, progress float64) error {
	c.mu.RLock()
	t, ok := c.trackers[clientID]
	c.mu.RUnlock()
	if !ok {
		return &model.StaleReferenceError{ClientID: clientID, Op: "report progress"}
	}

	progress = clamp(progress)
	if progress < t.field.Value() {
		return nil
	}
	if err := t.field.Set(writer, progress); err != nil {
		return fmt.Errorf("report progress: %w", err)
	}
	return nil
}

// ApplyRemote mirrors progress replicated from the owning client
func (c *Coordinator) ApplyRemote(clientID model.ClientID, progress float64) {
	c.mu.RLock()
	t, ok := c.trackers[clientID]
	c.mu.RUnlock()
	if ok {
		t.field.ApplyRemote(clamp(progress))
	}
}

// BeginLoad starts a new load operation with every tracker back at zero
func (c *Coordinator) BeginLoad() int {
	c.mu.Lock()
	c.loadSeq++
	seq := c.loadSeq
	trackers := make([]*tracker, 0, len(c.trackers))
	for _, t := range c.trackers {
		trackers = append(trackers, t)
	}
	c.local = 0
	c.mu.Unlock()

	for _, t := range trackers {
		t.field.ApplyRemote(0)
	}
	c.logger.Info("load operation started", slog.Int("load", seq), slog.Int("trackers", len(trackers)))
	return seq
}

// Attach binds local progress to the local client's tracker
func (c *Coordinator) Attach(clientID model.ClientID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := clientID
	c.attached = &id
}

// Detach falls back to the plain local value
func (c *Coordinator) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attached = nil
}

// LocalProgress returns this participant's progress
func (c *Coordinator) LocalProgress() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.attached != nil {
		if t, ok := c.trackers[*c.attached]; ok {
			return t.field.Value()
		}
	}
	return c.local
}

// SetLocalProgress writes this participant's progress
func (c *Coordinator) SetLocalProgress(progress float64) error {
	c.mu.Lock()
	var id model.ClientID
	tracked := false
	if c.attached != nil {
		id = *c.attached
		_, tracked = c.trackers[id]
	}
	if !tracked {
		if p := clamp(progress); p > c.local {
			c.local = p
		}
	}
	c.mu.Unlock()

	if tracked {
		return c.Report(id, id, progress)
	}
	return nil
}

// Progress returns clientID's progress
func (c *Coordinator) Progress(clientID model.ClientID) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.trackers[clientID]
	if !ok {
		return 0, false
	}
	return t.field.Value(), true
}

// Snapshot returns the progress of every tracked client
func (c *Coordinator) Snapshot() map[model.ClientID]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[model.ClientID]float64, len(c.trackers))
	for id, t := range c.trackers {
		out[id] = t.field.Value()
	}
	return out
}

// Clients returns the tracked clients in ascending order
func (c *Coordinator) Clients() []model.ClientID {
	c.mu.RLock()
	out := make([]model.ClientID, 0, len(c.trackers))
	for id := range c.trackers {
		out = append(out, id)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AllLoaded reports whether every tracked client has reached 1
func (c *Coordinator) AllLoaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.trackers {
		if t.field.Value() < 1 {
			return false
		}
	}
	return true
}

func clamp(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
