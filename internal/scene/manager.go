// Package scene switches scenes, adopting the phase controller each scene
// owns and tracking when every client has finished loading it.
package scene

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/arenasession/internal/authority"
	"github.com/mcoot/arenasession/internal/events"
	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/services/loading"
	"github.com/mcoot/arenasession/internal/services/phase"
)

// DefaultLoadTimeout bounds how long a load waits for slow clients
const DefaultLoadTimeout = 20 * time.Second

// Factory builds a fresh controller for a scene
type Factory func() phase.Controller

// Announcer tells clients to load a scene
type Announcer interface {
	AnnounceScene(name string, load int)
}

type pendingLoad struct {
	scene   string
	seq     int
	clients []model.ClientID
	timer   *authority.Timer
}

// Manager owns the handles of the loaded scene. Run it on the authority loop.
type Manager struct {
	registry  *phase.Registry
	loading   *loading.Coordinator
	bus       *events.Bus
	executor  authority.Executor
	scheduler *authority.Scheduler
	timeout   time.Duration
	logger    *slog.Logger

	mu        sync.Mutex
	factories map[string]Factory
	announcer Announcer
	current   string
	handles   []*phase.Handle
	pending   *pendingLoad
}

// Deps are the collaborators of a Manager
type Deps struct {
	Registry  *phase.Registry
	Loading   *loading.Coordinator
	Bus       *events.Bus
	Executor  authority.Executor
	Scheduler *authority.Scheduler
	Logger    *slog.Logger
}

// NewManager creates a manager with no scenes registered
func NewManager(deps Deps, timeout time.Duration) *Manager {
	if timeout == 0 {
		timeout = DefaultLoadTimeout
	}
	m := &Manager{
		registry:  deps.Registry,
		loading:   deps.Loading,
		bus:       deps.Bus,
		executor:  deps.Executor,
		scheduler: deps.Scheduler,
		timeout:   timeout,
		logger:    deps.Logger.With(slog.String("component", "scene")),
		factories: make(map[string]Factory),
	}
	deps.Bus.ProgressUpdated.Subscribe(func(model.ProgressUpdated) { m.checkLoad(false) })
	// a departing client may be the last one a load was waiting on
	deps.Bus.ClientDisconnected.Subscribe(func(model.ClientDisconnected) {
		m.executor.Post(func() { m.checkLoad(false) })
	})
	return m
}

// Register maps a scene name to its controller factory
func (m *Manager) Register(name string, f Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factories[name] = f
}

// SetAnnouncer sets who is told about scene loads
func (m *Manager) SetAnnouncer(a Announcer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.announcer = a
}

// CurrentScene returns the loaded scene name
func (m *Manager) CurrentScene() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Loading reports whether a load operation is in progress
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending != nil
}

// LoadScene unloads the current scene, activates the new scene's phase and
// starts a load operation across connected clients.
func (m *Manager) LoadScene(name string) error {
	m.mu.Lock()
	factory, ok := m.factories[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("load %q: %w", name, model.ErrUnknownScene)
	}
	previous := m.handles
	m.handles = nil
	old := m.pending
	m.pending = nil
	m.mu.Unlock()

	if old != nil {
		old.timer.Cancel()
	}

	var kept []*phase.Handle
	for _, h := range previous {
		if !m.registry.Deactivate(h) && !h.Destroyed() {
			kept = append(kept, h)
		}
	}

	h := phase.NewHandle(factory())
	adopted, err := m.registry.Activate(h)
	if err != nil {
		m.mu.Lock()
		m.handles = kept
		m.current = name
		m.mu.Unlock()
		return err
	}
	if adopted {
		kept = append(kept, h)
	}

	live := kept[:0]
	for _, k := range kept {
		if !k.Destroyed() {
			live = append(live, k)
		}
	}

	seq := m.loading.BeginLoad()
	load := &pendingLoad{scene: name, seq: seq, clients: m.loading.Clients()}
	load.timer = m.scheduler.After(m.timeout, func() { m.checkLoad(true) })

	m.mu.Lock()
	m.handles = live
	m.current = name
	m.pending = load
	announcer := m.announcer
	m.mu.Unlock()

	m.logger.Info("scene loading",
		slog.String("scene", name),
		slog.Int("load", seq),
		slog.Int("clients", len(load.clients)),
	)
	if announcer != nil {
		announcer.AnnounceScene(name, seq)
	}
	m.executor.Post(func() { m.checkLoad(false) })
	return nil
}

// checkLoad completes the pending load once every participating client
// that is still connected reached full progress, or on timeout.
func (m *Manager) checkLoad(timedOut bool) {
	m.mu.Lock()
	load := m.pending
	if load == nil {
		m.mu.Unlock()
		return
	}

	snapshot := m.loading.Snapshot()
	var completed, waiting []model.ClientID
	for _, id := range load.clients {
		p, tracked := snapshot[id]
		switch {
		case !tracked:
		case p >= 1:
			completed = append(completed, id)
		default:
			waiting = append(waiting, id)
		}
	}
	if len(waiting) > 0 && !timedOut {
		m.mu.Unlock()
		return
	}
	m.pending = nil
	m.mu.Unlock()

	load.timer.Cancel()
	m.logger.Info("scene loaded",
		slog.String("scene", load.scene),
		slog.Int("completed", len(completed)),
		slog.Int("timed_out", len(waiting)),
	)
	m.bus.LoadCompleted.Publish(model.LoadCompleted{
		Scene:     load.scene,
		Mode:      model.LoadModeSingle,
		Completed: completed,
		TimedOut:  waiting,
	})
}

// Synchronized is reported by a client that joined mid-scene and has caught up
func (m *Manager) Synchronized(clientID model.ClientID) {
	m.logger.Debug("client synchronized", slog.Uint64("client_id", uint64(clientID)))
	m.bus.ClientSynchronized.Publish(model.ClientSynchronized{ClientID: clientID})
}
