// Package phase enforces a single active game-phase controller per role.
package phase

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/mcoot/arenasession/internal/model"
)

// Controller is a phase's behaviour. Activate subscribes, Deactivate
// releases everything Activate acquired.
type Controller interface {
	Phase() model.Phase
	Persists() bool
	Activate() error
	Deactivate()
}

// Handle is one instance of a controller as owned by a scene
type Handle struct {
	controller Controller
	once       sync.Once
	destroyed  atomic.Bool
}

// NewHandle wraps c
func NewHandle(c Controller) *Handle {
	return &Handle{controller: c}
}

// Controller returns the wrapped controller
func (h *Handle) Controller() Controller { return h.controller }

// Phase returns the controller's phase
func (h *Handle) Phase() model.Phase { return h.controller.Phase() }

// Persists reports whether the handle survives scene unloads
func (h *Handle) Persists() bool { return h.controller.Persists() }

// Destroyed reports whether Destroy has run
func (h *Handle) Destroyed() bool { return h.destroyed.Load() }

// Destroy deactivates the controller. Only the first call has an effect.
func (h *Handle) Destroy() {
	h.once.Do(func() {
		h.destroyed.Store(true)
		h.controller.Deactivate()
	})
}

// Registry tracks the active handle for one role. It holds the handle
// weakly; scenes own their handles.
type Registry struct {
	role   model.Role
	mu     sync.Mutex
	active weak.Pointer[Handle]
	logger *slog.Logger
}

// NewRegistry creates an empty registry for role
func NewRegistry(role model.Role, logger *slog.Logger) *Registry {
	return &Registry{
		role:   role,
		logger: logger.With(slog.String("component", "phase"), slog.String("role", string(role))),
	}
}

// Role returns the role this registry serves
func (r *Registry) Role() model.Role { return r.role }

// Activate makes h the active phase. It returns false when h was discarded
// in favour of a persisting handle of the same phase, or failed to activate.
func (r *Registry) Activate(h *Handle) (bool, error) {
	current := r.current()
	if current == h {
		return true, nil
	}

	if current != nil && current.Persists() && current.Phase() == h.Phase() {
		r.logger.Info("keeping persistent phase, discarding duplicate",
			slog.String("phase", string(h.Phase())),
		)
		h.Destroy()
		return false, nil
	}

	if current != nil {
		r.logger.Info("phase replaced",
			slog.String("from", string(current.Phase())),
			slog.String("to", string(h.Phase())),
		)
		current.Destroy()
	}

	r.setActive(h)
	if err := h.controller.Activate(); err != nil {
		r.logger.Error("phase activation failed",
			slog.String("phase", string(h.Phase())),
			slog.String("error", err.Error()),
		)
		h.Destroy()
		r.clearIf(h)
		return false, fmt.Errorf("activate %s: %w", h.Phase(), err)
	}

	r.logger.Info("phase activated", slog.String("phase", string(h.Phase())))
	return true, nil
}

// Deactivate handles a scene unload. Persisting handles survive and false
// is returned; others are destroyed.
func (r *Registry) Deactivate(h *Handle) bool {
	if h.Persists() {
		return false
	}
	h.Destroy()
	r.clearIf(h)
	r.logger.Info("phase deactivated", slog.String("phase", string(h.Phase())))
	return true
}

// Active returns the active phase
func (r *Registry) Active() (model.Phase, bool) {
	h := r.current()
	if h == nil {
		return "", false
	}
	return h.Phase(), true
}

// ActiveController returns the active controller, or nil
func (r *Registry) ActiveController() Controller {
	h := r.current()
	if h == nil {
		return nil
	}
	return h.controller
}

func (r *Registry) current() *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.active.Value()
	if h == nil || h.Destroyed() {
		return nil
	}
	return h
}

func (r *Registry) setActive(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = weak.Make(h)
}

func (r *Registry) clearIf(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active.Value() == h {
		r.active = weak.Pointer[Handle]{}
	}
}
