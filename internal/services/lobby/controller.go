// Package lobby is the pre-match phase: players gather, spawn and wait for
// the host to start the game.
package lobby

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/arenasession/internal/authority"
	"github.com/mcoot/arenasession/internal/eventbus"
	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/replicated"
	"github.com/mcoot/arenasession/internal/services/lifecycle"
	"github.com/mcoot/arenasession/internal/services/phase"
	"github.com/mcoot/arenasession/internal/services/session"
)

const (
	// DefaultCloseDelay is the grace period between StartGame and the match load
	DefaultCloseDelay = 3 * time.Second

	reopenTimeout = 10 * time.Second
)

// Locker opens and closes the matchmaking lobby to new joiners
type Locker interface {
	SetLocked(ctx context.Context, locked bool) error
}

// Config holds lobby phase settings
type Config struct {
	CloseDelay time.Duration
	GameScene  string
}

// Deps are the collaborators of the lobby phase
type Deps struct {
	Lifecycle   lifecycle.Deps
	Sessions    *session.Registry
	Matchmaking Locker
	Scenes      phase.SceneLoader
}

// Controller manages the lobby phase on the server
type Controller struct {
	sessions    *session.Registry
	lifecycle   *lifecycle.Manager
	matchmaking Locker
	scenes      phase.SceneLoader
	executor    authority.Executor
	scheduler   *authority.Scheduler
	deps        lifecycle.Deps
	cfg         Config
	logger      *slog.Logger

	// IsLobbyClosed is replicated to clients so they can show the countdown
	IsLobbyClosed *replicated.Field[bool]

	mu         sync.Mutex
	active     bool
	loaded     bool
	closeTimer *authority.Timer
	subs       eventbus.Group
}

var _ phase.Controller = (*Controller)(nil)

// NewController creates a lobby phase using spawn settings lc
func NewController(deps Deps, lc lifecycle.Config, cfg Config) *Controller {
	if cfg.CloseDelay == 0 {
		cfg.CloseDelay = DefaultCloseDelay
	}
	if cfg.GameScene == "" {
		cfg.GameScene = model.SceneInGame
	}

	c := &Controller{
		sessions:      deps.Sessions,
		matchmaking:   deps.Matchmaking,
		scenes:        deps.Scenes,
		executor:      deps.Lifecycle.Executor,
		scheduler:     deps.Lifecycle.Scheduler,
		deps:          deps.Lifecycle,
		cfg:           cfg,
		logger:        deps.Lifecycle.Logger.With(slog.String("component", "lobby")),
		IsLobbyClosed: replicated.NewField("is_lobby_closed", false, replicated.ServerWrite, model.ServerClientID),
	}
	if deps.Lifecycle.Sink != nil {
		c.IsLobbyClosed.SetSink(deps.Lifecycle.Sink)
	}
	c.lifecycle = lifecycle.NewManager(deps.Lifecycle, lc, lifecycle.Hooks{
		BeforeSpawn: func(model.ClientID) { c.CancelCloseLobby() },
	})
	return c
}

func (c *Controller) Phase() model.Phase { return model.PhaseLobby }

func (c *Controller) Persists() bool { return false }

// Lifecycle returns the phase's player lifecycle manager
func (c *Controller) Lifecycle() *lifecycle.Manager { return c.lifecycle }

// Activate starts a new round and spawns players as their scene loads
func (c *Controller) Activate() error {
	if err := c.lifecycle.Validate(); err != nil {
		return err
	}

	c.sessions.OnSessionStarted()
	c.lifecycle.ResetRound()
	_ = c.IsLobbyClosed.Set(model.ServerClientID, false)

	bus := c.deps.Bus
	c.subs.Add(
		bus.LoadCompleted.Subscribe(func(model.LoadCompleted) {
			c.mu.Lock()
			c.loaded = true
			c.mu.Unlock()
			for _, id := range c.sessions.ConnectedClients() {
				c.spawn(id, false)
			}
		}),
		bus.ClientSynchronized.Subscribe(func(e model.ClientSynchronized) {
			// after the initial wave, a returning player is restored as a late join
			c.mu.Lock()
			lateJoin := c.loaded
			c.mu.Unlock()
			c.spawn(e.ClientID, lateJoin)
		}),
		bus.ClientDisconnected.Subscribe(func(e model.ClientDisconnected) {
			c.lifecycle.HandleDisconnect(e.ClientID)
		}),
	)
	c.lifecycle.SubscribeIntents(&c.subs)

	c.mu.Lock()
	c.active = true
	c.loaded = false
	c.mu.Unlock()

	c.logger.Info("lobby phase active")
	return nil
}

// Deactivate releases subscriptions and checkpoints every avatar
func (c *Controller) Deactivate() {
	c.mu.Lock()
	c.active = false
	c.loaded = false
	timer := c.closeTimer
	c.closeTimer = nil
	c.mu.Unlock()

	timer.Cancel()
	c.subs.UnsubscribeAll()
	c.lifecycle.DespawnAll()
	c.IsLobbyClosed.Close()
	c.logger.Info("lobby phase deactivated")
}

func (c *Controller) spawn(clientID model.ClientID, lateJoin bool) {
	if err := c.lifecycle.SpawnPlayer(clientID, lateJoin); err != nil {
		c.logger.Error("lobby spawn failed",
			slog.Uint64("client_id", uint64(clientID)),
			slog.String("error", err.Error()),
		)
	}
}

// StartGame locks the matchmaking lobby and, after the close delay, loads
// the match. Call from outside the authority loop.
func (c *Controller) StartGame(ctx context.Context) error {
	if c.matchmaking != nil {
		if err := c.matchmaking.SetLocked(ctx, true); err != nil && !errors.Is(err, model.ErrNoMatchmakingSession) {
			return err
		}
	}
	c.executor.Post(c.beginClose)
	return nil
}

func (c *Controller) beginClose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active || c.closeTimer.Pending() {
		return
	}

	_ = c.IsLobbyClosed.Set(model.ServerClientID, true)
	c.closeTimer = c.scheduler.After(c.cfg.CloseDelay, c.closeLobby)
	c.logger.Info("lobby closing", slog.Duration("delay", c.cfg.CloseDelay))
}

// CancelCloseLobby aborts a pending close and reopens the lobby
func (c *Controller) CancelCloseLobby() {
	c.mu.Lock()
	timer := c.closeTimer
	c.closeTimer = nil
	c.mu.Unlock()

	if !timer.Cancel() {
		return
	}
	_ = c.IsLobbyClosed.Set(model.ServerClientID, false)
	c.logger.Info("lobby close cancelled")

	if c.matchmaking != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), reopenTimeout)
			defer cancel()
			if err := c.matchmaking.SetLocked(ctx, false); err != nil && !errors.Is(err, model.ErrNoMatchmakingSession) {
				c.logger.Warn("lobby reopen failed", slog.String("error", err.Error()))
			}
		}()
	}
}

// CloseDelay is the grace period StartGame waits before loading the match
func (c *Controller) CloseDelay() time.Duration { return c.cfg.CloseDelay }

// Closing reports whether a close is pending
func (c *Controller) Closing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeTimer.Pending()
}

func (c *Controller) closeLobby() {
	c.mu.Lock()
	active := c.active
	c.closeTimer = nil
	c.mu.Unlock()
	if !active {
		return
	}

	c.sessions.InitializePlayerState()
	c.logger.Info("lobby closed, loading match", slog.String("scene", c.cfg.GameScene))
	if err := c.scenes.LoadScene(c.cfg.GameScene); err != nil {
		c.logger.Error("match load failed", slog.String("error", err.Error()))
	}
}
