// Package game is the in-match phase: initial spawn wave, late joins and
// game-over detection.
package game

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/arenasession/internal/authority"
	"github.com/mcoot/arenasession/internal/eventbus"
	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/services/lifecycle"
	"github.com/mcoot/arenasession/internal/services/menu"
	"github.com/mcoot/arenasession/internal/services/phase"
	"github.com/mcoot/arenasession/internal/services/session"
)

const (
	// DefaultWinDelay leaves time for the victory animations
	DefaultWinDelay = 7 * time.Second
	// DefaultLoseDelay leaves time for the defeat animations
	DefaultLoseDelay = 2500 * time.Millisecond
)

// Config holds in-game phase settings
type Config struct {
	WinDelay      time.Duration
	LoseDelay     time.Duration
	PostGameScene string
}

// Deps are the collaborators of the in-game phase
type Deps struct {
	Lifecycle lifecycle.Deps
	Sessions  *session.Registry
	State     *menu.PersistentGameState
	Scenes    phase.SceneLoader
	Notifier  phase.Notifier
}

// Controller manages the in-game phase on the server
type Controller struct {
	sessions  *session.Registry
	lifecycle *lifecycle.Manager
	state     *menu.PersistentGameState
	scenes    phase.SceneLoader
	notifier  phase.Notifier
	scheduler *authority.Scheduler
	deps      lifecycle.Deps
	cfg       Config
	logger    *slog.Logger

	mu               sync.Mutex
	initialSpawnDone bool
	gameOver         bool
	subs             eventbus.Group
}

var _ phase.Controller = (*Controller)(nil)

// NewController creates an in-game phase using spawn settings lc
func NewController(deps Deps, lc lifecycle.Config, cfg Config) *Controller {
	if cfg.WinDelay == 0 {
		cfg.WinDelay = DefaultWinDelay
	}
	if cfg.LoseDelay == 0 {
		cfg.LoseDelay = DefaultLoseDelay
	}
	if cfg.PostGameScene == "" {
		cfg.PostGameScene = model.ScenePostGame
	}

	c := &Controller{
		sessions:  deps.Sessions,
		state:     deps.State,
		scenes:    deps.Scenes,
		notifier:  deps.Notifier,
		scheduler: deps.Lifecycle.Scheduler,
		deps:      deps.Lifecycle,
		cfg:       cfg,
		logger:    deps.Lifecycle.Logger.With(slog.String("component", "game")),
	}
	c.lifecycle = lifecycle.NewManager(deps.Lifecycle, lc, lifecycle.Hooks{
		// the departed avatar is gone by now, so the alive count is current
		AfterDisconnect: func(model.ClientID) { c.CheckForGameOver() },
	})
	return c
}

func (c *Controller) Phase() model.Phase { return model.PhaseInGame }

func (c *Controller) Persists() bool { return false }

// Lifecycle returns the phase's player lifecycle manager
func (c *Controller) Lifecycle() *lifecycle.Manager { return c.lifecycle }

// Activate resets round state and waits for the match scene to load
func (c *Controller) Activate() error {
	if err := c.lifecycle.Validate(); err != nil {
		return err
	}

	c.sessions.OnSessionStarted()
	c.state.Reset()
	c.lifecycle.ResetRound()

	c.mu.Lock()
	c.initialSpawnDone = false
	c.gameOver = false
	c.mu.Unlock()

	bus := c.deps.Bus
	c.subs.Add(
		bus.LoadCompleted.Subscribe(c.onLoadCompleted),
		bus.ClientSynchronized.Subscribe(c.onSynchronized),
		bus.ClientDisconnected.Subscribe(func(e model.ClientDisconnected) {
			c.lifecycle.HandleDisconnect(e.ClientID)
		}),
		bus.LifeStateChanged.Subscribe(func(e model.LifeStateChanged) {
			if e.NewLifeState == model.LifeStateDead {
				c.CheckForGameOver()
			}
		}),
		bus.ObjectiveDefeated.Subscribe(func(e model.ObjectiveDefeated) {
			c.logger.Info("objective defeated", slog.String("objective", e.Name))
			c.endRound(model.WinStateWin, c.cfg.WinDelay)
		}),
	)
	c.lifecycle.SubscribeIntents(&c.subs)

	c.logger.Info("game phase active")
	return nil
}

// Deactivate releases subscriptions and checkpoints every avatar. A
// scheduled post-game transition still runs.
func (c *Controller) Deactivate() {
	c.subs.UnsubscribeAll()
	c.lifecycle.DespawnAll()
	c.logger.Info("game phase deactivated")
}

func (c *Controller) onLoadCompleted(e model.LoadCompleted) {
	c.mu.Lock()
	if c.initialSpawnDone || e.Mode != model.LoadModeSingle {
		c.mu.Unlock()
		return
	}
	c.initialSpawnDone = true
	c.mu.Unlock()

	connected := c.sessions.ConnectedClients()
	for _, id := range connected {
		if err := c.lifecycle.SpawnPlayer(id, false); err != nil {
			c.logger.Error("initial spawn failed",
				slog.Uint64("client_id", uint64(id)),
				slog.String("error", err.Error()),
			)
		}
	}
	if c.notifier != nil {
		c.notifier.Notify(model.NotifyStopLoadingScreen)
	}

	c.logger.Info("initial spawn wave complete",
		slog.Int("players", len(connected)),
		slog.Int("timed_out", len(e.TimedOut)),
	)
}

func (c *Controller) onSynchronized(e model.ClientSynchronized) {
	c.mu.Lock()
	done := c.initialSpawnDone
	c.mu.Unlock()
	if !done || c.lifecycle.HasAvatar(e.ClientID) {
		return
	}

	if err := c.lifecycle.SpawnPlayer(e.ClientID, true); err != nil {
		c.logger.Error("late join spawn failed",
			slog.Uint64("client_id", uint64(e.ClientID)),
			slog.String("error", err.Error()),
		)
		return
	}
	if c.notifier != nil {
		c.notifier.Notify(model.NotifyStopLoadingScreen, e.ClientID)
	}
}

// CheckForGameOver ends the round as a loss once a single avatar is left alive
func (c *Controller) CheckForGameOver() {
	if c.lifecycle.AliveCount() == 1 {
		c.endRound(model.WinStateLoss, c.cfg.LoseDelay)
	}
}

// DefeatObjective reports a scenario win condition for this round. It
// returns false once the outcome is already decided.
func (c *Controller) DefeatObjective(name string) bool {
	if c.GameOver() {
		return false
	}
	c.deps.Bus.ObjectiveDefeated.Publish(model.ObjectiveDefeated{Name: name})
	return true
}

// Outcome returns the recorded result of the round, invalid while undecided
func (c *Controller) Outcome() model.WinState {
	return c.state.WinState()
}

// GameOver reports whether the round outcome is decided
func (c *Controller) GameOver() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gameOver
}

// endRound records the outcome and moves to post-game after delay. Only the
// first call per round has an effect.
func (c *Controller) endRound(outcome model.WinState, delay time.Duration) {
	c.mu.Lock()
	if c.gameOver {
		c.mu.Unlock()
		return
	}
	c.gameOver = true
	c.mu.Unlock()

	c.state.SetWinState(outcome)
	c.logger.Info("game over",
		slog.String("outcome", string(outcome)),
		slog.Duration("delay", delay),
	)

	c.scheduler.After(delay, func() {
		if err := c.scenes.LoadScene(c.cfg.PostGameScene); err != nil {
			c.logger.Error("post game load failed", slog.String("error", err.Error()))
		}
	})
}
