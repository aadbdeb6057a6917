package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/mcoot/arenasession/internal/authority"
	"github.com/mcoot/arenasession/internal/config"
	"github.com/mcoot/arenasession/internal/dependencies/clock"
	"github.com/mcoot/arenasession/internal/dependencies/random"
	"github.com/mcoot/arenasession/internal/events"
	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/netcode"
	"github.com/mcoot/arenasession/internal/scene"
	"github.com/mcoot/arenasession/internal/services/avatar"
	"github.com/mcoot/arenasession/internal/services/game"
	"github.com/mcoot/arenasession/internal/services/identity"
	"github.com/mcoot/arenasession/internal/services/lifecycle"
	"github.com/mcoot/arenasession/internal/services/loading"
	"github.com/mcoot/arenasession/internal/services/lobby"
	"github.com/mcoot/arenasession/internal/services/matchmaking"
	"github.com/mcoot/arenasession/internal/services/menu"
	"github.com/mcoot/arenasession/internal/services/phase"
	"github.com/mcoot/arenasession/internal/services/roster"
	"github.com/mcoot/arenasession/internal/services/session"
	"github.com/mcoot/arenasession/internal/storage"
	"github.com/mcoot/arenasession/internal/storage/memory"
	redisstorage "github.com/mcoot/arenasession/internal/storage/redis"
)

// App contains all wired application components
type App struct {
	Settings config.Config

	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Authority
	Loop      *authority.Loop
	Scheduler *authority.Scheduler
	Bus       *events.Bus

	// Services
	Sessions    *session.Registry
	Persister   *session.Persister
	Phases      *phase.Registry
	Scenes      *scene.Manager
	Loading     *loading.Coordinator
	Roster      *roster.Roster
	Catalog     *avatar.Catalog
	Graphics    *avatar.HeadlessFactory
	GameState   *menu.PersistentGameState
	Matchmaking *matchmaking.Service
	Identity    *identity.Service
	Transport   *netcode.Server

	logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// Settings are the parsed environment and scenario
	Settings config.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// RedisConfig overrides the Redis settings derived from Settings.RedisURL
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.Settings.StorageType
	if storageType == "" {
		storageType = config.StorageMemory
	}

	switch storageType {
	case config.StorageMemory:
		store = memory.New()
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		if cfg.RedisConfig != nil {
			redisCfg = *cfg.RedisConfig
		} else if cfg.Settings.RedisURL != "" {
			redisCfg.URL = cfg.Settings.RedisURL
		} else {
			return nil, errors.New("redis URL required when storage type is redis")
		}
		redisStore, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid storage type: must be 'memory' or 'redis'")
	}

	return newWithDependencies(store, clock.New(), random.New(), cfg.Settings, logger)
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, settings config.Config, logger *slog.Logger) (*App, error) {
	catalog, err := avatar.NewCatalog(settings.Scenario.Appearances, rnd)
	if err != nil {
		return nil, err
	}

	loop := authority.NewLoop(logger)
	bus := events.NewBus()
	persister := session.NewPersister(store, logger)
	sessions := session.NewRegistry(clk, persister, logger)
	coordinator := loading.NewCoordinator(bus, logger)

	app := &App{
		Settings:    settings,
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		Loop:        loop,
		Scheduler:   authority.NewScheduler(clk, loop),
		Bus:         bus,
		Sessions:    sessions,
		Persister:   persister,
		Phases:      phase.NewRegistry(model.RoleServer, logger),
		Loading:     coordinator,
		Roster:      roster.New(sessions, catalog, rnd, logger),
		Catalog:     catalog,
		Graphics:    &avatar.HeadlessFactory{},
		GameState:   menu.NewPersistentGameState(),
		Matchmaking: matchmaking.New(store, clk, rnd, matchmaking.Config{RelayEndpoint: settings.RelayEndpoint, Region: settings.Region}, logger),
		Identity:    identity.New(store, clk, identity.Config{PrefsPath: settings.PrefsPath, Profile: settings.Profile}, logger),
		logger:      logger.With(slog.String("component", "app")),
	}

	app.Transport = netcode.NewServer(app, netcode.ServerConfig{}, logger)
	app.Transport.Start()
	app.Roster.SetSink(app.Transport)
	app.Loading.SetSink(app.Transport)

	app.Scenes = scene.NewManager(scene.Deps{
		Registry:  app.Phases,
		Loading:   coordinator,
		Bus:       bus,
		Executor:  loop,
		Scheduler: app.Scheduler,
		Logger:    logger,
	}, settings.LoadTimeout)
	app.Scenes.SetAnnouncer(app.Transport)
	app.registerScenes()

	return app, nil
}

func (a *App) lifecycleDeps() lifecycle.Deps {
	step := a.Settings.MoveStep
	return lifecycle.Deps{
		Sessions:  a.Sessions,
		Roster:    a.Roster,
		Catalog:   a.Catalog,
		Graphics:  a.Graphics,
		Movers:    func() lifecycle.Mover { return lifecycle.NewKinematicMover(step) },
		Executor:  a.Loop,
		Scheduler: a.Scheduler,
		Bus:       a.Bus,
		Random:    a.Random,
		Sink:      a.Transport,
		Logger:    a.logger,
	}
}

func (a *App) registerScenes() {
	sc := a.Settings.Scenario
	lc := lifecycle.Config{
		SpawnPoints:        sc.LifecycleSpawnPoints(),
		KilledDestroyDelay: a.Settings.KilledDestroyDelay,
	}

	a.Scenes.Register(sc.Scenes.MainMenu, func() phase.Controller {
		return menu.NewMainMenu(a.logger)
	})
	a.Scenes.Register(sc.Scenes.Lobby, func() phase.Controller {
		return lobby.NewController(lobby.Deps{
			Lifecycle:   a.lifecycleDeps(),
			Sessions:    a.Sessions,
			Matchmaking: a.Matchmaking,
			Scenes:      a.Scenes,
		}, lc, lobby.Config{CloseDelay: a.Settings.LobbyCloseDelay, GameScene: sc.Scenes.Game})
	})
	a.Scenes.Register(sc.Scenes.Game, func() phase.Controller {
		return game.NewController(game.Deps{
			Lifecycle: a.lifecycleDeps(),
			Sessions:  a.Sessions,
			State:     a.GameState,
			Scenes:    a.Scenes,
			Notifier:  a.Transport,
		}, lc, game.Config{WinDelay: a.Settings.WinDelay, LoseDelay: a.Settings.LoseDelay, PostGameScene: sc.Scenes.PostGame})
	})
	a.Scenes.Register(sc.Scenes.PostGame, func() phase.Controller {
		return menu.NewPostGame(a.GameState, a.Scenes, sc.Scenes.Lobby, a.logger)
	})
}

// Lobby returns the active lobby controller, if the lobby phase is active
func (a *App) Lobby() (*lobby.Controller, bool) {
	c, ok := a.Phases.ActiveController().(*lobby.Controller)
	return c, ok
}

// Game returns the active in-game controller, if a round is running
func (a *App) Game() (*game.Controller, bool) {
	c, ok := a.Phases.ActiveController().(*game.Controller)
	return c, ok
}

// Avatars returns the avatars of the active phase, if it spawns any
func (a *App) Avatars() []lifecycle.AvatarState {
	switch c := a.Phases.ActiveController().(type) {
	case *lobby.Controller:
		return c.Lifecycle().Avatars()
	case *game.Controller:
		return c.Lifecycle().Avatars()
	}
	return nil
}
