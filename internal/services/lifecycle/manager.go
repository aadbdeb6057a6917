// Package lifecycle spawns, restores and despawns player avatars for the
// active phase using the session registry as the source of truth.
package lifecycle

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mcoot/arenasession/internal/authority"
	"github.com/mcoot/arenasession/internal/dependencies/random"
	"github.com/mcoot/arenasession/internal/eventbus"
	"github.com/mcoot/arenasession/internal/events"
	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/replicated"
	"github.com/mcoot/arenasession/internal/services/avatar"
	"github.com/mcoot/arenasession/internal/services/roster"
)

// DefaultKilledDestroyDelay is how long a dead avatar lingers
const DefaultKilledDestroyDelay = 3 * time.Second

// Sessions is the slice of the session registry the manager needs
type Sessions interface {
	GetPlayerData(clientID model.ClientID) (model.SessionRecord, bool)
	UpdatePlayerData(clientID model.ClientID, mutate func(*model.SessionRecord)) error
	Identity(clientID model.ClientID) (model.PlayerIdentity, bool)
	BeginCheckpoint(identity model.PlayerIdentity)
	CompleteCheckpoint(identity model.PlayerIdentity)
}

// SpawnPoint is a starting transform
type SpawnPoint struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// Transform is the replicated pose of an avatar
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// Config holds per-scenario settings
type Config struct {
	SpawnPoints        []SpawnPoint
	KilledDestroyDelay time.Duration
}

// Hooks let a phase variant extend the shared behaviour
type Hooks struct {
	// BeforeSpawn runs ahead of every spawn that will go through
	BeforeSpawn func(clientID model.ClientID)
	// AfterDisconnect runs once the disconnected client has been checkpointed
	AfterDisconnect func(clientID model.ClientID)
}

// Deps are the collaborators of a Manager
type Deps struct {
	Sessions  Sessions
	Roster    *roster.Roster
	Catalog   *avatar.Catalog
	Graphics  avatar.GraphicsFactory
	Movers    MoverFactory
	Executor  authority.Executor
	Scheduler *authority.Scheduler
	Bus       *events.Bus
	Random    random.Random
	Sink      replicated.Sink
	Logger    *slog.Logger
}

// Avatar is a spawned player character
type Avatar struct {
	ClientID  model.ClientID
	Name      string
	Binding   *avatar.Binding
	Mover     Mover
	Life      *replicated.Field[model.LifeState]
	Transform *replicated.Field[Transform]

	destroyTimer *authority.Timer
}

// Alive reports whether the avatar is alive
func (a *Avatar) Alive() bool {
	return a.Life.Value() == model.LifeStateAlive
}

func (a *Avatar) syncTransform() {
	_ = a.Transform.Set(model.ServerClientID, Transform{Position: a.Mover.Position(), Rotation: a.Mover.Rotation()})
}

// AvatarState is a copy of an avatar's observable state
type AvatarState struct {
	ClientID     model.ClientID     `json:"client_id"`
	Name         string             `json:"name"`
	AppearanceID model.AppearanceID `json:"appearance_id"`
	Position     mgl64.Vec3         `json:"position"`
	Rotation     mgl64.Quat         `json:"rotation"`
	Alive        bool               `json:"alive"`
}

// Manager owns the avatars and spawn pool of one phase instance. All methods
// run on the authority loop.
type Manager struct {
	deps   Deps
	cfg    Config
	hooks  Hooks
	logger *slog.Logger

	mu      sync.RWMutex
	avatars map[model.ClientID]*Avatar
	pool    []SpawnPoint
}

// NewManager creates a manager. Missing spawn points surface on first spawn.
func NewManager(deps Deps, cfg Config, hooks Hooks) *Manager {
	if cfg.KilledDestroyDelay == 0 {
		cfg.KilledDestroyDelay = DefaultKilledDestroyDelay
	}
	if deps.Movers == nil {
		deps.Movers = func() Mover { return NewKinematicMover(1) }
	}
	return &Manager{
		deps:    deps,
		cfg:     cfg,
		hooks:   hooks,
		logger:  deps.Logger.With(slog.String("component", "lifecycle")),
		avatars: make(map[model.ClientID]*Avatar),
	}
}

// Validate reports configuration that would make spawning impossible
func (m *Manager) Validate() error {
	if len(m.cfg.SpawnPoints) == 0 {
		return &model.ConfigurationError{What: "no spawn points configured"}
	}
	return nil
}

// ResetRound reshuffles the spawn pool for a new round
func (m *Manager) ResetRound() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refillLocked()
}

// SubscribeIntents routes movement and rotation RPCs into the manager
func (m *Manager) SubscribeIntents(group *eventbus.Group) {
	group.Add(
		m.deps.Bus.MovementIntent.Subscribe(func(e model.MovementIntent) {
			m.SubmitMovementIntent(e.ClientID, e.Direction)
		}),
		m.deps.Bus.RotationIntent.Subscribe(func(e model.RotationIntent) {
			m.SubmitRotationIntent(e.ClientID, e.AngleDelta)
		}),
	)
}

// SpawnPlayer creates the avatar for clientID. A character that already
// spawned this round is only restored on a late join, at its checkpoint.
func (m *Manager) SpawnPlayer(clientID model.ClientID, isLateJoin bool) error {
	rec, ok := m.deps.Sessions.GetPlayerData(clientID)
	if !ok {
		m.logger.Warn("spawn for unknown client", slog.Uint64("client_id", uint64(clientID)))
		return nil
	}
	if rec.HasCharacterSpawned && !isLateJoin {
		return nil
	}
	if m.HasAvatar(clientID) {
		return nil
	}

	if m.hooks.BeforeSpawn != nil {
		m.hooks.BeforeSpawn(clientID)
	}

	restore := isLateJoin && rec.HasCharacterSpawned
	var point SpawnPoint
	alive := true
	if restore {
		point = SpawnPoint{Position: rec.PlayerPosition, Rotation: rec.PlayerRotation}
		alive = rec.Alive
	} else {
		var err error
		if point, err = m.nextSpawnPoint(); err != nil {
			return err
		}
	}

	name, appearance := m.persistentLook(clientID, rec)

	mover := m.deps.Movers()
	mover.Teleport(point.Position, point.Rotation)

	life := model.LifeStateAlive
	if !alive {
		life = model.LifeStateDead
	}
	a := &Avatar{
		ClientID:  clientID,
		Name:      name,
		Binding:   avatar.NewBinding(clientID, appearance, m.deps.Graphics),
		Mover:     mover,
		Life:      replicated.NewField("life_state", life, replicated.ServerWrite, clientID),
		Transform: replicated.NewField("transform", Transform{Position: point.Position, Rotation: point.Rotation}, replicated.ServerWrite, clientID),
	}
	if m.deps.Sink != nil {
		a.Life.SetSink(m.deps.Sink)
		a.Transform.SetSink(m.deps.Sink)
	}
	if m.deps.Graphics != nil {
		if _, err := a.Binding.Graphics(); err != nil {
			m.logger.Warn("avatar graphics unavailable",
				slog.Uint64("client_id", uint64(clientID)),
				slog.String("appearance", appearance.Name),
				slog.String("error", err.Error()),
			)
		}
	}

	m.mu.Lock()
	m.avatars[clientID] = a
	m.mu.Unlock()
	if !alive {
		m.scheduleDestroy(a)
	}

	if err := m.deps.Sessions.UpdatePlayerData(clientID, func(r *model.SessionRecord) {
		r.HasCharacterSpawned = true
		r.AvatarAppearanceID = appearance.ID
	}); err != nil {
		m.logger.Warn("spawn not recorded", slog.String("error", err.Error()))
	}

	m.logger.Info("player spawned",
		slog.Uint64("client_id", uint64(clientID)),
		slog.String("name", name),
		slog.Bool("late_join", isLateJoin),
		slog.Bool("restored", restore),
		slog.Bool("alive", alive),
	)
	return nil
}

func (m *Manager) persistentLook(clientID model.ClientID, rec model.SessionRecord) (string, avatar.Appearance) {
	name := rec.PlayerName
	appearanceID := rec.AvatarAppearanceID

	if m.deps.Roster != nil {
		p, ok := m.deps.Roster.Get(clientID)
		if !ok {
			var err error
			if p, err = m.deps.Roster.Add(clientID); err != nil {
				m.logger.Warn("no persistent player", slog.String("error", err.Error()))
			}
		}
		if p != nil {
			name = p.Name.Value()
			appearanceID = p.Appearance.Value()
		}
	}

	appearance, ok := m.deps.Catalog.TryGet(appearanceID)
	if !ok {
		appearance = m.deps.Catalog.Random()
	}
	return name, appearance
}

// nextSpawnPoint pops from the shuffled pool, refilling it once exhausted
func (m *Manager) nextSpawnPoint() (SpawnPoint, error) {
	if err := m.Validate(); err != nil {
		return SpawnPoint{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pool) == 0 {
		m.refillLocked()
	}
	last := len(m.pool) - 1
	p := m.pool[last]
	m.pool = m.pool[:last]
	return p, nil
}

func (m *Manager) refillLocked() {
	m.pool = make([]SpawnPoint, len(m.cfg.SpawnPoints))
	copy(m.pool, m.cfg.SpawnPoints)
	random.Shuffle(m.deps.Random, len(m.pool), func(i, j int) {
		m.pool[i], m.pool[j] = m.pool[j], m.pool[i]
	})
}

// DespawnPlayer checkpoints the avatar into its record and removes it
func (m *Manager) DespawnPlayer(clientID model.ClientID) {
	m.mu.Lock()
	a, ok := m.avatars[clientID]
	delete(m.avatars, clientID)
	m.mu.Unlock()
	if !ok {
		return
	}

	a.destroyTimer.Cancel()
	position, rotation, alive := a.Mover.Position(), a.Mover.Rotation(), a.Alive()
	if err := m.deps.Sessions.UpdatePlayerData(clientID, func(r *model.SessionRecord) {
		r.Checkpoint(position, rotation, alive)
	}); err != nil {
		m.logger.Warn("checkpoint dropped", slog.String("error", err.Error()))
	}

	a.Binding.Destroy()
	a.Life.Retract()
	a.Transform.Retract()

	m.logger.Info("player despawned",
		slog.Uint64("client_id", uint64(clientID)),
		slog.Bool("alive", alive),
	)
}

// DespawnAll checkpoints and removes every avatar
func (m *Manager) DespawnAll() {
	for _, id := range m.clientIDs() {
		m.DespawnPlayer(id)
	}
}

// HandleDisconnect checkpoints a departed client's avatar on the next loop
// tick. A reconnect of the same identity waits until the checkpoint is done.
func (m *Manager) HandleDisconnect(clientID model.ClientID) {
	identity, ok := m.deps.Sessions.Identity(clientID)
	if !ok {
		m.logger.Warn("disconnect for unknown client", slog.Uint64("client_id", uint64(clientID)))
		return
	}

	m.deps.Sessions.BeginCheckpoint(identity)
	m.deps.Executor.Post(func() {
		m.DespawnPlayer(clientID)
		m.deps.Sessions.CompleteCheckpoint(identity)
		if m.hooks.AfterDisconnect != nil {
			m.hooks.AfterDisconnect(clientID)
		}
	})
}

// SubmitMovementIntent moves the sender's own avatar while it is alive
func (m *Manager) SubmitMovementIntent(sender model.ClientID, direction mgl64.Vec3) bool {
	a := m.liveAvatar(sender)
	if a == nil {
		return false
	}
	a.Mover.Move(direction)
	a.syncTransform()
	return true
}

// SubmitRotationIntent turns the sender's own avatar while it is alive
func (m *Manager) SubmitRotationIntent(sender model.ClientID, angle float64) bool {
	a := m.liveAvatar(sender)
	if a == nil {
		return false
	}
	a.Mover.Rotate(angle)
	a.syncTransform()
	return true
}

// ApplyHit kills the avatar and removes it after the destroy delay
func (m *Manager) ApplyHit(clientID model.ClientID) bool {
	a := m.liveAvatar(clientID)
	if a == nil {
		return false
	}
	if err := a.Life.Set(model.ServerClientID, model.LifeStateDead); err != nil {
		return false
	}

	m.logger.Info("player killed", slog.Uint64("client_id", uint64(clientID)), slog.String("name", a.Name))
	m.deps.Bus.LifeStateChanged.Publish(model.LifeStateChanged{
		ClientID:      clientID,
		NewLifeState:  model.LifeStateDead,
		CharacterName: a.Name,
	})

	m.scheduleDestroy(a)
	return true
}

// scheduleDestroy removes a dead avatar after the destroy delay
func (m *Manager) scheduleDestroy(a *Avatar) {
	clientID := a.ClientID
	a.destroyTimer = m.deps.Scheduler.After(m.cfg.KilledDestroyDelay, func() {
		if cur, ok := m.Avatar(clientID); ok && cur == a {
			m.DespawnPlayer(clientID)
		}
	})
}

func (m *Manager) liveAvatar(clientID model.ClientID) *Avatar {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.avatars[clientID]
	if !ok || !a.Alive() {
		return nil
	}
	return a
}

// HasAvatar reports whether clientID currently has an avatar
func (m *Manager) HasAvatar(clientID model.ClientID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.avatars[clientID]
	return ok
}

// Avatar returns the avatar for clientID
func (m *Manager) Avatar(clientID model.ClientID) (*Avatar, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.avatars[clientID]
	return a, ok
}

// AliveCount returns the number of living avatars
func (m *Manager) AliveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.avatars {
		if a.Alive() {
			n++
		}
	}
	return n
}

// Avatars returns a copy of every avatar's state ordered by client id
func (m *Manager) Avatars() []AvatarState {
	m.mu.RLock()
	out := make([]AvatarState, 0, len(m.avatars))
	for _, a := range m.avatars {
		out = append(out, AvatarState{
			ClientID:     a.ClientID,
			Name:         a.Name,
			AppearanceID: a.Binding.Appearance().ID,
			Position:     a.Mover.Position(),
			Rotation:     a.Mover.Rotation(),
			Alive:        a.Alive(),
		})
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ClientID < out[j].ClientID })
	return out
}

func (m *Manager) clientIDs() []model.ClientID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]model.ClientID, 0, len(m.avatars))
	for id := range m.avatars {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
