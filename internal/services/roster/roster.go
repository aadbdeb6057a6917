// Package roster keeps a long-lived player entry per connection carrying the
// replicated display name and appearance.
package roster

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/mcoot/arenasession/internal/dependencies/random"
	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/replicated"
	"github.com/mcoot/arenasession/internal/services/avatar"
	"github.com/mcoot/arenasession/internal/services/identity"
)

// Records is the slice of the session registry the roster needs
type Records interface {
	GetPlayerData(clientID model.ClientID) (model.SessionRecord, bool)
	UpdatePlayerData(clientID model.ClientID, mutate func(*model.SessionRecord)) error
}

// PersistentPlayer outlives scene changes for as long as its client is connected
type PersistentPlayer struct {
	ClientID   model.ClientID
	Name       *replicated.Field[string]
	Appearance *replicated.Field[model.AppearanceID]
}

func (p *PersistentPlayer) close() {
	p.Name.Retract()
	p.Appearance.Retract()
}

// Roster tracks the persistent players of connected clients
type Roster struct {
	records Records
	catalog *avatar.Catalog
	random  random.Random
	logger  *slog.Logger

	mu      sync.RWMutex
	players map[model.ClientID]*PersistentPlayer
	sink    replicated.Sink
}

// New creates an empty roster
func New(records Records, catalog *avatar.Catalog, rnd random.Random, logger *slog.Logger) *Roster {
	return &Roster{
		records: records,
		catalog: catalog,
		random:  rnd,
		logger:  logger.With(slog.String("component", "roster")),
		players: make(map[model.ClientID]*PersistentPlayer),
	}
}

// SetSink sets where fields of players added afterwards replicate to
func (r *Roster) SetSink(sink replicated.Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = sink
}

// Add creates the persistent player for a newly admitted client. The name
// comes from the record or is generated; the appearance is kept from the
// previous round only if the character already spawned, else chosen at random.
// Both are written back to the record.
func (r *Roster) Add(clientID model.ClientID) (*PersistentPlayer, error) {
	rec, ok := r.records.GetPlayerData(clientID)
	if !ok {
		r.logger.Warn("roster add for unknown client", slog.Uint64("client_id", uint64(clientID)))
		return nil, &model.StaleReferenceError{ClientID: clientID, Op: "roster add"}
	}

	name := rec.PlayerName
	if name == "" {
		name = identity.GenerateName(r.random)
	}

	appearance := rec.AvatarAppearanceID
	if _, known := r.catalog.TryGet(appearance); !rec.HasCharacterSpawned || !known {
		appearance = r.catalog.Random().ID
	}

	if err := r.records.UpdatePlayerData(clientID, func(rec *model.SessionRecord) {
		rec.PlayerName = name
		rec.AvatarAppearanceID = appearance
	}); err != nil {
		return nil, err
	}

	p := &PersistentPlayer{
		ClientID:   clientID,
		Name:       replicated.NewField("player_name", name, replicated.ServerWrite, clientID),
		Appearance: replicated.NewField("player_appearance", appearance, replicated.ServerWrite, clientID),
	}

	r.mu.Lock()
	if old, exists := r.players[clientID]; exists {
		old.close()
	}
	if r.sink != nil {
		p.Name.SetSink(r.sink)
		p.Appearance.SetSink(r.sink)
	}
	r.players[clientID] = p
	r.mu.Unlock()

	r.logger.Info("player added",
		slog.Uint64("client_id", uint64(clientID)),
		slog.String("name", name),
		slog.String("appearance", appearance.String()),
	)
	return p, nil
}

// Remove writes the player's name and appearance back to its record and
// drops it. Safe for clients that were never added.
func (r *Roster) Remove(clientID model.ClientID) {
	r.mu.Lock()
	p, ok := r.players[clientID]
	delete(r.players, clientID)
	r.mu.Unlock()

	if !ok {
		return
	}
	name, appearance := p.Name.Value(), p.Appearance.Value()
	p.close()

	if err := r.records.UpdatePlayerData(clientID, func(rec *model.SessionRecord) {
		rec.PlayerName = name
		rec.AvatarAppearanceID = appearance
	}); err != nil {
		r.logger.Warn("player state not written back",
			slog.Uint64("client_id", uint64(clientID)),
			slog.String("error", err.Error()),
		)
	}
}

// SelectAppearance changes a player's appearance to a catalog entry
func (r *Roster) SelectAppearance(clientID model.ClientID, id model.AppearanceID) error {
	p, ok := r.Get(clientID)
	if !ok {
		return &model.StaleReferenceError{ClientID: clientID, Op: "select appearance"}
	}
	if _, known := r.catalog.TryGet(id); !known {
		return &model.ConfigurationError{What: "unknown appearance " + id.String()}
	}
	return p.Appearance.Set(model.ServerClientID, id)
}

// Get returns the persistent player for clientID
func (r *Roster) Get(clientID model.ClientID) (*PersistentPlayer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[clientID]
	return p, ok
}

// Players returns every persistent player ordered by client id
func (r *Roster) Players() []*PersistentPlayer {
	r.mu.RLock()
	out := make([]*PersistentPlayer, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ClientID < out[j].ClientID })
	return out
}
