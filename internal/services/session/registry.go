// Package session maps network clients to stable player identities and keeps
// each identity's cross-connection state.
package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mcoot/arenasession/internal/dependencies/clock"
	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/storage"
)

// AdmitFunc receives the outcome of a connection attempt
type AdmitFunc func(record model.SessionRecord, err error)

// admission remembers what an admission replaced so it can be undone
type admission struct {
	fresh  bool
	prior  model.SessionRecord
	// prior.ClientID was still addressable before the reattach
	mapped bool
}

// Registry holds one SessionRecord per stable identity for the lifetime of
// the hosting process. Mutations are expected on the authority loop; reads
// return copies and are safe from any goroutine.
type Registry struct {
	mu         sync.RWMutex
	records    map[model.PlayerIdentity]*model.SessionRecord
	clients    map[model.ClientID]model.PlayerIdentity
	nextNumber int

	// identities with a checkpoint in flight, and admissions queued behind them
	checkpoints map[model.PlayerIdentity]int
	waiting     map[model.PlayerIdentity][]func()

	// admissions that can still be withdrawn, keyed by the admitted client
	admissions map[model.ClientID]admission

	clock     clock.Clock
	persister *Persister
	logger    *slog.Logger
}

// NewRegistry creates an empty registry. persister may be nil.
func NewRegistry(clk clock.Clock, persister *Persister, logger *slog.Logger) *Registry {
	return &Registry{
		records:     make(map[model.PlayerIdentity]*model.SessionRecord),
		clients:     make(map[model.ClientID]model.PlayerIdentity),
		checkpoints: make(map[model.PlayerIdentity]int),
		waiting:     make(map[model.PlayerIdentity][]func()),
		admissions:  make(map[model.ClientID]admission),
		clock:       clk,
		persister:   persister,
		logger:      logger.With(slog.String("component", "session")),
	}
}

// OnSessionStarted clears HasCharacterSpawned on every record for a new round
func (r *Registry) OnSessionStarted() {
	r.mu.Lock()
	dirty := make([]model.SessionRecord, 0, len(r.records))
	for _, rec := range r.records {
		rec.Reinitialize()
		rec.UpdatedAt = r.clock.Now()
		dirty = append(dirty, *rec)
	}
	r.mu.Unlock()

	r.persist(dirty...)
	r.logger.Info("session started", slog.Int("records", len(dirty)))
}

// InitializePlayerState marks every record alive ahead of a match
func (r *Registry) InitializePlayerState() {
	r.mu.Lock()
	dirty := make([]model.SessionRecord, 0, len(r.records))
	for _, rec := range r.records {
		rec.Alive = true
		rec.UpdatedAt = r.clock.Now()
		dirty = append(dirty, *rec)
	}
	r.mu.Unlock()

	r.persist(dirty...)
}

// Connect admits clientID under the payload's identity. admit is called once,
// immediately or after a checkpoint for the same identity completes.
func (r *Registry) Connect(clientID model.ClientID, payload model.ConnectionPayload, admit AdmitFunc) {
	identity := payload.StableIdentity

	r.mu.Lock()
	if r.checkpoints[identity] > 0 {
		r.waiting[identity] = append(r.waiting[identity], func() {
			r.Connect(clientID, payload, admit)
		})
		r.mu.Unlock()
		r.logger.Debug("admission queued behind checkpoint",
			slog.String("identity", string(identity)),
			slog.Uint64("client_id", uint64(clientID)),
		)
		return
	}

	rec, err := r.admitLocked(clientID, payload)
	r.mu.Unlock()

	if err != nil {
		r.logger.Warn("connection rejected",
			slog.String("identity", string(identity)),
			slog.Uint64("client_id", uint64(clientID)),
			slog.String("error", err.Error()),
		)
		admit(model.SessionRecord{}, err)
		return
	}

	r.persist(rec)
	admit(rec, nil)
}

func (r *Registry) admitLocked(clientID model.ClientID, payload model.ConnectionPayload) (model.SessionRecord, error) {
	identity := payload.StableIdentity
	now := r.clock.Now()

	rec, ok := r.records[identity]
	if ok {
		if rec.IsConnected && rec.ClientID != clientID {
			return model.SessionRecord{}, &model.IdentityConflictError{
				Identity: identity,
				Existing: rec.ClientID,
				Incoming: clientID,
			}
		}

		undo := admission{prior: *rec, mapped: r.clients[rec.ClientID] == identity}
		if rec.ClientID != clientID && undo.mapped {
			delete(r.clients, rec.ClientID)
		}
		rec.ClientID = clientID
		rec.IsConnected = true
		if payload.DisplayName != "" {
			rec.PlayerName = payload.DisplayName
		}
		rec.UpdatedAt = now
		r.clients[clientID] = identity
		r.admissions[clientID] = undo

		r.logger.Info("client reattached",
			slog.String("identity", string(identity)),
			slog.Uint64("client_id", uint64(clientID)),
			slog.Int("player_number", rec.PlayerNumber),
		)
		return *rec, nil
	}

	rec = &model.SessionRecord{
		ClientID:       clientID,
		PlayerIdentity: identity,
		PlayerName:     payload.DisplayName,
		PlayerNumber:   r.nextNumber,
		IsConnected:    true,
		PlayerRotation: mgl64.QuatIdent(),
		Alive:          true,
		UpdatedAt:      now,
	}
	r.nextNumber++
	r.records[identity] = rec
	r.clients[clientID] = identity
	r.admissions[clientID] = admission{fresh: true}

	r.logger.Info("client admitted",
		slog.String("identity", string(identity)),
		slog.Uint64("client_id", uint64(clientID)),
		slog.Int("player_number", rec.PlayerNumber),
	)
	return *rec, nil
}

// Disconnect marks the client's record disconnected. The record is retained
// and remains addressable by clientID until the identity reattaches.
func (r *Registry) Disconnect(clientID model.ClientID) bool {
	r.mu.Lock()
	rec := r.recordLocked(clientID)
	if rec == nil {
		r.mu.Unlock()
		r.warnStale(clientID, "disconnect")
		return false
	}
	delete(r.admissions, clientID)
	rec.IsConnected = false
	rec.UpdatedAt = r.clock.Now()
	snapshot := *rec
	r.mu.Unlock()

	r.persist(snapshot)
	r.logger.Info("client disconnected",
		slog.String("identity", string(snapshot.PlayerIdentity)),
		slog.Uint64("client_id", uint64(clientID)),
	)
	return true
}

// Withdraw undoes the admission of a client whose connection failed before
// it joined. A record created by that admission is dropped along with its
// player number when no later admission took a number. A reattached record
// returns to its state before the attempt.
func (r *Registry) Withdraw(clientID model.ClientID) bool {
	r.mu.Lock()
	undo, ok := r.admissions[clientID]
	rec := r.recordLocked(clientID)
	if !ok || rec == nil {
		r.mu.Unlock()
		r.warnStale(clientID, "withdraw")
		return false
	}
	delete(r.admissions, clientID)
	delete(r.clients, clientID)
	identity := rec.PlayerIdentity

	if undo.fresh {
		delete(r.records, identity)
		if rec.PlayerNumber == r.nextNumber-1 {
			r.nextNumber--
		}
		r.mu.Unlock()

		if r.persister != nil {
			r.persister.Remove(identity)
		}
		r.logger.Info("admission withdrawn",
			slog.String("identity", string(identity)),
			slog.Uint64("client_id", uint64(clientID)),
		)
		return true
	}

	*rec = undo.prior
	if undo.mapped {
		r.clients[rec.ClientID] = identity
	}
	snapshot := *rec
	r.mu.Unlock()

	r.persist(snapshot)
	r.logger.Info("reattach withdrawn",
		slog.String("identity", string(identity)),
		slog.Uint64("client_id", uint64(clientID)),
	)
	return true
}

// GetPlayerData returns a copy of the record for clientID
func (r *Registry) GetPlayerData(clientID model.ClientID) (model.SessionRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec := r.recordLocked(clientID)
	if rec == nil {
		return model.SessionRecord{}, false
	}
	return *rec, true
}

// SetPlayerData replaces the record for clientID. The identity mapping,
// client id and player number cannot be changed this way.
func (r *Registry) SetPlayerData(clientID model.ClientID, record model.SessionRecord) error {
	return r.UpdatePlayerData(clientID, func(rec *model.SessionRecord) {
		identity, cid, number := rec.PlayerIdentity, rec.ClientID, rec.PlayerNumber
		*rec = record
		rec.PlayerIdentity, rec.ClientID, rec.PlayerNumber = identity, cid, number
	})
}

// UpdatePlayerData mutates the record for clientID in place
func (r *Registry) UpdatePlayerData(clientID model.ClientID, mutate func(*model.SessionRecord)) error {
	r.mu.Lock()
	rec := r.recordLocked(clientID)
	if rec == nil {
		r.mu.Unlock()
		r.warnStale(clientID, "set player data")
		return &model.StaleReferenceError{ClientID: clientID, Op: "set player data"}
	}
	mutate(rec)
	rec.UpdatedAt = r.clock.Now()
	snapshot := *rec
	r.mu.Unlock()

	r.persist(snapshot)
	return nil
}

// BeginCheckpoint holds admissions for identity until CompleteCheckpoint
func (r *Registry) BeginCheckpoint(identity model.PlayerIdentity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkpoints[identity]++
}

// CompleteCheckpoint releases admissions queued behind the matching Begin
func (r *Registry) CompleteCheckpoint(identity model.PlayerIdentity) {
	r.mu.Lock()
	if r.checkpoints[identity] > 0 {
		r.checkpoints[identity]--
	}
	if r.checkpoints[identity] > 0 {
		r.mu.Unlock()
		return
	}
	delete(r.checkpoints, identity)
	queued := r.waiting[identity]
	delete(r.waiting, identity)
	r.mu.Unlock()

	for _, fn := range queued {
		fn()
	}
}

// CheckpointInFlight reports whether identity has an unfinished checkpoint
func (r *Registry) CheckpointInFlight(identity model.PlayerIdentity) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.checkpoints[identity] > 0
}

// Snapshot returns copies of every record ordered by player number
func (r *Registry) Snapshot() []model.SessionRecord {
	r.mu.RLock()
	out := make([]model.SessionRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].PlayerNumber < out[j].PlayerNumber })
	return out
}

// ConnectedClients returns connected client ids ordered by player number
func (r *Registry) ConnectedClients() []model.ClientID {
	var out []model.ClientID
	for _, rec := range r.Snapshot() {
		if rec.IsConnected {
			out = append(out, rec.ClientID)
		}
	}
	return out
}

// Lookup returns the record for identity
func (r *Registry) Lookup(identity model.PlayerIdentity) (model.SessionRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[identity]
	if !ok {
		return model.SessionRecord{}, false
	}
	return *rec, true
}

// ClientIDForIdentity returns the client currently connected as identity
func (r *Registry) ClientIDForIdentity(identity model.PlayerIdentity) (model.ClientID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[identity]
	if !ok || !rec.IsConnected {
		return 0, false
	}
	return rec.ClientID, true
}

// Identity returns the stable identity behind clientID
func (r *Registry) Identity(clientID model.ClientID) (model.PlayerIdentity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	identity, ok := r.clients[clientID]
	return identity, ok
}

// Restore loads persisted records as disconnected. Client ids from the
// previous process are not addressable. Call before serving.
func (r *Registry) Restore(ctx context.Context, store storage.Storage) error {
	records, err := store.ListSessionRecords(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		rec.IsConnected = false
		r.records[rec.PlayerIdentity] = rec
		if rec.PlayerNumber >= r.nextNumber {
			r.nextNumber = rec.PlayerNumber + 1
		}
	}

	r.logger.Info("session records restored", slog.Int("records", len(records)))
	return nil
}

// recordLocked resolves clientID; mu must be held
func (r *Registry) recordLocked(clientID model.ClientID) *model.SessionRecord {
	identity, ok := r.clients[clientID]
	if !ok {
		return nil
	}
	rec := r.records[identity]
	if rec == nil || rec.ClientID != clientID {
		return nil
	}
	return rec
}

func (r *Registry) warnStale(clientID model.ClientID, op string) {
	r.logger.Warn("stale client reference",
		slog.Uint64("client_id", uint64(clientID)),
		slog.String("op", op),
	)
}

func (r *Registry) persist(records ...model.SessionRecord) {
	if r.persister == nil {
		return
	}
	for _, rec := range records {
		r.persister.Enqueue(rec)
	}
}
