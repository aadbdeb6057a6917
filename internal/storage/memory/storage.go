package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Values are copied on the way in and out so callers never share state.
type Storage struct {
	mu sync.RWMutex

	sessions    map[model.PlayerIdentity]model.SessionRecord
	accounts    map[string]model.Account
	lobbies     map[model.LobbyCode]model.LobbyInfo
	allocations map[model.JoinCode]model.Allocation
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		sessions:    make(map[model.PlayerIdentity]model.SessionRecord),
		accounts:    make(map[string]model.Account),
		lobbies:     make(map[model.LobbyCode]model.LobbyInfo),
		allocations: make(map[model.JoinCode]model.Allocation),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Session record operations

func (s *Storage) SaveSessionRecord(ctx context.Context, record *model.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[record.PlayerIdentity] = *record
	return nil
}

func (s *Storage) GetSessionRecord(ctx context.Context, identity model.PlayerIdentity) (*model.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.sessions[identity]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return &record, nil
}

func (s *Storage) ListSessionRecords(ctx context.Context) ([]*model.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]*model.SessionRecord, 0, len(s.sessions))
	for _, r := range s.sessions {
		record := r
		records = append(records, &record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].PlayerNumber < records[j].PlayerNumber
	})
	return records, nil
}

func (s *Storage) DeleteSessionRecord(ctx context.Context, identity model.PlayerIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, identity)
	return nil
}

func (s *Storage) DeleteSessionRecords(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[model.PlayerIdentity]model.SessionRecord)
	return nil
}

// Account operations

func (s *Storage) SaveAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.Username] = *account
	return nil
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[username]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return &account, nil
}

// Lobby operations

func (s *Storage) SaveLobby(ctx context.Context, lobby *model.LobbyInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *lobby
	stored.Data = copyData(lobby.Data)
	s.lobbies[lobby.Code] = stored
	return nil
}

func (s *Storage) GetLobby(ctx context.Context, code model.LobbyCode) (*model.LobbyInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lobby, ok := s.lobbies[code]
	if !ok {
		return nil, model.ErrLobbyNotFound
	}
	lobby.Data = copyData(lobby.Data)
	return &lobby, nil
}

func (s *Storage) DeleteLobby(ctx context.Context, code model.LobbyCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lobbies, code)
	return nil
}

func (s *Storage) LobbyExists(ctx context.Context, code model.LobbyCode) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.lobbies[code]
	return ok, nil
}

func (s *Storage) TouchLobby(ctx context.Context, code model.LobbyCode, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lobby, ok := s.lobbies[code]
	if !ok {
		return model.ErrLobbyNotFound
	}
	lobby.LastHeartbeat = at
	s.lobbies[code] = lobby
	return nil
}

// Allocation operations

func (s *Storage) SaveAllocation(ctx context.Context, alloc *model.Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *alloc
	stored.Key = append([]byte(nil), alloc.Key...)
	s.allocations[alloc.JoinCode] = stored
	return nil
}

func (s *Storage) GetAllocationByJoinCode(ctx context.Context, code model.JoinCode) (*model.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alloc, ok := s.allocations[code]
	if !ok {
		return nil, model.ErrJoinCodeNotFound
	}
	alloc.Key = append([]byte(nil), alloc.Key...)
	return &alloc, nil
}

func (s *Storage) JoinCodeExists(ctx context.Context, code model.JoinCode) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.allocations[code]
	return ok, nil
}

func copyData(data map[string]string) map[string]string {
	if data == nil {
		return nil
	}
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
