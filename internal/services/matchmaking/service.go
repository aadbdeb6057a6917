// Package matchmaking is a storage-backed stand-in for a lobby and relay
// discovery service. Processes sharing a redis store can find each other.
package matchmaking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mcoot/arenasession/internal/dependencies/clock"
	"github.com/mcoot/arenasession/internal/dependencies/random"
	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/storage"
)

const (
	// CodeLength is the length of generated lobby and join codes
	CodeLength = 6
	// CodeAlphabet is the characters used in codes (avoid confusing chars)
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// KeyLength is the size of relay allocation keys in bytes
	KeyLength = 32
)

// Provider is the matchmaking surface the connection layer consumes
type Provider interface {
	CreateSession(ctx context.Context, maxPlayers int) (*model.Allocation, model.JoinCode, error)
	JoinSession(ctx context.Context, code model.JoinCode) (*model.Allocation, error)
	PublishSessionData(ctx context.Context, data map[string]string) error
	Heartbeat(ctx context.Context) error
}

// LobbyTracker exposes the lobby this process currently belongs to
type LobbyTracker interface {
	CurrentLobby() *model.LobbyInfo
}

// Config holds settings for the stand-in relay
type Config struct {
	// RelayEndpoint is the address clients are sent to for relay allocations
	RelayEndpoint string
	Region        string
}

// Service implements Provider on top of storage
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	cfg     Config
	logger  *slog.Logger

	mu      sync.RWMutex
	current *model.LobbyInfo
}

// Ensure Service implements the interfaces
var (
	_ Provider     = (*Service)(nil)
	_ LobbyTracker = (*Service)(nil)
)

// New creates a matchmaking service
func New(store storage.Storage, clk clock.Clock, rnd random.Random, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		storage: store,
		clock:   clk,
		random:  rnd,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "matchmaking")),
	}
}

// OpenLobby creates a lobby hosted by identity and makes it current
func (s *Service) OpenLobby(ctx context.Context, name string, host model.PlayerIdentity, maxPlayers int) (*model.LobbyInfo, error) {
	var code model.LobbyCode
	for {
		code = model.LobbyCode(s.random.String(CodeLength, CodeAlphabet))
		exists, err := s.storage.LobbyExists(ctx, code)
		if err != nil {
			return nil, err
		}
		if !exists {
			break
		}
	}

	now := s.clock.Now()
	lobby := &model.LobbyInfo{
		ID:            uuid.NewString(),
		Code:          code,
		Name:          name,
		HostIdentity:  host,
		MaxPlayers:    maxPlayers,
		Data:          map[string]string{},
		CreatedAt:     now,
		LastHeartbeat: now,
	}

	if err := s.storage.SaveLobby(ctx, lobby); err != nil {
		return nil, err
	}

	s.setCurrent(lobby)
	s.logger.Info("lobby opened",
		slog.String("lobby", string(code)),
		slog.Int("max_players", maxPlayers),
	)
	return copyLobby(lobby), nil
}

// JoinLobby looks up a lobby by code and makes it current
func (s *Service) JoinLobby(ctx context.Context, code model.LobbyCode) (*model.LobbyInfo, error) {
	lobby, err := s.storage.GetLobby(ctx, code)
	if err != nil {
		return nil, err
	}
	if lobby.Locked {
		return nil, model.ErrLobbyLocked
	}

	s.setCurrent(lobby)
	s.logger.Info("lobby joined", slog.String("lobby", string(code)))
	return copyLobby(lobby), nil
}

// LeaveLobby forgets the current lobby
func (s *Service) LeaveLobby() {
	s.setCurrent(nil)
}

// CurrentLobby returns a copy of the current lobby, or nil
func (s *Service) CurrentLobby() *model.LobbyInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyLobby(s.current)
}

// SetLocked locks or reopens the current lobby to new joiners
func (s *Service) SetLocked(ctx context.Context, locked bool) error {
	return s.updateCurrent(ctx, func(l *model.LobbyInfo) {
		l.Locked = locked
	})
}

// CreateSession reserves a relay allocation and a join code for it
func (s *Service) CreateSession(ctx context.Context, maxPlayers int) (*model.Allocation, model.JoinCode, error) {
	var code model.JoinCode
	for {
		code = model.JoinCode(s.random.String(CodeLength, CodeAlphabet))
		exists, err := s.storage.JoinCodeExists(ctx, code)
		if err != nil {
			return nil, "", err
		}
		if !exists {
			break
		}
	}

	alloc := &model.Allocation{
		AllocationID: uuid.NewString(),
		Region:       s.cfg.Region,
		Endpoint:     s.cfg.RelayEndpoint,
		Key:          s.random.Bytes(KeyLength),
		MaxPlayers:   maxPlayers,
		JoinCode:     code,
		CreatedAt:    s.clock.Now(),
	}

	if err := s.storage.SaveAllocation(ctx, alloc); err != nil {
		return nil, "", err
	}

	s.logger.Info("relay allocation created",
		slog.String("allocation_id", alloc.AllocationID),
		slog.String("join_code", string(code)),
		slog.Int("max_players", maxPlayers),
	)
	return alloc, code, nil
}

// JoinSession resolves a join code to its allocation
func (s *Service) JoinSession(ctx context.Context, code model.JoinCode) (*model.Allocation, error) {
	alloc, err := s.storage.GetAllocationByJoinCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return alloc, nil
}

// PublishSessionData merges data into the current lobby
func (s *Service) PublishSessionData(ctx context.Context, data map[string]string) error {
	return s.updateCurrent(ctx, func(l *model.LobbyInfo) {
		if l.Data == nil {
			l.Data = make(map[string]string, len(data))
		}
		for k, v := range data {
			l.Data[k] = v
		}
	})
}

// Heartbeat keeps the current lobby alive
func (s *Service) Heartbeat(ctx context.Context) error {
	lobby := s.CurrentLobby()
	if lobby == nil {
		return model.ErrNoMatchmakingSession
	}
	now := s.clock.Now()
	if err := s.storage.TouchLobby(ctx, lobby.Code, now); err != nil {
		return fmt.Errorf("heartbeat %s: %w", lobby.Code, err)
	}

	s.mu.Lock()
	if s.current != nil && s.current.Code == lobby.Code {
		s.current.LastHeartbeat = now
	}
	s.mu.Unlock()
	return nil
}

func (s *Service) updateCurrent(ctx context.Context, mutate func(*model.LobbyInfo)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return model.ErrNoMatchmakingSession
	}
	updated := copyLobby(s.current)
	mutate(updated)
	if err := s.storage.SaveLobby(ctx, updated); err != nil {
		return err
	}
	s.current = updated
	return nil
}

func (s *Service) setCurrent(lobby *model.LobbyInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = copyLobby(lobby)
}

func copyLobby(l *model.LobbyInfo) *model.LobbyInfo {
	if l == nil {
		return nil
	}
	out := *l
	if l.Data != nil {
		out.Data = make(map[string]string, len(l.Data))
		for k, v := range l.Data {
			out.Data[k] = v
		}
	}
	return &out
}
