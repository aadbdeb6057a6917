package storage

import (
	"context"
	"time"

	"github.com/mcoot/arenasession/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	// Session record operations
	SaveSessionRecord(ctx context.Context, record *model.SessionRecord) error
	GetSessionRecord(ctx context.Context, identity model.PlayerIdentity) (*model.SessionRecord, error)
	ListSessionRecords(ctx context.Context) ([]*model.SessionRecord, error)
	DeleteSessionRecord(ctx context.Context, identity model.PlayerIdentity) error
	DeleteSessionRecords(ctx context.Context) error

	// Account operations
	SaveAccount(ctx context.Context, account *model.Account) error
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)

	// Matchmaking lobby operations
	SaveLobby(ctx context.Context, lobby *model.LobbyInfo) error
	GetLobby(ctx context.Context, code model.LobbyCode) (*model.LobbyInfo, error)
	DeleteLobby(ctx context.Context, code model.LobbyCode) error
	LobbyExists(ctx context.Context, code model.LobbyCode) (bool, error)
	TouchLobby(ctx context.Context, code model.LobbyCode, at time.Time) error

	// Relay allocation operations
	SaveAllocation(ctx context.Context, alloc *model.Allocation) error
	GetAllocationByJoinCode(ctx context.Context, code model.JoinCode) (*model.Allocation, error)
	JoinCodeExists(ctx context.Context, code model.JoinCode) (bool, error)
}
