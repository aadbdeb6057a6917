package memory

import (
	"context"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/arenasession/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

// Session record tests

func (s *StorageSuite) TestSaveAndGetSessionRecord() {
	record := &model.SessionRecord{
		PlayerIdentity: "guid-a",
		PlayerName:     "Ada",
		PlayerPosition: mgl64.Vec3{1, 2, 3},
	}

	s.Require().NoError(s.storage.SaveSessionRecord(s.ctx, record))

	retrieved, err := s.storage.GetSessionRecord(s.ctx, "guid-a")
	s.Require().NoError(err)
	s.Equal(record.PlayerPosition, retrieved.PlayerPosition)
}

func (s *StorageSuite) TestSessionRecordsAreCopied() {
	record := &model.SessionRecord{PlayerIdentity: "guid-a", PlayerName: "Ada"}
	_ = s.storage.SaveSessionRecord(s.ctx, record)

	record.PlayerName = "changed"
	retrieved, _ := s.storage.GetSessionRecord(s.ctx, "guid-a")
	s.Equal("Ada", retrieved.PlayerName)

	retrieved.PlayerName = "changed again"
	again, _ := s.storage.GetSessionRecord(s.ctx, "guid-a")
	s.Equal("Ada", again.PlayerName)
}

func (s *StorageSuite) TestGetSessionRecordNotFound() {
	_, err := s.storage.GetSessionRecord(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *StorageSuite) TestListAndDeleteSessionRecords() {
	_ = s.storage.SaveSessionRecord(s.ctx, &model.SessionRecord{PlayerIdentity: "b", PlayerNumber: 1})
	_ = s.storage.SaveSessionRecord(s.ctx, &model.SessionRecord{PlayerIdentity: "a", PlayerNumber: 0})

	records, err := s.storage.ListSessionRecords(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(model.PlayerIdentity("a"), records[0].PlayerIdentity)

	s.Require().NoError(s.storage.DeleteSessionRecords(s.ctx))
	records, _ = s.storage.ListSessionRecords(s.ctx)
	s.Empty(records)
}

func (s *StorageSuite) TestDeleteSessionRecordLeavesOthers() {
	_ = s.storage.SaveSessionRecord(s.ctx, &model.SessionRecord{PlayerIdentity: "a", PlayerNumber: 0})
	_ = s.storage.SaveSessionRecord(s.ctx, &model.SessionRecord{PlayerIdentity: "b", PlayerNumber: 1})

	s.Require().NoError(s.storage.DeleteSessionRecord(s.ctx, "a"))
	s.Require().NoError(s.storage.DeleteSessionRecord(s.ctx, "missing"))

	_, err := s.storage.GetSessionRecord(s.ctx, "a")
	s.ErrorIs(err, model.ErrSessionNotFound)
	records, _ := s.storage.ListSessionRecords(s.ctx)
	s.Require().Len(records, 1)
	s.Equal(model.PlayerIdentity("b"), records[0].PlayerIdentity)
}

// Account tests

func (s *StorageSuite) TestAccounts() {
	_, err := s.storage.GetAccountByUsername(s.ctx, "ada")
	s.ErrorIs(err, model.ErrAccountNotFound)

	_ = s.storage.SaveAccount(s.ctx, &model.Account{Identity: "acct-1", Username: "ada"})

	account, err := s.storage.GetAccountByUsername(s.ctx, "ada")
	s.Require().NoError(err)
	s.Equal(model.PlayerIdentity("acct-1"), account.Identity)
}

// Lobby tests

func (s *StorageSuite) TestLobbyLifecycle() {
	_ = s.storage.SaveLobby(s.ctx, &model.LobbyInfo{Code: "ABC123", Data: map[string]string{"k": "v"}})

	exists, _ := s.storage.LobbyExists(s.ctx, "ABC123")
	s.True(exists)

	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.Require().NoError(s.storage.TouchLobby(s.ctx, "ABC123", at))

	lobby, err := s.storage.GetLobby(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.Equal(at, lobby.LastHeartbeat)
	lobby.Data["k"] = "mutated"

	again, _ := s.storage.GetLobby(s.ctx, "ABC123")
	s.Equal("v", again.Data["k"])

	s.Require().NoError(s.storage.DeleteLobby(s.ctx, "ABC123"))
	_, err = s.storage.GetLobby(s.ctx, "ABC123")
	s.ErrorIs(err, model.ErrLobbyNotFound)
	s.ErrorIs(s.storage.TouchLobby(s.ctx, "ABC123", at), model.ErrLobbyNotFound)
}

// Allocation tests

func (s *StorageSuite) TestAllocations() {
	_, err := s.storage.GetAllocationByJoinCode(s.ctx, "JOIN01")
	s.ErrorIs(err, model.ErrJoinCodeNotFound)

	_ = s.storage.SaveAllocation(s.ctx, &model.Allocation{AllocationID: "alloc-1", JoinCode: "JOIN01", Key: []byte{9}})

	alloc, err := s.storage.GetAllocationByJoinCode(s.ctx, "JOIN01")
	s.Require().NoError(err)
	s.Equal("alloc-1", alloc.AllocationID)

	exists, _ := s.storage.JoinCodeExists(s.ctx, "JOIN01")
	s.True(exists)
}
