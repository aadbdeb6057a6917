package roster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/arenasession/internal/dependencies/mocks"
	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/replicated"
	"github.com/mcoot/arenasession/internal/services/avatar"
	"github.com/mcoot/arenasession/internal/services/session"
	"github.com/mcoot/arenasession/internal/testutil"
)

var (
	knightID = model.AppearanceID{1}
	rogueID  = model.AppearanceID{2}
)

type RosterTestSuite struct {
	suite.Suite
	random   *mocks.MockRandom
	registry *session.Registry
	roster   *Roster
}

func TestRosterTestSuite(t *testing.T) {
	suite.Run(t, new(RosterTestSuite))
}

func (s *RosterTestSuite) SetupTest() {
	s.random = mocks.NewMockRandom()
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.registry = session.NewRegistry(clk, nil, testutil.NopLogger())
	catalog, err := avatar.NewCatalog([]avatar.Appearance{
		{ID: knightID, Name: "Knight"},
		{ID: rogueID, Name: "Rogue"},
	}, s.random)
	s.Require().NoError(err)
	s.roster = New(s.registry, catalog, s.random, testutil.NopLogger())
}

func (s *RosterTestSuite) admit(clientID model.ClientID, identity, name string) {
	s.registry.Connect(clientID, model.ConnectionPayload{
		StableIdentity: model.PlayerIdentity(identity),
		DisplayName:    name,
	}, func(_ model.SessionRecord, err error) {
		s.Require().NoError(err)
	})
}

func (s *RosterTestSuite) TestAddUsesRecordNameAndRandomAppearance() {
	s.admit(1, "A", "Ada")
	s.random.QueueIntn(1)

	p, err := s.roster.Add(1)
	s.Require().NoError(err)

	s.Equal("Ada", p.Name.Value())
	s.Equal(rogueID, p.Appearance.Value())
	rec, _ := s.registry.GetPlayerData(1)
	s.Equal(rogueID, rec.AvatarAppearanceID)
}

func (s *RosterTestSuite) TestAddGeneratesMissingName() {
	s.admit(1, "A", "")
	s.random.QueueIntn(0, 1, 0)

	p, err := s.roster.Add(1)
	s.Require().NoError(err)

	s.Equal("Brave Comet", p.Name.Value())
	rec, _ := s.registry.GetPlayerData(1)
	s.Equal("Brave Comet", rec.PlayerName)
}

func (s *RosterTestSuite) TestSpawnedCharacterKeepsAppearance() {
	s.admit(1, "A", "Ada")
	s.Require().NoError(s.registry.UpdatePlayerData(1, func(rec *model.SessionRecord) {
		rec.AvatarAppearanceID = knightID
		rec.HasCharacterSpawned = true
	}))
	s.random.QueueIntn(1)

	p, err := s.roster.Add(1)
	s.Require().NoError(err)

	s.Equal(knightID, p.Appearance.Value())
}

func (s *RosterTestSuite) TestUnknownClientIsStale() {
	_, err := s.roster.Add(99)
	s.ErrorIs(err, model.ErrStaleReference)
}

func (s *RosterTestSuite) TestRemoveWritesBack() {
	s.admit(1, "A", "Ada")
	p, _ := s.roster.Add(1)
	s.Require().NoError(p.Name.Set(model.ServerClientID, "Ada the Bold"))
	s.Require().NoError(s.roster.SelectAppearance(1, rogueID))

	s.roster.Remove(1)

	rec, _ := s.registry.GetPlayerData(1)
	s.Equal("Ada the Bold", rec.PlayerName)
	s.Equal(rogueID, rec.AvatarAppearanceID)
	_, ok := s.roster.Get(1)
	s.False(ok)
	s.roster.Remove(1)
}

func (s *RosterTestSuite) TestSelectAppearanceRejectsUnknown() {
	s.admit(1, "A", "Ada")
	_, _ = s.roster.Add(1)

	err := s.roster.SelectAppearance(1, model.NewAppearanceID())

	s.ErrorIs(err, model.ErrConfiguration)
}

func (s *RosterTestSuite) TestFieldsReplicateThroughSink() {
	var fields []string
	s.roster.SetSink(replicated.SinkFunc(func(field string, _ model.ClientID, _ any) {
		fields = append(fields, field)
	}))
	s.admit(1, "A", "Ada")
	p, _ := s.roster.Add(1)

	s.Require().NoError(p.Name.Set(model.ServerClientID, "Renamed"))

	s.Equal([]string{"player_name"}, fields)
}

func (s *RosterTestSuite) TestPlayersOrdered() {
	s.admit(2, "B", "Bo")
	s.admit(1, "A", "Ada")
	_, _ = s.roster.Add(2)
	_, _ = s.roster.Add(1)

	players := s.roster.Players()

	s.Require().Len(players, 2)
	s.Equal(model.ClientID(1), players[0].ClientID)
}
