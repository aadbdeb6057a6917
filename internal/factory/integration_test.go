package factory

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/arenasession/internal/connection"
	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/netcode"
	"github.com/mcoot/arenasession/internal/services/game"
	"github.com/mcoot/arenasession/internal/testutil"
)

type IntegrationSuite struct {
	suite.Suite
	app    *TestApp
	ctx    context.Context
	cancel context.CancelFunc
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 10*time.Second)
	go s.app.Loop.Run(s.ctx)

	s.onLoop(func() {
		s.Require().NoError(s.app.Scenes.LoadScene(model.SceneMainMenu))
		s.Require().NoError(s.app.Scenes.LoadScene(model.SceneLobby))
	})
}

func (s *IntegrationSuite) TearDownTest() {
	s.app.Transport.Close()
	s.cancel()
}

func (s *IntegrationSuite) onLoop(fn func()) {
	s.Require().NoError(s.app.Loop.Call(s.ctx, fn))
	s.settle()
}

func (s *IntegrationSuite) settle() {
	s.Require().NoError(s.app.Settle(s.ctx))
}

func (s *IntegrationSuite) connect(id model.ClientID, identity string) {
	err := s.app.Admit(s.ctx, id, model.ConnectionPayload{StableIdentity: model.PlayerIdentity(identity), DisplayName: identity})
	s.Require().NoError(err)
	s.app.Joined(id)
	s.settle()
}

func (s *IntegrationSuite) send(id model.ClientID, env netcode.Envelope) {
	s.app.Received(id, env)
	s.settle()
}

func (s *IntegrationSuite) activePhase() model.Phase {
	var p model.Phase
	s.onLoop(func() { p, _ = s.app.Phases.Active() })
	return p
}

// startMatch takes the connected clients from the lobby into a loaded round
func (s *IntegrationSuite) startMatch(clients ...model.ClientID) *game.Controller {
	lobbyCtl, ok := s.app.Lobby()
	s.Require().True(ok)
	s.Require().NoError(lobbyCtl.StartGame(s.ctx))
	s.settle()
	s.Require().NoError(s.app.Advance(s.ctx, s.app.Settings.LobbyCloseDelay))
	s.Require().Equal(model.PhaseInGame, s.activePhase())

	for _, id := range clients {
		s.send(id, netcode.Envelope{Kind: netcode.KindLoadProgress, Progress: 1})
	}

	g, ok := s.app.Game()
	s.Require().True(ok)
	return g
}

func (s *IntegrationSuite) TestLobbySpawnsSynchronizedClients() {
	s.connect(1, "alice")
	s.connect(2, "bob")

	s.send(1, netcode.Envelope{Kind: netcode.KindSynchronized})
	s.send(2, netcode.Envelope{Kind: netcode.KindSynchronized})

	var avatars int
	s.onLoop(func() { avatars = len(s.app.Avatars()) })
	s.Equal(2, avatars)
	s.Equal(int64(2), s.app.Graphics.Live())
	s.Equal(model.PhaseLobby, s.activePhase())

	rec, ok := s.app.Sessions.GetPlayerData(1)
	s.Require().True(ok)
	s.True(rec.HasCharacterSpawned)
	s.Equal("alice", rec.PlayerName)
}

func (s *IntegrationSuite) TestSecondConnectionWithLiveIdentityIsRejected() {
	s.connect(1, "alice")

	err := s.app.Admit(s.ctx, 2, model.ConnectionPayload{StableIdentity: "alice"})

	s.ErrorIs(err, model.ErrIdentityConflict)
	id, _ := s.app.Sessions.ClientIDForIdentity("alice")
	s.Equal(model.ClientID(1), id)
}

func (s *IntegrationSuite) TestTimedOutAdmissionLeavesNoRecord() {
	s.connect(1, "alice")
	s.onLoop(func() { s.app.Sessions.BeginCheckpoint("carol") })

	ctx, cancel := context.WithTimeout(s.ctx, 20*time.Millisecond)
	defer cancel()
	err := s.app.Admit(ctx, 2, model.ConnectionPayload{StableIdentity: "carol", DisplayName: "carol"})
	s.ErrorIs(err, context.DeadlineExceeded)

	s.onLoop(func() { s.app.Sessions.CompleteCheckpoint("carol") })

	_, ok := s.app.Sessions.Lookup("carol")
	s.False(ok)
	_, ok = s.app.Sessions.Identity(2)
	s.False(ok)

	s.connect(3, "dave")
	rec, ok := s.app.Sessions.Lookup("dave")
	s.Require().True(ok)
	s.Equal(1, rec.PlayerNumber)
}

func (s *IntegrationSuite) TestWithdrawnAdmissionNeverJoins() {
	err := s.app.Admit(s.ctx, 1, model.ConnectionPayload{StableIdentity: "alice", DisplayName: "alice"})
	s.Require().NoError(err)

	s.app.Withdraw(1)
	s.settle()

	_, ok := s.app.Sessions.Lookup("alice")
	s.False(ok)
	s.Empty(s.app.Sessions.ConnectedClients())
}

func (s *IntegrationSuite) TestRoundEndsInLossAndMovesToPostGame() {
	s.connect(1, "alice")
	s.connect(2, "bob")

	g := s.startMatch(1, 2)

	var alive int
	s.onLoop(func() { alive = g.Lifecycle().AliveCount() })
	s.Require().Equal(2, alive)

	s.onLoop(func() { g.Lifecycle().ApplyHit(1) })
	s.True(g.GameOver())
	s.Equal(model.WinStateLoss, s.app.GameState.WinState())
	s.Equal(model.PhaseInGame, s.activePhase())

	s.Require().NoError(s.app.Advance(s.ctx, s.app.Settings.LoseDelay))
	s.Equal(model.PhasePostGame, s.activePhase())
	s.Equal(model.ScenePostGame, s.app.Scenes.CurrentScene())
}

func (s *IntegrationSuite) TestReconnectRestoresCheckpointedAvatar() {
	s.connect(1, "alice")
	s.connect(2, "bob")
	s.connect(3, "carol")
	g := s.startMatch(1, 2, 3)

	s.onLoop(func() {
		s.Require().True(g.Lifecycle().ApplyHit(1))
	})
	s.False(g.GameOver())

	s.app.Disconnected(1)
	s.settle()

	before, ok := s.app.Sessions.Lookup("alice")
	s.Require().True(ok)
	s.False(before.IsConnected)
	s.False(before.Alive)

	s.connect(4, "alice")
	s.send(4, netcode.Envelope{Kind: netcode.KindSynchronized})

	var (
		avatarAlive bool
		hasAvatar   bool
		aliveCount  int
	)
	s.onLoop(func() {
		a, ok := g.Lifecycle().Avatar(4)
		hasAvatar = ok
		if ok {
			avatarAlive = a.Alive()
			s.Equal(before.PlayerPosition, a.Mover.Position())
		}
		aliveCount = g.Lifecycle().AliveCount()
	})
	s.Require().True(hasAvatar)
	s.False(avatarAlive)
	s.Equal(2, aliveCount)

	after, _ := s.app.Sessions.GetPlayerData(4)
	s.Equal(before.PlayerNumber, after.PlayerNumber)
	s.Equal(before.AvatarAppearanceID, after.AvatarAppearanceID)
}

func (s *IntegrationSuite) TestWebsocketClientJoinsLobby() {
	srv := httptest.NewServer(s.app.Transport)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + netcode.Path

	var mu sync.Mutex
	var notes []model.Notification
	var scenes []string
	payload, err := connection.EncodePayload(model.ConnectionPayload{StableIdentity: "dana", DisplayName: "Dana"})
	s.Require().NoError(err)

	client, err := netcode.DialURL(s.ctx, url, payload, nil, netcode.Callbacks{
		OnNotification: func(n model.Notification) {
			mu.Lock()
			notes = append(notes, n)
			mu.Unlock()
		},
		OnLoadScene: func(scene string, _ int) {
			mu.Lock()
			scenes = append(scenes, scene)
			mu.Unlock()
		},
	}, testutil.NopLogger())
	s.Require().NoError(err)
	defer client.Close()
	go func() { _ = client.Run(s.ctx) }()

	s.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(notes) == 1 && len(scenes) == 1
	}, time.Second, 10*time.Millisecond)
	mu.Lock()
	s.Equal(model.NotifyConnectedSound, notes[0])
	s.Equal(model.SceneLobby, scenes[0])
	mu.Unlock()

	s.Require().NoError(client.Synchronized())
	s.Eventually(func() bool {
		var n int
		if err := s.app.Loop.Call(s.ctx, func() { n = len(s.app.Avatars()) }); err != nil {
			return false
		}
		return n == 1
	}, time.Second, 10*time.Millisecond)

	s.Require().NoError(client.Close())
	s.Eventually(func() bool {
		rec, ok := s.app.Sessions.Lookup("dana")
		return ok && !rec.IsConnected
	}, time.Second, 10*time.Millisecond)
}

func (s *IntegrationSuite) dial(url, identity string) *netcode.Client {
	payload, err := connection.EncodePayload(model.ConnectionPayload{StableIdentity: model.PlayerIdentity(identity), DisplayName: identity})
	s.Require().NoError(err)
	client, err := netcode.DialURL(s.ctx, url, payload, nil, netcode.Callbacks{}, testutil.NopLogger())
	s.Require().NoError(err)
	go func() { _ = client.Run(s.ctx) }()
	return client
}

func (s *IntegrationSuite) TestDepartedClientIsRemovedFromOtherMirrors() {
	srv := httptest.NewServer(s.app.Transport)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + netcode.Path

	anna := s.dial(url, "anna")
	defer anna.Close()
	ben := s.dial(url, "ben")
	benID := ben.ClientID()

	s.Require().NoError(ben.Synchronized())
	s.Require().NoError(ben.ReportProgress(0.5))
	s.Eventually(func() bool {
		_, progress := anna.Field("load_progress", benID)
		_, life := anna.Field("life_state", benID)
		return progress && life
	}, time.Second, 10*time.Millisecond)

	s.Require().NoError(ben.Close())

	s.Eventually(func() bool {
		_, progress := anna.Field("load_progress", benID)
		_, life := anna.Field("life_state", benID)
		_, name := anna.Field("player_name", benID)
		return !progress && !life && !name
	}, time.Second, 10*time.Millisecond)
	_, tracked := s.app.Loading.Progress(benID)
	s.False(tracked)
}

func (s *IntegrationSuite) TestReturningLobbyPlayerRespawnsAndCancelsClose() {
	s.connect(1, "alice")
	s.connect(2, "bob")
	s.onLoop(func() { s.app.Bus.LoadCompleted.Publish(model.LoadCompleted{Scene: model.SceneLobby, Mode: model.LoadModeSingle}) })

	lobbyCtl, ok := s.app.Lobby()
	s.Require().True(ok)
	s.app.Disconnected(1)
	s.settle()

	s.Require().NoError(lobbyCtl.StartGame(s.ctx))
	s.settle()
	s.Require().True(lobbyCtl.Closing())

	s.connect(3, "alice")
	s.send(3, netcode.Envelope{Kind: netcode.KindSynchronized})

	var hasAvatar bool
	s.onLoop(func() { hasAvatar = lobbyCtl.Lifecycle().HasAvatar(3) })
	s.True(hasAvatar)
	s.False(lobbyCtl.Closing())

	s.Require().NoError(s.app.Advance(s.ctx, s.app.Settings.LobbyCloseDelay))
	s.Equal(model.PhaseLobby, s.activePhase())
}
