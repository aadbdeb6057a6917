package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/arenasession/internal/api/response"
	"github.com/mcoot/arenasession/internal/factory"
	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/testutil"
)

type CLITestSuite struct {
	suite.Suite
	app    *factory.TestApp
	srv    *httptest.Server
	ctx    context.Context
	cancel context.CancelFunc
}

func TestCLITestSuite(t *testing.T) {
	suite.Run(t, new(CLITestSuite))
}

func (s *CLITestSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 10*time.Second)
	s.app = factory.NewTestApp()
	go s.app.Loop.Run(s.ctx)
	s.srv = httptest.NewServer(s.app.APIRouter(testutil.NopLogger()))
}

func (s *CLITestSuite) TearDownTest() {
	s.srv.Close()
	s.app.Transport.Close()
	s.cancel()
}

func (s *CLITestSuite) run(args ...string) (string, error) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", s.srv.URL}, args...))
	err := cmd.ExecuteContext(s.ctx)
	return out.String(), err
}

func (s *CLITestSuite) enterLobby() {
	s.Require().NoError(s.app.Loop.Call(s.ctx, func() {
		s.Require().NoError(s.app.Scenes.LoadScene(model.SceneMainMenu))
		s.Require().NoError(s.app.Scenes.LoadScene(model.SceneLobby))
	}))
	s.Require().NoError(s.app.Settle(s.ctx))
}

func (s *CLITestSuite) TestHealthText() {
	out, err := s.run("health")
	s.Require().NoError(err)
	s.Contains(out, "Status: ok")
	s.Contains(out, "Role: server")
}

func (s *CLITestSuite) TestPhaseJSON() {
	s.enterLobby()

	out, err := s.run("-o", "json", "phase")
	s.Require().NoError(err)

	var phase response.Phase
	s.Require().NoError(json.Unmarshal([]byte(out), &phase))
	s.Require().NotNil(phase.Phase)
	s.Equal(string(model.PhaseLobby), *phase.Phase)
}

func (s *CLITestSuite) TestSessionsEmpty() {
	out, err := s.run("sessions")
	s.Require().NoError(err)
	s.Contains(out, "No sessions")
}

func (s *CLITestSuite) TestSessionNotFoundSurfacesAPIError() {
	_, err := s.run("sessions", "nobody")
	s.Require().Error(err)

	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal("SESSION_NOT_FOUND", apiErr.Code)
}

func (s *CLITestSuite) TestLobbyStartRequiresPlayersUnlessForced() {
	s.enterLobby()

	_, err := s.run("lobby", "start")
	s.Require().Error(err)
	s.Contains(err.Error(), "NO_PLAYERS")

	out, err := s.run("lobby", "start", "--force")
	s.Require().NoError(err)
	s.Contains(out, "Lobby closing")
}

func (s *CLITestSuite) TestAccountRegister() {
	out, err := s.run("account", "register", "--username", "alice", "--password", "hunter22")
	s.Require().NoError(err)
	s.Contains(out, "Account: alice")
}

func (s *CLITestSuite) TestGameCommandsOutsideMatch() {
	s.enterLobby()

	_, err := s.run("game", "hit", "1")
	s.Require().Error(err)
	s.Contains(err.Error(), "WRONG_PHASE")

	_, err = s.run("game", "hit", "bob")
	s.Error(err)
}

func (s *CLITestSuite) TestGameObjectiveEndsRound() {
	s.enterLobby()
	_, err := s.run("lobby", "start", "--force")
	s.Require().NoError(err)
	s.Require().NoError(s.app.Settle(s.ctx))
	s.Require().NoError(s.app.Advance(s.ctx, s.app.Settings.LobbyCloseDelay))

	out, err := s.run("game", "objective", "--name", "warden")
	s.Require().NoError(err)
	s.Contains(out, "Round over: win")
}

func (s *CLITestSuite) TestRejectsUnknownOutputFormat() {
	_, err := s.run("-o", "yaml", "health")
	s.Error(err)
}
