package connection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/arenasession/internal/dependencies/mocks"
	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/services/matchmaking"
	"github.com/mcoot/arenasession/internal/storage/memory"
	"github.com/mcoot/arenasession/internal/testutil"
)

type staticIdentity model.PlayerIdentity

func (s staticIdentity) PlayerIdentity() (model.PlayerIdentity, error) {
	return model.PlayerIdentity(s), nil
}

type failingIdentity struct{}

func (failingIdentity) PlayerIdentity() (model.PlayerIdentity, error) {
	return "", errors.New("prefs unavailable")
}

type ProviderSuite struct {
	suite.Suite
	random      *mocks.MockRandom
	matchmaking *matchmaking.Service
	opts        Options
	ctx         context.Context
}

func TestProviderSuite(t *testing.T) {
	suite.Run(t, new(ProviderSuite))
}

func (s *ProviderSuite) SetupTest() {
	s.random = mocks.NewMockRandom()
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.matchmaking = matchmaking.New(memory.New(), clk, s.random, matchmaking.Config{RelayEndpoint: "10.0.0.5:7777"}, testutil.NopLogger())
	s.opts = Options{DisplayName: "Ada", Debug: true, Identity: staticIdentity("guid-a")}
	s.ctx = context.Background()
}

func (s *ProviderSuite) TestDirectAttachesPayload() {
	d := NewDirect("127.0.0.1", 7777, s.opts)

	ready, err := d.SetupHostConnection(s.ctx)
	s.Require().NoError(err)

	s.Equal(model.RoleServer, ready.Role)
	s.Equal(MethodDirect, ready.Method)
	s.Equal("127.0.0.1:7777", ready.Endpoint.HostPort())
	s.Nil(ready.Endpoint.Relay)

	decoded, err := DecodePayload(ready.Encoded)
	s.Require().NoError(err)
	s.Equal(model.ConnectionPayload{StableIdentity: "guid-a", DisplayName: "Ada", DebugFlag: true}, decoded)
}

func (s *ProviderSuite) TestDirectRejectsInvalidPort() {
	_, err := NewDirect("127.0.0.1", 0, s.opts).SetupClientConnection(s.ctx)
	s.ErrorIs(err, model.ErrConnect)
}

func (s *ProviderSuite) TestIdentityFailureIsConnectError() {
	_, err := NewDirect("127.0.0.1", 7777, Options{Identity: failingIdentity{}}).SetupClientConnection(s.ctx)
	s.ErrorIs(err, model.ErrConnect)
}

func (s *ProviderSuite) TestRelayHostWithoutLobbyFailsDistinguishably() {
	relay := NewRelay(s.matchmaking, s.matchmaking, 8, s.opts, testutil.NopLogger())

	_, err := relay.SetupHostConnection(s.ctx)

	s.ErrorIs(err, model.ErrConnect)
	s.ErrorIs(err, model.ErrNoMatchmakingSession)
}

func (s *ProviderSuite) TestRelayClientWithoutLobbyFailsDistinguishably() {
	relay := NewRelay(s.matchmaking, s.matchmaking, 8, s.opts, testutil.NopLogger())

	_, err := relay.SetupClientConnection(s.ctx)

	s.ErrorIs(err, model.ErrNoMatchmakingSession)
}

func (s *ProviderSuite) TestRelayHostPublishesJoinCodeAndClientResolvesIt() {
	s.random.QueueString("LOBBY1", "JOIN01")
	s.random.QueueBytes([]byte("key"))
	_, err := s.matchmaking.OpenLobby(s.ctx, "arena", "guid-a", 8)
	s.Require().NoError(err)

	host := NewRelay(s.matchmaking, s.matchmaking, 8, s.opts, testutil.NopLogger())
	hostReady, err := host.SetupHostConnection(s.ctx)
	s.Require().NoError(err)

	s.Equal(MethodRelay, hostReady.Method)
	s.Require().NotNil(hostReady.Endpoint.Relay)
	s.True(hostReady.Endpoint.Relay.IsHost)
	s.Equal("10.0.0.5", hostReady.Endpoint.Address)
	s.Equal(7777, hostReady.Endpoint.Port)
	s.Equal(model.JoinCode("JOIN01"), s.matchmaking.CurrentLobby().RelayJoinCode())

	client := NewRelay(s.matchmaking, s.matchmaking, 8, Options{Identity: staticIdentity("guid-b")}, testutil.NopLogger())
	clientReady, err := client.SetupClientConnection(s.ctx)
	s.Require().NoError(err)

	s.Equal(model.RoleClient, clientReady.Role)
	s.False(clientReady.Endpoint.Relay.IsHost)
	s.Equal(hostReady.Endpoint.Relay.AllocationID, clientReady.Endpoint.Relay.AllocationID)
	s.Equal([]byte("key"), clientReady.Endpoint.Relay.Key)
	s.Equal(model.PlayerIdentity("guid-b"), clientReady.Payload.StableIdentity)
}

func (s *ProviderSuite) TestRelayClientWithoutJoinCode() {
	s.random.QueueString("LOBBY1")
	_, _ = s.matchmaking.OpenLobby(s.ctx, "arena", "guid-a", 8)

	_, err := NewRelay(s.matchmaking, s.matchmaking, 8, s.opts, testutil.NopLogger()).SetupClientConnection(s.ctx)

	s.ErrorIs(err, model.ErrConnect)
	s.ErrorIs(err, model.ErrJoinCodeNotFound)
}

func (s *ProviderSuite) TestDecodePayloadRejectsGarbage() {
	_, err := DecodePayload([]byte{0xc1})
	s.ErrorIs(err, model.ErrMalformedPayload)

	empty, _ := EncodePayload(model.ConnectionPayload{DisplayName: "no identity"})
	_, err = DecodePayload(empty)
	s.ErrorIs(err, model.ErrMalformedPayload)
}
