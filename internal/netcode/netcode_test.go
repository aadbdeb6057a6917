package netcode

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/arenasession/internal/connection"
	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/testutil"
)

// fakeGate admits everyone except identities listed in reject
type fakeGate struct {
	mu           sync.Mutex
	reject       map[model.PlayerIdentity]error
	admitted     map[model.ClientID]model.ConnectionPayload
	joined       []model.ClientID
	disconnected []model.ClientID
	withdrawn    []model.ClientID
	received     []Envelope
}

func newFakeGate() *fakeGate {
	return &fakeGate{
		reject:   make(map[model.PlayerIdentity]error),
		admitted: make(map[model.ClientID]model.ConnectionPayload),
	}
}

func (g *fakeGate) Admit(_ context.Context, clientID model.ClientID, payload model.ConnectionPayload) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.reject[payload.StableIdentity]; ok {
		return err
	}
	g.admitted[clientID] = payload
	return nil
}

func (g *fakeGate) Withdraw(clientID model.ClientID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.admitted, clientID)
	g.withdrawn = append(g.withdrawn, clientID)
}

func (g *fakeGate) Joined(clientID model.ClientID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.joined = append(g.joined, clientID)
}

func (g *fakeGate) Disconnected(clientID model.ClientID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disconnected = append(g.disconnected, clientID)
}

func (g *fakeGate) Received(_ model.ClientID, env Envelope) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.received = append(g.received, env)
}

func (g *fakeGate) receivedKinds() []Kind {
	g.mu.Lock()
	defer g.mu.Unlock()
	kinds := make([]Kind, 0, len(g.received))
	for _, e := range g.received {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func (g *fakeGate) disconnectedCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.disconnected)
}

type NetcodeTestSuite struct {
	suite.Suite
	ctx    context.Context
	cancel context.CancelFunc
	gate   *fakeGate
	server *Server
	http   *httptest.Server
	url    string
}

func TestNetcodeTestSuite(t *testing.T) {
	suite.Run(t, new(NetcodeTestSuite))
}

func (s *NetcodeTestSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 10*time.Second)
	s.gate = newFakeGate()
	s.start(ServerConfig{})
}

func (s *NetcodeTestSuite) start(cfg ServerConfig) {
	s.server = NewServer(s.gate, cfg, testutil.NopLogger())
	s.server.Start()
	s.http = httptest.NewServer(s.server)
	s.url = "ws" + strings.TrimPrefix(s.http.URL, "http") + Path
}

func (s *NetcodeTestSuite) TearDownTest() {
	s.http.Close()
	s.server.Close()
	s.cancel()
}

func (s *NetcodeTestSuite) payload(identity string) []byte {
	data, err := connection.EncodePayload(model.ConnectionPayload{StableIdentity: model.PlayerIdentity(identity), DisplayName: identity})
	s.Require().NoError(err)
	return data
}

func (s *NetcodeTestSuite) dial(identity string, cb Callbacks) *Client {
	c, err := DialURL(s.ctx, s.url, s.payload(identity), nil, cb, testutil.NopLogger())
	s.Require().NoError(err)
	go func() { _ = c.Run(s.ctx) }()
	s.T().Cleanup(func() { _ = c.Close() })
	return c
}

func (s *NetcodeTestSuite) TestEnvelopeRoundTripKeepsVector() {
	data, err := Encode(Envelope{Kind: KindMovementIntent, Direction: mgl64.Vec3{1, 0, -1}})
	s.Require().NoError(err)

	env, err := Decode(data)
	s.Require().NoError(err)
	s.Equal(KindMovementIntent, env.Kind)
	s.Equal(mgl64.Vec3{1, 0, -1}, env.Direction)
}

func (s *NetcodeTestSuite) TestDecodeRejectsFrameWithoutKind() {
	data, err := Encode(Envelope{Progress: 0.5})
	s.Require().NoError(err)

	_, err = Decode(data)
	s.Error(err)
}

func (s *NetcodeTestSuite) TestHandshakeAssignsDistinctClientIDs() {
	a := s.dial("player-a", Callbacks{})
	b := s.dial("player-b", Callbacks{})

	s.NotZero(a.ClientID())
	s.NotZero(b.ClientID())
	s.NotEqual(a.ClientID(), b.ClientID())
	s.Eventually(func() bool { return s.server.PeerCount() == 2 }, time.Second, 10*time.Millisecond)
}

func (s *NetcodeTestSuite) TestRejectedAdmissionSurfacesToClient() {
	s.gate.reject["dupe"] = &model.IdentityConflictError{Identity: "dupe", Existing: 1, Incoming: 2}

	_, err := DialURL(s.ctx, s.url, s.payload("dupe"), nil, Callbacks{}, testutil.NopLogger())

	s.ErrorIs(err, model.ErrConnect)
	s.ErrorIs(err, model.ErrRejected)
	s.Contains(err.Error(), "already connected")
	s.Zero(s.server.PeerCount())
}

func (s *NetcodeTestSuite) TestMalformedPayloadIsRejected() {
	_, err := DialURL(s.ctx, s.url, []byte{0xc1}, nil, Callbacks{}, testutil.NopLogger())

	s.ErrorIs(err, model.ErrRejected)
	s.Contains(err.Error(), model.ErrMalformedPayload.Error())
}

func (s *NetcodeTestSuite) TestRelayKeyMustMatch() {
	s.http.Close()
	s.server.Close()
	s.start(ServerConfig{RelayKey: []byte("secret")})

	_, err := DialURL(s.ctx, s.url, s.payload("a"), []byte("wrong"), Callbacks{}, testutil.NopLogger())
	s.ErrorIs(err, model.ErrRejected)
	s.Contains(err.Error(), model.ErrRelayKeyMismatch.Error())

	c, err := DialURL(s.ctx, s.url, s.payload("a"), []byte("secret"), Callbacks{}, testutil.NopLogger())
	s.Require().NoError(err)
	s.NoError(c.Close())
}

func (s *NetcodeTestSuite) TestClientFramesReachGateStampedWithSender() {
	c := s.dial("player-a", Callbacks{})

	s.Require().NoError(c.ReportProgress(0.5))
	s.Require().NoError(c.Move(mgl64.Vec3{0, 0, 1}))
	s.Require().NoError(c.Rotate(0.25))
	s.Require().NoError(c.Synchronized())

	s.Eventually(func() bool { return len(s.gate.receivedKinds()) == 4 }, time.Second, 10*time.Millisecond)
	s.Equal([]Kind{KindLoadProgress, KindMovementIntent, KindRotationIntent, KindSynchronized}, s.gate.receivedKinds())

	s.gate.mu.Lock()
	defer s.gate.mu.Unlock()
	for _, env := range s.gate.received {
		s.Equal(c.ClientID(), env.ClientID)
	}
	s.InDelta(0.5, s.gate.received[0].Progress, 1e-9)
}

func (s *NetcodeTestSuite) TestServerFramesReachClients() {
	var mu sync.Mutex
	var notes []model.Notification
	var scenes []string
	c := s.dial("player-a", Callbacks{
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
	})
	s.Eventually(func() bool { return s.server.PeerCount() == 1 }, time.Second, 10*time.Millisecond)

	s.server.Notify(model.NotifyConnectedSound, c.ClientID())
	s.server.AnnounceScene(model.SceneLobby, 1)
	s.server.Replicate("player_name", c.ClientID(), "Alice")

	s.Eventually(func() bool {
		_, ok := c.Field("player_name", c.ClientID())
		return ok
	}, time.Second, 10*time.Millisecond)

	v, _ := c.Field("player_name", c.ClientID())
	s.Equal("Alice", v)
	s.Equal(model.SceneLobby, c.Scene())

	mu.Lock()
	defer mu.Unlock()
	s.Equal([]model.Notification{model.NotifyConnectedSound}, notes)
	s.Equal([]string{model.SceneLobby}, scenes)
}

func (s *NetcodeTestSuite) TestRetractedFieldLeavesMirror() {
	var mu sync.Mutex
	var removed []string
	c := s.dial("player-a", Callbacks{
		OnFieldRemoved: func(field string, _ model.ClientID) {
			mu.Lock()
			removed = append(removed, field)
			mu.Unlock()
		},
	})
	s.Eventually(func() bool { return s.server.PeerCount() == 1 }, time.Second, 10*time.Millisecond)

	s.server.Replicate("load_progress", 42, 0.5)
	s.Eventually(func() bool {
		_, ok := c.Field("load_progress", 42)
		return ok
	}, time.Second, 10*time.Millisecond)

	s.server.Retract("load_progress", 42)

	s.Eventually(func() bool {
		_, ok := c.Field("load_progress", 42)
		return !ok
	}, time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	s.Equal([]string{"load_progress"}, removed)
}

func (s *NetcodeTestSuite) TestTargetedNotifySkipsOtherClients() {
	var mu sync.Mutex
	got := map[string]int{}
	counter := func(name string) Callbacks {
		return Callbacks{OnNotification: func(model.Notification) {
			mu.Lock()
			got[name]++
			mu.Unlock()
		}}
	}
	a := s.dial("a", counter("a"))
	s.dial("b", counter("b"))
	s.Eventually(func() bool { return s.server.PeerCount() == 2 }, time.Second, 10*time.Millisecond)

	s.server.Notify(model.NotifyStopLoadingScreen, a.ClientID())
	s.server.Notify(model.NotifyStopLoadingScreen)

	s.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got["a"] == 2 && got["b"] == 1
	}, time.Second, 10*time.Millisecond)
}

func (s *NetcodeTestSuite) TestCloseReportsDisconnect() {
	c := s.dial("player-a", Callbacks{})
	s.Eventually(func() bool { return s.server.PeerCount() == 1 }, time.Second, 10*time.Millisecond)

	s.Require().NoError(c.Close())

	s.Eventually(func() bool { return s.gate.disconnectedCount() == 1 }, time.Second, 10*time.Millisecond)
	s.Eventually(func() bool { return s.server.PeerCount() == 0 }, time.Second, 10*time.Millisecond)

	s.gate.mu.Lock()
	defer s.gate.mu.Unlock()
	s.Equal([]model.ClientID{c.ClientID()}, s.gate.joined)
	s.Equal([]model.ClientID{c.ClientID()}, s.gate.disconnected)
}
