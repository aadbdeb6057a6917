// Package connection establishes the transport endpoint a session runs over,
// either a literal address or a relay allocation found through matchmaking.
package connection

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/services/matchmaking"
)

// Method names a connection strategy
type Method string

const (
	MethodDirect Method = "direct"
	MethodRelay  Method = "relay"
)

// Provider prepares the transport for hosting or joining
type Provider interface {
	SetupHostConnection(ctx context.Context) (*Ready, error)
	SetupClientConnection(ctx context.Context) (*Ready, error)
}

// IdentitySource supplies the stable identity for the payload
type IdentitySource interface {
	PlayerIdentity() (model.PlayerIdentity, error)
}

// Options are shared by every provider
type Options struct {
	DisplayName string
	Debug       bool
	Identity    IdentitySource
}

// Endpoint is where the transport binds or dials
type Endpoint struct {
	Address string
	Port    int
	Relay   *model.RelayServerData
}

// HostPort returns the address in host:port form
func (e Endpoint) HostPort() string {
	return net.JoinHostPort(e.Address, strconv.Itoa(e.Port))
}

// Ready is a configured endpoint plus the handshake payload to present on it
type Ready struct {
	Role     model.Role
	Method   Method
	Endpoint Endpoint
	Payload  model.ConnectionPayload
	// Encoded is the serialized Payload attached to the handshake
	Encoded []byte
}

func newReady(role model.Role, method Method, endpoint Endpoint, opts Options) (*Ready, error) {
	if opts.Identity == nil {
		return nil, fmt.Errorf("no identity source configured")
	}
	identity, err := opts.Identity.PlayerIdentity()
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	payload := model.ConnectionPayload{
		StableIdentity: identity,
		DisplayName:    opts.DisplayName,
		DebugFlag:      opts.Debug,
	}
	encoded, err := EncodePayload(payload)
	if err != nil {
		return nil, err
	}

	return &Ready{
		Role:     role,
		Method:   method,
		Endpoint: endpoint,
		Payload:  payload,
		Encoded:  encoded,
	}, nil
}

// Direct binds or dials a literal address and port
type Direct struct {
	address string
	port    int
	opts    Options
}

// Ensure Direct implements Provider
var _ Provider = (*Direct)(nil)

// NewDirect creates a direct provider
func NewDirect(address string, port int, opts Options) *Direct {
	return &Direct{address: address, port: port, opts: opts}
}

func (d *Direct) SetupHostConnection(ctx context.Context) (*Ready, error) {
	return d.setup(model.RoleServer)
}

func (d *Direct) SetupClientConnection(ctx context.Context) (*Ready, error) {
	return d.setup(model.RoleClient)
}

func (d *Direct) setup(role model.Role) (*Ready, error) {
	if d.port <= 0 || d.port > 65535 {
		return nil, &model.ConnectError{Op: "direct", Err: fmt.Errorf("invalid port %d", d.port)}
	}
	ready, err := newReady(role, MethodDirect, Endpoint{Address: d.address, Port: d.port}, d.opts)
	if err != nil {
		return nil, &model.ConnectError{Op: "direct", Err: err}
	}
	return ready, nil
}

// Relay reaches peers through a relay allocation published on the lobby
type Relay struct {
	matchmaking matchmaking.Provider
	lobbies     matchmaking.LobbyTracker
	maxPlayers  int
	opts        Options
	logger      *slog.Logger
}

// Ensure Relay implements Provider
var _ Provider = (*Relay)(nil)

// NewRelay creates a relay provider
func NewRelay(mm matchmaking.Provider, lobbies matchmaking.LobbyTracker, maxPlayers int, opts Options, logger *slog.Logger) *Relay {
	return &Relay{
		matchmaking: mm,
		lobbies:     lobbies,
		maxPlayers:  maxPlayers,
		opts:        opts,
		logger:      logger.With(slog.String("component", "relay")),
	}
}

// SetupHostConnection allocates a relay session and advertises its join code
func (r *Relay) SetupHostConnection(ctx context.Context) (*Ready, error) {
	if r.lobbies.CurrentLobby() == nil {
		return nil, &model.ConnectError{Op: "relay host", Err: model.ErrNoMatchmakingSession}
	}

	alloc, code, err := r.matchmaking.CreateSession(ctx, r.maxPlayers)
	if err != nil {
		return nil, &model.ConnectError{Op: "relay allocate", Err: err}
	}

	if err := r.matchmaking.PublishSessionData(ctx, map[string]string{
		model.LobbyDataRelayJoinCode: string(code),
	}); err != nil {
		return nil, &model.ConnectError{Op: "relay publish", Err: err}
	}

	endpoint, err := relayEndpoint(alloc.ServerData())
	if err != nil {
		return nil, &model.ConnectError{Op: "relay host", Err: err}
	}

	ready, err := newReady(model.RoleServer, MethodRelay, endpoint, r.opts)
	if err != nil {
		return nil, &model.ConnectError{Op: "relay host", Err: err}
	}

	r.logger.Info("relay host configured",
		slog.String("allocation_id", alloc.AllocationID),
		slog.String("join_code", string(code)),
	)
	return ready, nil
}

// SetupClientConnection resolves the lobby's join code to an allocation
func (r *Relay) SetupClientConnection(ctx context.Context) (*Ready, error) {
	lobby := r.lobbies.CurrentLobby()
	if lobby == nil {
		return nil, &model.ConnectError{Op: "relay client", Err: model.ErrNoMatchmakingSession}
	}
	code := lobby.RelayJoinCode()
	if code == "" {
		return nil, &model.ConnectError{Op: "relay client", Err: model.ErrJoinCodeNotFound}
	}

	alloc, err := r.matchmaking.JoinSession(ctx, code)
	if err != nil {
		return nil, &model.ConnectError{Op: "relay join", Err: err}
	}

	endpoint, err := relayEndpoint(alloc.ClientData())
	if err != nil {
		return nil, &model.ConnectError{Op: "relay client", Err: err}
	}

	ready, err := newReady(model.RoleClient, MethodRelay, endpoint, r.opts)
	if err != nil {
		return nil, &model.ConnectError{Op: "relay client", Err: err}
	}

	r.logger.Info("relay client configured",
		slog.String("allocation_id", alloc.AllocationID),
		slog.String("lobby", string(lobby.Code)),
	)
	return ready, nil
}

func relayEndpoint(data model.RelayServerData) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(data.Endpoint)
	if err != nil {
		return Endpoint{}, fmt.Errorf("relay endpoint %q: %w", data.Endpoint, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Endpoint{}, fmt.Errorf("relay endpoint %q: %w", data.Endpoint, err)
	}
	return Endpoint{Address: host, Port: port, Relay: &data}, nil
}
