package netcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/arenasession/internal/connection"
	"github.com/mcoot/arenasession/internal/middleware"
	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/replicated"
	"github.com/mcoot/arenasession/internal/scene"
	"github.com/mcoot/arenasession/internal/services/phase"
)

const (
	// Path is where the websocket endpoint is mounted
	Path = "/ws"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 64 * 1024
	sendBufferSize = 64

	DefaultHandshakeTimeout = 10 * time.Second
)

// Gate admits connections and receives client traffic. Methods are called
// from connection goroutines; implementations hand work to the authority loop.
type Gate interface {
	// Admit blocks until the connection is accepted or rejected
	Admit(ctx context.Context, clientID model.ClientID, payload model.ConnectionPayload) error
	// Withdraw undoes an Admit whose connection failed before Joined
	Withdraw(clientID model.ClientID)
	// Joined runs once an admitted client can receive frames
	Joined(clientID model.ClientID)
	Disconnected(clientID model.ClientID)
	Received(clientID model.ClientID, env Envelope)
}

// ServerConfig tunes a Server
type ServerConfig struct {
	// RelayKey, when set, must be presented in the handshake
	RelayKey         []byte
	HandshakeTimeout time.Duration
}

// Server accepts websocket sessions and delivers server frames to them
type Server struct {
	gate     Gate
	hub      *Hub
	cfg      ServerConfig
	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	logger   *slog.Logger

	keyMu sync.RWMutex
}

// Ensure Server implements the outbound collaborators
var (
	_ phase.Notifier       = (*Server)(nil)
	_ scene.Announcer      = (*Server)(nil)
	_ replicated.Sink      = (*Server)(nil)
	_ replicated.Retractor = (*Server)(nil)
	_ http.Handler         = (*Server)(nil)
)

// NewServer creates a server; call Start before serving
func NewServer(gate Gate, cfg ServerConfig, logger *slog.Logger) *Server {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	return &Server{
		gate: gate,
		hub:  NewHub(logger),
		cfg:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With(slog.String("component", "netcode_server")),
	}
}

// SetRelayKey requires handshakes to present key; nil disables the check
func (s *Server) SetRelayKey(key []byte) {
	s.keyMu.Lock()
	s.cfg.RelayKey = key
	s.keyMu.Unlock()
}

func (s *Server) relayKey() []byte {
	s.keyMu.RLock()
	defer s.keyMu.RUnlock()
	return s.cfg.RelayKey
}

// Start runs the hub
func (s *Server) Start() {
	go s.hub.Run()
}

// Close disconnects every peer
func (s *Server) Close() {
	s.hub.Close()
}

// PeerCount returns the number of live sessions
func (s *Server) PeerCount() int {
	return s.hub.PeerCount()
}

// ListenAndServe serves the websocket endpoint on ready's address until ctx ends
func (s *Server) ListenAndServe(ctx context.Context, ready *connection.Ready) error {
	mux := http.NewServeMux()
	mux.Handle(Path, s)

	var handler http.Handler = mux
	handler = middleware.Logging(s.logger)(handler)
	handler = middleware.Recovery(s.logger, middleware.DefaultPanicHandler)(handler)

	srv := &http.Server{
		Addr:              ready.Endpoint.HostPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("transport listening", slog.String("addr", srv.Addr), slog.String("method", string(ready.Method)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return &model.ConnectError{Op: "listen", Err: err}
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	s.Close()
	return srv.Shutdown(shutdownCtx)
}

// ServeHTTP upgrades the request and runs the session until the peer leaves
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", slog.String("error", err.Error()))
		return
	}
	conn.SetReadLimit(maxFrameSize)

	clientID := model.ClientID(s.nextID.Add(1))
	if err := s.handshake(r.Context(), conn, clientID); err != nil {
		s.logger.Info("connection rejected",
			slog.Uint64("client_id", uint64(clientID)),
			slog.String("remote", r.RemoteAddr),
			slog.String("error", err.Error()))
		s.reject(conn, err)
		return
	}

	p := newPeer(clientID, conn)
	s.hub.Register(p)
	go p.writePump(s.logger)

	accepted, err := Encode(Envelope{Kind: KindAccepted, ClientID: clientID})
	if err == nil {
		s.hub.Send(accepted, clientID)
	}
	s.gate.Joined(clientID)

	s.readPump(p)

	s.hub.Unregister(p)
	s.gate.Disconnected(clientID)
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn, clientID model.ClientID) error {
	if err := conn.SetReadDeadline(time.Now().Add(s.cfg.HandshakeTimeout)); err != nil {
		return &model.ConnectError{Op: "handshake", Err: err}
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return &model.ConnectError{Op: "handshake", Err: err}
	}
	env, err := Decode(data)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrMalformedPayload, err)
	}
	if env.Kind != KindHandshake {
		return fmt.Errorf("%w: expected handshake, got %s", model.ErrMalformedPayload, env.Kind)
	}
	if key := s.relayKey(); len(key) > 0 && !bytes.Equal(key, env.RelayKey) {
		return &model.ConnectError{Op: "handshake", Err: model.ErrRelayKeyMismatch}
	}
	payload, err := connection.DecodePayload(env.Payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.HandshakeTimeout)
	defer cancel()
	if err := s.gate.Admit(ctx, clientID, payload); err != nil {
		return err
	}
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.gate.Withdraw(clientID)
		return &model.ConnectError{Op: "handshake", Err: err}
	}
	return nil
}

func (s *Server) reject(conn *websocket.Conn, reason error) {
	defer conn.Close()
	data, err := Encode(Envelope{Kind: KindRejected, Reason: reason.Error()})
	if err != nil {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.BinaryMessage, data)
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "rejected"))
}

func (s *Server) readPump(p *peer) {
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("peer read failed", slog.Uint64("client_id", uint64(p.clientID)), slog.String("error", err.Error()))
			}
			return
		}
		env, err := Decode(data)
		if err != nil {
			s.logger.Warn("dropping malformed frame", slog.Uint64("client_id", uint64(p.clientID)), slog.String("error", err.Error()))
			continue
		}
		// the sender is always the connection, whatever the frame claims
		env.ClientID = p.clientID
		s.gate.Received(p.clientID, env)
	}
}

func (s *Server) send(env Envelope, targets ...model.ClientID) {
	data, err := Encode(env)
	if err != nil {
		s.logger.Error("encode failed", slog.String("kind", string(env.Kind)), slog.String("error", err.Error()))
		return
	}
	s.hub.Send(data, targets...)
}

// Notify sends a client-side notification, to everyone when no clients are given
func (s *Server) Notify(n model.Notification, clients ...model.ClientID) {
	s.send(Envelope{Kind: Kind(n)}, clients...)
}

// AnnounceScene tells every client to load a scene
func (s *Server) AnnounceScene(name string, load int) {
	s.send(Envelope{Kind: KindLoadScene, Scene: name, Load: load})
}

// AnnounceSceneTo tells one late-joining client which scene is loaded
func (s *Server) AnnounceSceneTo(name string, clientID model.ClientID) {
	s.send(Envelope{Kind: KindLoadScene, Scene: name}, clientID)
}

// Replicate mirrors a committed field value to every client
func (s *Server) Replicate(field string, owner model.ClientID, value any) {
	s.send(Envelope{Kind: KindFieldUpdate, Field: field, Owner: owner, Value: value})
}

// Retract tells every client to forget a field whose owner went away
func (s *Server) Retract(field string, owner model.ClientID) {
	s.send(Envelope{Kind: KindFieldRemoved, Field: field, Owner: owner})
}

// peer is one accepted websocket session
type peer struct {
	clientID    model.ClientID
	conn        *websocket.Conn
	send        chan []byte
	connectedAt time.Time
}

func newPeer(clientID model.ClientID, conn *websocket.Conn) *peer {
	return &peer{
		clientID:    clientID,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// writePump drains the send queue until the hub closes it
func (p *peer) writePump(logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = p.conn.Close()
	}()

	for {
		select {
		case data, ok := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = p.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := p.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				logger.Debug("peer write failed", slog.Uint64("client_id", uint64(p.clientID)), slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
