package netcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"

	"github.com/mcoot/arenasession/internal/connection"
	"github.com/mcoot/arenasession/internal/model"
)

// Callbacks receive server frames on the client's read goroutine
type Callbacks struct {
	OnNotification func(n model.Notification)
	OnLoadScene    func(scene string, load int)
	OnFieldUpdate  func(field string, owner model.ClientID, value any)
	OnFieldRemoved func(field string, owner model.ClientID)
}

type fieldKey struct {
	field string
	owner model.ClientID
}

// Client is the joining side of a session
type Client struct {
	conn     *websocket.Conn
	clientID model.ClientID
	cb       Callbacks
	logger   *slog.Logger

	writeMu sync.Mutex

	mu     sync.RWMutex
	mirror map[fieldKey]any
	scene  string
}

// Dial connects to the endpoint in ready and completes the handshake
func Dial(ctx context.Context, ready *connection.Ready, cb Callbacks, logger *slog.Logger) (*Client, error) {
	u := url.URL{Scheme: "ws", Host: ready.Endpoint.HostPort(), Path: Path}
	var key []byte
	if ready.Endpoint.Relay != nil {
		key = ready.Endpoint.Relay.Key
	}
	return DialURL(ctx, u.String(), ready.Encoded, key, cb, logger)
}

// DialURL connects to a websocket URL presenting an encoded payload
func DialURL(ctx context.Context, rawURL string, payload, relayKey []byte, cb Callbacks, logger *slog.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, &model.ConnectError{Op: "dial", Err: err}
	}

	c := &Client{
		conn:   conn,
		cb:     cb,
		mirror: make(map[fieldKey]any),
		logger: logger.With(slog.String("component", "netcode_client")),
	}
	if err := c.handshake(ctx, payload, relayKey); err != nil {
		_ = conn.Close()
		return nil, err
	}
	c.logger.Info("connected", slog.Uint64("client_id", uint64(c.clientID)))
	return c, nil
}

func (c *Client) handshake(ctx context.Context, payload, relayKey []byte) error {
	if err := c.write(Envelope{Kind: KindHandshake, Payload: payload, RelayKey: relayKey}); err != nil {
		return &model.ConnectError{Op: "handshake", Err: err}
	}

	deadline := time.Now().Add(DefaultHandshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetReadDeadline(deadline)
	defer func() { _ = c.conn.SetReadDeadline(time.Time{}) }()

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return &model.ConnectError{Op: "handshake", Err: err}
	}
	env, err := Decode(data)
	if err != nil {
		return &model.ConnectError{Op: "handshake", Err: err}
	}
	switch env.Kind {
	case KindAccepted:
		c.clientID = env.ClientID
		return nil
	case KindRejected:
		return &model.ConnectError{Op: "handshake", Err: fmt.Errorf("%w: %s", model.ErrRejected, env.Reason)}
	default:
		return &model.ConnectError{Op: "handshake", Err: fmt.Errorf("unexpected %s frame", env.Kind)}
	}
}

// ClientID returns the id the server assigned
func (c *Client) ClientID() model.ClientID { return c.clientID }

// Run dispatches server frames until the connection ends or ctx is cancelled
func (c *Client) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		env, err := Decode(data)
		if err != nil {
			c.logger.Warn("dropping malformed frame", slog.String("error", err.Error()))
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env Envelope) {
	switch env.Kind {
	case KindLoadScene:
		c.mu.Lock()
		c.scene = env.Scene
		c.mu.Unlock()
		if c.cb.OnLoadScene != nil {
			c.cb.OnLoadScene(env.Scene, env.Load)
		}
	case KindFieldUpdate:
		c.mu.Lock()
		c.mirror[fieldKey{field: env.Field, owner: env.Owner}] = env.Value
		c.mu.Unlock()
		if c.cb.OnFieldUpdate != nil {
			c.cb.OnFieldUpdate(env.Field, env.Owner, env.Value)
		}
	case KindFieldRemoved:
		c.mu.Lock()
		delete(c.mirror, fieldKey{field: env.Field, owner: env.Owner})
		c.mu.Unlock()
		if c.cb.OnFieldRemoved != nil {
			c.cb.OnFieldRemoved(env.Field, env.Owner)
		}
	case KindConnectedSound, KindStopLoadingScreen:
		if c.cb.OnNotification != nil {
			c.cb.OnNotification(model.Notification(env.Kind))
		}
	default:
		c.logger.Debug("ignoring frame", slog.String("kind", string(env.Kind)))
	}
}

// Field returns the last mirrored value of a field owned by owner
func (c *Client) Field(field string, owner model.ClientID) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.mirror[fieldKey{field: field, owner: owner}]
	return v, ok
}

// Scene returns the last scene the server asked for
func (c *Client) Scene() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scene
}

// ReportProgress writes this client's loading progress
func (c *Client) ReportProgress(progress float64) error {
	return c.write(Envelope{Kind: KindLoadProgress, Progress: progress})
}

// Synchronized tells the server this client has caught up with the scene
func (c *Client) Synchronized() error {
	return c.write(Envelope{Kind: KindSynchronized})
}

// Move requests movement of this client's avatar
func (c *Client) Move(direction mgl64.Vec3) error {
	return c.write(Envelope{Kind: KindMovementIntent, Direction: direction})
}

// Rotate requests rotation of this client's avatar about the up axis
func (c *Client) Rotate(angle float64) error {
	return c.write(Envelope{Kind: KindRotationIntent, Angle: angle})
}

// Close ends the session
func (c *Client) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if cerr := c.conn.Close(); err == nil && !errors.Is(cerr, net.ErrClosed) {
		err = cerr
	}
	return err
}

func (c *Client) write(env Envelope) error {
	data, err := Encode(env)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}
