package factory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/netcode"
)

// Ensure App admits transport sessions
var _ netcode.Gate = (*App)(nil)

// Admit runs the session registry's admission on the authority loop and
// waits for its verdict. A verdict arriving after ctx ended is undone.
func (a *App) Admit(ctx context.Context, clientID model.ClientID, payload model.ConnectionPayload) error {
	var (
		mu        sync.Mutex
		abandoned bool
	)
	verdict := make(chan error, 1)

	a.Loop.Post(func() {
		a.Sessions.Connect(clientID, payload, func(_ model.SessionRecord, err error) {
			mu.Lock()
			defer mu.Unlock()
			if abandoned {
				if err == nil {
					a.Sessions.Withdraw(clientID)
				}
				return
			}
			verdict <- err
		})
	})

	select {
	case err := <-verdict:
		return err
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	abandoned = true
	select {
	case err := <-verdict:
		if err == nil {
			a.Loop.Post(func() { a.Sessions.Withdraw(clientID) })
		}
	default:
	}
	return &model.ConnectError{Op: "admit", Err: ctx.Err()}
}

// Withdraw undoes an admission whose connection failed before it joined
func (a *App) Withdraw(clientID model.ClientID) {
	a.Loop.Post(func() { a.Sessions.Withdraw(clientID) })
}

// Joined sets up the per-connection state of an admitted client
func (a *App) Joined(clientID model.ClientID) {
	a.Loop.Post(func() {
		identity, ok := a.Sessions.Identity(clientID)
		if !ok {
			a.logger.Warn("joined client has no session record", slog.Uint64("client_id", uint64(clientID)))
			return
		}
		if _, err := a.Roster.Add(clientID); err != nil {
			a.logger.Warn("roster add failed", slog.Uint64("client_id", uint64(clientID)), slog.String("error", err.Error()))
		}
		a.Loading.AddTracker(clientID)
		a.Bus.ClientConnected.Publish(model.ClientConnected{ClientID: clientID, Identity: identity})

		if current := a.Scenes.CurrentScene(); current != "" {
			a.Transport.AnnounceSceneTo(current, clientID)
		}
		a.Transport.Notify(model.NotifyConnectedSound)
	})
}

// Disconnected tears down a session. The record outlives it for reattach.
func (a *App) Disconnected(clientID model.ClientID) {
	a.Loop.Post(func() {
		a.Bus.ClientDisconnected.Publish(model.ClientDisconnected{ClientID: clientID})
		a.Roster.Remove(clientID)
		a.Loading.RemoveTracker(clientID)
		a.Sessions.Disconnect(clientID)
	})
}

// Received routes a client frame to the component that owns it
func (a *App) Received(clientID model.ClientID, env netcode.Envelope) {
	a.Loop.Post(func() {
		switch env.Kind {
		case netcode.KindMovementIntent:
			a.Bus.MovementIntent.Publish(model.MovementIntent{ClientID: clientID, Direction: env.Direction})
		case netcode.KindRotationIntent:
			a.Bus.RotationIntent.Publish(model.RotationIntent{ClientID: clientID, AngleDelta: env.Angle})
		case netcode.KindLoadProgress:
			if err := a.Loading.Report(clientID, clientID, env.Progress); err != nil {
				a.logger.Warn("progress rejected", slog.Uint64("client_id", uint64(clientID)), slog.String("error", err.Error()))
			}
		case netcode.KindSynchronized:
			a.Scenes.Synchronized(clientID)
		default:
			a.logger.Warn("unexpected frame from client",
				slog.Uint64("client_id", uint64(clientID)),
				slog.String("kind", string(env.Kind)))
		}
	})
}
