package factory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcoot/arenasession/internal/config"
	"github.com/mcoot/arenasession/internal/connection"
	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/netcode"
)

// Join runs the client role. With an empty code it dials the configured
// address; otherwise it joins that matchmaking lobby and dials its relay
// allocation.
func (a *App) Join(ctx context.Context, code model.LobbyCode, cb netcode.Callbacks) (*netcode.Client, error) {
	provider, err := a.clientProvider(ctx, code)
	if err != nil {
		return nil, err
	}
	ready, err := provider.SetupClientConnection(ctx)
	if err != nil {
		return nil, err
	}

	a.logger.Info("joining session",
		slog.String("method", string(ready.Method)),
		slog.String("addr", ready.Endpoint.HostPort()),
	)
	return netcode.Dial(ctx, ready, cb, a.logger)
}

func (a *App) clientProvider(ctx context.Context, code model.LobbyCode) (connection.Provider, error) {
	opts := connection.Options{
		DisplayName: a.Settings.DisplayName,
		Identity:    a.Identity,
	}
	if code == "" {
		if a.Settings.Transport == config.TransportRelay {
			return nil, fmt.Errorf("join: %w", model.ErrNoMatchmakingSession)
		}
		return connection.NewDirect(dialAddress(a.Settings.Address), a.Settings.Port, opts), nil
	}

	if _, err := a.Matchmaking.JoinLobby(ctx, code); err != nil {
		return nil, fmt.Errorf("join lobby %s: %w", code, err)
	}
	return connection.NewRelay(a.Matchmaking, a.Matchmaking, a.Settings.MaxPlayers, opts, a.logger), nil
}

// dialAddress maps a wildcard bind address to loopback
func dialAddress(addr string) string {
	if addr == "" || addr == "0.0.0.0" || addr == "::" {
		return "127.0.0.1"
	}
	return addr
}
