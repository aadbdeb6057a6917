package factory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/arenasession/internal/config"
	"github.com/mcoot/arenasession/internal/connection"
	"github.com/mcoot/arenasession/internal/services/matchmaking"
)

// Host runs the server role: it restores session records, starts the
// authority loop and persister, sets up the transport and serves until ctx
// is cancelled.
func (a *App) Host(ctx context.Context) error {
	if err := a.Sessions.Restore(ctx, a.Storage); err != nil {
		return fmt.Errorf("restore sessions: %w", err)
	}

	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg.Go(func() { a.Loop.Run(ctx) })
	wg.Go(func() { a.Persister.Run(ctx) })

	provider, err := a.hostProvider(ctx)
	if err != nil {
		return err
	}
	ready, err := provider.SetupHostConnection(ctx)
	if err != nil {
		return err
	}
	if ready.Endpoint.Relay != nil {
		a.Transport.SetRelayKey(ready.Endpoint.Relay.Key)
		heartbeater := matchmaking.NewHeartbeater(a.Matchmaking, a.Scheduler, a.Settings.HeartbeatPeriod, a.logger)
		wg.Go(func() { heartbeater.Run(ctx) })
		defer a.Matchmaking.LeaveLobby()
	}

	scenes := a.Settings.Scenario.Scenes
	a.Loop.Post(func() {
		for _, name := range []string{scenes.MainMenu, scenes.Lobby} {
			if err := a.Scenes.LoadScene(name); err != nil {
				a.logger.Error("initial scene load failed", slog.String("scene", name), slog.String("error", err.Error()))
				return
			}
		}
	})

	return a.Transport.ListenAndServe(ctx, ready)
}

func (a *App) hostProvider(ctx context.Context) (connection.Provider, error) {
	opts := connection.Options{
		DisplayName: a.Settings.DisplayName,
		Identity:    a.Identity,
	}
	if a.Settings.Transport != config.TransportRelay {
		return connection.NewDirect(a.Settings.Address, a.Settings.Port, opts), nil
	}

	host, err := a.Identity.PlayerIdentity()
	if err != nil {
		return nil, fmt.Errorf("host identity: %w", err)
	}
	lobby, err := a.Matchmaking.OpenLobby(ctx, a.Settings.LobbyName, host, a.Settings.MaxPlayers)
	if err != nil {
		return nil, fmt.Errorf("open lobby: %w", err)
	}
	a.logger.Info("hosting lobby", slog.String("lobby", string(lobby.Code)))
	return connection.NewRelay(a.Matchmaking, a.Matchmaking, a.Settings.MaxPlayers, opts, a.logger), nil
}
