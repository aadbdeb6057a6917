package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/arenasession/internal/config"
	"github.com/mcoot/arenasession/internal/factory"
	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/netcode"
)

// joinEvent is one line of join output
type joinEvent struct {
	Kind   string `json:"kind"`
	Scene  string `json:"scene,omitempty"`
	Field  string `json:"field,omitempty"`
	Owner  uint64 `json:"owner,omitempty"`
	Value  any    `json:"value,omitempty"`
	Client uint64 `json:"client_id,omitempty"`
}

func newJoinCmd() *cobra.Command {
	var (
		code       string
		name       string
		address    string
		port       int
		profile    string
		user, pass string
	)

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join a session as a headless player",
		Long: `Connect to the session transport directly (--address/--port) or through a
matchmaking lobby's relay (--code), acknowledge every scene load and print
what the host sends.

Transport settings default to the ARENA_* environment the host reads.
Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load()
			if err != nil {
				return err
			}
			if name != "" {
				settings.DisplayName = name
			}
			if address != "" {
				settings.Address = address
			}
			if port != 0 {
				settings.Port = port
			}
			if profile != "" {
				settings.Profile = profile
			}

			level := slog.LevelWarn
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			app, err := factory.New(factory.Config{Settings: settings, Logger: logger})
			if err != nil {
				return err
			}
			defer app.Transport.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if user != "" {
				if _, err := app.Identity.SignIn(ctx, user, pass); err != nil {
					return fmt.Errorf("sign in: %w", err)
				}
			}

			return runJoin(ctx, app, model.LobbyCode(code), NewOutput(cfg.Output, cmd.OutOrStdout()))
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Matchmaking lobby code to join through the relay")
	cmd.Flags().StringVar(&name, "name", "", "Display name (env: ARENA_DISPLAY_NAME)")
	cmd.Flags().StringVar(&address, "address", "", "Host address for a direct join (env: ARENA_ADDRESS)")
	cmd.Flags().IntVar(&port, "port", 0, "Host port for a direct join (env: ARENA_PORT)")
	cmd.Flags().StringVar(&profile, "profile", "", "Local profile, for several players on one machine (env: ARENA_PROFILE)")
	cmd.Flags().StringVar(&user, "username", "", "Sign in with this account instead of the local identity")
	cmd.Flags().StringVar(&pass, "password", "", "Account password")

	return cmd
}

func runJoin(ctx context.Context, app *factory.App, code model.LobbyCode, out *Output) error {
	var conn *netcode.Client
	callbacks := netcode.Callbacks{
		OnNotification: func(n model.Notification) {
			out.Print(joinEvent{Kind: string(n)})
		},
		OnLoadScene: func(scene string, _ int) {
			out.Print(joinEvent{Kind: string(netcode.KindLoadScene), Scene: scene})
			if err := conn.ReportProgress(1); err != nil {
				out.PrintError(err)
				return
			}
			if err := conn.Synchronized(); err != nil {
				out.PrintError(err)
			}
		},
		OnFieldUpdate: func(field string, owner model.ClientID, value any) {
			if cfg.Verbose {
				out.Print(joinEvent{Kind: string(netcode.KindFieldUpdate), Field: field, Owner: uint64(owner), Value: value})
			}
		},
	}

	conn, err := app.Join(ctx, code, callbacks)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	out.Print(joinEvent{Kind: string(netcode.KindAccepted), Client: uint64(conn.ClientID())})
	if err := conn.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	out.PrintMessage("disconnected")
	return nil
}
