package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/arenasession/internal/api/request"
	"github.com/mcoot/arenasession/internal/api/response"
)

func newLobbyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lobby",
		Short: "Lobby phase commands",
	}

	cmd.AddCommand(newLobbyGetCmd())
	cmd.AddCommand(newLobbyStartCmd())

	return cmd
}

func newLobbyGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show lobby and matchmaking state",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Lobby

			if err := client.Get(cmd.Context(), "/api/v1/lobby", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}
}

func newLobbyStartCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Close the lobby and start the match",
		Long: `Lock the matchmaking lobby and, after the close delay, load the match
scene for every connected client. Refuses when nobody has spawned unless
--force is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.StartGame

			if err := client.Post(cmd.Context(), "/api/v1/lobby/start", request.StartGameRequest{Force: force}, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Start even if no players have spawned")

	return cmd
}
