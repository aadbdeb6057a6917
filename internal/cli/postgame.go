package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/arenasession/internal/api/response"
)

func newPostGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "postgame",
		Short: "Show the last round's outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.PostGame
			if err := client.Get(cmd.Context(), "/api/v1/postgame", &result); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "play-again",
		Short: "Send everyone back to the lobby",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post(cmd.Context(), "/api/v1/postgame/play-again", nil, nil); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).PrintMessage("returning to lobby")
			return nil
		},
	})

	return cmd
}
