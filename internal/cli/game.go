package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mcoot/arenasession/internal/api/request"
	"github.com/mcoot/arenasession/internal/api/response"
)

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Report gameplay outcomes into the running match",
	}

	cmd.AddCommand(newGameHitCmd())
	cmd.AddCommand(newGameObjectiveCmd())

	return cmd
}

func newGameHitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hit <client-id>",
		Short: "Kill a player's avatar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid client id %q", args[0])
			}

			var result response.Round
			if err := client.Post(cmd.Context(), fmt.Sprintf("/api/v1/avatars/%d/hit", id), nil, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newGameObjectiveCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "objective",
		Short: "Mark the round's objective as defeated",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Round
			if err := client.Post(cmd.Context(), "/api/v1/game/objective", request.ObjectiveRequest{Name: name}, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Objective name")

	return cmd
}
