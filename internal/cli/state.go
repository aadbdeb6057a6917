package cli

import (
	"net/url"

	"github.com/spf13/cobra"

	"github.com/mcoot/arenasession/internal/api/response"
)

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions [identity]",
		Short: "List session records, or show one by identity",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output, cmd.OutOrStdout())

			if len(args) == 1 {
				var result response.Session
				if err := client.Get(cmd.Context(), "/api/v1/sessions/"+url.PathEscape(args[0]), &result); err != nil {
					return err
				}
				out.Print(result)
				return nil
			}

			var result []response.Session
			if err := client.Get(cmd.Context(), "/api/v1/sessions", &result); err != nil {
				return err
			}
			out.Print(result)
			return nil
		},
	}
}

func newPhaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "phase",
		Short: "Show the active phase and scene",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Phase
			if err := client.Get(cmd.Context(), "/api/v1/phase", &result); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newLoadingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "loading",
		Short: "Show per-client scene loading progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Loading
			if err := client.Get(cmd.Context(), "/api/v1/loading", &result); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newAvatarsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "avatars",
		Short: "List spawned avatars and the appearance catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Avatars
			if err := client.Get(cmd.Context(), "/api/v1/avatars", &result); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}
