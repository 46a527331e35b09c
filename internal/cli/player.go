package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/yeargame/internal/api/request"
)

func newPlayerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Player commands",
	}

	cmd.AddCommand(newPlayerJoinCmd())
	cmd.AddCommand(newPlayerMeCmd())

	return cmd
}

func newPlayerJoinCmd() *cobra.Command {
	var (
		name    string
		asAdmin bool
	)

	cmd := &cobra.Command{
		Use:   "join <tenant>",
		Short: "Join a session as a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.JoinRequest{Name: name}
			if asAdmin {
				if cfg.AdminToken == "" {
					return fmt.Errorf("--as-admin needs an admin token")
				}
				req.AdminToken = cfg.AdminToken
			}

			var result JoinResult
			if err := client.Post(sessionPath(args[0])+"/players", req, &result); err != nil {
				return err
			}

			// Save token
			if err := cfg.SaveToken(result.PlayerToken); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Player name (required)")
	cmd.Flags().BoolVar(&asAdmin, "as-admin", false, "Join as the session admin")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newPlayerMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me <tenant>",
		Short: "Show the player for the current token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Player
			if err := client.Get(sessionPath(args[0])+"/players/me", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
