package cli

import (
	"github.com/spf13/cobra"
)

func newRoundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "round",
		Short: "Round control commands (admin)",
	}

	cmd.AddCommand(newRoundNextCmd())
	cmd.AddCommand(newRoundEndCmd())
	cmd.AddCommand(newRoundEndGameCmd())

	return cmd
}

func newRoundNextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next <tenant>",
		Short: "Start the next round, ending the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Round
			if err := admin().Post(sessionPath(args[0])+"/rounds", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRoundEndCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end <tenant>",
		Short: "End the active round and reveal the year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result RoundSummary
			if err := admin().Post(sessionPath(args[0])+"/rounds/current/end", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRoundEndGameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end-game <tenant>",
		Short: "End the game and show final standings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result GameResult
			if err := admin().Post(sessionPath(args[0])+"/end", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
