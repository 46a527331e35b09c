package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mcoot/yeargame/internal/api/request"
)

func newGuessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guess",
		Short: "Guess commands",
	}

	cmd.AddCommand(newGuessSubmitCmd())
	cmd.AddCommand(newGuessBetCmd())

	return cmd
}

func newGuessSubmitCmd() *cobra.Command {
	var bet bool

	cmd := &cobra.Command{
		Use:   "submit <tenant> <year>",
		Short: "Submit a guess for the active round",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}

			var result Guess
			req := request.GuessRequest{Year: year, Bet: bet}
			if err := client.Post(sessionPath(args[0])+"/guesses", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&bet, "bet", false, "Bet on this guess")

	return cmd
}

func newGuessBetCmd() *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   "bet <tenant>",
		Short: "Place or withdraw the bet on your guess",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Guess
			req := request.BetRequest{Bet: !off}
			if err := client.Patch(sessionPath(args[0])+"/guesses/bet", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&off, "off", false, "Withdraw the bet")

	return cmd
}
