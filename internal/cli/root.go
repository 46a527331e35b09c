package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "yeargame",
		Short: "CLI tool for the year guessing game API",
		Long: `yeargame is a CLI tool for interacting with the year guessing game JSON API.

It supports session administration, joining as a player, submitting guesses,
and streaming real-time events over the session websocket.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load tokens from file if not provided via flag/env
			if err := cfg.LoadTokens(); err != nil {
				return err
			}

			// Create HTTP client, authenticated as the player by default
			client = NewClient(cfg.ServerURL, cfg.Token)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: YEARGAME_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.Token, "token", cfg.Token, "Player token (env: YEARGAME_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "Player token file path (env: YEARGAME_TOKEN_FILE)")
	rootCmd.PersistentFlags().StringVar(&cfg.AdminToken, "admin-token", cfg.AdminToken, "Admin token (env: YEARGAME_ADMIN_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&cfg.AdminTokenFile, "admin-token-file", cfg.AdminTokenFile, "Admin token file path (env: YEARGAME_ADMIN_TOKEN_FILE)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newSessionCmd())
	rootCmd.AddCommand(newRoundCmd())
	rootCmd.AddCommand(newPlayerCmd())
	rootCmd.AddCommand(newGuessCmd())
	rootCmd.AddCommand(newEventsCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// admin returns a client authenticated with the admin token
func admin() *Client {
	return client.As(cfg.AdminToken)
}
