package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/yeargame/internal/api/request"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Session administration commands",
	}

	cmd.AddCommand(newSessionCreateCmd())
	cmd.AddCommand(newSessionGetCmd())
	cmd.AddCommand(newSessionListCmd())
	cmd.AddCommand(newSessionCloseCmd())
	cmd.AddCommand(newSessionJoinLinkCmd())
	cmd.AddCommand(newSessionQRCmd())

	return cmd
}

func newSessionCreateCmd() *cobra.Command {
	var (
		songs     []string
		songsFile string
		playlist  string
		config    request.GameConfig
		exact     int
		closeness int
		near      int
	)

	cmd := &cobra.Command{
		Use:   "create <tenant>",
		Short: "Create or reset a tenant's session",
		Long: `Create a new session for the tenant, replacing any existing one.

The song pool comes from exactly one of:
  --song uri=year     (repeatable)
  --songs-file path   (JSON array of {uri, title, artist, album, cover_url, year})
  --playlist ref      (resolved by the server's catalog)

The admin token is saved to the admin token file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.CreateSessionRequest{Playlist: playlist}

			if len(songs) > 0 {
				parsed, err := parseSongs(songs)
				if err != nil {
					return err
				}
				req.Songs = parsed
			}
			if songsFile != "" {
				loaded, err := loadSongsFile(songsFile)
				if err != nil {
					return err
				}
				req.Songs = append(req.Songs, loaded...)
			}

			flags := cmd.Flags()
			if flags.Changed("exact-points") {
				config.ExactPoints = &exact
			}
			if flags.Changed("close-points") {
				config.ClosePoints = &closeness
			}
			if flags.Changed("near-points") {
				config.NearPoints = &near
			}
			for _, name := range []string{"timer", "year-min", "year-max", "exact-points", "close-points", "near-points", "bet-multiplier", "device"} {
				if flags.Changed(name) {
					req.Config = &config
					break
				}
			}

			var result CreateResult
			if err := admin().Post(sessionPath(args[0]), req, &result); err != nil {
				return err
			}

			if err := cfg.SaveAdminToken(result.AdminToken); err != nil {
				return fmt.Errorf("failed to save admin token: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&songs, "song", nil, "Song as uri=year (repeatable)")
	cmd.Flags().StringVar(&songsFile, "songs-file", "", "JSON file with the song pool")
	cmd.Flags().StringVar(&playlist, "playlist", "", "Playlist reference to resolve on the server")
	cmd.Flags().IntVar(&config.TimerSeconds, "timer", 0, "Round timer in seconds")
	cmd.Flags().IntVar(&config.YearMin, "year-min", 0, "Lowest allowed year")
	cmd.Flags().IntVar(&config.YearMax, "year-max", 0, "Highest allowed year")
	cmd.Flags().IntVar(&exact, "exact-points", 0, "Points for an exact guess")
	cmd.Flags().IntVar(&closeness, "close-points", 0, "Points for a guess within 2 years")
	cmd.Flags().IntVar(&near, "near-points", 0, "Points for a guess within 5 years")
	cmd.Flags().IntVar(&config.BetMultiplier, "bet-multiplier", 0, "Multiplier applied to bets")
	cmd.Flags().StringVar(&config.PlaybackDevice, "device", "", "Playback device id")

	return cmd
}

// parseSongs parses uri=year pairs. The year follows the last '=' since URIs may contain one.
func parseSongs(values []string) ([]request.Song, error) {
	songs := make([]request.Song, 0, len(values))
	for _, v := range values {
		i := strings.LastIndex(v, "=")
		if i <= 0 {
			return nil, fmt.Errorf("invalid song %q: expected uri=year", v)
		}
		year, err := strconv.Atoi(v[i+1:])
		if err != nil {
			return nil, fmt.Errorf("invalid song %q: year must be a number", v)
		}
		songs = append(songs, request.Song{URI: v[:i], Year: year})
	}
	return songs, nil
}

func loadSongsFile(path string) ([]request.Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var songs []request.Song
	if err := json.Unmarshal(data, &songs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return songs, nil
}

func newSessionGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <tenant>",
		Short: "Show a session snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Session
			if err := client.Get(sessionPath(args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newSessionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tenants with a session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result TenantList
			if err := client.Get("/api/v1/sessions", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newSessionCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <tenant>",
		Short: "Close a tenant's session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := admin().Delete(sessionPath(args[0])); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Closed session %s", args[0]))
			return nil
		},
	}
}

func newSessionJoinLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join-link <tenant>",
		Short: "Show the links players use to join",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result JoinLink
			if err := client.Get(sessionPath(args[0])+"/join", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newSessionQRCmd() *cobra.Command {
	var (
		size   int
		output string
	)

	cmd := &cobra.Command{
		Use:   "qr <tenant>",
		Short: "Download the join QR code as a PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := sessionPath(args[0]) + "/join-qr"
			if size > 0 {
				path += "?size=" + strconv.Itoa(size)
			}

			png, err := client.Raw(path, "image/png")
			if err != nil {
				return err
			}

			if output == "" {
				output = args[0] + "-join.png"
			}
			if err := os.WriteFile(output, png, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Wrote %s", output))
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "size", 0, "Image size in pixels")
	cmd.Flags().StringVar(&output, "out", "", "Output file (default <tenant>-join.png)")

	return cmd
}
