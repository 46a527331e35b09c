package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mcoot/yeargame/internal/realtime"
)

func newEventsCmd() *cobra.Command {
	var (
		jsonOutput bool
		name       string
		resume     bool
	)

	cmd := &cobra.Command{
		Use:   "events <tenant>",
		Short: "Stream real-time events from a session",
		Long: `Connect to the session websocket and stream events in real-time.

Events include:
  - session_reset: Session was created or reset
  - session_closed: Session was closed
  - player_joined: A player joined
  - round_started: A new round started (no year)
  - guess_submitted: A player submitted a guess
  - bet_updated: A player changed their bet
  - round_ended: Round ended, year revealed with scores
  - game_ended: Game finished with final standings

With --name the connection joins as a new player and saves the token.
With --resume it reattaches as the player holding the saved token.

Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name != "" && resume {
				return fmt.Errorf("--name and --resume are mutually exclusive")
			}

			var hello *realtime.Command
			switch {
			case name != "":
				hello = &realtime.Command{Type: realtime.CommandJoin, Name: name}
			case resume:
				if cfg.Token == "" {
					return fmt.Errorf("--resume needs a player token")
				}
				hello = &realtime.Command{Type: realtime.CommandResume, PlayerToken: cfg.Token}
			}
			return streamEvents(args[0], hello, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")
	cmd.Flags().StringVar(&name, "name", "", "Join as a new player with this name")
	cmd.Flags().BoolVar(&resume, "resume", false, "Reattach as the player holding the saved token")

	return cmd
}

// StreamEvent is one received websocket message
type StreamEvent struct {
	Time    time.Time       `json:"time"`
	Type    string          `json:"type"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *APIError       `json:"error,omitempty"`
	Command string          `json:"command,omitempty"`
}

// wireMessage covers both event envelopes and command replies
type wireMessage struct {
	Type      string          `json:"type"`
	EventType string          `json:"event_type"`
	Command   string          `json:"command"`
	Data      json.RawMessage `json:"data"`
	Error     *APIError       `json:"error"`
}

func streamEvents(tenant string, hello *realtime.Command, jsonOutput bool) error {
	url, err := client.SocketURL(tenant)
	if err != nil {
		return err
	}

	// Set up cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, url, http.Header{})
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connection failed: %w (HTTP %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// Close the connection on interrupt to unblock the read loop
	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	if !jsonOutput {
		fmt.Printf("Connected to session %s\n", tenant)
	}

	if hello != nil {
		if err := conn.WriteJSON(hello); err != nil {
			return fmt.Errorf("failed to send %s: %w", hello.Type, err)
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// Cancellation and server close are expected
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if !jsonOutput {
					fmt.Println("\nDisconnected")
				}
				return nil
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return fmt.Errorf("stream timed out: %w", err)
			}
			return fmt.Errorf("stream error: %w", err)
		}

		var msg wireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		if hello != nil && msg.Command == hello.Type && msg.Error == nil && hello.Type == realtime.CommandJoin {
			var joined JoinResult
			if err := json.Unmarshal(msg.Data, &joined); err == nil && joined.PlayerToken != "" {
				if err := cfg.SaveToken(joined.PlayerToken); err != nil {
					return fmt.Errorf("failed to save token: %w", err)
				}
			}
		}

		printEvent(msg, jsonOutput)
	}
}

func printEvent(msg wireMessage, jsonOutput bool) {
	now := time.Now()

	event := msg.EventType
	if event == "" {
		event = msg.Command
	}

	if jsonOutput {
		evt := StreamEvent{
			Time:    now,
			Type:    msg.Type,
			Event:   event,
			Data:    msg.Data,
			Error:   msg.Error,
			Command: msg.Command,
		}
		jsonData, _ := json.Marshal(evt)
		fmt.Println(string(jsonData))
		return
	}

	timestamp := now.Format("2006-01-02 15:04:05")
	if msg.Error != nil {
		fmt.Printf("[%s] %s failed: %s\n", timestamp, event, msg.Error)
		return
	}
	// Truncate data if it's too long for display
	displayData := string(msg.Data)
	if len(displayData) > 100 {
		displayData = displayData[:100] + "..."
	}
	displayData = strings.ReplaceAll(displayData, "\n", " ")
	fmt.Printf("[%s] %s: %s\n", timestamp, event, displayData)
}
