package model

import "time"

// EventNamespace prefixes the envelope type of every outbound event
const EventNamespace = "yeargame"

// EventType identifies the type of event
type EventType string

const (
	// Session events
	EventSessionReset  EventType = "session_reset"
	EventSessionClosed EventType = "session_closed"
	EventPlayerJoined  EventType = "player_joined"
	EventGameEnded     EventType = "game_ended"

	// Round events
	EventRoundStarted   EventType = "round_started"
	EventGuessSubmitted EventType = "guess_submitted"
	EventBetUpdated     EventType = "bet_updated"
	EventRoundEnded     EventType = "round_ended"
)

// Envelope is the fixed wrapper for every outbound real-time event
type Envelope struct {
	Type      string    `json:"type"`
	EventType EventType `json:"event_type"`
	Data      any       `json:"data"`
}

// NewEnvelope wraps event data in an Envelope
func NewEnvelope(eventType EventType, data any) Envelope {
	return Envelope{
		Type:      EventNamespace + "/event",
		EventType: eventType,
		Data:      data,
	}
}

// SessionResetPayload contains data for session reset events
type SessionResetPayload struct {
	SessionID SessionID  `json:"session_id"`
	Config    GameConfig `json:"config"`
	Songs     int        `json:"songs"`
}

// SessionClosedPayload contains data for session closed events
type SessionClosedPayload struct {
	SessionID SessionID `json:"session_id"`
}

// PlayerJoinedPayload contains data for player joined events
type PlayerJoinedPayload struct {
	Player  PublicPlayer   `json:"player"`
	Players []PublicPlayer `json:"players"`
}

// RoundStartedPayload contains data for round started events.
// Song is a PublicSong: the correct year must never be sent here.
type RoundStartedPayload struct {
	RoundNumber   int        `json:"round_number"`
	Song          PublicSong `json:"song"`
	StartedAt     time.Time  `json:"started_at"`
	TimerSeconds  int        `json:"timer_seconds"`
	Deadline      time.Time  `json:"deadline"`
	SongsLeft     int        `json:"songs_remaining"`
	TotalPlayers  int        `json:"total_players"`
	BetMultiplier int        `json:"bet_multiplier"`
}

// GuessSubmittedPayload contains data for guess submitted events
type GuessSubmittedPayload struct {
	RoundNumber int    `json:"round_number"`
	Player      string `json:"player"`
	Bet         bool   `json:"bet"`
	Submitted   int    `json:"submitted"`
	Total       int    `json:"total"`
}

// BetUpdatedPayload contains data for bet updated events
type BetUpdatedPayload struct {
	RoundNumber int    `json:"round_number"`
	Player      string `json:"player"`
	Bet         bool   `json:"bet"`
}

// GameEndedPayload contains data for game ended events
type GameEndedPayload struct {
	Rounds    int            `json:"rounds"`
	Standings []PublicPlayer `json:"standings"`
	Winner    string         `json:"winner,omitempty"` // empty if no players or tie
}
