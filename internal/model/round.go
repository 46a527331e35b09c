package model

import "time"

// RoundStatus represents the state of a round
type RoundStatus string

const (
	RoundStatusActive RoundStatus = "active"
	RoundStatusEnded  RoundStatus = "ended"
)

// Guess is one player's submission for a round
type Guess struct {
	Player      string    `json:"player"`
	Year        int       `json:"year"`
	Bet         bool      `json:"bet"`
	SubmittedAt time.Time `json:"submitted_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Round is one song-guessing cycle within a session
type Round struct {
	Number        int           `json:"number"`
	Song          Song          `json:"song"`
	StartedAt     time.Time     `json:"started_at"`
	TimerDuration time.Duration `json:"timer_duration"`
	Status        RoundStatus   `json:"status"`
	Guesses       []Guess       `json:"guesses"` // in submission order
	EndedAt       time.Time     `json:"ended_at,omitzero"`
}

// IsActive returns true while guesses are accepted
func (r *Round) IsActive() bool {
	return r != nil && r.Status == RoundStatusActive
}

// GuessBy returns the guess submitted by the named player, or nil
func (r *Round) GuessBy(player string) *Guess {
	for i := range r.Guesses {
		if r.Guesses[i].Player == player {
			return &r.Guesses[i]
		}
	}
	return nil
}

// Deadline returns when the round timer elapses
func (r *Round) Deadline() time.Time {
	return r.StartedAt.Add(r.TimerDuration)
}

// PublicRound is the client-visible view of a round. The song omits the year
// while the round is active; RevealedYear is only set once it has ended.
type PublicRound struct {
	Number        int         `json:"number"`
	Song          PublicSong  `json:"song"`
	StartedAt     time.Time   `json:"started_at"`
	TimerDuration int         `json:"timer_seconds"`
	Deadline      time.Time   `json:"deadline"`
	Status        RoundStatus `json:"status"`
	Submitted     []string    `json:"submitted"`
	RevealedYear  int         `json:"revealed_year,omitempty"`
}

// Public returns the client-visible view of the round
func (r *Round) Public() PublicRound {
	submitted := make([]string, len(r.Guesses))
	for i, g := range r.Guesses {
		submitted[i] = g.Player
	}
	pr := PublicRound{
		Number:        r.Number,
		Song:          r.Song.Public(),
		StartedAt:     r.StartedAt,
		TimerDuration: int(r.TimerDuration / time.Second),
		Deadline:      r.Deadline(),
		Status:        r.Status,
		Submitted:     submitted,
	}
	if r.Status == RoundStatusEnded {
		pr.RevealedYear = r.Song.Year
	}
	return pr
}

// PlayerResult is one player's outcome for an ended round
type PlayerResult struct {
	Player   string `json:"player"`
	Guessed  bool   `json:"guessed"`
	Year     int    `json:"year,omitempty"`
	Bet      bool   `json:"bet"`
	Distance int    `json:"distance,omitempty"`
	Delta    int    `json:"delta"`
	Total    int    `json:"total"`
}

// RoundSummary is the post-round reveal, including the correct year
type RoundSummary struct {
	RoundNumber int            `json:"round_number"`
	Song        Song           `json:"song"`
	Results     []PlayerResult `json:"results"`
	GameOver    bool           `json:"game_over"`
	EndedAt     time.Time      `json:"ended_at"`
}
