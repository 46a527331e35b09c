package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case JoinResult:
		o.printJoinResult(v)
	case Session:
		o.printSession(v)
	case CreateResult:
		o.printCreateResult(v)
	case TenantList:
		o.printTenantList(v)
	case Round:
		o.printRound(v)
	case RoundSummary:
		o.printRoundSummary(v)
	case GameResult:
		o.printGameResult(v)
	case Guess:
		o.printGuess(v)
	case JoinLink:
		o.printJoinLink(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	Name    string `json:"name"`
	Score   int    `json:"score"`
	IsAdmin bool   `json:"is_admin"`
}

// JoinResult combines player and token
type JoinResult struct {
	Player      Player `json:"player"`
	PlayerToken string `json:"player_token"`
}

// Song response type. Year is only present once revealed.
type Song struct {
	URI      string `json:"uri"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	CoverURL string `json:"cover_url"`
	Year     int    `json:"year,omitempty"`
}

// SessionConfig response type
type SessionConfig struct {
	TimerDuration  time.Duration `json:"timer_duration"`
	YearMin        int           `json:"year_min"`
	YearMax        int           `json:"year_max"`
	ExactPoints    int           `json:"exact_points"`
	ClosePoints    int           `json:"close_points"`
	NearPoints     int           `json:"near_points"`
	BetMultiplier  int           `json:"bet_multiplier"`
	PlaybackDevice string        `json:"playback_device,omitempty"`
}

// Round response type
type Round struct {
	Number       int       `json:"number"`
	Song         Song      `json:"song"`
	StartedAt    time.Time `json:"started_at"`
	TimerSeconds int       `json:"timer_seconds"`
	Deadline     time.Time `json:"deadline"`
	Status       string    `json:"status"`
	Submitted    []string  `json:"submitted"`
	RevealedYear int       `json:"revealed_year,omitempty"`
}

// Session response type
type Session struct {
	ID          string        `json:"id"`
	Tenant      string        `json:"tenant"`
	Status      string        `json:"status"`
	Config      SessionConfig `json:"config"`
	Remaining   int           `json:"songs_remaining"`
	Played      int           `json:"songs_played"`
	RoundNumber int           `json:"round_number"`
	Round       *Round        `json:"round,omitempty"`
	Players     []Player      `json:"players"`
}

// CreateResult combines session and admin token
type CreateResult struct {
	Session    Session `json:"session"`
	AdminToken string  `json:"admin_token"`
}

// TenantList response type
type TenantList struct {
	Tenants []string `json:"tenants"`
}

// PlayerResult response type
type PlayerResult struct {
	Player   string `json:"player"`
	Guessed  bool   `json:"guessed"`
	Year     int    `json:"year,omitempty"`
	Bet      bool   `json:"bet"`
	Distance int    `json:"distance,omitempty"`
	Delta    int    `json:"delta"`
	Total    int    `json:"total"`
}

// RoundSummary response type
type RoundSummary struct {
	RoundNumber int            `json:"round_number"`
	Song        Song           `json:"song"`
	Results     []PlayerResult `json:"results"`
	GameOver    bool           `json:"game_over"`
	EndedAt     time.Time      `json:"ended_at"`
}

// GameResult response type
type GameResult struct {
	Rounds    int      `json:"rounds"`
	Standings []Player `json:"standings"`
	Winner    string   `json:"winner,omitempty"`
}

// Guess response type
type Guess struct {
	Player string `json:"player"`
	Year   int    `json:"year"`
	Bet    bool   `json:"bet"`
}

// JoinLink response type
type JoinLink struct {
	Tenant    string `json:"tenant"`
	JoinURL   string `json:"join_url"`
	SocketURL string `json:"ws_url"`
	QRCodeURL string `json:"qr_code_url"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printPlayer(p Player) {
	adminStr := ""
	if p.IsAdmin {
		adminStr = " [admin]"
	}
	fmt.Printf("Player: %s%s\n", p.Name, adminStr)
	fmt.Printf("Score: %d\n", p.Score)
}

func (o *Output) printJoinResult(j JoinResult) {
	o.printPlayer(j.Player)
	fmt.Printf("Token: %s\n", j.PlayerToken)
}

func (o *Output) printSession(s Session) {
	fmt.Printf("Session: %s (%s)\n", s.Tenant, s.ID)
	fmt.Printf("Status: %s\n", s.Status)
	fmt.Printf("Years: %d-%d\n", s.Config.YearMin, s.Config.YearMax)
	fmt.Printf("Timer: %s\n", s.Config.TimerDuration)
	fmt.Printf("Songs: %d played, %d remaining\n", s.Played, s.Remaining)
	if s.Round != nil {
		fmt.Println()
		o.printRound(*s.Round)
	}
	fmt.Printf("\nPlayers (%d):\n", len(s.Players))
	o.printStandings(s.Players)
}

func (o *Output) printCreateResult(c CreateResult) {
	o.printSession(c.Session)
	fmt.Printf("\nAdmin Token: %s\n", c.AdminToken)
}

func (o *Output) printTenantList(l TenantList) {
	if len(l.Tenants) == 0 {
		fmt.Println("No sessions")
		return
	}
	for _, t := range l.Tenants {
		fmt.Println(t)
	}
}

func (o *Output) printRound(r Round) {
	fmt.Printf("Round %d: %s\n", r.Number, r.Status)
	fmt.Printf("Song: %s\n", describeSong(r.Song))
	if r.RevealedYear != 0 {
		fmt.Printf("Year: %d\n", r.RevealedYear)
	} else {
		fmt.Printf("Deadline: %s\n", r.Deadline.Local().Format(time.TimeOnly))
	}
	if len(r.Submitted) > 0 {
		fmt.Printf("Submitted: %s\n", strings.Join(r.Submitted, ", "))
	}
}

func (o *Output) printRoundSummary(s RoundSummary) {
	fmt.Printf("Round %d ended\n", s.RoundNumber)
	fmt.Printf("Song: %s (%d)\n", describeSong(s.Song), s.Song.Year)
	fmt.Println("\nResults:")
	for _, r := range s.Results {
		if !r.Guessed {
			fmt.Printf("  %s: no guess (%d total)\n", r.Player, r.Total)
			continue
		}
		betStr := ""
		if r.Bet {
			betStr = " bet"
		}
		fmt.Printf("  %s: %d%s, off by %d, %+d (%d total)\n", r.Player, r.Year, betStr, r.Distance, r.Delta, r.Total)
	}
	if s.GameOver {
		fmt.Println("\nGame over: no songs remaining")
	}
}

func (o *Output) printGameResult(g GameResult) {
	fmt.Printf("Game over after %d rounds\n", g.Rounds)
	fmt.Println("\nStandings:")
	o.printStandings(g.Standings)
	if g.Winner != "" {
		fmt.Printf("\nWinner: %s\n", g.Winner)
	} else {
		fmt.Println("\nNo winner")
	}
}

func (o *Output) printStandings(players []Player) {
	for i, p := range players {
		adminStr := ""
		if p.IsAdmin {
			adminStr = " [admin]"
		}
		fmt.Printf("  %d. %s: %d points%s\n", i+1, p.Name, p.Score, adminStr)
	}
}

func (o *Output) printGuess(g Guess) {
	betStr := "no"
	if g.Bet {
		betStr = "yes"
	}
	fmt.Printf("Guess: %d\n", g.Year)
	fmt.Printf("Bet: %s\n", betStr)
}

func (o *Output) printJoinLink(l JoinLink) {
	fmt.Printf("Join: %s\n", l.JoinURL)
	fmt.Printf("Socket: %s\n", l.SocketURL)
	fmt.Printf("QR Code: %s\n", l.QRCodeURL)
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}

func describeSong(s Song) string {
	switch {
	case s.Title != "" && s.Artist != "":
		return fmt.Sprintf("%s - %s", s.Artist, s.Title)
	case s.Title != "":
		return s.Title
	default:
		return s.URI
	}
}
