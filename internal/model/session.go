package model

import (
	"regexp"
	"slices"
	"sort"
	"time"
)

// TenantID scopes a live session; each tenant has at most one
type TenantID string

var tenantPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Validate checks the tenant is usable in URLs and storage keys
func (t TenantID) Validate() error {
	if !tenantPattern.MatchString(string(t)) {
		return NewValidationError("tenant", "must be 1-64 letters, digits, '_' or '-'")
	}
	return nil
}

// SessionID uniquely identifies one incarnation of a tenant's session
type SessionID string

// SessionStatus represents the lifecycle phase of a session
type SessionStatus string

const (
	SessionStatusUninitialized SessionStatus = "uninitialized"
	SessionStatusLobby         SessionStatus = "lobby"
	SessionStatusRoundActive   SessionStatus = "round_active"
	SessionStatusRoundEnded    SessionStatus = "round_ended"
	SessionStatusGameEnded     SessionStatus = "game_ended"
)

// AdminCredential is the capability that gates session-control actions
type AdminCredential struct {
	TokenHash string    `json:"token_hash"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GameSession is one game instance scoped to a tenant
type GameSession struct {
	ID          SessionID       `json:"id"`
	Tenant      TenantID        `json:"tenant"`
	Status      SessionStatus   `json:"status"`
	Config      GameConfig      `json:"config"`
	Available   []Song          `json:"available"`
	Played      []Song          `json:"played"`
	Players     []Player        `json:"players"` // append-only, in join order
	Round       *Round          `json:"round,omitempty"`
	RoundNumber int             `json:"round_number"` // number of the last activated round
	History     []RoundSummary  `json:"history"`
	Admin       AdminCredential `json:"admin"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// GetPlayer returns the player with the given name, or nil
func (s *GameSession) GetPlayer(name string) *Player {
	for i := range s.Players {
		if s.Players[i].Name == name {
			return &s.Players[i]
		}
	}
	return nil
}

// GetPlayerByToken returns the player holding the given token, or nil
func (s *GameSession) GetPlayerByToken(token string) *Player {
	if token == "" {
		return nil
	}
	for i := range s.Players {
		if s.Players[i].Token == token {
			return &s.Players[i]
		}
	}
	return nil
}

// AvailableIndex returns the index of the song in the available pool, or -1
func (s *GameSession) AvailableIndex(uri string) int {
	return slices.IndexFunc(s.Available, func(song Song) bool { return song.URI == uri })
}

// Retire moves the song at index i from the available pool to the played list
func (s *GameSession) Retire(i int) Song {
	song := s.Available[i]
	s.Available = slices.Delete(s.Available, i, i+1)
	s.Played = append(s.Played, song)
	return song
}

// Clone returns a deep copy so callers can mutate without affecting the original
func (s *GameSession) Clone() *GameSession {
	c := *s
	c.Available = slices.Clone(s.Available)
	c.Played = slices.Clone(s.Played)
	c.Players = slices.Clone(s.Players)
	c.History = make([]RoundSummary, len(s.History))
	for i, h := range s.History {
		h.Results = slices.Clone(h.Results)
		c.History[i] = h
	}
	if s.Round != nil {
		r := *s.Round
		r.Guesses = slices.Clone(s.Round.Guesses)
		c.Round = &r
	}
	return &c
}

// Standings returns public players ordered by score, highest first, ties by join order
func (s *GameSession) Standings() []PublicPlayer {
	players := make([]PublicPlayer, len(s.Players))
	for i, p := range s.Players {
		players[i] = p.Public()
	}
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Score > players[j].Score
	})
	return players
}

// PublicSession is the client-safe view of a session
type PublicSession struct {
	ID          SessionID      `json:"id"`
	Tenant      TenantID       `json:"tenant"`
	Status      SessionStatus  `json:"status"`
	Config      GameConfig     `json:"config"`
	Remaining   int            `json:"songs_remaining"`
	Played      int            `json:"songs_played"`
	RoundNumber int            `json:"round_number"`
	Round       *PublicRound   `json:"round,omitempty"`
	Players     []PublicPlayer `json:"players"`
}

// Public returns the client-safe view of the session
func (s *GameSession) Public() PublicSession {
	ps := PublicSession{
		ID:          s.ID,
		Tenant:      s.Tenant,
		Status:      s.Status,
		Config:      s.Config,
		Remaining:   len(s.Available),
		Played:      len(s.Played),
		RoundNumber: s.RoundNumber,
		Players:     s.Standings(),
	}
	if s.Round != nil {
		pr := s.Round.Public()
		ps.Round = &pr
	}
	return ps
}
