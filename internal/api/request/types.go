package request

import (
	"time"

	"github.com/mcoot/yeargame/internal/model"
)

// GameConfig is the client-supplied rule set. Omitted fields take their defaults.
type GameConfig struct {
	TimerSeconds   int    `json:"timer_seconds,omitempty"`
	YearMin        int    `json:"year_min,omitempty"`
	YearMax        int    `json:"year_max,omitempty"`
	ExactPoints    *int   `json:"exact_points,omitempty"`
	ClosePoints    *int   `json:"close_points,omitempty"`
	NearPoints     *int   `json:"near_points,omitempty"`
	BetMultiplier  int    `json:"bet_multiplier,omitempty"`
	PlaybackDevice string `json:"playback_device,omitempty"`
}

// ToModel overlays the supplied fields on the default config
func (c GameConfig) ToModel() model.GameConfig {
	cfg := model.DefaultGameConfig()
	if c.TimerSeconds != 0 {
		cfg.TimerDuration = time.Duration(c.TimerSeconds) * time.Second
	}
	if c.YearMin != 0 {
		cfg.YearMin = c.YearMin
	}
	if c.YearMax != 0 {
		cfg.YearMax = c.YearMax
	}
	if c.ExactPoints != nil {
		cfg.ExactPoints = *c.ExactPoints
	}
	if c.ClosePoints != nil {
		cfg.ClosePoints = *c.ClosePoints
	}
	if c.NearPoints != nil {
		cfg.NearPoints = *c.NearPoints
	}
	if c.BetMultiplier != 0 {
		cfg.BetMultiplier = c.BetMultiplier
	}
	cfg.PlaybackDevice = c.PlaybackDevice
	return cfg
}

// Song is one entry of a client-supplied pool
type Song struct {
	URI      string `json:"uri"`
	Title    string `json:"title,omitempty"`
	Artist   string `json:"artist,omitempty"`
	Album    string `json:"album,omitempty"`
	CoverURL string `json:"cover_url,omitempty"`
	Year     int    `json:"year"`
}

// CreateSessionRequest is the request body for creating a session.
// Exactly one of Songs and Playlist must be set. A nil Config reuses the tenant's stored config.
type CreateSessionRequest struct {
	Config   *GameConfig `json:"config,omitempty"`
	Songs    []Song      `json:"songs,omitempty"`
	Playlist string      `json:"playlist,omitempty"`
}

// SongsToModel converts the supplied pool
func (r CreateSessionRequest) SongsToModel() []model.Song {
	songs := make([]model.Song, len(r.Songs))
	for i, s := range r.Songs {
		songs[i] = model.Song{
			URI:      s.URI,
			Title:    s.Title,
			Artist:   s.Artist,
			Album:    s.Album,
			CoverURL: s.CoverURL,
			Year:     s.Year,
		}
	}
	return songs
}

// JoinRequest is the request body for joining a session
type JoinRequest struct {
	Name       string `json:"name"`
	AdminToken string `json:"admin_token,omitempty"`
}

// GuessRequest is the request body for submitting a guess
type GuessRequest struct {
	Year int  `json:"year"`
	Bet  bool `json:"bet"`
}

// BetRequest is the request body for changing a bet
type BetRequest struct {
	Bet bool `json:"bet"`
}
