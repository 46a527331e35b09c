package model

import "time"

// Config bounds
const (
	MinTimerDuration = 5 * time.Second
	MaxTimerDuration = 10 * time.Minute
	MinYear          = 1900
	MaxYear          = 2100
)

// GameConfig holds the tunable rules for a session
type GameConfig struct {
	TimerDuration  time.Duration `json:"timer_duration"`
	YearMin        int           `json:"year_min"`
	YearMax        int           `json:"year_max"`
	ExactPoints    int           `json:"exact_points"`
	ClosePoints    int           `json:"close_points"` // within 2 years
	NearPoints     int           `json:"near_points"`  // within 5 years
	BetMultiplier  int           `json:"bet_multiplier"`
	PlaybackDevice string        `json:"playback_device,omitempty"`
}

// DefaultGameConfig returns the default game configuration
func DefaultGameConfig() GameConfig {
	return GameConfig{
		TimerDuration: 30 * time.Second,
		YearMin:       1950,
		YearMax:       2030,
		ExactPoints:   10,
		ClosePoints:   5,
		NearPoints:    1,
		BetMultiplier: 2,
	}
}

// IsZero reports whether no field has been set
func (c GameConfig) IsZero() bool {
	return c == GameConfig{}
}

// Validate checks every field is in range
func (c GameConfig) Validate() error {
	if c.TimerDuration < MinTimerDuration || c.TimerDuration > MaxTimerDuration {
		return NewValidationError("timer_duration", "must be between 5s and 10m")
	}
	if c.YearMin < MinYear || c.YearMax > MaxYear || c.YearMin >= c.YearMax {
		return NewValidationError("year_range", "must satisfy 1900 <= year_min < year_max <= 2100")
	}
	if c.NearPoints < 0 || c.ClosePoints < c.NearPoints || c.ExactPoints < c.ClosePoints {
		return NewValidationError("points", "must satisfy exact >= close >= near >= 0")
	}
	if c.BetMultiplier < 1 {
		return NewValidationError("bet_multiplier", "must be at least 1")
	}
	return nil
}

// ValidateYear checks a guessed year is inside the configured range
func (c GameConfig) ValidateYear(year int) error {
	if year < c.YearMin || year > c.YearMax {
		return NewValidationError("year", "must be within the configured year range")
	}
	return nil
}
