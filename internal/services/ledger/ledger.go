// Package ledger records guesses and bets for a round and scores them once it ends.
package ledger

import (
	"github.com/mcoot/yeargame/internal/dependencies/clock"
	"github.com/mcoot/yeargame/internal/model"
)

// Ledger mutates rounds in place; callers own synchronization of the round
type Ledger struct {
	clock clock.Clock
}

// New creates a new Ledger
func New(clock clock.Clock) *Ledger {
	return &Ledger{clock: clock}
}

// SubmitGuess records a player's guess for the round. Each player guesses once per round.
func (l *Ledger) SubmitGuess(round *model.Round, cfg model.GameConfig, player string, year int, bet bool) (*model.Guess, error) {
	if !round.IsActive() {
		return nil, model.ErrRoundNotActive
	}
	if err := cfg.ValidateYear(year); err != nil {
		return nil, err
	}
	if round.GuessBy(player) != nil {
		return nil, model.ErrAlreadyGuessed
	}

	now := l.clock.Now()
	round.Guesses = append(round.Guesses, model.Guess{
		Player:      player,
		Year:        year,
		Bet:         bet,
		SubmittedAt: now,
		UpdatedAt:   now,
	})
	g := round.Guesses[len(round.Guesses)-1]
	return &g, nil
}

// UpdateBet changes the bet on a player's existing guess
func (l *Ledger) UpdateBet(round *model.Round, player string, bet bool) (*model.Guess, error) {
	if !round.IsActive() {
		return nil, model.ErrRoundNotActive
	}
	guess := round.GuessBy(player)
	if guess == nil {
		return nil, model.ErrNoGuess
	}

	guess.Bet = bet
	guess.UpdatedAt = l.clock.Now()
	g := *guess
	return &g, nil
}

// Close ends the round so no further guesses or bets are accepted
func (l *Ledger) Close(round *model.Round) error {
	if !round.IsActive() {
		return model.ErrRoundNotActive
	}
	round.Status = model.RoundStatusEnded
	round.EndedAt = l.clock.Now()
	return nil
}

// Settle scores an ended round, adds each delta to the matching player's score
// and returns one result per player in roster order
func (l *Ledger) Settle(round *model.Round, cfg model.GameConfig, players []model.Player) []model.PlayerResult {
	results := make([]model.PlayerResult, len(players))
	for i := range players {
		p := &players[i]
		result := model.PlayerResult{Player: p.Name}

		if g := round.GuessBy(p.Name); g != nil {
			distance, delta := Score(cfg, g.Year, round.Song.Year, g.Bet)
			result.Guessed = true
			result.Year = g.Year
			result.Bet = g.Bet
			result.Distance = distance
			result.Delta = delta
		}

		p.Score += result.Delta
		result.Total = p.Score
		results[i] = result
	}
	return results
}

// Score returns the distance between the guess and the correct year and the points it earns.
// A bet multiplies the points; a bet on a miss earns nothing and costs nothing.
func Score(cfg model.GameConfig, guess, correct int, bet bool) (distance, delta int) {
	distance = guess - correct
	if distance < 0 {
		distance = -distance
	}

	switch {
	case distance == 0:
		delta = cfg.ExactPoints
	case distance <= 2:
		delta = cfg.ClosePoints
	case distance <= 5:
		delta = cfg.NearPoints
	}

	if bet {
		delta *= cfg.BetMultiplier
	}
	return distance, delta
}
