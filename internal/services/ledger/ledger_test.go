package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/yeargame/internal/dependencies/mocks"
	"github.com/mcoot/yeargame/internal/model"
)

type LedgerSuite struct {
	suite.Suite
	clock  *mocks.MockClock
	ledger *Ledger
	cfg    model.GameConfig
	round  *model.Round
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.ledger = New(s.clock)
	s.cfg = model.DefaultGameConfig()
	s.round = &model.Round{
		Number:        1,
		Song:          model.Song{URI: "track:1", Year: 1985},
		StartedAt:     s.clock.Now(),
		TimerDuration: 30 * time.Second,
		Status:        model.RoundStatusActive,
	}
}

// SubmitGuess tests

func (s *LedgerSuite) TestSubmitGuessRecordsInOrder() {
	_, err := s.ledger.SubmitGuess(s.round, s.cfg, "alice", 1984, false)
	s.Require().NoError(err)
	s.clock.Advance(time.Second)
	g, err := s.ledger.SubmitGuess(s.round, s.cfg, "bob", 1990, true)
	s.Require().NoError(err)

	s.Equal("bob", g.Player)
	s.True(g.Bet)
	s.Require().Len(s.round.Guesses, 2)
	s.Equal("alice", s.round.Guesses[0].Player)
	s.Equal("bob", s.round.Guesses[1].Player)
	s.Equal(s.clock.Now(), s.round.Guesses[1].SubmittedAt)
}

func (s *LedgerSuite) TestSubmitGuessDuplicateRejected() {
	_, err := s.ledger.SubmitGuess(s.round, s.cfg, "alice", 1984, false)
	s.Require().NoError(err)

	_, err = s.ledger.SubmitGuess(s.round, s.cfg, "alice", 1985, true)
	s.ErrorIs(err, model.ErrAlreadyGuessed)
	s.ErrorIs(err, model.ErrStateConflict)
	s.Equal(1984, s.round.GuessBy("alice").Year)
}

func (s *LedgerSuite) TestSubmitGuessOutOfRange() {
	_, err := s.ledger.SubmitGuess(s.round, s.cfg, "alice", 1800, false)
	s.ErrorIs(err, model.ErrValidation)
	s.Empty(s.round.Guesses)
}

func (s *LedgerSuite) TestSubmitGuessAfterRoundEnded() {
	s.Require().NoError(s.ledger.Close(s.round))

	_, err := s.ledger.SubmitGuess(s.round, s.cfg, "alice", 1984, false)
	s.ErrorIs(err, model.ErrStateConflict)
	s.Empty(s.round.Guesses)
}

func (s *LedgerSuite) TestSubmitGuessNilRound() {
	_, err := s.ledger.SubmitGuess(nil, s.cfg, "alice", 1984, false)
	s.ErrorIs(err, model.ErrRoundNotActive)
}

// UpdateBet tests

func (s *LedgerSuite) TestUpdateBet() {
	_, _ = s.ledger.SubmitGuess(s.round, s.cfg, "alice", 1984, false)
	s.clock.Advance(3 * time.Second)

	g, err := s.ledger.UpdateBet(s.round, "alice", true)
	s.Require().NoError(err)
	s.True(g.Bet)
	s.True(s.round.GuessBy("alice").Bet)
	s.Equal(s.clock.Now(), s.round.GuessBy("alice").UpdatedAt)
	s.NotEqual(s.round.GuessBy("alice").SubmittedAt, s.round.GuessBy("alice").UpdatedAt)
}

func (s *LedgerSuite) TestUpdateBetWithoutGuess() {
	_, err := s.ledger.UpdateBet(s.round, "alice", true)
	s.ErrorIs(err, model.ErrNoGuess)
	s.ErrorIs(err, model.ErrStateConflict)
}

func (s *LedgerSuite) TestUpdateBetAfterRoundEnded() {
	_, _ = s.ledger.SubmitGuess(s.round, s.cfg, "alice", 1984, false)
	s.Require().NoError(s.ledger.Close(s.round))

	_, err := s.ledger.UpdateBet(s.round, "alice", true)
	s.ErrorIs(err, model.ErrStateConflict)
	s.False(s.round.GuessBy("alice").Bet)
}

// Close tests

func (s *LedgerSuite) TestCloseTwice() {
	s.Require().NoError(s.ledger.Close(s.round))
	s.Equal(model.RoundStatusEnded, s.round.Status)
	s.Equal(s.clock.Now(), s.round.EndedAt)

	s.ErrorIs(s.ledger.Close(s.round), model.ErrRoundNotActive)
}

// Score tests

func (s *LedgerSuite) TestScoreBands() {
	cases := []struct {
		guess    int
		bet      bool
		distance int
		delta    int
	}{
		{1985, false, 0, 10},
		{1985, true, 0, 20},
		{1983, false, 2, 5},
		{1987, true, 2, 10},
		{1980, false, 5, 1},
		{1990, true, 5, 2},
		{1978, false, 7, 0},
		{1978, true, 7, 0},
	}
	for _, tc := range cases {
		distance, delta := Score(s.cfg, tc.guess, 1985, tc.bet)
		s.Equal(tc.distance, distance, "guess %d", tc.guess)
		s.Equal(tc.delta, delta, "guess %d bet %v", tc.guess, tc.bet)
	}
}

func (s *LedgerSuite) TestScoreCustomConfig() {
	cfg := s.cfg
	cfg.ExactPoints = 7
	cfg.BetMultiplier = 3
	_, delta := Score(cfg, 2000, 2000, true)
	s.Equal(21, delta)
}

// Settle tests

func (s *LedgerSuite) TestSettleAppliesDeltasInRosterOrder() {
	players := []model.Player{
		{Name: "alice", Score: 3},
		{Name: "bob"},
		{Name: "carol", Score: 1},
	}
	_, _ = s.ledger.SubmitGuess(s.round, s.cfg, "bob", 1985, true)
	_, _ = s.ledger.SubmitGuess(s.round, s.cfg, "alice", 1978, true)
	s.Require().NoError(s.ledger.Close(s.round))

	results := s.ledger.Settle(s.round, s.cfg, players)
	s.Require().Len(results, 3)

	s.Equal("alice", results[0].Player)
	s.True(results[0].Guessed)
	s.Equal(7, results[0].Distance)
	s.Equal(0, results[0].Delta)
	s.Equal(3, results[0].Total)

	s.Equal("bob", results[1].Player)
	s.Equal(20, results[1].Delta)
	s.Equal(20, results[1].Total)

	s.Equal("carol", results[2].Player)
	s.False(results[2].Guessed)
	s.Equal(0, results[2].Delta)
	s.Equal(1, results[2].Total)

	s.Equal(20, players[1].Score)
}
