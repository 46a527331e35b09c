package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/yeargame/internal/dependencies/mocks"
	"github.com/mcoot/yeargame/internal/model"
	"github.com/mcoot/yeargame/internal/services/admin"
	"github.com/mcoot/yeargame/internal/services/catalog"
	"github.com/mcoot/yeargame/internal/services/ledger"
	"github.com/mcoot/yeargame/internal/services/playback"
	"github.com/mcoot/yeargame/internal/storage/memory"
	"github.com/mcoot/yeargame/internal/testutil"
)

type recordedEvent struct {
	tenant    model.TenantID
	eventType model.EventType
	data      any
}

// recordingPublisher keeps every published event in order
type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, tenant model.TenantID, eventType model.EventType, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{tenant: tenant, eventType: eventType, data: data})
}

func (p *recordingPublisher) types() []model.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]model.EventType, len(p.events))
	for i, e := range p.events {
		types[i] = e.eventType
	}
	return types
}

func (p *recordingPublisher) last(eventType model.EventType) (recordedEvent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].eventType == eventType {
			return p.events[i], true
		}
	}
	return recordedEvent{}, false
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

// flakyStorage fails saves on demand
type flakyStorage struct {
	*memory.Storage
	mu       sync.Mutex
	failSave bool
}

func (f *flakyStorage) SaveSession(ctx context.Context, session *model.GameSession) error {
	f.mu.Lock()
	fail := f.failSave
	f.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return f.Storage.SaveSession(ctx, session)
}

func (f *flakyStorage) setFailSave(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSave = fail
}

type ControllerSuite struct {
	suite.Suite
	storage    *flakyStorage
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	catalog    *catalog.Static
	playback   *playback.Logging
	publisher  *recordingPublisher
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = &flakyStorage{Storage: memory.New()}
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.catalog = catalog.NewStatic()
	s.playback = playback.NewLogging(testutil.NopLogger())
	s.publisher = &recordingPublisher{}
	s.controller = s.newController()
	s.ctx = context.Background()
}

func (s *ControllerSuite) TearDownTest() {
	s.controller.Close()
}

func (s *ControllerSuite) newController() *Controller {
	return NewController(
		s.storage,
		admin.New(s.random, admin.Config{HashCost: bcrypt.MinCost}),
		ledger.New(s.clock),
		s.catalog,
		s.playback,
		s.publisher,
		s.clock,
		s.random,
		testutil.NopLogger(),
		DefaultConfig(),
	)
}

func songs(n int) []model.Song {
	pool := make([]model.Song, n)
	for i := range pool {
		pool[i] = model.Song{
			URI:    fmt.Sprintf("track:%d", i),
			Title:  fmt.Sprintf("Song %d", i),
			Artist: "Artist",
			Year:   1980 + i,
		}
	}
	return pool
}

// createSession starts a session with default config and n songs and returns the admin token
func (s *ControllerSuite) createSession(n int) string {
	_, token, err := s.controller.CreateSession(s.ctx, "pub", model.GameConfig{}, songs(n))
	s.Require().NoError(err)
	return token
}

func (s *ControllerSuite) join(name string) *model.Player {
	p, err := s.controller.JoinPlayer(s.ctx, "pub", name, "")
	s.Require().NoError(err)
	return p
}

func (s *ControllerSuite) session() *model.GameSession {
	session, err := s.storage.GetSession(s.ctx, "pub")
	s.Require().NoError(err)
	return session
}

// CreateSession tests

func (s *ControllerSuite) TestCreateSessionSucceeds() {
	session, token, err := s.controller.CreateSession(s.ctx, "pub", model.GameConfig{}, songs(3))
	s.Require().NoError(err)

	s.Contains(token, admin.TokenPrefix)
	s.NotEmpty(session.ID)
	s.Equal(model.SessionStatusLobby, session.Status)
	s.Equal(model.DefaultGameConfig(), session.Config)
	s.Len(session.Available, 3)
	s.Empty(session.Players)
	s.NotEqual(token, session.Admin.TokenHash)

	s.Equal([]model.EventType{model.EventSessionReset}, s.publisher.types())
}

func (s *ControllerSuite) TestCreateSessionPersistsConfig() {
	cfg := model.DefaultGameConfig()
	cfg.TimerDuration = time.Minute
	_, _, err := s.controller.CreateSession(s.ctx, "pub", cfg, songs(1))
	s.Require().NoError(err)

	stored, err := s.storage.GetConfig(s.ctx, "pub")
	s.Require().NoError(err)
	s.Equal(time.Minute, stored.TimerDuration)
}

func (s *ControllerSuite) TestCreateSessionZeroConfigUsesStoredConfig() {
	cfg := model.DefaultGameConfig()
	cfg.ExactPoints = 50
	s.Require().NoError(s.storage.SaveConfig(s.ctx, "pub", cfg))

	session, _, err := s.controller.CreateSession(s.ctx, "pub", model.GameConfig{}, songs(1))
	s.Require().NoError(err)
	s.Equal(50, session.Config.ExactPoints)
}

func (s *ControllerSuite) TestCreateSessionDeduplicatesPool() {
	pool := append(songs(2), songs(2)...)
	session, _, err := s.controller.CreateSession(s.ctx, "pub", model.GameConfig{}, pool)
	s.Require().NoError(err)
	s.Len(session.Available, 2)
}

func (s *ControllerSuite) TestCreateSessionValidation() {
	_, _, err := s.controller.CreateSession(s.ctx, "pub", model.GameConfig{}, nil)
	s.ErrorIs(err, model.ErrValidation)

	bad := model.DefaultGameConfig()
	bad.TimerDuration = time.Second
	_, _, err = s.controller.CreateSession(s.ctx, "pub", bad, songs(1))
	s.ErrorIs(err, model.ErrValidation)

	_, _, err = s.controller.CreateSession(s.ctx, "bad tenant!", model.GameConfig{}, songs(1))
	s.ErrorIs(err, model.ErrValidation)

	outOfRange := []model.Song{{URI: "track:x", Year: 1900}}
	_, _, err = s.controller.CreateSession(s.ctx, "pub", model.GameConfig{}, outOfRange)
	s.ErrorIs(err, model.ErrValidation)
}

func (s *ControllerSuite) TestCreateSessionValidationKeepsPreviousSession() {
	token := s.createSession(2)
	s.join("alice")
	before := s.session()

	_, _, err := s.controller.CreateSession(s.ctx, "pub", model.GameConfig{}, nil)
	s.Require().ErrorIs(err, model.ErrValidation)

	after := s.session()
	s.Equal(before.ID, after.ID)
	s.Len(after.Players, 1)
	_, err = s.controller.RequestNextRound(s.ctx, "pub", token)
	s.NoError(err)
}

func (s *ControllerSuite) TestCreateSessionResetDiscardsPreviousState() {
	oldToken := s.createSession(3)
	s.join("alice")
	_, err := s.controller.RequestNextRound(s.ctx, "pub", oldToken)
	s.Require().NoError(err)

	newToken := s.createSession(3)
	session := s.session()
	s.Equal(model.SessionStatusLobby, session.Status)
	s.Empty(session.Players)
	s.Nil(session.Round)
	s.Equal(0, session.RoundNumber)
	s.Zero(s.clock.PendingTimers())

	_, err = s.controller.RequestNextRound(s.ctx, "pub", oldToken)
	s.ErrorIs(err, model.ErrPermissionDenied)
	_, err = s.controller.RequestNextRound(s.ctx, "pub", newToken)
	s.NoError(err)
}

// RequestNextRound tests

func (s *ControllerSuite) TestRequestNextRoundStartsRound() {
	token := s.createSession(3)
	s.join("alice")

	round, err := s.controller.RequestNextRound(s.ctx, "pub", token)
	s.Require().NoError(err)
	s.Equal(1, round.Number)
	s.Equal(model.RoundStatusActive, round.Status)

	session := s.session()
	s.Equal(model.SessionStatusRoundActive, session.Status)
	s.Len(session.Available, 2)
	s.Len(session.Played, 1)
	s.Equal(round.Song.URI, session.Played[0].URI)
	s.Equal(1, s.clock.PendingTimers())
}

func (s *ControllerSuite) TestRoundStartedPayloadHidesYear() {
	token := s.createSession(1)
	s.join("alice")
	_, err := s.controller.RequestNextRound(s.ctx, "pub", token)
	s.Require().NoError(err)

	e, ok := s.publisher.last(model.EventRoundStarted)
	s.Require().True(ok)
	payload, ok := e.data.(model.RoundStartedPayload)
	s.Require().True(ok)
	s.Equal(1, payload.RoundNumber)
	s.Equal(30, payload.TimerSeconds)
	s.Equal(0, payload.SongsLeft)
	s.Equal(1, payload.TotalPlayers)
	s.Equal(2, payload.BetMultiplier)

	data, err := json.Marshal(model.NewEnvelope(e.eventType, e.data))
	s.Require().NoError(err)
	var decoded map[string]any
	s.Require().NoError(json.Unmarshal(data, &decoded))
	song := decoded["data"].(map[string]any)["song"].(map[string]any)
	s.NotContains(song, "year")
	s.Equal("track:0", song["uri"])
	s.NotContains(string(data), "1980")
}

func (s *ControllerSuite) TestRequestNextRoundEnrichesFromCatalog() {
	s.catalog.AddTrack("track:0", model.TrackMetadata{CoverURL: "https://img/0.jpg", Album: "Album"})
	token := s.createSession(1)

	round, err := s.controller.RequestNextRound(s.ctx, "pub", token)
	s.Require().NoError(err)
	s.Equal("https://img/0.jpg", round.Song.CoverURL)
	s.Equal(1980, round.Song.Year)
	s.Equal("Album", s.session().Played[0].Album)
}

func (s *ControllerSuite) TestRequestNextRoundRequiresAdmin() {
	s.createSession(2)

	_, err := s.controller.RequestNextRound(s.ctx, "pub", "adm_wrong")
	s.ErrorIs(err, model.ErrPermissionDenied)
	_, err = s.controller.RequestNextRound(s.ctx, "pub", "")
	s.ErrorIs(err, model.ErrPermissionDenied)
	s.Equal(model.SessionStatusLobby, s.session().Status)
}

func (s *ControllerSuite) TestRequestNextRoundAdminTokenExpires() {
	token := s.createSession(2)
	s.clock.Advance(24*time.Hour + time.Second)

	_, err := s.controller.RequestNextRound(s.ctx, "pub", token)
	s.ErrorIs(err, model.ErrPermissionDenied)
}

func (s *ControllerSuite) TestRequestNextRoundWithoutSession() {
	_, err := s.controller.RequestNextRound(s.ctx, "pub", "adm_x")
	s.ErrorIs(err, model.ErrGameNotStarted)
}

func (s *ControllerSuite) TestRequestNextRoundEndsActiveRoundFirst() {
	token := s.createSession(3)
	alice := s.join("alice")
	_, err := s.controller.RequestNextRound(s.ctx, "pub", token)
	s.Require().NoError(err)
	_, err = s.controller.SubmitGuess(s.ctx, "pub", alice.Token, 1980, false)
	s.Require().NoError(err)

	s.publisher.reset()
	round, err := s.controller.RequestNextRound(s.ctx, "pub", token)
	s.Require().NoError(err)
	s.Equal(2, round.Number)

	s.Equal([]model.EventType{model.EventRoundEnded, model.EventRoundStarted}, s.publisher.types())
	session := s.session()
	s.Len(session.History, 1)
	s.Equal(10, session.Players[0].Score)
	s.Equal(1, s.clock.PendingTimers())
}

func (s *ControllerSuite) TestConcurrentNextRoundRequests() {
	const callers = 5
	token := s.createSession(10)

	var wg sync.WaitGroup
	rounds := make([]*model.Round, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rounds[i], errs[i] = s.controller.RequestNextRound(s.ctx, "pub", token)
		}(i)
	}
	wg.Wait()

	uris := make(map[string]bool)
	numbers := make(map[int]bool)
	for i := 0; i < callers; i++ {
		s.Require().NoError(errs[i])
		uris[rounds[i].Song.URI] = true
		numbers[rounds[i].Number] = true
	}
	s.Len(uris, callers)
	s.Len(numbers, callers)
	for n := 1; n <= callers; n++ {
		s.True(numbers[n])
	}

	session := s.session()
	s.Equal(callers, session.RoundNumber)
	s.Len(session.Available, 10-callers)
	s.Len(session.Played, callers)
	s.Len(session.History, callers-1)
	s.True(session.Round.IsActive())
}

func (s *ControllerSuite) TestPlaylistExhausted() {
	token := s.createSession(1)
	_, err := s.controller.RequestNextRound(s.ctx, "pub", token)
	s.Require().NoError(err)

	_, err = s.controller.RequestNextRound(s.ctx, "pub", token)
	s.ErrorIs(err, model.ErrPlaylistExhausted)
	s.Equal(model.SessionStatusRoundActive, s.session().Status)

	s.publisher.reset()
	summary, err := s.controller.EndRound(s.ctx, "pub", token)
	s.Require().NoError(err)
	s.True(summary.GameOver)
	s.Equal(model.SessionStatusGameEnded, s.session().Status)
	s.Equal([]model.EventType{model.EventRoundEnded, model.EventGameEnded}, s.publisher.types())

	_, err = s.controller.RequestNextRound(s.ctx, "pub", token)
	s.ErrorIs(err, model.ErrGameEnded)
}

func (s *ControllerSuite) TestRequestNextRoundSaveFailure() {
	token := s.createSession(2)
	s.publisher.reset()
	s.storage.setFailSave(true)

	_, err := s.controller.RequestNextRound(s.ctx, "pub", token)
	s.Error(err)
	s.Empty(s.publisher.types())

	s.storage.setFailSave(false)
	session := s.session()
	s.Equal(model.SessionStatusLobby, session.Status)
	s.Len(session.Available, 2)
	s.Equal(0, session.RoundNumber)
	s.Zero(s.clock.PendingTimers())
}

func (s *ControllerSuite) TestPlaybackRequested() {
	token := s.createSession(1)
	round, err := s.controller.RequestNextRound(s.ctx, "pub", token)
	s.Require().NoError(err)

	s.controller.Close()
	s.Equal([]string{round.Song.URI}, s.playback.Played())
}

// EndRound tests

func (s *ControllerSuite) TestEndRoundScores() {
	token := s.createSession(3)
	alice := s.join("alice")
	bob := s.join("bob")
	s.join("carol")
	round, err := s.controller.RequestNextRound(s.ctx, "pub", token)
	s.Require().NoError(err)
	correct := s.session().Round.Song.Year

	_, err = s.controller.SubmitGuess(s.ctx, "pub", alice.Token, correct, true)
	s.Require().NoError(err)
	_, err = s.controller.SubmitGuess(s.ctx, "pub", bob.Token, correct+7, true)
	s.Require().NoError(err)

	summary, err := s.controller.EndRound(s.ctx, "pub", token)
	s.Require().NoError(err)
	s.Equal(round.Number, summary.RoundNumber)
	s.Equal(correct, summary.Song.Year)
	s.False(summary.GameOver)
	s.Require().Len(summary.Results, 3)
	s.Equal(20, summary.Results[0].Delta)
	s.Equal(0, summary.Results[1].Delta)
	s.False(summary.Results[2].Guessed)

	session := s.session()
	s.Equal(model.SessionStatusRoundEnded, session.Status)
	s.Equal(20, session.GetPlayer("alice").Score)
	s.Equal(0, session.GetPlayer("bob").Score)
	s.Zero(s.clock.PendingTimers())
}

func (s *ControllerSuite) TestEndRoundWhenNotActive() {
	token := s.createSession(2)
	_, err := s.controller.EndRound(s.ctx, "pub", token)
	s.ErrorIs(err, model.ErrStateConflict)

	_, err = s.controller.RequestNextRound(s.ctx, "pub", token)
	s.Require().NoError(err)
	_, err = s.controller.EndRound(s.ctx, "pub", token)
	s.Require().NoError(err)
	_, err = s.controller.EndRound(s.ctx, "pub", token)
	s.ErrorIs(err, model.ErrStateConflict)
}

func (s *ControllerSuite) TestEndRoundRequiresAdmin() {
	token := s.createSession(2)
	_, err := s.controller.RequestNextRound(s.ctx, "pub", token)
	s.Require().NoError(err)

	_, err = s.controller.EndRound(s.ctx, "pub", "adm_wrong")
	s.ErrorIs(err, model.ErrPermissionDenied)
	s.True(s.session().Round.IsActive())
}

// Round timer tests

func (s *ControllerSuite) TestRoundTimerEndsRound() {
	token := s.createSession(2)
	alice := s.join("alice")
	_, err := s.controller.RequestNextRound(s.ctx, "pub", token)
	s.Require().NoError(err)
	_, err = s.controller.SubmitGuess(s.ctx, "pub", alice.Token, s.session().Round.Song.Year, false)
	s.Require().NoError(err)

	s.clock.Advance(29 * time.Second)
	s.True(s.session().Round.IsActive())

	s.clock.Advance(time.Second)
	session := s.session()
	s.Equal(model.SessionStatusRoundEnded, session.Status)
	s.Equal(10, session.Players[0].Score)
	_, ok := s.publisher.last(model.EventRoundEnded)
	s.True(ok)

	_, err = s.controller.SubmitGuess(s.ctx, "pub", alice.Token, 1980, false)
	s.ErrorIs(err, model.ErrStateConflict)
}

func (s *ControllerSuite) TestStaleTimerDoesNotEndNextRound() {
	token := s.createSession(3)
	_, err := s.controller.RequestNextRound(s.ctx, "pub", token)
	s.Require().NoError(err)

	s.clock.Advance(10 * time.Second)
	_, err = s.controller.EndRound(s.ctx, "pub", token)
	s.Require().NoError(err)
	round, err := s.controller.RequestNextRound(s.ctx, "pub", token)
	s.Require().NoError(err)

	// Round 1's deadline passes while round 2 is still running
	s.clock.Advance(20 * time.Second)
	session := s.session()
	s.Equal(round.Number, session.Round.Number)
	s.True(session.Round.IsActive())

	s.clock.Advance(10 * time.Second)
	s.False(s.session().Round.IsActive())
}

func (s *ControllerSuite) TestResumeRearmsTimers() {
	token := s.createSession(2)
	_, err := s.controller.RequestNextRound(s.ctx, "pub", token)
	s.Require().NoError(err)
	s.controller.Close()

	s.controller = s.newController()
	s.Require().NoError(s.controller.Resume(s.ctx))
	s.Equal(1, s.clock.PendingTimers())

	s.clock.Advance(30 * time.Second)
	s.Equal(model.SessionStatusRoundEnded, s.session().Status)
}

// EndGame tests

func (s *ControllerSuite) TestEndGame() {
	token := s.createSession(3)
	alice := s.join("alice")
	s.join("bob")
	_, err := s.controller.RequestNextRound(s.ctx, "pub", token)
	s.Require().NoError(err)
	_, err = s.controller.SubmitGuess(s.ctx, "pub", alice.Token, s.session().Round.Song.Year, false)
	s.Require().NoError(err)

	s.publisher.reset()
	result, err := s.controller.EndGame(s.ctx, "pub", token)
	s.Require().NoError(err)
	s.Equal(1, result.Rounds)
	s.Equal("alice", result.Winner)
	s.Equal([]model.EventType{model.EventRoundEnded, model.EventGameEnded}, s.publisher.types())

	session := s.session()
	s.Equal(model.SessionStatusGameEnded, session.Status)
	s.True(session.History[0].GameOver)

	_, err = s.controller.EndGame(s.ctx, "pub", token)
	s.ErrorIs(err, model.ErrGameEnded)
	_, err = s.controller.RequestNextRound(s.ctx, "pub", token)
	s.ErrorIs(err, model.ErrGameEnded)
}

func (s *ControllerSuite) TestEndGameTieHasNoWinner() {
	token := s.createSession(2)
	s.join("alice")
	s.join("bob")

	result, err := s.controller.EndGame(s.ctx, "pub", token)
	s.Require().NoError(err)
	s.Empty(result.Winner)
	s.Len(result.Standings, 2)
}

// JoinPlayer tests

func (s *ControllerSuite) TestJoinPlayerSucceeds() {
	s.createSession(1)
	s.publisher.reset()

	player, err := s.controller.JoinPlayer(s.ctx, "pub", "  Alice  ", "")
	s.Require().NoError(err)
	s.Equal("Alice", player.Name)
	s.Contains(player.Token, PlayerTokenPrefix)
	s.False(player.IsAdmin)

	e, ok := s.publisher.last(model.EventPlayerJoined)
	s.Require().True(ok)
	payload := e.data.(model.PlayerJoinedPayload)
	s.Equal("Alice", payload.Player.Name)
	s.Len(payload.Players, 1)
}

func (s *ControllerSuite) TestJoinPlayerValidation() {
	s.createSession(1)

	for _, name := range []string{"", "   ", "this name is far too long", "<script>"} {
		_, err := s.controller.JoinPlayer(s.ctx, "pub", name, "")
		s.ErrorIs(err, model.ErrValidation, "name %q", name)
	}
	s.Empty(s.session().Players)
}

func (s *ControllerSuite) TestJoinPlayerWithoutSession() {
	_, err := s.controller.JoinPlayer(s.ctx, "pub", "alice", "")
	s.ErrorIs(err, model.ErrGameNotStarted)
}

func (s *ControllerSuite) TestJoinPlayerDuplicateName() {
	s.createSession(1)
	s.join("alice")

	_, err := s.controller.JoinPlayer(s.ctx, "pub", "alice", "")
	s.ErrorIs(err, model.ErrPlayerExists)
	s.Len(s.session().Players, 1)
}

func (s *ControllerSuite) TestJoinPlayerAsAdmin() {
	token := s.createSession(1)

	player, err := s.controller.JoinPlayer(s.ctx, "pub", "host", token)
	s.Require().NoError(err)
	s.True(player.IsAdmin)

	_, err = s.controller.JoinPlayer(s.ctx, "pub", "faker", "adm_wrong")
	s.ErrorIs(err, model.ErrPermissionDenied)
}

// Guess tests

func (s *ControllerSuite) TestSubmitGuessPublishesWithoutYear() {
	token := s.createSession(2)
	alice := s.join("alice")
	s.join("bob")
	_, err := s.controller.RequestNextRound(s.ctx, "pub", token)
	s.Require().NoError(err)

	guess, err := s.controller.SubmitGuess(s.ctx, "pub", alice.Token, 1999, true)
	s.Require().NoError(err)
	s.Equal(1999, guess.Year)

	e, ok := s.publisher.last(model.EventGuessSubmitted)
	s.Require().True(ok)
	payload := e.data.(model.GuessSubmittedPayload)
	s.Equal("alice", payload.Player)
	s.Equal(1, payload.Submitted)
	s.Equal(2, payload.Total)

	data, err := json.Marshal(payload)
	s.Require().NoError(err)
	s.NotContains(string(data), "1999")
}

func (s *ControllerSuite) TestSubmitGuessErrors() {
	token := s.createSession(2)
	alice := s.join("alice")

	_, err := s.controller.SubmitGuess(s.ctx, "pub", alice.Token, 1990, false)
	s.ErrorIs(err, model.ErrStateConflict)

	_, err = s.controller.RequestNextRound(s.ctx, "pub", token)
	s.Require().NoError(err)

	_, err = s.controller.SubmitGuess(s.ctx, "pub", "ply_unknown", 1990, false)
	s.ErrorIs(err, model.ErrPermissionDenied)

	_, err = s.controller.SubmitGuess(s.ctx, "pub", alice.Token, 3000, false)
	s.ErrorIs(err, model.ErrValidation)

	_, err = s.controller.SubmitGuess(s.ctx, "pub", alice.Token, 1990, false)
	s.Require().NoError(err)
	_, err = s.controller.SubmitGuess(s.ctx, "pub", alice.Token, 1991, false)
	s.ErrorIs(err, model.ErrStateConflict)
}

func (s *ControllerSuite) TestGuessAfterRoundEndedRejectedAndUnchanged() {
	token := s.createSession(2)
	alice := s.join("alice")
	_, err := s.controller.RequestNextRound(s.ctx, "pub", token)
	s.Require().NoError(err)
	_, err = s.controller.EndRound(s.ctx, "pub", token)
	s.Require().NoError(err)
	before := s.session()

	_, err = s.controller.SubmitGuess(s.ctx, "pub", alice.Token, 1990, false)
	s.ErrorIs(err, model.ErrStateConflict)
	_, err = s.controller.UpdateBet(s.ctx, "pub", alice.Token, true)
	s.ErrorIs(err, model.ErrStateConflict)

	after := s.session()
	s.Equal(before.Round.Guesses, after.Round.Guesses)
	s.Equal(before.Players, after.Players)
}

func (s *ControllerSuite) TestUpdateBet() {
	token := s.createSession(2)
	alice := s.join("alice")
	_, err := s.controller.RequestNextRound(s.ctx, "pub", token)
	s.Require().NoError(err)

	_, err = s.controller.UpdateBet(s.ctx, "pub", alice.Token, true)
	s.ErrorIs(err, model.ErrNoGuess)

	_, err = s.controller.SubmitGuess(s.ctx, "pub", alice.Token, 1990, false)
	s.Require().NoError(err)
	guess, err := s.controller.UpdateBet(s.ctx, "pub", alice.Token, true)
	s.Require().NoError(err)
	s.True(guess.Bet)

	e, ok := s.publisher.last(model.EventBetUpdated)
	s.Require().True(ok)
	s.True(e.data.(model.BetUpdatedPayload).Bet)
}

// Snapshot tests

func (s *ControllerSuite) TestSnapshotUninitialized() {
	snapshot, err := s.controller.Snapshot(s.ctx, "pub")
	s.Require().NoError(err)
	s.Equal(model.SessionStatusUninitialized, snapshot.Status)
}

func (s *ControllerSuite) TestSnapshotHidesYearWhileActive() {
	token := s.createSession(2)
	_, err := s.controller.RequestNextRound(s.ctx, "pub", token)
	s.Require().NoError(err)

	snapshot, err := s.controller.Snapshot(s.ctx, "pub")
	s.Require().NoError(err)
	s.Require().NotNil(snapshot.Round)
	s.Zero(snapshot.Round.RevealedYear)
	s.Equal(1, snapshot.Remaining)

	_, err = s.controller.EndRound(s.ctx, "pub", token)
	s.Require().NoError(err)
	snapshot, err = s.controller.Snapshot(s.ctx, "pub")
	s.Require().NoError(err)
	s.Equal(1980, snapshot.Round.RevealedYear)
}

// Authenticate tests

func (s *ControllerSuite) TestAuthenticate() {
	s.createSession(1)
	alice := s.join("alice")

	player, err := s.controller.Authenticate(s.ctx, "pub", alice.Token)
	s.Require().NoError(err)
	s.Equal("alice", player.Name)

	_, err = s.controller.Authenticate(s.ctx, "pub", "ply_nope")
	s.ErrorIs(err, model.ErrPermissionDenied)
}

// ResolvePlaylist tests

func (s *ControllerSuite) TestResolvePlaylist() {
	s.catalog.AddTrack("track:a", model.TrackMetadata{Title: "A", Year: 1991})
	s.catalog.AddTrack("track:b", model.TrackMetadata{Title: "B"})
	s.catalog.AddPlaylist("mix", "track:a", "track:b", "track:missing")

	pool, err := s.controller.ResolvePlaylist(s.ctx, "mix")
	s.Require().NoError(err)
	s.Equal([]model.Song{{URI: "track:a", Title: "A", Year: 1991}}, pool)

	_, err = s.controller.ResolvePlaylist(s.ctx, "nope")
	s.ErrorIs(err, model.ErrPlaylistNotFound)
}

// CloseSession tests

func (s *ControllerSuite) TestCloseSession() {
	token := s.createSession(2)
	_, err := s.controller.RequestNextRound(s.ctx, "pub", token)
	s.Require().NoError(err)

	s.ErrorIs(s.controller.CloseSession(s.ctx, "pub", "adm_wrong"), model.ErrPermissionDenied)
	s.Require().NoError(s.controller.CloseSession(s.ctx, "pub", token))

	_, err = s.storage.GetSession(s.ctx, "pub")
	s.ErrorIs(err, model.ErrSessionNotFound)
	s.Zero(s.clock.PendingTimers())
	_, ok := s.publisher.last(model.EventSessionClosed)
	s.True(ok)

	tenants, err := s.controller.ListTenants(s.ctx)
	s.Require().NoError(err)
	s.Empty(tenants)
}
