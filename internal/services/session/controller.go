// Package session owns each tenant's game session and drives its round lifecycle.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/yeargame/internal/dependencies/clock"
	"github.com/mcoot/yeargame/internal/dependencies/random"
	"github.com/mcoot/yeargame/internal/model"
	"github.com/mcoot/yeargame/internal/services/admin"
	"github.com/mcoot/yeargame/internal/services/catalog"
	"github.com/mcoot/yeargame/internal/services/ledger"
	"github.com/mcoot/yeargame/internal/services/playback"
	"github.com/mcoot/yeargame/internal/storage"
)

// PlayerTokenPrefix marks player tokens
const PlayerTokenPrefix = "ply_"

// Publisher delivers committed session events to connected clients
type Publisher interface {
	Publish(ctx context.Context, tenant model.TenantID, eventType model.EventType, data any)
}

// NopPublisher drops every event
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(context.Context, model.TenantID, model.EventType, any) {}

// Config holds configuration for the session controller
type Config struct {
	// PlaybackTimeout bounds each fire-and-forget playback request
	PlaybackTimeout time.Duration
}

// DefaultConfig returns default controller configuration
func DefaultConfig() Config {
	return Config{
		PlaybackTimeout: 10 * time.Second,
	}
}

// Controller manages the session state machine and round flow for every tenant
type Controller struct {
	storage   storage.Storage
	admin     *admin.Manager
	ledger    *ledger.Ledger
	catalog   catalog.Provider
	playback  playback.Controller
	publisher Publisher
	clock     clock.Clock
	random    random.Random
	logger    *slog.Logger
	cfg       Config

	mu      sync.Mutex
	tenants map[model.TenantID]*tenantState
	plays   sync.WaitGroup
}

// NewController creates a new session Controller. catalog and playback may be nil.
func NewController(
	storage storage.Storage,
	admin *admin.Manager,
	ledger *ledger.Ledger,
	catalog catalog.Provider,
	playback playback.Controller,
	publisher Publisher,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
	cfg Config,
) *Controller {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if cfg.PlaybackTimeout == 0 {
		cfg.PlaybackTimeout = DefaultConfig().PlaybackTimeout
	}
	return &Controller{
		storage:   storage,
		admin:     admin,
		ledger:    ledger,
		catalog:   catalog,
		playback:  playback,
		publisher: publisher,
		clock:     clock,
		random:    random,
		logger:    logger.With(slog.String("component", "session")),
		cfg:       cfg,
		tenants:   make(map[model.TenantID]*tenantState),
	}
}

// SetPublisher replaces the event publisher. It must be called before the controller is used.
func (c *Controller) SetPublisher(publisher Publisher) {
	c.publisher = publisher
}

// CreateSession atomically replaces the tenant's session with a fresh one.
// A zero cfg uses the tenant's stored config, or the defaults if none is stored.
// The returned admin token is the only copy; the session stores its hash.
func (c *Controller) CreateSession(ctx context.Context, tenant model.TenantID, cfg model.GameConfig, pool []model.Song) (*model.GameSession, string, error) {
	if err := tenant.Validate(); err != nil {
		return nil, "", err
	}
	if cfg.IsZero() {
		cfg = c.storedConfig(ctx, tenant)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	songs, err := model.ValidateSongPool(pool, cfg)
	if err != nil {
		return nil, "", err
	}

	now := c.clock.Now()
	token, cred, err := c.admin.Issue(now)
	if err != nil {
		return nil, "", err
	}

	session := &model.GameSession{
		ID:        model.SessionID(uuid.NewString()),
		Tenant:    tenant,
		Status:    model.SessionStatusLobby,
		Config:    cfg,
		Available: songs,
		Played:    []model.Song{},
		Players:   []model.Player{},
		History:   []model.RoundSummary{},
		Admin:     cred,
		CreatedAt: now,
	}

	ts := c.tenant(tenant)
	ts.mu.Lock()
	err = c.commit(ctx, ts, session, func(s *model.GameSession, ts *tenantState, ch *change) error {
		ch.then(ts.stopTimer)
		ch.publish(model.EventSessionReset, model.SessionResetPayload{
			SessionID: s.ID,
			Config:    s.Config,
			Songs:     len(s.Available),
		})
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	if err := c.storage.SaveConfig(ctx, string(tenant), cfg); err != nil {
		c.logger.Warn("failed to persist session config",
			slog.String("tenant", string(tenant)),
			slog.String("error", err.Error()),
		)
	}

	c.logger.Info("session created",
		slog.String("tenant", string(tenant)),
		slog.String("session_id", string(session.ID)),
		slog.Int("songs", len(songs)),
	)
	return session.Clone(), token, nil
}

func (c *Controller) storedConfig(ctx context.Context, tenant model.TenantID) model.GameConfig {
	stored, err := c.storage.GetConfig(ctx, string(tenant))
	if err != nil {
		if !errors.Is(err, model.ErrConfigNotFound) {
			c.logger.Warn("failed to load stored config, using defaults",
				slog.String("tenant", string(tenant)),
				slog.String("error", err.Error()),
			)
		}
		return model.DefaultGameConfig()
	}
	return *stored
}

// ResolvePlaylist builds a song pool from a catalog playlist. Tracks the catalog cannot
// date are skipped.
func (c *Controller) ResolvePlaylist(ctx context.Context, ref string) ([]model.Song, error) {
	if c.catalog == nil {
		return nil, model.NewValidationError("playlist", "no catalog is configured")
	}
	uris, err := c.catalog.PlaylistTracks(ctx, ref)
	if err != nil {
		return nil, err
	}

	songs := make([]model.Song, 0, len(uris))
	for _, uri := range uris {
		meta, err := c.catalog.TrackMetadata(ctx, uri)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.logger.Warn("skipping track without metadata",
				slog.String("playlist", ref),
				slog.String("uri", uri),
				slog.String("error", err.Error()),
			)
			continue
		}
		if meta.Year == 0 {
			continue
		}
		songs = append(songs, model.Song{URI: uri}.Enrich(meta))
	}
	return songs, nil
}

// Snapshot returns the client-safe view of the tenant's session
func (c *Controller) Snapshot(ctx context.Context, tenant model.TenantID) (*model.PublicSession, error) {
	var snapshot model.PublicSession
	err := c.view(ctx, tenant, func(s *model.GameSession) error {
		snapshot = s.Public()
		return nil
	})
	if errors.Is(err, model.ErrGameNotStarted) {
		return &model.PublicSession{
			Tenant:  tenant,
			Status:  model.SessionStatusUninitialized,
			Players: []model.PublicPlayer{},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// ListTenants returns every tenant with a stored session
func (c *Controller) ListTenants(ctx context.Context) ([]model.TenantID, error) {
	return c.storage.ListTenants(ctx)
}

// CloseSession discards the tenant's session entirely
func (c *Controller) CloseSession(ctx context.Context, tenant model.TenantID, adminToken string) error {
	ts := c.tenant(tenant)
	ts.mu.Lock()

	session, err := c.load(ctx, tenant)
	if err != nil {
		ts.mu.Unlock()
		return err
	}
	if err := c.admin.Authorize(session.Admin, adminToken, c.clock.Now()); err != nil {
		ts.mu.Unlock()
		return err
	}
	if err := c.storage.DeleteSession(ctx, tenant); err != nil {
		ts.mu.Unlock()
		return err
	}
	ts.stopTimer()

	ts.pubMu.Lock()
	ts.mu.Unlock()
	defer ts.pubMu.Unlock()

	c.logger.Info("session closed",
		slog.String("tenant", string(tenant)),
		slog.String("session_id", string(session.ID)),
	)
	c.publisher.Publish(context.WithoutCancel(ctx), tenant, model.EventSessionClosed, model.SessionClosedPayload{SessionID: session.ID})
	return nil
}

// JoinPlayer adds a player to the tenant's session. A valid admin token marks the player as admin.
func (c *Controller) JoinPlayer(ctx context.Context, tenant model.TenantID, name, adminToken string) (*model.Player, error) {
	name, err := model.NormalizePlayerName(name)
	if err != nil {
		return nil, err
	}

	var player model.Player
	err = c.update(ctx, tenant, func(s *model.GameSession, _ *tenantState, ch *change) error {
		if s.GetPlayer(name) != nil {
			return model.ErrPlayerExists
		}

		now := c.clock.Now()
		isAdmin := false
		if adminToken != "" {
			if err := c.admin.Authorize(s.Admin, adminToken, now); err != nil {
				return err
			}
			isAdmin = true
		}

		player = model.Player{
			Name:     name,
			Token:    PlayerTokenPrefix + c.random.Token(16),
			IsAdmin:  isAdmin,
			JoinedAt: now,
		}
		s.Players = append(s.Players, player)

		ch.publish(model.EventPlayerJoined, model.PlayerJoinedPayload{
			Player:  player.Public(),
			Players: s.Standings(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("player joined",
		slog.String("tenant", string(tenant)),
		slog.String("player", player.Name),
		slog.Bool("is_admin", player.IsAdmin),
	)
	return &player, nil
}

// Authenticate returns the player holding the token
func (c *Controller) Authenticate(ctx context.Context, tenant model.TenantID, playerToken string) (*model.Player, error) {
	var player model.Player
	err := c.view(ctx, tenant, func(s *model.GameSession) error {
		p := s.GetPlayerByToken(playerToken)
		if p == nil {
			return model.ErrPermissionDenied
		}
		player = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &player, nil
}

// Authorize checks an admin token against the tenant's current credential
func (c *Controller) Authorize(ctx context.Context, tenant model.TenantID, adminToken string) error {
	return c.view(ctx, tenant, func(s *model.GameSession) error {
		return c.admin.Authorize(s.Admin, adminToken, c.clock.Now())
	})
}

// SubmitGuess records the player's guess for the active round
func (c *Controller) SubmitGuess(ctx context.Context, tenant model.TenantID, playerToken string, year int, bet bool) (*model.Guess, error) {
	var guess *model.Guess
	err := c.update(ctx, tenant, func(s *model.GameSession, _ *tenantState, ch *change) error {
		player := s.GetPlayerByToken(playerToken)
		if player == nil {
			return model.ErrPermissionDenied
		}

		g, err := c.ledger.SubmitGuess(s.Round, s.Config, player.Name, year, bet)
		if err != nil {
			return err
		}
		guess = g

		ch.publish(model.EventGuessSubmitted, model.GuessSubmittedPayload{
			RoundNumber: s.Round.Number,
			Player:      player.Name,
			Bet:         g.Bet,
			Submitted:   len(s.Round.Guesses),
			Total:       len(s.Players),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return guess, nil
}

// UpdateBet changes the bet on the player's guess for the active round
func (c *Controller) UpdateBet(ctx context.Context, tenant model.TenantID, playerToken string, bet bool) (*model.Guess, error) {
	var guess *model.Guess
	err := c.update(ctx, tenant, func(s *model.GameSession, _ *tenantState, ch *change) error {
		player := s.GetPlayerByToken(playerToken)
		if player == nil {
			return model.ErrPermissionDenied
		}

		g, err := c.ledger.UpdateBet(s.Round, player.Name, bet)
		if err != nil {
			return err
		}
		guess = g

		ch.publish(model.EventBetUpdated, model.BetUpdatedPayload{
			RoundNumber: s.Round.Number,
			Player:      player.Name,
			Bet:         g.Bet,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return guess, nil
}

// RequestNextRound selects the next song and opens a round for it.
// A round that is still active is ended and scored first.
func (c *Controller) RequestNextRound(ctx context.Context, tenant model.TenantID, adminToken string) (*model.Round, error) {
	var sessionID model.SessionID
	err := c.view(ctx, tenant, func(s *model.GameSession) error {
		if err := c.admin.Authorize(s.Admin, adminToken, c.clock.Now()); err != nil {
			return err
		}
		if s.Status == model.SessionStatusGameEnded {
			return model.ErrGameEnded
		}
		sessionID = s.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	round, err := c.tenant(tenant).arbiter.Select(ctx, &roundSource{c: c, tenant: tenant, sessionID: sessionID})
	if err != nil {
		if errors.Is(err, model.ErrPlaylistExhausted) {
			c.logger.Info("playlist exhausted", slog.String("tenant", string(tenant)))
		}
		return nil, err
	}

	c.logger.Info("round started",
		slog.String("tenant", string(tenant)),
		slog.Int("round_number", round.Number),
		slog.String("uri", round.Song.URI),
	)
	return round, nil
}

// EndRound closes the active round and scores it
func (c *Controller) EndRound(ctx context.Context, tenant model.TenantID, adminToken string) (*model.RoundSummary, error) {
	var summary model.RoundSummary
	err := c.update(ctx, tenant, func(s *model.GameSession, ts *tenantState, ch *change) error {
		if err := c.admin.Authorize(s.Admin, adminToken, c.clock.Now()); err != nil {
			return err
		}
		if !s.Round.IsActive() {
			return model.ErrRoundNotActive
		}
		summary = c.endRound(s, ts, ch, false)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// EndGame moves the session to game_ended, scoring an active round first
func (c *Controller) EndGame(ctx context.Context, tenant model.TenantID, adminToken string) (*model.GameEndedPayload, error) {
	var result model.GameEndedPayload
	err := c.update(ctx, tenant, func(s *model.GameSession, ts *tenantState, ch *change) error {
		if err := c.admin.Authorize(s.Admin, adminToken, c.clock.Now()); err != nil {
			return err
		}
		if s.Status == model.SessionStatusGameEnded {
			return model.ErrGameEnded
		}
		if s.Round.IsActive() {
			c.endRound(s, ts, ch, true)
		}
		if s.Status != model.SessionStatusGameEnded {
			result = c.endGame(s, ch)
		} else {
			result = gameEndedPayload(s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// endRound closes and scores the active round. The game ends with it when the pool is
// empty or forceGameOver is set.
func (c *Controller) endRound(s *model.GameSession, ts *tenantState, ch *change, forceGameOver bool) model.RoundSummary {
	// The round is known to be active, so Close cannot fail
	_ = c.ledger.Close(s.Round)
	results := c.ledger.Settle(s.Round, s.Config, s.Players)

	summary := model.RoundSummary{
		RoundNumber: s.Round.Number,
		Song:        s.Round.Song,
		Results:     results,
		GameOver:    forceGameOver || len(s.Available) == 0,
		EndedAt:     s.Round.EndedAt,
	}
	s.History = append(s.History, summary)
	s.Status = model.SessionStatusRoundEnded

	ch.then(ts.stopTimer)
	ch.publish(model.EventRoundEnded, summary)

	c.logger.Info("round ended",
		slog.String("tenant", string(s.Tenant)),
		slog.Int("round_number", summary.RoundNumber),
		slog.Bool("game_over", summary.GameOver),
	)

	if summary.GameOver {
		c.endGame(s, ch)
	}
	return summary
}

func (c *Controller) endGame(s *model.GameSession, ch *change) model.GameEndedPayload {
	s.Status = model.SessionStatusGameEnded
	payload := gameEndedPayload(s)
	ch.publish(model.EventGameEnded, payload)

	c.logger.Info("game ended",
		slog.String("tenant", string(s.Tenant)),
		slog.Int("rounds", payload.Rounds),
		slog.String("winner", payload.Winner),
	)
	return payload
}

func gameEndedPayload(s *model.GameSession) model.GameEndedPayload {
	standings := s.Standings()
	payload := model.GameEndedPayload{
		Rounds:    s.RoundNumber,
		Standings: standings,
	}
	if len(standings) == 1 || (len(standings) > 1 && standings[0].Score > standings[1].Score) {
		payload.Winner = standings[0].Name
	}
	return payload
}

// openRound starts a round for a song that has just left the pool
func (c *Controller) openRound(s *model.GameSession, ts *tenantState, ch *change, song model.Song) *model.Round {
	s.RoundNumber++
	round := &model.Round{
		Number:        s.RoundNumber,
		Song:          song,
		StartedAt:     c.clock.Now(),
		TimerDuration: s.Config.TimerDuration,
		Status:        model.RoundStatusActive,
		Guesses:       []model.Guess{},
	}
	s.Round = round
	s.Status = model.SessionStatusRoundActive

	tenant, sessionID, number := s.Tenant, s.ID, round.Number
	device := s.Config.PlaybackDevice
	ch.then(func() {
		c.armTimer(ts, tenant, sessionID, number, round.TimerDuration)
		c.play(tenant, device, song.URI)
	})
	ch.publish(model.EventRoundStarted, model.RoundStartedPayload{
		RoundNumber:   round.Number,
		Song:          song.Public(),
		StartedAt:     round.StartedAt,
		TimerSeconds:  int(round.TimerDuration / time.Second),
		Deadline:      round.Deadline(),
		SongsLeft:     len(s.Available),
		TotalPlayers:  len(s.Players),
		BetMultiplier: s.Config.BetMultiplier,
	})
	return round
}

// armTimer must be called with ts.mu held
func (c *Controller) armTimer(ts *tenantState, tenant model.TenantID, sessionID model.SessionID, number int, d time.Duration) {
	ts.stopTimer()
	ts.timer = c.clock.AfterFunc(d, func() {
		c.expireRound(tenant, sessionID, number)
	})
}

// expireRound ends the round when its timer elapses, unless it already ended
func (c *Controller) expireRound(tenant model.TenantID, sessionID model.SessionID, number int) {
	ctx := context.Background()
	err := c.update(ctx, tenant, func(s *model.GameSession, ts *tenantState, ch *change) error {
		if s.ID != sessionID || s.Round == nil || s.Round.Number != number || !s.Round.IsActive() {
			return errStale
		}
		c.endRound(s, ts, ch, false)
		return nil
	})
	if err != nil && !errors.Is(err, errStale) && !errors.Is(err, model.ErrGameNotStarted) {
		c.logger.Error("failed to end round on timer",
			slog.String("tenant", string(tenant)),
			slog.Int("round_number", number),
			slog.String("error", err.Error()),
		)
	}
}

var errStale = errors.New("round timer is stale")

// play asks the playback device to start the song without waiting for it
func (c *Controller) play(tenant model.TenantID, device, uri string) {
	if c.playback == nil {
		return
	}
	c.plays.Add(1)
	go func() {
		defer c.plays.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PlaybackTimeout)
		defer cancel()
		if err := c.playback.Play(ctx, device, uri); err != nil {
			c.logger.Warn("playback failed",
				slog.String("tenant", string(tenant)),
				slog.String("uri", uri),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Resume re-arms round timers for sessions loaded from durable storage.
// Rounds whose deadline already passed end immediately.
func (c *Controller) Resume(ctx context.Context) error {
	tenants, err := c.storage.ListTenants(ctx)
	if err != nil {
		return err
	}
	for _, tenant := range tenants {
		err := c.view(ctx, tenant, func(s *model.GameSession) error {
			if !s.Round.IsActive() {
				return nil
			}
			remaining := s.Round.Deadline().Sub(c.clock.Now())
			if remaining < 0 {
				remaining = 0
			}
			c.armTimer(c.tenant(tenant), tenant, s.ID, s.Round.Number, remaining)
			c.logger.Info("round timer resumed",
				slog.String("tenant", string(tenant)),
				slog.Int("round_number", s.Round.Number),
				slog.Duration("remaining", remaining),
			)
			return nil
		})
		if err != nil && !errors.Is(err, model.ErrGameNotStarted) {
			return fmt.Errorf("resume %s: %w", tenant, err)
		}
	}
	return nil
}

// Close stops every round timer and waits for in-flight playback requests
func (c *Controller) Close() {
	c.mu.Lock()
	states := make([]*tenantState, 0, len(c.tenants))
	for _, ts := range c.tenants {
		states = append(states, ts)
	}
	c.mu.Unlock()

	for _, ts := range states {
		ts.mu.Lock()
		ts.stopTimer()
		ts.mu.Unlock()
	}
	c.plays.Wait()
}
