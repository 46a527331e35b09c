// Package storagetest holds the behavior every storage backend must share.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/yeargame/internal/model"
	"github.com/mcoot/yeargame/internal/storage"
)

// Suite runs the storage contract against a backend. Embed it and set Storage
// and Ctx in the embedding suite's SetupTest.
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
}

var baseTime = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

// NewSession builds a populated session for a tenant
func NewSession(tenant model.TenantID) *model.GameSession {
	return &model.GameSession{
		ID:     model.SessionID("session-" + string(tenant)),
		Tenant: tenant,
		Status: model.SessionStatusRoundActive,
		Config: model.DefaultGameConfig(),
		Available: []model.Song{
			{URI: "track:b", Title: "B", Year: 1984},
		},
		Played: []model.Song{
			{URI: "track:a", Title: "A", Year: 1977},
		},
		Players: []model.Player{
			{Name: "alice", Token: "ply_alice", Score: 5, JoinedAt: baseTime},
		},
		Round: &model.Round{
			Number:        1,
			Song:          model.Song{URI: "track:a", Title: "A", Year: 1977},
			StartedAt:     baseTime,
			TimerDuration: 30 * time.Second,
			Status:        model.RoundStatusActive,
			Guesses: []model.Guess{
				{Player: "alice", Year: 1980, SubmittedAt: baseTime, UpdatedAt: baseTime},
			},
		},
		RoundNumber: 1,
		Admin: model.AdminCredential{
			TokenHash: "hash",
			IssuedAt:  baseTime,
			ExpiresAt: baseTime.Add(24 * time.Hour),
		},
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
}

func (s *Suite) TestSaveAndGetSession() {
	session := NewSession("pub")
	s.Require().NoError(s.Storage.SaveSession(s.Ctx, session))

	got, err := s.Storage.GetSession(s.Ctx, "pub")
	s.Require().NoError(err)
	s.Equal(session.ID, got.ID)
	s.Equal(session.Status, got.Status)
	s.Equal(session.Config, got.Config)
	s.Equal(session.Available, got.Available)
	s.Equal(session.Played, got.Played)
	s.Require().Len(got.Players, 1)
	s.Equal("alice", got.Players[0].Name)
	s.Require().NotNil(got.Round)
	s.Equal(1977, got.Round.Song.Year)
	s.Require().Len(got.Round.Guesses, 1)
	s.Equal(1980, got.Round.Guesses[0].Year)
	s.True(session.Admin.ExpiresAt.Equal(got.Admin.ExpiresAt))
}

func (s *Suite) TestGetSessionNotFound() {
	_, err := s.Storage.GetSession(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *Suite) TestReturnedSessionIsACopy() {
	s.Require().NoError(s.Storage.SaveSession(s.Ctx, NewSession("pub")))

	got, err := s.Storage.GetSession(s.Ctx, "pub")
	s.Require().NoError(err)
	got.Players[0].Score = 99
	got.Round.Guesses = nil
	got.Available = nil

	again, err := s.Storage.GetSession(s.Ctx, "pub")
	s.Require().NoError(err)
	s.Equal(5, again.Players[0].Score)
	s.Len(again.Round.Guesses, 1)
	s.Len(again.Available, 1)
}

func (s *Suite) TestSavedSessionIsACopy() {
	session := NewSession("pub")
	s.Require().NoError(s.Storage.SaveSession(s.Ctx, session))
	session.Players[0].Score = 99

	got, err := s.Storage.GetSession(s.Ctx, "pub")
	s.Require().NoError(err)
	s.Equal(5, got.Players[0].Score)
}

func (s *Suite) TestSaveSessionOverwrites() {
	session := NewSession("pub")
	s.Require().NoError(s.Storage.SaveSession(s.Ctx, session))

	session.ID = "session-2"
	session.Status = model.SessionStatusLobby
	s.Require().NoError(s.Storage.SaveSession(s.Ctx, session))

	got, err := s.Storage.GetSession(s.Ctx, "pub")
	s.Require().NoError(err)
	s.Equal(model.SessionID("session-2"), got.ID)
	s.Equal(model.SessionStatusLobby, got.Status)
}

func (s *Suite) TestDeleteSession() {
	s.Require().NoError(s.Storage.SaveSession(s.Ctx, NewSession("pub")))
	s.Require().NoError(s.Storage.DeleteSession(s.Ctx, "pub"))

	_, err := s.Storage.GetSession(s.Ctx, "pub")
	s.ErrorIs(err, model.ErrSessionNotFound)

	tenants, err := s.Storage.ListTenants(s.Ctx)
	s.Require().NoError(err)
	s.Empty(tenants)
}

func (s *Suite) TestDeleteMissingSession() {
	s.NoError(s.Storage.DeleteSession(s.Ctx, "missing"))
}

func (s *Suite) TestListTenantsSorted() {
	for _, tenant := range []model.TenantID{"zeta", "alpha", "mid"} {
		s.Require().NoError(s.Storage.SaveSession(s.Ctx, NewSession(tenant)))
	}

	tenants, err := s.Storage.ListTenants(s.Ctx)
	s.Require().NoError(err)
	s.Equal([]model.TenantID{"alpha", "mid", "zeta"}, tenants)
}

func (s *Suite) TestSaveAndGetConfig() {
	cfg := model.DefaultGameConfig()
	cfg.TimerDuration = 45 * time.Second
	cfg.PlaybackDevice = "living-room"
	s.Require().NoError(s.Storage.SaveConfig(s.Ctx, "pub", cfg))

	got, err := s.Storage.GetConfig(s.Ctx, "pub")
	s.Require().NoError(err)
	s.Equal(cfg, *got)
}

func (s *Suite) TestGetConfigNotFound() {
	_, err := s.Storage.GetConfig(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrConfigNotFound)
}

func (s *Suite) TestSaveConfigOverwrites() {
	first := model.DefaultGameConfig()
	s.Require().NoError(s.Storage.SaveConfig(s.Ctx, "pub", first))

	second := first
	second.ExactPoints = 20
	s.Require().NoError(s.Storage.SaveConfig(s.Ctx, "pub", second))

	got, err := s.Storage.GetConfig(s.Ctx, "pub")
	s.Require().NoError(err)
	s.Equal(20, got.ExactPoints)
}
