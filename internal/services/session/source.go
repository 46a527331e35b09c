package session

import (
	"context"
	"fmt"
	"slices"

	"github.com/mcoot/yeargame/internal/model"
)

// roundSource exposes one session incarnation's pool to the arbiter
type roundSource struct {
	c         *Controller
	tenant    model.TenantID
	sessionID model.SessionID
}

func (r *roundSource) Available(ctx context.Context) ([]model.Song, error) {
	var songs []model.Song
	err := r.c.view(ctx, r.tenant, func(s *model.GameSession) error {
		if s.ID != r.sessionID {
			return model.ErrSessionReplaced
		}
		if s.Status == model.SessionStatusGameEnded {
			return model.ErrGameEnded
		}
		songs = slices.Clone(s.Available)
		return nil
	})
	return songs, err
}

func (r *roundSource) Retire(ctx context.Context, song model.Song) (*model.Round, error) {
	var round model.Round
	err := r.c.update(ctx, r.tenant, func(s *model.GameSession, ts *tenantState, ch *change) error {
		if s.ID != r.sessionID {
			return model.ErrSessionReplaced
		}
		if s.Status == model.SessionStatusGameEnded {
			return model.ErrGameEnded
		}
		i := s.AvailableIndex(song.URI)
		if i < 0 {
			return fmt.Errorf("%w: song %s was already played", model.ErrStateConflict, song.URI)
		}

		if s.Round.IsActive() {
			r.c.endRound(s, ts, ch, false)
		}

		s.Retire(i)
		// Played keeps the enriched song so history shows what was announced
		s.Played[len(s.Played)-1] = song
		round = *r.c.openRound(s, ts, ch, song)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &round, nil
}
