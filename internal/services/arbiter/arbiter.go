// Package arbiter picks the next song for a session with exclusive access to its pool.
package arbiter

import (
	"context"
	"log/slog"

	"github.com/mcoot/yeargame/internal/dependencies/random"
	"github.com/mcoot/yeargame/internal/model"
	"github.com/mcoot/yeargame/internal/services/catalog"
)

// Source is the pool the arbiter selects from
type Source interface {
	// Available returns a snapshot of the songs not yet played
	Available(ctx context.Context) ([]model.Song, error)

	// Retire commits the selection: the song leaves the pool and a new round opens for it.
	// It must fail if the pool changed identity since the snapshot was taken.
	Retire(ctx context.Context, song model.Song) (*model.Round, error)
}

// Arbiter serializes pick-and-retire for one session. Waiters are admitted in arrival order.
type Arbiter struct {
	catalog catalog.Provider
	random  random.Random
	logger  *slog.Logger

	sem chan struct{}
}

// New creates a new Arbiter. catalog may be nil, in which case songs are used as pooled.
func New(catalog catalog.Provider, random random.Random, logger *slog.Logger) *Arbiter {
	return &Arbiter{
		catalog: catalog,
		random:  random,
		logger:  logger.With(slog.String("component", "arbiter")),
		sem:     make(chan struct{}, 1),
	}
}

// Select picks one song uniformly at random from the source, enriches it with
// catalog metadata and retires it. Only one Select runs at a time per Arbiter.
func (a *Arbiter) Select(ctx context.Context, source Source) (*model.Round, error) {
	select {
	case a.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-a.sem }()

	pool, err := source.Available(ctx)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, model.ErrPlaylistExhausted
	}

	song := pool[a.random.Intn(len(pool))]
	song = a.enrich(ctx, song)

	// A caller that gave up while metadata loaded retires nothing
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return source.Retire(ctx, song)
}

func (a *Arbiter) enrich(ctx context.Context, song model.Song) model.Song {
	if a.catalog == nil {
		return song
	}
	meta, err := a.catalog.TrackMetadata(ctx, song.URI)
	if err != nil {
		a.logger.Warn("track metadata unavailable, using pool data",
			slog.String("uri", song.URI),
			slog.String("error", err.Error()),
		)
		return song
	}
	return song.Enrich(meta)
}
