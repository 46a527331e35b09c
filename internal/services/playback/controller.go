// Package playback starts songs on the host's playback device.
package playback

import (
	"context"
	"log/slog"
	"sync"
)

// Controller starts playing a track on a device
type Controller interface {
	Play(ctx context.Context, device, uri string) error
}

// Logging is a Controller that records requests instead of driving a real player
type Logging struct {
	logger *slog.Logger

	mu     sync.Mutex
	played []string
}

// Ensure Logging implements Controller
var _ Controller = (*Logging)(nil)

// NewLogging creates a Logging controller
func NewLogging(logger *slog.Logger) *Logging {
	return &Logging{logger: logger.With(slog.String("component", "playback"))}
}

// Play implements Controller
func (p *Logging) Play(ctx context.Context, device, uri string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.played = append(p.played, uri)
	p.mu.Unlock()

	p.logger.Info("play requested",
		slog.String("device", device),
		slog.String("uri", uri),
	)
	return nil
}

// Played returns every URI requested so far, in order
func (p *Logging) Played() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.played...)
}
