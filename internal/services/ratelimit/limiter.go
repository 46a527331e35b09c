// Package ratelimit throttles inbound actions per actor with a sliding window.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/yeargame/internal/dependencies/clock"
	"github.com/mcoot/yeargame/internal/model"
)

// Checker is the shared contract of every limiter backend
type Checker interface {
	// CheckLimit records an attempt for key, or returns a *model.RateLimitedError
	// when maxAttempts are already inside the trailing window. maxAttempts <= 0 disables the limit.
	CheckLimit(ctx context.Context, key string, maxAttempts int, window time.Duration) error
}

// Config holds configuration for the in-memory limiter
type Config struct {
	// SweepInterval is how often stale keys are evicted
	SweepInterval time.Duration
	// StaleAfter is how old a key's newest attempt must be before it is evicted
	StaleAfter time.Duration
}

// DefaultConfig returns default limiter configuration
func DefaultConfig() Config {
	return Config{
		SweepInterval: time.Minute,
		StaleAfter:    10 * time.Minute,
	}
}

// Limiter is an in-memory sliding-window limiter
type Limiter struct {
	clock  clock.Clock
	logger *slog.Logger
	cfg    Config

	mu      sync.Mutex
	entries map[string][]time.Time // oldest first

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Ensure Limiter implements Checker
var _ Checker = (*Limiter)(nil)

// New creates a new in-memory Limiter
func New(clock clock.Clock, logger *slog.Logger, cfg Config) *Limiter {
	defaults := DefaultConfig()
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaults.SweepInterval
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = defaults.StaleAfter
	}
	return &Limiter{
		clock:   clock,
		logger:  logger.With(slog.String("component", "ratelimit")),
		cfg:     cfg,
		entries: make(map[string][]time.Time),
	}
}

// CheckLimit implements Checker
func (l *Limiter) CheckLimit(_ context.Context, key string, maxAttempts int, window time.Duration) error {
	if maxAttempts <= 0 {
		return nil
	}
	now := l.clock.Now()
	cutoff := now.Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	attempts := l.entries[key]
	kept := attempts[:0]
	for _, t := range attempts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= maxAttempts {
		l.entries[key] = kept
		return &model.RateLimitedError{
			Key:        key,
			RetryAfter: window - now.Sub(kept[0]),
		}
	}

	l.entries[key] = append(kept, now)
	return nil
}

// Keys returns the number of tracked keys
func (l *Limiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Sweep evicts keys whose newest attempt is older than the staleness threshold
func (l *Limiter) Sweep() int {
	cutoff := l.clock.Now().Add(-l.cfg.StaleAfter)

	l.mu.Lock()
	defer l.mu.Unlock()

	evicted := 0
	for key, attempts := range l.entries {
		if len(attempts) == 0 || !attempts[len(attempts)-1].After(cutoff) {
			delete(l.entries, key)
			evicted++
		}
	}
	return evicted
}

// Run sweeps on every interval of the limiter's clock until ctx is cancelled
func (l *Limiter) Run(ctx context.Context) {
	tick := make(chan struct{}, 1)
	arm := func() clock.Timer {
		return l.clock.AfterFunc(l.cfg.SweepInterval, func() {
			select {
			case tick <- struct{}{}:
			default:
			}
		})
	}

	timer := arm()
	defer func() { timer.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			if n := l.Sweep(); n > 0 {
				l.logger.Debug("evicted stale rate limit keys", slog.Int("count", n))
			}
			timer = arm()
		}
	}
}

// Start launches the sweep loop in the background. Calling it again while running is a no-op.
func (l *Limiter) Start() {
	l.runMu.Lock()
	defer l.runMu.Unlock()
	if l.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done

	go func() {
		defer close(done)
		l.Run(ctx)
	}()
}

// Stop ends the sweep loop and waits for it to exit. Safe to call more than once.
func (l *Limiter) Stop() {
	l.runMu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
