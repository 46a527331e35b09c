package mocks

import (
	"sync"
	"time"

	"github.com/mcoot/yeargame/internal/dependencies/clock"
)

// MockClock is a mock implementation of Clock for testing.
// Timers fire synchronously inside Advance or Set once their deadline is reached.
type MockClock struct {
	mu      sync.Mutex
	current time.Time
	timers  []*MockTimer
}

// Ensure MockClock implements Clock
var _ clock.Clock = (*MockClock)(nil)

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{current: t}
}

// Now returns the mocked current time
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// AfterFunc registers f to run when the clock is advanced past now+d
func (c *MockClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &MockTimer{deadline: c.current.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by the given duration
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
	c.fireDue()
}

// Set sets the clock to the given time
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
	c.fireDue()
}

// PendingTimers returns the number of timers that have neither fired nor been stopped
func (c *MockClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, t := range c.timers {
		if t.pending() {
			count++
		}
	}
	return count
}

func (c *MockClock) fireDue() {
	c.mu.Lock()
	var due []*MockTimer
	remaining := c.timers[:0]
	for _, t := range c.timers {
		if !t.pending() {
			continue
		}
		if !c.current.Before(t.deadline) {
			due = append(due, t)
			continue
		}
		remaining = append(remaining, t)
	}
	c.timers = remaining
	c.mu.Unlock()

	// Run outside the lock so callbacks may read the clock or schedule new timers
	for _, t := range due {
		if t.markFired() {
			t.fn()
		}
	}
}

// MockTimer is a timer created by MockClock.AfterFunc
type MockTimer struct {
	mu       sync.Mutex
	deadline time.Time
	fn       func()
	done     bool
}

// Stop cancels the timer
func (t *MockTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

func (t *MockTimer) pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.done
}

func (t *MockTimer) markFired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}
