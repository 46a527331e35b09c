package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mcoot/yeargame/internal/dependencies/clock"
	"github.com/mcoot/yeargame/internal/model"
	"github.com/mcoot/yeargame/internal/services/arbiter"
)

// tenantState is the per-tenant coordination state that is never persisted
type tenantState struct {
	// mu guards load, mutate and save of the tenant's session
	mu sync.Mutex
	// pubMu keeps events in commit order once mu has been released
	pubMu sync.Mutex

	arbiter *arbiter.Arbiter
	timer   clock.Timer
}

func (t *tenantState) stopTimer() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

type event struct {
	eventType model.EventType
	data      any
}

// change collects what a mutation emits; nothing runs unless the save succeeds
type change struct {
	events []event
	onSave []func()
}

func (ch *change) publish(eventType model.EventType, data any) {
	ch.events = append(ch.events, event{eventType: eventType, data: data})
}

func (ch *change) then(f func()) {
	ch.onSave = append(ch.onSave, f)
}

func (c *Controller) tenant(tenant model.TenantID) *tenantState {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, ok := c.tenants[tenant]
	if !ok {
		ts = &tenantState{
			arbiter: arbiter.New(c.catalog, c.random, c.logger),
		}
		c.tenants[tenant] = ts
	}
	return ts
}

// view runs fn against the current session without saving it
func (c *Controller) view(ctx context.Context, tenant model.TenantID, fn func(s *model.GameSession) error) error {
	ts := c.tenant(tenant)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	session, err := c.load(ctx, tenant)
	if err != nil {
		return err
	}
	return fn(session)
}

// update runs fn against the current session, saves the result and then publishes its events.
// A failing fn or save leaves stored state untouched and publishes nothing.
func (c *Controller) update(ctx context.Context, tenant model.TenantID, fn func(s *model.GameSession, ts *tenantState, ch *change) error) error {
	ts := c.tenant(tenant)
	ts.mu.Lock()

	session, err := c.load(ctx, tenant)
	if err != nil {
		ts.mu.Unlock()
		return err
	}
	return c.commit(ctx, ts, session, fn)
}

// commit must be called with ts.mu held; it releases it
func (c *Controller) commit(ctx context.Context, ts *tenantState, session *model.GameSession, fn func(s *model.GameSession, ts *tenantState, ch *change) error) error {
	ch := &change{}
	if err := fn(session, ts, ch); err != nil {
		ts.mu.Unlock()
		return err
	}

	session.UpdatedAt = c.clock.Now()
	if err := c.storage.SaveSession(ctx, session); err != nil {
		ts.mu.Unlock()
		c.logger.Error("failed to save session",
			slog.String("tenant", string(session.Tenant)),
			slog.String("error", err.Error()),
		)
		return err
	}
	for _, f := range ch.onSave {
		f()
	}

	ts.pubMu.Lock()
	ts.mu.Unlock()
	defer ts.pubMu.Unlock()
	for _, e := range ch.events {
		c.publisher.Publish(context.WithoutCancel(ctx), session.Tenant, e.eventType, e.data)
	}
	return nil
}

func (c *Controller) load(ctx context.Context, tenant model.TenantID) (*model.GameSession, error) {
	session, err := c.storage.GetSession(ctx, tenant)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			return nil, model.ErrGameNotStarted
		}
		return nil, err
	}
	return session, nil
}
