package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/yeargame/internal/dependencies/mocks"
	"github.com/mcoot/yeargame/internal/realtime"
	"github.com/mcoot/yeargame/internal/services/admin"
	"github.com/mcoot/yeargame/internal/services/catalog"
	"github.com/mcoot/yeargame/internal/services/playback"
	"github.com/mcoot/yeargame/internal/services/ratelimit"
	"github.com/mcoot/yeargame/internal/storage/memory"
	"github.com/mcoot/yeargame/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock    *mocks.MockClock
	MockRandom   *mocks.MockRandom
	MockCatalog  *catalog.Static
	MockPlayback *playback.Logging
	MockLimiter  *ratelimit.Limiter
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithLimits(ratelimit.DefaultPolicies())
}

// NewTestAppWithLimits creates a test App with the given rate limit policies
func NewTestAppWithLimits(policies ratelimit.Policies) *TestApp {
	logger := testutil.NopLogger()
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	mockCatalog := catalog.NewStatic()
	mockPlayback := playback.NewLogging(logger)

	cfg := Config{
		Limits: policies,
		AdminConfig: admin.Config{
			TokenLifetime: admin.DefaultConfig().TokenLifetime,
			HashCost:      bcrypt.MinCost,
		},
		BroadcastTimeout: time.Second,
	}
	app := newWithDependencies(store, mockClock, mockRandom, mockCatalog, mockPlayback, cfg, logger)

	limiter := ratelimit.New(mockClock, logger, ratelimit.DefaultConfig())
	app.sweeper = limiter
	app.Limiter = limiter
	app.Endpoint = realtime.NewEndpoint(app.HubManager, limiter, app.Policies, "https://party.example.com", logger)

	return &TestApp{
		App:          app,
		MockClock:    mockClock,
		MockRandom:   mockRandom,
		MockCatalog:  mockCatalog,
		MockPlayback: mockPlayback,
		MockLimiter:  limiter,
	}
}
