package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/yeargame/internal/config"
	"github.com/mcoot/yeargame/internal/dependencies/clock"
	"github.com/mcoot/yeargame/internal/dependencies/random"
	"github.com/mcoot/yeargame/internal/realtime"
	"github.com/mcoot/yeargame/internal/services/admin"
	"github.com/mcoot/yeargame/internal/services/catalog"
	"github.com/mcoot/yeargame/internal/services/ledger"
	"github.com/mcoot/yeargame/internal/services/playback"
	"github.com/mcoot/yeargame/internal/services/ratelimit"
	"github.com/mcoot/yeargame/internal/services/session"
	"github.com/mcoot/yeargame/internal/storage"
	"github.com/mcoot/yeargame/internal/storage/memory"
	redisstorage "github.com/mcoot/yeargame/internal/storage/redis"
	"github.com/mcoot/yeargame/internal/storage/sqlite"
)

// Backend type constants
const (
	StorageTypeMemory = config.BackendMemory
	StorageTypeRedis  = config.BackendRedis
	StorageTypeSQLite = config.BackendSQLite
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock    clock.Clock
	Random   random.Random
	Catalog  catalog.Provider
	Playback playback.Controller

	// Services
	Admin      *admin.Manager
	Ledger     *ledger.Ledger
	Controller *session.Controller
	HubManager *realtime.HubManager
	Endpoint   *realtime.Endpoint
	Limiter    ratelimit.Checker
	Policies   ratelimit.Policies

	logger  *slog.Logger
	sweeper *ratelimit.Limiter // nil when limits live in redis
	redis   *redis.Client      // owned limiter client, if any
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "sqlite")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if either backend is "redis")
	RedisConfig *redisstorage.Config
	// SQLitePath is the database file (required if StorageType is "sqlite")
	SQLitePath string
	// CatalogPath is a JSON catalog file (optional)
	CatalogPath string
	// RateLimitBackend selects the limiter ("memory" or "redis"), defaulting to "memory"
	RateLimitBackend string
	// Limits holds the rate limit policies; zero value means ratelimit.DefaultPolicies()
	Limits ratelimit.Policies
	// LimiterConfig tunes the in-memory limiter sweep
	LimiterConfig ratelimit.Config
	// AdminConfig holds admin credential settings; zero value means admin.DefaultConfig()
	AdminConfig admin.Config
	// SessionConfig holds session controller settings; zero value means session.DefaultConfig()
	SessionConfig session.Config
	// BroadcastTimeout bounds each per-connection send
	BroadcastTimeout time.Duration
	// PublicURL is the externally reachable base URL; its host is an allowed websocket origin
	PublicURL string
}

// ConfigFrom translates server configuration into factory configuration
func ConfigFrom(cfg *config.Config, logger *slog.Logger) Config {
	fc := Config{
		Logger:           logger,
		StorageType:      cfg.Storage,
		SQLitePath:       cfg.SQLitePath,
		CatalogPath:      cfg.CatalogPath,
		RateLimitBackend: cfg.RateLimitBackend,
		Limits:           cfg.Limits,
		LimiterConfig: ratelimit.Config{
			SweepInterval: cfg.SweepInterval,
			StaleAfter:    cfg.StaleAfter,
		},
		AdminConfig: admin.Config{
			TokenLifetime: admin.DefaultConfig().TokenLifetime,
			HashCost:      cfg.AdminHashCost,
		},
		BroadcastTimeout: cfg.BroadcastTimeout,
		PublicURL:        cfg.PublicURL,
	}
	if cfg.RedisURL != "" {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		fc.RedisConfig = &redisCfg
	}
	return fc
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	cat := catalog.NewStatic()
	if cfg.CatalogPath != "" {
		loaded, err := catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		cat = loaded
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	app := newWithDependencies(store, clk, rnd, cat, playback.NewLogging(logger), cfg, logger)

	switch backend(cfg.RateLimitBackend) {
	case config.BackendMemory:
		app.sweeper = ratelimit.New(clk, logger, cfg.LimiterConfig)
		app.Limiter = app.sweeper
	case config.BackendRedis:
		client, owned, err := limiterClient(cfg, store)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		if owned {
			app.redis = client
		}
		app.Limiter = ratelimit.NewRedis(client, clk)
	default:
		_ = store.Close()
		return nil, errors.New("invalid RateLimitBackend: must be 'memory' or 'redis'")
	}
	app.Endpoint = realtime.NewEndpoint(app.HubManager, app.Limiter, app.Policies, cfg.PublicURL, logger)

	return app, nil
}

func backend(name string) string {
	if name == "" {
		return config.BackendMemory
	}
	return name
}

func newStorage(cfg Config) (storage.Storage, error) {
	switch backend(cfg.StorageType) {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	case StorageTypeSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("SQLitePath required when StorageType is sqlite")
		}
		return sqlite.New(cfg.SQLitePath)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis' or 'sqlite'")
	}
}

// limiterClient reuses the storage connection when sessions also live in redis
func limiterClient(cfg Config, store storage.Storage) (*redis.Client, bool, error) {
	if rs, ok := store.(*redisstorage.Storage); ok {
		return rs.Client(), false, nil
	}
	if cfg.RedisConfig == nil {
		return nil, false, errors.New("RedisConfig required when RateLimitBackend is redis")
	}
	opts, err := redis.ParseURL(cfg.RedisConfig.URL)
	if err != nil {
		return nil, false, fmt.Errorf("invalid redis URL: %w", err)
	}
	return redis.NewClient(opts), true, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing).
// The limiter and websocket endpoint are left for the caller.
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	cat catalog.Provider,
	player playback.Controller,
	cfg Config,
	logger *slog.Logger,
) *App {
	adminCfg := cfg.AdminConfig
	if adminCfg == (admin.Config{}) {
		adminCfg = admin.DefaultConfig()
	}
	sessionCfg := cfg.SessionConfig
	if sessionCfg == (session.Config{}) {
		sessionCfg = session.DefaultConfig()
	}
	policies := cfg.Limits
	if policies == (ratelimit.Policies{}) {
		policies = ratelimit.DefaultPolicies()
	}

	adminManager := admin.New(rnd, adminCfg)
	ledgerService := ledger.New(clk)
	hubManager := realtime.NewHubManager(nil, cfg.BroadcastTimeout, logger)
	controller := session.NewController(store, adminManager, ledgerService, cat, player, hubManager, clk, rnd, logger, sessionCfg)
	hubManager.SetController(controller)

	return &App{
		Storage:    store,
		Clock:      clk,
		Random:     rnd,
		Catalog:    cat,
		Playback:   player,
		Admin:      adminManager,
		Ledger:     ledgerService,
		Controller: controller,
		HubManager: hubManager,
		Policies:   policies,
		logger:     logger,
	}
}

// Start restores persisted sessions and starts background work
func (a *App) Start(ctx context.Context) error {
	if err := a.Controller.Resume(ctx); err != nil {
		return fmt.Errorf("resuming sessions: %w", err)
	}
	if a.sweeper != nil {
		a.sweeper.Start()
	}
	return nil
}

// Close stops background work and releases every resource
func (a *App) Close() error {
	if a.sweeper != nil {
		a.sweeper.Stop()
	}
	a.Controller.Close()
	a.HubManager.CloseAll()

	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.Storage.Close())
	return errors.Join(errs...)
}
