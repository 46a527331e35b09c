// Package config loads server configuration from flags, the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mcoot/yeargame/internal/services/admin"
	"github.com/mcoot/yeargame/internal/services/ratelimit"
)

// EnvPrefix prefixes every environment variable, e.g. YEARGAME_REDIS_URL
const EnvPrefix = "YEARGAME"

// Backend names
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config holds the server configuration
type Config struct {
	Host     string
	Port     int
	LogLevel string

	Storage     string
	RedisURL    string
	SQLitePath  string
	CatalogPath string

	RateLimitBackend string
	Limits           ratelimit.Policies
	SweepInterval    time.Duration
	StaleAfter       time.Duration

	PublicURL        string
	BroadcastTimeout time.Duration
	AdminHashCost    int
}

// RegisterFlags defines every configuration flag on fs, writing into cfg
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	defaults := ratelimit.DefaultPolicies()
	limiterDefaults := ratelimit.DefaultConfig()

	fs.StringVar(&cfg.Host, "host", "", "address to bind to (env: YEARGAME_HOST)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: YEARGAME_PORT)")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "debug, info, warn or error (env: YEARGAME_LOG_LEVEL)")

	fs.StringVar(&cfg.Storage, "storage", BackendMemory, "session storage: memory, redis or sqlite (env: YEARGAME_STORAGE)")
	fs.StringVar(&cfg.RedisURL, "redis-url", "", "redis connection URL (env: YEARGAME_REDIS_URL)")
	fs.StringVar(&cfg.SQLitePath, "sqlite-path", "yeargame.db", "sqlite database file (env: YEARGAME_SQLITE_PATH)")
	fs.StringVar(&cfg.CatalogPath, "catalog-path", "", "JSON track catalog to load at startup (env: YEARGAME_CATALOG_PATH)")

	fs.StringVar(&cfg.RateLimitBackend, "rate-limit-backend", BackendMemory, "rate limiter: memory or redis (env: YEARGAME_RATE_LIMIT_BACKEND)")
	fs.IntVar(&cfg.Limits.Join.MaxAttempts, "join-limit", defaults.Join.MaxAttempts, "join attempts per remote address per window, 0 disables (env: YEARGAME_JOIN_LIMIT)")
	fs.DurationVar(&cfg.Limits.Join.Window, "join-window", defaults.Join.Window, "join limit window (env: YEARGAME_JOIN_WINDOW)")
	fs.IntVar(&cfg.Limits.Guess.MaxAttempts, "guess-limit", defaults.Guess.MaxAttempts, "guess and bet attempts per player per window (env: YEARGAME_GUESS_LIMIT)")
	fs.DurationVar(&cfg.Limits.Guess.Window, "guess-window", defaults.Guess.Window, "guess limit window (env: YEARGAME_GUESS_WINDOW)")
	fs.IntVar(&cfg.Limits.Admin.MaxAttempts, "admin-limit", defaults.Admin.MaxAttempts, "admin actions per tenant per window (env: YEARGAME_ADMIN_LIMIT)")
	fs.DurationVar(&cfg.Limits.Admin.Window, "admin-window", defaults.Admin.Window, "admin limit window (env: YEARGAME_ADMIN_WINDOW)")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", limiterDefaults.SweepInterval, "how often idle rate limit keys are evicted (env: YEARGAME_SWEEP_INTERVAL)")
	fs.DurationVar(&cfg.StaleAfter, "stale-after", limiterDefaults.StaleAfter, "idle time before a rate limit key is evicted (env: YEARGAME_STALE_AFTER)")

	fs.StringVar(&cfg.PublicURL, "public-url", "", "externally reachable base URL used in join links (env: YEARGAME_PUBLIC_URL)")
	fs.DurationVar(&cfg.BroadcastTimeout, "broadcast-timeout", 5*time.Second, "per-connection send timeout for broadcasts (env: YEARGAME_BROADCAST_TIMEOUT)")
	fs.IntVar(&cfg.AdminHashCost, "admin-hash-cost", admin.DefaultConfig().HashCost, "bcrypt cost for admin tokens (env: YEARGAME_ADMIN_HASH_COST)")
}

// Load applies an optional .env file and YEARGAME_* environment variables to
// every flag not set on the command line. Missing env files are ignored.
func Load(flags *pflag.FlagSet, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var setErr error
	flags.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			if err := flags.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil && setErr == nil {
				setErr = fmt.Errorf("invalid value for %s: %w", f.Name, err)
			}
		}
	})
	return setErr
}

// Validate checks the configuration is coherent
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}

	switch c.Storage {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return errors.New("--redis-url is required when --storage is redis")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return errors.New("--sqlite-path is required when --storage is sqlite")
		}
	default:
		return fmt.Errorf("invalid storage backend %q: must be memory, redis or sqlite", c.Storage)
	}

	switch c.RateLimitBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return errors.New("--redis-url is required when --rate-limit-backend is redis")
		}
	default:
		return fmt.Errorf("invalid rate limit backend %q: must be memory or redis", c.RateLimitBackend)
	}

	if c.PublicURL != "" {
		u, err := url.Parse(c.PublicURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid public URL %q", c.PublicURL)
		}
	}
	if c.BroadcastTimeout <= 0 {
		return errors.New("--broadcast-timeout must be positive")
	}
	if c.AdminHashCost < 4 || c.AdminHashCost > 31 {
		return fmt.Errorf("invalid admin hash cost (must be between 4-31 inclusive): %d", c.AdminHashCost)
	}
	return nil
}

// SlogLevel parses LogLevel
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}
