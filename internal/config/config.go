package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"

	"hitokoto/internal/stats"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Environment
	Env string `env:"ENV" envDefault:"development"`

	// Server. SERVER_ADDR wins over HITOKOTO_HOST and HITOKOTO_PORT.
	ServerAddr string `env:"SERVER_ADDR"`
	Host       string `env:"HITOKOTO_HOST" envDefault:"0.0.0.0"`
	Port       int    `env:"HITOKOTO_PORT" envDefault:"8080"`

	// Database. DATABASE_URL wins over HITOKOTO_DB.
	DatabaseURL       string        `env:"DATABASE_URL"`
	LegacyDatabaseURL string        `env:"HITOKOTO_DB"`
	DBMaxConnections  int           `env:"DB_MAX_CONNECTIONS" envDefault:"10"`
	DBConnectTimeout  time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"10s"`
	DBIdleTimeout     time.Duration `env:"DB_IDLE_TIMEOUT" envDefault:"60s"`
	RunMigrations     bool          `env:"RUN_MIGRATIONS"`

	// Corpus
	EnableMemoryMirror   bool          `env:"ENABLE_MEMORY_MIRROR"`
	CacheIdentifiers     bool          `env:"CACHE_IDENTIFIERS" envDefault:"true"`
	CacheRefreshInterval time.Duration `env:"CACHE_REFRESH_INTERVAL"`

	// Request statistics
	StatsWindows   stats.Windows `env:"STATS_WINDOWS" envDefault:"minute:1m,hour:1h,day:24h"`
	StatsMaxEvents int           `env:"STATS_MAX_EVENTS"`
	StatsRedisURL  string        `env:"STATS_REDIS_URL"`

	// Rate limiting, disabled when RateLimitMax is 0
	RateLimitMax      int           `env:"RATE_LIMIT_MAX"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	RateLimitRedisURL string        `env:"RATE_LIMIT_REDIS_URL"`

	// CORS
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`

	// Admin bearer token for /update_count, open when empty
	AdminToken string `env:"ADMIN_TOKEN"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = cfg.LegacyDatabaseURL
	}
	return &cfg, nil
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.DBMaxConnections <= 0 {
		errs = append(errs, errors.New("DB_MAX_CONNECTIONS must be positive"))
	}
	if c.StatsMaxEvents < 0 {
		errs = append(errs, errors.New("STATS_MAX_EVENTS must not be negative"))
	}
	if c.CacheRefreshInterval < 0 {
		errs = append(errs, errors.New("CACHE_REFRESH_INTERVAL must not be negative"))
	}
	if c.RateLimitMax > 0 && c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive when rate limiting is enabled"))
	}
	return errors.Join(errs...)
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}
