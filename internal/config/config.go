// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/statute-crawler/internal/audit"
	"github.com/JakeFAU/statute-crawler/internal/scraper"
)

// Database drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

const minDelayFloorSeconds = 2

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server        ServerConfig                    `mapstructure:"server"`
	Auth          AuthConfig                      `mapstructure:"auth"`
	Crawler       CrawlerConfig                   `mapstructure:"crawler"`
	HTTP          HTTPConfig                      `mapstructure:"http"`
	Database      DatabaseConfig                  `mapstructure:"database"`
	Logging       LoggingConfig                   `mapstructure:"logging"`
	Audit         AuditConfig                     `mapstructure:"audit"`
	History       HistoryConfig                   `mapstructure:"history"`
	Jurisdictions map[string]scraper.SourceConfig `mapstructure:"jurisdictions"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                   int `mapstructure:"port"`
	ReadTimeoutSeconds     int `mapstructure:"read_timeout_seconds"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CrawlerConfig governs how statute sites are approached.
type CrawlerConfig struct {
	UserAgent            string  `mapstructure:"user_agent"`
	MinDelaySeconds      float64 `mapstructure:"min_delay_seconds"`
	RequireRobots        bool    `mapstructure:"require_robots"`
	RobotsTimeoutSeconds int     `mapstructure:"robots_timeout_seconds"`
	MaxAttempts          int     `mapstructure:"max_attempts"`
}

// HTTPConfig configures the page fetcher.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// DatabaseConfig selects and tunes the persistence backend.
type DatabaseConfig struct {
	Driver                 string `mapstructure:"driver"`
	DSN                    string `mapstructure:"dsn"`
	MaxConns               int32  `mapstructure:"max_conns"`
	MinConns               int32  `mapstructure:"min_conns"`
	MaxConnLifetimeMinutes int    `mapstructure:"max_conn_lifetime_minutes"`
	AutoMigrate            bool   `mapstructure:"auto_migrate"`
}

// LoggingConfig toggles zap development features and the minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// AuditConfig controls the robots compliance audit.
type AuditConfig struct {
	Concurrency int               `mapstructure:"concurrency"`
	PerHostRPS  float64           `mapstructure:"per_host_rps"`
	Candidates  []audit.Candidate `mapstructure:"candidates"`
}

// HistoryConfig bounds session history queries.
type HistoryConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STATUTES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.shutdown_timeout_seconds", 30)
	v.SetDefault("crawler.user_agent", "StatuteCrawler/1.0 (+https://github.com/JakeFAU/statute-crawler)")
	v.SetDefault("crawler.min_delay_seconds", minDelayFloorSeconds)
	v.SetDefault("crawler.require_robots", false)
	v.SetDefault("crawler.robots_timeout_seconds", 10)
	v.SetDefault("crawler.max_attempts", 3)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("database.driver", DriverMemory)
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("audit.concurrency", 4)
	v.SetDefault("audit.per_host_rps", 1)
	v.SetDefault("history.default_limit", 20)
	v.SetDefault("history.max_limit", 100)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if !hasContact(c.Crawler.UserAgent) {
		return fmt.Errorf("crawler.user_agent must include a contact URL or email")
	}
	if c.Crawler.MinDelaySeconds < minDelayFloorSeconds {
		return fmt.Errorf("crawler.min_delay_seconds must be >= %d", minDelayFloorSeconds)
	}
	if c.Crawler.MaxAttempts < 0 {
		return fmt.Errorf("crawler.max_attempts must be >= 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn must be set when database.driver is postgres")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverMemory, DriverPostgres, c.Database.Driver)
	}
	if c.History.DefaultLimit <= 0 || c.History.MaxLimit < c.History.DefaultLimit {
		return fmt.Errorf("history.default_limit must be > 0 and <= history.max_limit")
	}
	for code, src := range c.Jurisdictions {
		if len(src.Targets) > 0 && src.BaseURL == "" {
			return fmt.Errorf("jurisdictions.%s.base_url is required when targets are listed", code)
		}
		for i, target := range src.Targets {
			if target.Citation == "" || target.Path == "" {
				return fmt.Errorf("jurisdictions.%s.targets[%d] needs citation and path", code, i)
			}
		}
	}
	return nil
}

func hasContact(userAgent string) bool {
	return strings.Contains(userAgent, "http") || strings.Contains(userAgent, "@")
}

// MinDelay is the per-scraper request spacing floor.
func (c Config) MinDelay() time.Duration {
	return time.Duration(c.Crawler.MinDelaySeconds * float64(time.Second))
}

// FetchTimeout bounds a single page fetch.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// RobotsTimeout bounds a single robots.txt retrieval.
func (c Config) RobotsTimeout() time.Duration {
	return time.Duration(c.Crawler.RobotsTimeoutSeconds) * time.Second
}
