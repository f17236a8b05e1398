package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/statute-crawler/internal/scraper"
)

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
auth:
  enabled: true
  api_key: secret
crawler:
  user_agent: "StatuteCrawler/2.0 (+mailto:legal-data@example.org)"
  min_delay_seconds: 3.5
  require_robots: true
http:
  timeout_seconds: 45
database:
  driver: postgres
  dsn: postgres://statutes@localhost/statutes
  max_conns: 8
logging:
  development: false
  level: warn
audit:
  concurrency: 2
  candidates:
    - name: Ohio Laws
      base_url: https://codes.ohio.gov
      test_path: /ohio-revised-code
jurisdictions:
  oh:
    base_url: https://codes.ohio.gov
    content_selector: ".laws-body"
    targets:
      - citation: "Ohio Rev. Code § 2903.02"
        path: /ohio-revised-code/section-2903.02
        category: homicide
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.True(t, cfg.Auth.Enabled)
	require.True(t, cfg.Crawler.RequireRobots)
	require.Equal(t, 3500*time.Millisecond, cfg.MinDelay())
	require.Equal(t, 45*time.Second, cfg.FetchTimeout())
	require.Equal(t, 10*time.Second, cfg.RobotsTimeout())
	require.Equal(t, DriverPostgres, cfg.Database.Driver)
	require.EqualValues(t, 8, cfg.Database.MaxConns)
	require.Equal(t, "warn", cfg.Logging.Level)
	require.Len(t, cfg.Audit.Candidates, 1)
	require.Equal(t, "/ohio-revised-code", cfg.Audit.Candidates[0].TestPath)
	require.Equal(t, 20, cfg.History.DefaultLimit)

	oh, ok := cfg.Jurisdictions["oh"]
	require.True(t, ok)
	require.Equal(t, ".laws-body", oh.ContentSelector)
	require.Len(t, oh.Targets, 1)
	require.Equal(t, "homicide", oh.Targets[0].Category)
}

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("STATUTES_SERVER_PORT", "7070")
	t.Setenv("STATUTES_CRAWLER_REQUIRE_ROBOTS", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.True(t, cfg.Crawler.RequireRobots)
	require.Equal(t, DriverMemory, cfg.Database.Driver)
	require.Equal(t, 2*time.Second, cfg.MinDelay())
	require.Contains(t, cfg.Crawler.UserAgent, "https://")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:   ServerConfig{Port: 8080},
		Crawler:  CrawlerConfig{UserAgent: "bot (+mailto:a@b.org)", MinDelaySeconds: 2},
		HTTP:     HTTPConfig{TimeoutSeconds: 10},
		Database: DatabaseConfig{Driver: DriverMemory},
		History:  HistoryConfig{DefaultLimit: 20, MaxLimit: 100},
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "invalid port", mutate: func(c *Config) { c.Server.Port = 0 }, want: "server.port"},
		{name: "auth missing api key", mutate: func(c *Config) { c.Auth.Enabled = true }, want: "auth.api_key"},
		{name: "anonymous user agent", mutate: func(c *Config) { c.Crawler.UserAgent = "bot/1.0" }, want: "crawler.user_agent"},
		{name: "delay below floor", mutate: func(c *Config) { c.Crawler.MinDelaySeconds = 0.5 }, want: "crawler.min_delay_seconds"},
		{name: "invalid timeout", mutate: func(c *Config) { c.HTTP.TimeoutSeconds = 0 }, want: "http.timeout_seconds"},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "sqlite" }, want: "database.driver"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Database.Driver = DriverPostgres }, want: "database.dsn"},
		{
			name: "generic without base url",
			mutate: func(c *Config) {
				c.Jurisdictions = map[string]scraper.SourceConfig{
					"oh": {Targets: []scraper.Target{{Citation: "Ohio Rev. Code § 1", Path: "/1"}}},
				}
			},
			want: "jurisdictions.oh.base_url",
		},
		{
			name: "target without path",
			mutate: func(c *Config) {
				c.Jurisdictions = map[string]scraper.SourceConfig{
					"oh": {BaseURL: "https://codes.ohio.gov", Targets: []scraper.Target{{Citation: "Ohio Rev. Code § 1"}}},
				}
			},
			want: "jurisdictions.oh.targets[0]",
		},
		{name: "history bounds", mutate: func(c *Config) { c.History.MaxLimit = 5 }, want: "history.default_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}
