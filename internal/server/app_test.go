package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/statute-crawler/internal/config"
	"github.com/JakeFAU/statute-crawler/internal/coordinator"
	"github.com/JakeFAU/statute-crawler/internal/scraper"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 8080, ReadTimeoutSeconds: 5},
		Crawler:  config.CrawlerConfig{UserAgent: "StatuteCrawler/1.0 (+https://example.org)", MinDelaySeconds: 2, RobotsTimeoutSeconds: 1},
		HTTP:     config.HTTPConfig{TimeoutSeconds: 1},
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		History:  config.HistoryConfig{DefaultLimit: 20, MaxLimit: 100},
		Jurisdictions: map[string]scraper.SourceConfig{
			"oh": {
				Name:    "Ohio Revised Code",
				BaseURL: "https://codes.ohio.gov",
				Targets: []scraper.Target{{Citation: "Ohio Rev. Code § 2903.02", Path: "/ohio-revised-code/section-2903.02"}},
			},
		},
	}
}

func TestBuildWithMemoryBackend(t *testing.T) {
	t.Parallel()

	app, err := BuildWithLogger(context.Background(), testConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, app.Close(context.Background())) })

	require.NotNil(t, app.Coordinator())
	require.NotNil(t, app.Auditor())
	require.Equal(t, []string{"CA", "FL", "NY", "OH", "TX"}, app.Jurisdictions())

	for _, path := range []string{"/healthz", "/readyz", "/scrape/stats", "/scrape/status/ca"} {
		rec := httptest.NewRecorder()
		app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestBuildRejectsUnknownJurisdiction(t *testing.T) {
	t.Parallel()

	app, err := BuildWithLogger(context.Background(), testConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, app.Close(context.Background())) })

	_, err = app.Coordinator().RunScrape(context.Background(), "zz", coordinator.Options{})
	require.ErrorIs(t, err, coordinator.ErrUnknownJurisdiction)
}

func TestBuildPostgresRequiresValidDSN(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Database = config.DatabaseConfig{Driver: config.DriverPostgres, DSN: "postgres://%zz"}
	_, err := BuildWithLogger(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}
