// Package server builds the application's dependency graph and runs the HTTP service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/statute-crawler/internal/api"
	"github.com/JakeFAU/statute-crawler/internal/audit"
	"github.com/JakeFAU/statute-crawler/internal/clock/system"
	"github.com/JakeFAU/statute-crawler/internal/config"
	"github.com/JakeFAU/statute-crawler/internal/coordinator"
	collyfetcher "github.com/JakeFAU/statute-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/statute-crawler/internal/id/uuid"
	"github.com/JakeFAU/statute-crawler/internal/logging"
	"github.com/JakeFAU/statute-crawler/internal/metrics"
	"github.com/JakeFAU/statute-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/statute-crawler/internal/policy/retry"
	"github.com/JakeFAU/statute-crawler/internal/policy/robots"
	"github.com/JakeFAU/statute-crawler/internal/scraper"
	"github.com/JakeFAU/statute-crawler/internal/statute"
	memorystore "github.com/JakeFAU/statute-crawler/internal/storage/memory"
	pgstore "github.com/JakeFAU/statute-crawler/internal/storage/postgres"
)

// App contains the application's dependencies.
type App struct {
	cfg         *config.Config
	logger      *zap.Logger
	apiServer   *api.Server
	coordinator *coordinator.Coordinator
	auditor     *audit.Auditor
	registry    *scraper.Registry
	statutes    statute.Store
	sessions    statute.SessionRepository
	db          *pgstore.DB
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return BuildWithLogger(ctx, cfg, logger)
}

// BuildWithLogger is Build with a caller-supplied logger.
func BuildWithLogger(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	metrics.Init()
	app := &App{cfg: cfg, logger: logger}
	app.logger.Info("building application dependencies",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("database_driver", cfg.Database.Driver),
		zap.Bool("require_robots", cfg.Crawler.RequireRobots),
	)

	if err := app.setupStorage(ctx); err != nil {
		return nil, err
	}
	app.setupScraping()
	app.setupAudit()

	var ready api.Pinger
	if app.db != nil {
		ready = app.db
	}
	app.apiServer = api.NewServer(api.Deps{
		Scrapes:  app.coordinator,
		Statutes: app.statutes,
		Auditor:  app.auditor,
		Ready:    ready,
	}, *cfg, logger)

	return app, nil
}

func (a *App) setupStorage(ctx context.Context) error {
	clock := system.New()
	ids := uuid.New()
	switch a.cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := pgstore.Open(ctx, pgstore.Config{
			DSN:             a.cfg.Database.DSN,
			MaxConns:        a.cfg.Database.MaxConns,
			MinConns:        a.cfg.Database.MinConns,
			MaxConnLifetime: time.Duration(a.cfg.Database.MaxConnLifetimeMinutes) * time.Minute,
		})
		if err != nil {
			return fmt.Errorf("postgres init failed: %w", err)
		}
		if a.cfg.Database.AutoMigrate {
			if err := db.EnsureSchema(ctx); err != nil {
				db.Close()
				return fmt.Errorf("postgres schema failed: %w", err)
			}
			a.logger.Info("postgres schema ensured")
		}
		a.db = db
		a.statutes = db.Statutes(clock)
		a.sessions = db.Sessions(clock, ids)
		a.logger.Info("using postgres storage backend")
	default:
		a.statutes = memorystore.NewStatuteStore(clock)
		a.sessions = memorystore.NewSessionStore(clock, ids)
		a.logger.Info("using in-memory storage backend")
	}
	return nil
}

func (a *App) setupScraping() {
	loader := robots.NewLoader(robots.Config{
		UserAgent: a.cfg.Crawler.UserAgent,
		Timeout:   a.cfg.RobotsTimeout(),
	}, a.logger.Named("robots"))
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: a.cfg.Crawler.UserAgent,
		Timeout:   a.cfg.FetchTimeout(),
	})
	a.logger.Info("using colly page fetcher",
		zap.String("user_agent", a.cfg.Crawler.UserAgent),
		zap.Duration("min_delay", a.cfg.MinDelay()),
	)

	a.registry = scraper.NewRegistry(a.cfg.Jurisdictions)
	factory := &scraper.Factory{
		Registry:      a.registry,
		Loader:        loader,
		Clock:         system.New(),
		MinDelay:      a.cfg.MinDelay(),
		RequireRobots: a.cfg.Crawler.RequireRobots,
		Deps: scraper.Deps{
			Fetcher:    fetcher,
			Store:      a.statutes,
			Sessions:   a.sessions,
			Retry:      retry.New(retry.Config{MaxAttempts: a.cfg.Crawler.MaxAttempts}),
			ScrapeType: statute.ScrapeTypeFull,
			Logger:     a.logger.Named("scraper"),
		},
	}
	a.coordinator = coordinator.New(factory, coordinator.NewActiveSet(), a.sessions, coordinator.Config{
		HistoryLimit:    a.cfg.History.DefaultLimit,
		MaxHistoryLimit: a.cfg.History.MaxLimit,
	}, a.logger)
	a.logger.Info("scrapers registered", zap.Strings("jurisdictions", a.registry.Jurisdictions()))
}

func (a *App) setupAudit() {
	loader := robots.NewLoader(robots.Config{
		UserAgent: a.cfg.Crawler.UserAgent,
		Timeout:   a.cfg.RobotsTimeout(),
	}, a.logger.Named("audit_robots"))
	limiter := ratelimit.New(ratelimit.Config{DefaultRPS: a.cfg.Audit.PerHostRPS, DefaultBurst: 1})
	a.auditor = audit.New(audit.Config{
		UserAgent:   a.cfg.Crawler.UserAgent,
		Candidates:  a.cfg.Audit.Candidates,
		Concurrency: a.cfg.Audit.Concurrency,
	}, loader, limiter, a.logger)
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Coordinator returns the scrape coordinator.
func (a *App) Coordinator() *coordinator.Coordinator {
	return a.coordinator
}

// Auditor returns the robots compliance auditor.
func (a *App) Auditor() *audit.Auditor {
	return a.auditor
}

// Jurisdictions lists the jurisdictions that can be scraped.
func (a *App) Jurisdictions() []string {
	return a.registry.Jurisdictions()
}

// RunScrape runs one scrape to completion.
func (a *App) RunScrape(ctx context.Context, jurisdiction string, generic bool) (statute.RunResult, error) {
	result, err := a.coordinator.RunScrape(ctx, jurisdiction, coordinator.Options{Generic: generic})
	if err != nil {
		return result, fmt.Errorf("run scrape: %w", err)
	}
	return result, nil
}

// Audit runs the robots compliance audit.
func (a *App) Audit(ctx context.Context) (audit.Report, error) {
	report, err := a.auditor.Run(ctx)
	if err != nil {
		return audit.Report{}, fmt.Errorf("run audit: %w", err)
	}
	return report, nil
}

// Handler returns the HTTP handler for the API.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run starts the HTTP server and blocks until the context is canceled or a
// termination signal arrives. Callers release the remaining services with Close.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application started")
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	return nil
}

// ShutdownTimeout bounds how long shutdown waits for requests and scrapes to drain.
func (a *App) ShutdownTimeout() time.Duration {
	if a.cfg.Server.ShutdownTimeoutSeconds > 0 {
		return time.Duration(a.cfg.Server.ShutdownTimeoutSeconds) * time.Second
	}
	return 10 * time.Second
}

// Close cancels in-flight scrapes, waits for their final session writes, and
// releases the database pool.
func (a *App) Close(ctx context.Context) error {
	var closeErr error
	if a.coordinator != nil {
		if err := a.coordinator.Shutdown(ctx); err != nil {
			a.logger.Warn("scrapes did not stop before shutdown deadline", zap.Error(err))
			closeErr = err
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	return closeErr
}
