// Package coordinator is the entry point for scrape runs: it enforces one run per
// jurisdiction, picks the scraper, and reports a uniform result.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/statute-crawler/internal/metrics"
	"github.com/JakeFAU/statute-crawler/internal/scraper"
	"github.com/JakeFAU/statute-crawler/internal/statute"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

var (
	// ErrAlreadyRunning is returned when a jurisdiction already has an active run.
	ErrAlreadyRunning = errors.New("scrape already in progress")
	// ErrUnknownJurisdiction is returned when no scraper can serve a jurisdiction.
	ErrUnknownJurisdiction = scraper.ErrUnknownJurisdiction
	// ErrShuttingDown is returned for runs requested after Shutdown began.
	ErrShuttingDown = errors.New("coordinator shutting down")
)

// Builder assembles a runnable scrape for a jurisdiction.
type Builder interface {
	Build(jurisdiction string, opts scraper.BuildOptions) (scraper.Runner, error)
}

// Options adjust a single run.
type Options struct {
	Generic    bool
	ScrapeType string
}

// Config tunes read operations.
type Config struct {
	HistoryLimit    int
	MaxHistoryLimit int
}

// Coordinator starts and observes scrape runs.
type Coordinator struct {
	builder  Builder
	active   *ActiveSet
	sessions statute.SessionReader
	cfg      Config
	logger   *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New builds a Coordinator. active is injected so tests get an isolated set.
func New(builder Builder, active *ActiveSet, sessions statute.SessionReader, cfg Config, logger *zap.Logger) *Coordinator {
	if active == nil {
		active = NewActiveSet()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.MaxHistoryLimit <= 0 {
		cfg.MaxHistoryLimit = maxHistoryLimit
	}
	return &Coordinator{
		builder:  builder,
		active:   active,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger.Named("coordinator"),
	}
}

// RunScrape runs a scrape to completion. The error is non-nil only when the run
// was refused before any work started (ErrUnknownJurisdiction, ErrAlreadyRunning,
// ErrShuttingDown).
func (c *Coordinator) RunScrape(ctx context.Context, jurisdiction string, opts Options) (statute.RunResult, error) {
	if !c.begin() {
		return refusedShutdown(jurisdiction)
	}
	defer c.wg.Done()
	r, result, err := c.admit(ctx, jurisdiction, opts)
	if err != nil {
		return result, err
	}
	return c.execute(r), nil
}

// Trigger admits a run and executes it in the background. The run outlives ctx;
// stop it with Cancel or Shutdown.
func (c *Coordinator) Trigger(ctx context.Context, jurisdiction string, opts Options) (statute.RunResult, error) {
	if !c.begin() {
		return refusedShutdown(jurisdiction)
	}
	r, result, err := c.admit(context.WithoutCancel(ctx), jurisdiction, opts)
	if err != nil {
		c.wg.Done()
		return result, err
	}
	go func() {
		defer c.wg.Done()
		c.execute(r)
	}()
	return statute.RunResult{Success: true, Message: "scrape started for " + r.code}, nil
}

// begin registers a run with the shutdown wait group unless Shutdown has started.
func (c *Coordinator) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.wg.Add(1)
	return true
}

func (c *Coordinator) shuttingDown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func refusedShutdown(jurisdiction string) (statute.RunResult, error) {
	code := strings.ToUpper(strings.TrimSpace(jurisdiction))
	return statute.RunResult{
		Message: fmt.Sprintf("service shutting down, scrape for %s not started", code),
	}, fmt.Errorf("%w: %s", ErrShuttingDown, code)
}

// admission is a run that holds its jurisdiction's slot.
type admission struct {
	code   string
	runner scraper.Runner
	ctx    context.Context
	cancel context.CancelFunc
}

func (c *Coordinator) admit(ctx context.Context, jurisdiction string, opts Options) (*admission, statute.RunResult, error) {
	code := strings.ToUpper(strings.TrimSpace(jurisdiction))
	runner, err := c.builder.Build(code, scraper.BuildOptions{Generic: opts.Generic, ScrapeType: opts.ScrapeType})
	if err != nil {
		if errors.Is(err, scraper.ErrUnknownJurisdiction) {
			return nil, statute.RunResult{
				Message: fmt.Sprintf("no scraper available for jurisdiction %q", code),
			}, fmt.Errorf("%w: %s", ErrUnknownJurisdiction, code)
		}
		return nil, statute.RunResult{
			Message: fmt.Sprintf("could not prepare scrape for %s: %v", code, err),
		}, err
	}
	runCtx, cancel := context.WithCancel(ctx)
	if !c.active.TryAcquire(code, cancel) {
		cancel()
		c.logger.Info("scrape refused, already running", zap.String("jurisdiction", code))
		return nil, statute.RunResult{
			Message: fmt.Sprintf("scrape already in progress for %s", code),
		}, fmt.Errorf("%w: %s", ErrAlreadyRunning, code)
	}
	// Shutdown may have run CancelAll before this slot was registered.
	if c.shuttingDown() {
		c.active.Release(code)
		cancel()
		return nil, statute.RunResult{
			Message: fmt.Sprintf("service shutting down, scrape for %s not started", code),
		}, fmt.Errorf("%w: %s", ErrShuttingDown, code)
	}
	return &admission{code: code, runner: runner, ctx: runCtx, cancel: cancel}, statute.RunResult{}, nil
}

// execute drives the run and always releases the jurisdiction, even on panic.
func (c *Coordinator) execute(r *admission) (result statute.RunResult) {
	code := r.code
	metrics.IncActiveScrapes()
	defer func() {
		if p := recover(); p != nil {
			c.logger.Error("scrape panicked", zap.String("jurisdiction", code), zap.Any("panic", p))
			result = statute.RunResult{Message: fmt.Sprintf("scrape for %s failed unexpectedly: %v", code, p)}
		}
		status := "completed"
		if !result.Success {
			status = "failed"
		}
		metrics.ObserveRun(code, status)
		metrics.DecActiveScrapes()
		c.active.Release(code)
		r.cancel()
	}()

	c.logger.Info("scrape run starting", zap.String("jurisdiction", code))
	summary, err := r.runner.Scrape(r.ctx)
	if err != nil {
		c.logger.Warn("scrape run failed", zap.String("jurisdiction", code), zap.Error(err))
		return statute.RunResult{
			Message:   fmt.Sprintf("scrape failed for %s: %v", code, err),
			SessionID: summary.SessionID,
		}
	}
	return statute.RunResult{
		Success: true,
		Message: fmt.Sprintf("scrape completed for %s: %d succeeded, %d failed",
			code, summary.Succeeded, summary.Failed),
		SessionID: summary.SessionID,
	}
}

// Cancel stops the active run for jurisdiction, reporting whether one existed.
func (c *Coordinator) Cancel(jurisdiction string) bool {
	code := strings.ToUpper(strings.TrimSpace(jurisdiction))
	canceled := c.active.Cancel(code)
	if canceled {
		c.logger.Info("scrape cancel requested", zap.String("jurisdiction", code))
	}
	return canceled
}

// Active lists jurisdictions with a run in flight.
func (c *Coordinator) Active() []string {
	return c.active.List()
}

// Wait blocks until every admitted run has returned.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Shutdown refuses new runs, cancels every active one, and waits for them, or for
// ctx to end.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.active.CancelAll()
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for scrapes: %w", ctx.Err())
	}
}

// Status merges the latest persisted session with the live activity flag.
func (c *Coordinator) Status(ctx context.Context, jurisdiction string) (statute.SessionState, error) {
	code := strings.ToUpper(strings.TrimSpace(jurisdiction))
	state := statute.SessionState{Jurisdiction: code, Active: c.active.IsActive(code)}
	latest, err := c.sessions.Latest(ctx, code)
	switch {
	case err == nil:
		state.Session = &latest
	case !errors.Is(err, statute.ErrNotFound):
		return statute.SessionState{}, fmt.Errorf("load latest session: %w", err)
	}
	return state, nil
}

// History lists recent sessions, newest first. limit <= 0 uses the configured default.
func (c *Coordinator) History(ctx context.Context, jurisdiction string, limit int) ([]statute.Session, error) {
	if limit <= 0 {
		limit = c.cfg.HistoryLimit
	}
	limit = min(limit, c.cfg.MaxHistoryLimit)
	sessions, err := c.sessions.History(ctx, strings.ToUpper(strings.TrimSpace(jurisdiction)), limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Stats aggregates all persisted sessions.
func (c *Coordinator) Stats(ctx context.Context) (statute.Stats, error) {
	stats, err := c.sessions.Stats(ctx)
	if err != nil {
		return statute.Stats{}, fmt.Errorf("aggregate sessions: %w", err)
	}
	return stats, nil
}
