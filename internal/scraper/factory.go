package scraper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/statute-crawler/internal/clock/system"
	"github.com/JakeFAU/statute-crawler/internal/policy/guard"
	"github.com/JakeFAU/statute-crawler/internal/policy/ratelimit"
)

// Factory builds a fresh Scraper, with its own guard and spacer, for each run.
type Factory struct {
	Registry      *Registry
	Loader        guard.PolicyLoader
	Clock         ratelimit.Clock
	MinDelay      time.Duration
	RequireRobots bool
	Deps          Deps
}

// Runner is one ready-to-run scrape.
type Runner interface {
	Scrape(ctx context.Context) (Summary, error)
}

// BuildOptions adjust how a run is assembled.
type BuildOptions struct {
	// Generic bypasses the dedicated source in favor of the configured generic one.
	Generic    bool
	ScrapeType string
}

// Build resolves jurisdiction and wires a scraper for it.
func (f *Factory) Build(jurisdiction string, opts BuildOptions) (Runner, error) {
	source, err := f.Registry.Resolve(jurisdiction, opts.Generic)
	if err != nil {
		return nil, err
	}
	logger := f.Deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := f.Clock
	if clock == nil {
		clock = system.New()
	}
	spacer := ratelimit.NewSpacer(clock, f.MinDelay, source.BaseURL())
	g, err := guard.New(source.BaseURL(), f.Loader, spacer, logger.Named("guard"),
		guard.WithRequireRobots(f.RequireRobots))
	if err != nil {
		return nil, fmt.Errorf("build guard for %s: %w", source.Jurisdiction(), err)
	}
	deps := f.Deps
	if opts.ScrapeType != "" {
		deps.ScrapeType = opts.ScrapeType
	}
	s, err := New(source, g, deps)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Known reports whether Build can resolve jurisdiction.
func (f *Factory) Known(jurisdiction string) bool {
	return f.Registry.Known(jurisdiction)
}
