// Package guard combines robots.txt compliance and request spacing for one scraper instance.
package guard

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/statute-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/statute-crawler/internal/policy/robots"
)

// ErrPolicyViolation matches every *PolicyViolationError.
var ErrPolicyViolation = errors.New("crawl policy violation")

// ErrForeignHost is returned when a URL does not belong to the guarded source.
var ErrForeignHost = errors.New("url outside guarded host")

// PolicyViolationError reports a fetch the site's crawl policy forbids.
type PolicyViolationError struct {
	URL    string
	Reason string
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("crawl policy violation for %s: %s", e.URL, e.Reason)
}

// Is lets errors.Is(err, ErrPolicyViolation) match.
func (e *PolicyViolationError) Is(target error) bool {
	return target == ErrPolicyViolation
}

// PolicyLoader retrieves the robots policy for a base URL.
type PolicyLoader interface {
	Load(ctx context.Context, baseURL string) (*robots.Policy, error)
}

// Option customizes a Guard.
type Option func(*Guard)

// WithPolicy seeds the memoized policy so no robots.txt request is made.
func WithPolicy(p *robots.Policy) Option {
	return func(g *Guard) {
		g.once.Do(func() {
			g.policy = p
		})
	}
}

// WithRequireRobots makes a missing or unreachable robots.txt a policy violation
// instead of an allow-all fallback.
func WithRequireRobots(require bool) Option {
	return func(g *Guard) {
		g.requireRobots = require
	}
}

// Guard decides whether a fetch may happen and when. The robots policy is loaded
// lazily on first use and kept for the guard's lifetime.
type Guard struct {
	baseURL       string
	host          string
	loader        PolicyLoader
	spacer        *ratelimit.Spacer
	requireRobots bool
	logger        *zap.Logger

	once    sync.Once
	policy  *robots.Policy
	loadErr error
}

// New builds a Guard for the source rooted at baseURL.
func New(
	baseURL string,
	loader PolicyLoader,
	spacer *ratelimit.Spacer,
	logger *zap.Logger,
	opts ...Option,
) (*Guard, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("guard base url %q is invalid", baseURL)
	}
	if spacer == nil {
		return nil, errors.New("guard requires a spacer")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Guard{
		baseURL: baseURL,
		host:    strings.ToLower(parsed.Host),
		loader:  loader,
		spacer:  spacer,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Policy returns the memoized robots policy, loading it on the first call.
func (g *Guard) Policy(ctx context.Context) (*robots.Policy, error) {
	g.once.Do(func() {
		if g.loader == nil {
			g.loadErr = errors.New("guard has no policy loader")
			return
		}
		g.policy, g.loadErr = g.loader.Load(ctx, g.baseURL)
	})
	if g.loadErr != nil {
		return nil, fmt.Errorf("load robots policy: %w", g.loadErr)
	}
	if delay := g.policy.CrawlDelay(); delay > 0 {
		g.spacer.Raise(delay)
	}
	return g.policy, nil
}

// CheckAllowed returns nil when rawURL may be fetched, a *PolicyViolationError
// when the policy forbids it, or another error when the check itself failed.
func (g *Guard) CheckAllowed(ctx context.Context, rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse target url: %w", err)
	}
	if !strings.EqualFold(parsed.Host, g.host) {
		return fmt.Errorf("%w: %s", ErrForeignHost, rawURL)
	}
	policy, err := g.Policy(ctx)
	if err != nil {
		return err
	}
	if g.requireRobots && policy.Degraded() {
		return &PolicyViolationError{
			URL:    rawURL,
			Reason: fmt.Sprintf("robots.txt %s (%s) and compliance requires it", policy.Status(), policy.Reason()),
		}
	}
	if !policy.Allowed(parsed.RequestURI()) {
		g.logger.Warn("fetch disallowed by robots.txt", zap.String("url", rawURL))
		return &PolicyViolationError{URL: rawURL, Reason: "disallowed by robots.txt"}
	}
	return nil
}

// WaitForSlot blocks until the next request from this guard may start.
func (g *Guard) WaitForSlot(ctx context.Context) error {
	if err := g.spacer.Wait(ctx); err != nil {
		return fmt.Errorf("wait for fetch slot: %w", err)
	}
	return nil
}

// MinDelay reports the effective spacing, including any crawl-delay already applied.
func (g *Guard) MinDelay() time.Duration {
	return g.spacer.MinDelay()
}
