package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/statute-crawler/internal/metrics"
)

const (
	robotsTxtPath      = "/robots.txt"
	maxRobotsBodyBytes = 512 * 1024
	defaultTimeout     = 10 * time.Second
)

// Config controls how robots.txt is retrieved.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// Transport overrides the base round tripper (tests use httptest transports).
	Transport http.RoundTripper
}

// Loader retrieves robots.txt and turns it into a Policy. It holds no cache;
// callers that need "fetch once per run" semantics memoize the returned Policy.
type Loader struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// NewLoader builds a Loader.
func NewLoader(cfg Config, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Loader{
		client: &http.Client{
			Timeout:   timeout,
			Transport: newRetryTransport(cfg.Transport),
		},
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// UserAgent returns the agent the loader evaluates rules for.
func (l *Loader) UserAgent() string {
	return l.userAgent
}

// Load fetches robots.txt relative to baseURL. Retrieval problems never fail the
// call: they yield a permissive policy whose Status explains the degradation, and
// the event is logged and counted. Only a malformed baseURL is an error.
func (l *Loader) Load(ctx context.Context, baseURL string) (*Policy, error) {
	robotsURL, host, err := robotsLocation(baseURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("new robots request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return l.fallback(host, StatusUnreachable, err.Error()), nil
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			l.logger.Debug("failed to close robots response body", zap.Error(cerr))
		}
	}()

	if reason := resp.Header.Get(fallbackHeader); reason != "" {
		return l.fallback(host, StatusIndeterminate, reason), nil
	}
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return l.fallback(host, StatusUnreachable, fmt.Sprintf("status %d", resp.StatusCode)), nil
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return l.fallback(host, StatusMissing, fmt.Sprintf("status %d", resp.StatusCode)), nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBodyBytes))
	if err != nil {
		return l.fallback(host, StatusUnreachable, fmt.Sprintf("read body: %v", err)), nil
	}
	policy, err := NewPolicy(host, l.userAgent, body)
	if err != nil {
		return l.fallback(host, StatusInvalid, fmt.Sprintf("parse: %v", err)), nil
	}
	l.logger.Debug("robots policy loaded",
		zap.String("host", host),
		zap.Duration("crawl_delay", policy.CrawlDelay()),
	)
	return policy, nil
}

func (l *Loader) fallback(host string, status Status, reason string) *Policy {
	l.logger.Warn("robots.txt unavailable; allowing access with reduced confidence",
		zap.String("host", host),
		zap.String("status", string(status)),
		zap.String("reason", reason),
	)
	metrics.ObserveRobotsFallback(host, string(status))
	return AllowAll(host, status, reason)
}

func robotsLocation(baseURL string) (string, string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", "", fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return "", "", fmt.Errorf("base url %q has no host", baseURL)
	}
	scheme := parsed.Scheme
	if scheme == "" {
		scheme = "https"
	}
	host := strings.ToLower(parsed.Host)
	return scheme + "://" + host + robotsTxtPath, host, nil
}

// RequestPath returns the path-plus-query form robots rules are matched against.
func RequestPath(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	return parsed.RequestURI(), nil
}
