// Package robots fetches and evaluates robots.txt directives for a source host.
package robots

import (
	"time"

	"github.com/temoto/robotstxt"
)

// Status describes how confidently a Policy reflects the site's published rules.
type Status string

// Robots lookup outcomes.
const (
	// StatusOK means robots.txt was fetched and parsed.
	StatusOK Status = "ok"
	// StatusMissing means the site answered with a non-2xx status below 500.
	StatusMissing Status = "missing"
	// StatusUnreachable covers network errors and 5xx answers.
	StatusUnreachable Status = "unreachable"
	// StatusInvalid means the body could not be parsed.
	StatusInvalid Status = "invalid"
	// StatusIndeterminate means transient TLS failures exhausted the retry budget.
	StatusIndeterminate Status = "indeterminate"
)

// Policy is the evaluated crawl policy of one host for one user agent.
type Policy struct {
	host   string
	status Status
	reason string
	group  *robotstxt.Group
}

// NewPolicy parses robots.txt content for userAgent. It is exported so tests and
// callers holding cached robots text can build a Policy without a network call.
func NewPolicy(host, userAgent string, body []byte) (*Policy, error) {
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, err //nolint:wrapcheck // parse errors are reported as StatusInvalid by the loader
	}
	return &Policy{
		host:   host,
		status: StatusOK,
		group:  data.FindGroup(userAgent),
	}, nil
}

// AllowAll builds a permissive policy recording why no rules apply.
func AllowAll(host string, status Status, reason string) *Policy {
	return &Policy{host: host, status: status, reason: reason}
}

// Allowed reports whether path (including any query) may be fetched.
func (p *Policy) Allowed(path string) bool {
	if p == nil || p.group == nil {
		return true
	}
	if path == "" {
		path = "/"
	}
	return p.group.Test(path)
}

// CrawlDelay returns the site-requested spacing between requests, or zero.
func (p *Policy) CrawlDelay() time.Duration {
	if p == nil || p.group == nil {
		return 0
	}
	return p.group.CrawlDelay
}

// Host returns the host the policy was loaded for.
func (p *Policy) Host() string {
	if p == nil {
		return ""
	}
	return p.host
}

// Status reports how the policy was obtained.
func (p *Policy) Status() Status {
	if p == nil {
		return StatusUnreachable
	}
	return p.status
}

// Reason carries the fallback explanation when Status is not StatusOK.
func (p *Policy) Reason() string {
	if p == nil {
		return ""
	}
	return p.reason
}

// Degraded reports whether the policy is a permissive fallback rather than published rules.
func (p *Policy) Degraded() bool {
	return p.Status() != StatusOK
}
