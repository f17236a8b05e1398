// Package audit batch-checks robots.txt for candidate statute sources and
// reports which of them may be scraped.
package audit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/statute-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/statute-crawler/internal/policy/robots"
)

const defaultConcurrency = 4

// Candidate is a source considered for scraping.
type Candidate struct {
	Name         string `json:"name" mapstructure:"name"`
	Jurisdiction string `json:"jurisdiction,omitempty" mapstructure:"jurisdiction"`
	BaseURL      string `json:"base_url" mapstructure:"base_url"`
	TestPath     string `json:"test_path" mapstructure:"test_path"`
}

// DefaultCandidates are the sources reviewed when no list is configured.
func DefaultCandidates() []Candidate {
	return []Candidate{
		{Name: "California Legislative Information", Jurisdiction: "CA", BaseURL: "https://leginfo.legislature.ca.gov", TestPath: "/faces/codes_displaySection.xhtml?lawCode=PEN&sectionNum=187."},
		{Name: "Texas Constitution and Statutes", Jurisdiction: "TX", BaseURL: "https://statutes.capitol.texas.gov", TestPath: "/Docs/PE/htm/PE.19.htm"},
		{Name: "Florida Online Sunshine", Jurisdiction: "FL", BaseURL: "https://www.leg.state.fl.us", TestPath: "/statutes/index.cfm?App_mode=Display_Statute&URL=0700-0799/0782/Sections/0782.04.html"},
		{Name: "New York LBDC Public Laws", Jurisdiction: "NY", BaseURL: "https://public.leginfo.state.ny.us", TestPath: "/lawssrch.cgi?NVLWO:"},
		{Name: "New York Senate Open Legislation", Jurisdiction: "NY", BaseURL: "https://www.nysenate.gov", TestPath: "/legislation/laws/PEN/125.25"},
		{Name: "Justia US Law", BaseURL: "https://law.justia.com", TestPath: "/codes/california/code-pen/"},
		{Name: "Cornell Legal Information Institute", BaseURL: "https://www.law.cornell.edu", TestPath: "/uscode/text/18/1111"},
		{Name: "FindLaw Codes", BaseURL: "https://codes.findlaw.com", TestPath: "/ca/penal-code/pen-sect-187.html"},
	}
}

// Result is one row of the audit table.
type Result struct {
	Candidate
	Allowed           bool          `json:"allowed"`
	RobotsStatus      robots.Status `json:"robots_status"`
	Reason            string        `json:"reason,omitempty"`
	CrawlDelaySeconds float64       `json:"crawl_delay_seconds,omitempty"`
	Recommendation    string        `json:"recommendation,omitempty"`
}

// Report aggregates every result.
type Report struct {
	GeneratedAt     time.Time `json:"generated_at"`
	UserAgent       string    `json:"user_agent"`
	Results         []Result  `json:"results"`
	Allowed         int       `json:"allowed"`
	Disallowed      int       `json:"disallowed"`
	Recommendations []string  `json:"recommendations"`
}

// PolicyLoader retrieves a robots policy.
type PolicyLoader interface {
	Load(ctx context.Context, baseURL string) (*robots.Policy, error)
}

// Config controls an Auditor.
type Config struct {
	UserAgent   string
	Candidates  []Candidate
	Concurrency int
}

// Auditor checks candidates against their robots.txt without fetching any content.
type Auditor struct {
	loader  PolicyLoader
	limiter *ratelimit.Limiter
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
}

// New builds an Auditor. A nil limiter applies no per-host pacing.
func New(cfg Config, loader PolicyLoader, limiter *ratelimit.Limiter, logger *zap.Logger) *Auditor {
	if len(cfg.Candidates) == 0 {
		cfg.Candidates = DefaultCandidates()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if limiter == nil {
		limiter = ratelimit.New(ratelimit.Config{})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auditor{
		loader:  loader,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger.Named("audit"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run checks every candidate. Only context cancellation fails the whole audit;
// a candidate that cannot be checked is reported as disallowed.
func (a *Auditor) Run(ctx context.Context) (Report, error) {
	results := make([]Result, len(a.cfg.Candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Concurrency)
	for i, candidate := range a.cfg.Candidates {
		g.Go(func() error {
			if err := a.limiter.Wait(gctx, candidate.BaseURL); err != nil {
				return fmt.Errorf("rate limit %s: %w", candidate.BaseURL, err)
			}
			results[i] = a.check(gctx, candidate)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return Report{}, fmt.Errorf("audit canceled: %w", err)
	}

	report := Report{
		GeneratedAt:     a.now(),
		UserAgent:       a.cfg.UserAgent,
		Results:         results,
		Recommendations: []string{},
	}
	for _, r := range results {
		if r.Allowed {
			report.Allowed++
		} else {
			report.Disallowed++
		}
		if r.Recommendation != "" {
			report.Recommendations = append(report.Recommendations, r.Recommendation)
		}
	}
	a.logger.Info("robots audit finished",
		zap.Int("allowed", report.Allowed),
		zap.Int("disallowed", report.Disallowed),
	)
	return report, nil
}

func (a *Auditor) check(ctx context.Context, c Candidate) Result {
	result := Result{Candidate: c}
	policy, err := a.loader.Load(ctx, c.BaseURL)
	if err != nil {
		result.RobotsStatus = robots.StatusInvalid
		result.Reason = err.Error()
		result.Recommendation = fmt.Sprintf("%s: could not evaluate robots.txt (%v); fix the base URL before scraping", c.Name, err)
		return result
	}
	result.RobotsStatus = policy.Status()
	result.Reason = policy.Reason()
	result.CrawlDelaySeconds = policy.CrawlDelay().Seconds()
	result.Allowed = policy.Allowed(c.TestPath)

	switch {
	case !result.Allowed:
		result.Recommendation = fmt.Sprintf(
			"%s disallows %s: use existing seed data or pursue a licensed/bulk API", c.Name, c.TestPath)
	case policy.Degraded():
		result.Recommendation = fmt.Sprintf(
			"%s: robots.txt %s, allowed by default; confirm the site's crawl policy before relying on it",
			c.Name, policy.Status())
	}
	a.logger.Debug("candidate checked",
		zap.String("candidate", c.Name),
		zap.Bool("allowed", result.Allowed),
		zap.String("robots_status", string(result.RobotsStatus)),
	)
	return result
}
