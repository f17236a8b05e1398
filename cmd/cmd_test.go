package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/statute-crawler/internal/audit"
	"github.com/JakeFAU/statute-crawler/internal/policy/robots"
	"github.com/JakeFAU/statute-crawler/internal/statute"
)

type fakeApp struct {
	scrapeResult statute.RunResult
	scrapeErr    error
	report       audit.Report

	ran            bool
	closed         bool
	scrapedCode    string
	scrapedGeneric bool
}

func (f *fakeApp) Run(context.Context) error {
	f.ran = true
	return nil
}

func (f *fakeApp) Close(context.Context) error {
	f.closed = true
	return nil
}

func (f *fakeApp) ShutdownTimeout() time.Duration { return time.Second }

func (f *fakeApp) RunScrape(_ context.Context, jurisdiction string, generic bool) (statute.RunResult, error) {
	f.scrapedCode = jurisdiction
	f.scrapedGeneric = generic
	return f.scrapeResult, f.scrapeErr
}

func (f *fakeApp) Audit(context.Context) (audit.Report, error) {
	return f.report, nil
}

func (f *fakeApp) Jurisdictions() []string {
	return []string{"CA", "FL", "NY", "TX"}
}

// execute runs the root command against app. Not parallel: newApp is package state.
func execute(t *testing.T, app *fakeApp, args ...string) (string, error) {
	t.Helper()

	original := newApp
	t.Cleanup(func() { newApp = original })
	var gotPath string
	newApp = func(_ context.Context, cfgPath string) (App, error) {
		gotPath = cfgPath
		return app, nil
	}

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	if gotPath != "" {
		out.WriteString("config=" + gotPath + "\n")
	}
	return out.String(), err
}

func TestScrapeCommandPrintsResult(t *testing.T) {
	app := &fakeApp{scrapeResult: statute.RunResult{
		Success:   true,
		Message:   "scrape completed for CA: 8 succeeded, 0 failed",
		SessionID: "0190b6a8-0000-7000-8000-000000000001",
	}}

	out, err := execute(t, app, "scrape", "ca", "--generic", "--config", "statutes.yaml")

	require.NoError(t, err)
	require.Equal(t, "ca", app.scrapedCode)
	require.True(t, app.scrapedGeneric)
	require.True(t, app.closed)
	require.Contains(t, out, "8 succeeded")
	require.Contains(t, out, "session: 0190b6a8-0000-7000-8000-000000000001")
	require.Contains(t, out, "config=statutes.yaml")
}

func TestScrapeCommandFailedRun(t *testing.T) {
	app := &fakeApp{scrapeResult: statute.RunResult{Message: "scrape failed for TX: policy violation"}}

	out, err := execute(t, app, "scrape", "tx")

	require.Error(t, err)
	require.Contains(t, out, "policy violation")
}

func TestScrapeCommandRefused(t *testing.T) {
	app := &fakeApp{
		scrapeResult: statute.RunResult{Message: `no scraper available for jurisdiction "ZZ"`},
		scrapeErr:    errors.New("unknown jurisdiction: ZZ"),
	}

	_, err := execute(t, app, "scrape", "zz")

	require.ErrorContains(t, err, "no scraper available")
}

func TestScrapeCommandRequiresJurisdiction(t *testing.T) {
	_, err := execute(t, &fakeApp{}, "scrape")
	require.Error(t, err)
}

func TestServeCommandRunsApp(t *testing.T) {
	app := &fakeApp{}

	_, err := execute(t, app, "serve")

	require.NoError(t, err)
	require.True(t, app.ran)
	require.True(t, app.closed)
}

func TestAuditCommandRendersTable(t *testing.T) {
	app := &fakeApp{report: audit.Report{
		UserAgent: "StatuteCrawler/1.0 (+https://example.org)",
		Results: []audit.Result{
			{
				Candidate:    audit.Candidate{Name: "California Legislative Information", Jurisdiction: "CA"},
				Allowed:      true,
				RobotsStatus: robots.StatusOK,
			},
			{
				Candidate:         audit.Candidate{Name: "Justia", Jurisdiction: "multi"},
				RobotsStatus:      robots.StatusOK,
				CrawlDelaySeconds: 10,
				Recommendation:    "use existing seed data or pursue a licensed/bulk API",
			},
		},
		Allowed:    1,
		Disallowed: 1,
	}}

	out, err := execute(t, app, "audit")

	require.NoError(t, err)
	require.Contains(t, out, "California Legislative Information")
	require.Contains(t, out, "10s")
	require.Contains(t, out, "licensed/bulk API")
	// go-pretty upper-cases footers.
	require.Contains(t, strings.ToLower(out), "1 disallowed")
}

func TestAuditCommandJSON(t *testing.T) {
	app := &fakeApp{report: audit.Report{Allowed: 2}}

	out, err := execute(t, app, "audit", "--json")

	require.NoError(t, err)
	require.Contains(t, out, `"allowed": 2`)
}

func TestJurisdictionsCommand(t *testing.T) {
	out, err := execute(t, &fakeApp{}, "jurisdictions")

	require.NoError(t, err)
	require.Contains(t, out, fmt.Sprintln("NY"))
}

func TestRootFailsWhenAppCannotBuild(t *testing.T) {
	original := newApp
	t.Cleanup(func() { newApp = original })
	newApp = func(context.Context, string) (App, error) {
		return nil, errors.New("bad config")
	}

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"jurisdictions"})
	err := root.ExecuteContext(context.Background())

	require.ErrorContains(t, err, "bad config")
}
