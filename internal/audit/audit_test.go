package audit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/statute-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/statute-crawler/internal/policy/robots"
)

const testAgent = "StatuteCrawler/1.0 (+mailto:ops@example.org)"

func robotsServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			t.Errorf("audit fetched content page %s", r.URL.Path)
			return
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAuditorReportsAllowAndDisallow(t *testing.T) {
	t.Parallel()

	open := robotsServer(t, "User-agent: *\nCrawl-delay: 3\nDisallow: /admin\n", http.StatusOK)
	blocked := robotsServer(t, "User-agent: *\nDisallow: /\n", http.StatusOK)
	missing := robotsServer(t, "", http.StatusNotFound)

	loader := robots.NewLoader(robots.Config{UserAgent: testAgent, Timeout: time.Second}, zap.NewNop())
	auditor := New(Config{
		UserAgent: testAgent,
		Candidates: []Candidate{
			{Name: "Open", BaseURL: open.URL, TestPath: "/codes/187"},
			{Name: "Blocked", BaseURL: blocked.URL, TestPath: "/lawssrch.cgi"},
			{Name: "NoRobots", BaseURL: missing.URL, TestPath: "/codes/1"},
			{Name: "Broken", BaseURL: "::not a url", TestPath: "/"},
		},
		Concurrency: 2,
	}, loader, ratelimit.New(ratelimit.Config{DefaultRPS: 100, DefaultBurst: 1}), zap.NewNop())

	report, err := auditor.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 4)
	require.Equal(t, 2, report.Allowed)
	require.Equal(t, 2, report.Disallowed)
	require.Equal(t, testAgent, report.UserAgent)

	byName := make(map[string]Result)
	for _, r := range report.Results {
		byName[r.Name] = r
	}

	require.True(t, byName["Open"].Allowed)
	require.Equal(t, robots.StatusOK, byName["Open"].RobotsStatus)
	require.InDelta(t, 3.0, byName["Open"].CrawlDelaySeconds, 0.001)
	require.Empty(t, byName["Open"].Recommendation)

	require.False(t, byName["Blocked"].Allowed)
	require.Contains(t, byName["Blocked"].Recommendation, "use existing seed data or pursue a licensed/bulk API")

	require.True(t, byName["NoRobots"].Allowed)
	require.Equal(t, robots.StatusMissing, byName["NoRobots"].RobotsStatus)
	require.Contains(t, byName["NoRobots"].Recommendation, "allowed by default")

	require.False(t, byName["Broken"].Allowed)
	require.Len(t, report.Recommendations, 3)
}

func TestAuditorPreservesCandidateOrder(t *testing.T) {
	t.Parallel()

	srv := robotsServer(t, "User-agent: *\nAllow: /\n", http.StatusOK)
	candidates := make([]Candidate, 0, 6)
	for i := range 6 {
		candidates = append(candidates, Candidate{Name: fmt.Sprintf("c%d", i), BaseURL: srv.URL, TestPath: "/"})
	}
	loader := robots.NewLoader(robots.Config{UserAgent: testAgent}, nil)
	report, err := New(Config{Candidates: candidates, Concurrency: 3}, loader, nil, nil).Run(context.Background())
	require.NoError(t, err)
	for i, r := range report.Results {
		require.Equal(t, fmt.Sprintf("c%d", i), r.Name)
	}
}

func TestAuditorCanceled(t *testing.T) {
	t.Parallel()

	loader := robots.NewLoader(robots.Config{UserAgent: testAgent}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{}, loader, nil, nil).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDefaultCandidatesIncludeBlockedPrimary(t *testing.T) {
	t.Parallel()

	var found bool
	for _, c := range DefaultCandidates() {
		require.NotEmpty(t, c.BaseURL)
		require.NotEmpty(t, c.TestPath)
		if c.BaseURL == "https://public.leginfo.state.ny.us" {
			found = true
		}
	}
	require.True(t, found)
}
