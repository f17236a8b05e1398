package robots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testAgent = "StatuteCrawler/1.0 (+mailto:ops@example.org)"

func TestNewPolicyDisallowRules(t *testing.T) {
	t.Parallel()

	body := []byte("User-agent: *\nDisallow: /private\nCrawl-delay: 5\n")
	policy, err := NewPolicy("example.org", testAgent, body)
	require.NoError(t, err)

	require.True(t, policy.Allowed("/codes/penal"))
	require.False(t, policy.Allowed("/private/section"))
	require.Equal(t, 5*time.Second, policy.CrawlDelay())
	require.Equal(t, StatusOK, policy.Status())
	require.False(t, policy.Degraded())
}

func TestNewPolicyAgentSpecificGroup(t *testing.T) {
	t.Parallel()

	body := []byte("User-agent: statutecrawler\nDisallow: /\n\nUser-agent: *\nAllow: /\n")
	policy, err := NewPolicy("example.org", testAgent, body)
	require.NoError(t, err)

	require.False(t, policy.Allowed("/anything"))
}

func TestNewPolicyMatchesQuery(t *testing.T) {
	t.Parallel()

	body := []byte("User-agent: *\nDisallow: /faces/codes_displaySection.xhtml?lawCode=VEH\n")
	policy, err := NewPolicy("example.org", testAgent, body)
	require.NoError(t, err)

	require.False(t, policy.Allowed("/faces/codes_displaySection.xhtml?lawCode=VEH&sectionNum=23152"))
	require.True(t, policy.Allowed("/faces/codes_displaySection.xhtml?lawCode=PEN&sectionNum=187"))
}

func TestAllowAllPolicy(t *testing.T) {
	t.Parallel()

	policy := AllowAll("example.org", StatusMissing, "status 404")
	require.True(t, policy.Allowed("/"))
	require.True(t, policy.Allowed(""))
	require.Zero(t, policy.CrawlDelay())
	require.True(t, policy.Degraded())
	require.Equal(t, "status 404", policy.Reason())

	var nilPolicy *Policy
	require.True(t, nilPolicy.Allowed("/x"))
	require.Equal(t, StatusUnreachable, nilPolicy.Status())
}

func TestRequestPath(t *testing.T) {
	t.Parallel()

	got, err := RequestPath("https://example.org/faces/page.xhtml?lawCode=PEN&sectionNum=187")
	require.NoError(t, err)
	require.Equal(t, "/faces/page.xhtml?lawCode=PEN&sectionNum=187", got)

	got, err = RequestPath("https://example.org")
	require.NoError(t, err)
	require.Equal(t, "/", got)
}
