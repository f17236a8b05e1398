package scraper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryResolvesDedicatedSources(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	for code, name := range map[string]string{
		"CA": "California Legislative Information",
		"tx": "Texas Constitution and Statutes",
		"FL": "The Florida Legislature Online Sunshine",
	} {
		src, err := r.Resolve(code, false)
		require.NoError(t, err)
		require.Equal(t, name, src.Name())
	}
}

func TestRegistryRoutesNewYorkToSenate(t *testing.T) {
	t.Parallel()

	src, err := NewRegistry(nil).Resolve("NY", false)
	require.NoError(t, err)
	require.Equal(t, "https://www.nysenate.gov", src.BaseURL())
	require.Equal(t, "NY", src.Jurisdiction())
}

func TestRegistryGenericFallback(t *testing.T) {
	t.Parallel()

	r := NewRegistry(map[string]SourceConfig{
		"oh": {BaseURL: "https://codes.ohio.gov", Targets: []Target{{Citation: "Ohio Rev. Code § 2903.02", Path: "/ohio-revised-code/section-2903.02"}}},
		"CA": {BaseURL: "https://mirror.example.org", Targets: []Target{{Citation: "Cal. Penal Code § 187", Path: "/187"}}},
	})

	src, err := r.Resolve("OH", false)
	require.NoError(t, err)
	require.IsType(t, &Generic{}, src)

	src, err = r.Resolve("CA", false)
	require.NoError(t, err)
	require.IsType(t, &California{}, src)
	require.Equal(t, "https://mirror.example.org", src.BaseURL())
	require.Len(t, src.Targets(), len(californiaTargets))

	src, err = r.Resolve("CA", true)
	require.NoError(t, err)
	require.IsType(t, &Generic{}, src)
	require.Len(t, src.Targets(), 1)

	require.Equal(t, []string{"CA", "FL", "NY", "OH", "TX"}, r.Jurisdictions())
}

func TestRegistryUnknownJurisdiction(t *testing.T) {
	t.Parallel()

	r := NewRegistry(map[string]SourceConfig{"WA": {BaseURL: "https://app.leg.wa.gov"}})
	_, err := r.Resolve("WA", false)
	require.ErrorIs(t, err, ErrUnknownJurisdiction)
	_, err = r.Resolve("TX", true)
	require.ErrorIs(t, err, ErrUnknownJurisdiction)
	_, err = r.Resolve(" ", false)
	require.ErrorIs(t, err, ErrUnknownJurisdiction)
	require.False(t, r.Known("WA"))
	require.True(t, r.Known("ny"))
}
