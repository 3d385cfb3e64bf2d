package ruleid

import "testing"

import "github.com/stretchr/testify/require"

func TestParseImplicitV1(t *testing.T) {
	p, ok := Parse("auth.login")
	require.True(t, ok)
	require.Equal(t, "auth.login", p.Base)
	require.Equal(t, uint32(1), p.Version)
}

func TestParseExplicitVersion(t *testing.T) {
	p, ok := Parse("auth.login+2")
	require.True(t, ok)
	require.Equal(t, "auth.login", p.Base)
	require.Equal(t, uint32(2), p.Version)
}

func TestParseRejectsInvalidSuffix(t *testing.T) {
	cases := []string{"auth.login+", "auth.login+0", "auth.login+abc", "auth+login+2", ""}
	for _, c := range cases {
		_, ok := Parse(c)
		require.Falsef(t, ok, "expected %q to be rejected", c)
	}
}

func TestClassifyStale(t *testing.T) {
	require.Equal(t, Stale, Classify("auth.login+2", "auth.login"))
	require.Equal(t, Stale, Classify("auth.login+2", "auth.login+1"))
}

func TestClassifyExact(t *testing.T) {
	require.Equal(t, Exact, Classify("auth.login+2", "auth.login+2"))
	require.Equal(t, Exact, Classify("auth.login", "auth.login+1"))
}

func TestClassifyNoMatch(t *testing.T) {
	require.Equal(t, NoMatch, Classify("auth.login+2", "auth.login+3"))
	require.Equal(t, NoMatch, Classify("auth.login+2", "auth.logout"))
}

func TestClassifyFallsBackToStringEquality(t *testing.T) {
	require.Equal(t, Exact, Classify("auth+login+2", "auth+login+2"))
	require.Equal(t, NoMatch, Classify("auth+login+2", "auth.login"))
}
