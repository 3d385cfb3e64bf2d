package specdoc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractDefinitionBasic(t *testing.T) {
	src := "r[auth.login status=ready]\nUsers must authenticate before reaching protected routes.\n"
	defs := ExtractDefinitions(src)
	require.Len(t, defs, 1)
	require.Equal(t, "auth.login", defs[0].ID)
	require.Equal(t, "ready", defs[0].Attrs["status"])
}

func TestExtractDefinitionIgnoresFencedCodeBlock(t *testing.T) {
	src := "```\nr[auth.login]\n```\n"
	defs := ExtractDefinitions(src)
	require.Empty(t, defs)
}

func TestExtractDefinitionIgnoresInlineCode(t *testing.T) {
	src := "Use `r[auth.login]` as an example token.\n"
	defs := ExtractDefinitions(src)
	require.Empty(t, defs)
}

func TestExtractDefinitionMultiple(t *testing.T) {
	src := "r[auth.login]\nfirst\n\nr[auth.logout+2]\nsecond\n"
	defs := ExtractDefinitions(src)
	require.Len(t, defs, 2)
	require.Equal(t, "auth.login", defs[0].ID)
	require.Equal(t, "auth.logout+2", defs[1].ID)
}
