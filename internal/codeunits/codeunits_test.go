package codeunits

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNearestFindsEnclosingGoFunc(t *testing.T) {
	lines := []string{
		"package auth",
		"",
		"func Login() {",
		"    // r[impl auth.login]",
		"    doLogin()",
		"}",
	}
	u, ok := Nearest("go", lines, 4)
	require.True(t, ok)
	require.Equal(t, "Login", u.Name)
	require.Equal(t, KindFunction, u.Kind)
}

func TestNearestFindsEnclosingType(t *testing.T) {
	lines := []string{
		"package auth",
		"type Session struct {",
		"    Token string // r[impl auth.session-token]",
		"}",
	}
	u, ok := Nearest("go", lines, 3)
	require.True(t, ok)
	require.Equal(t, "Session", u.Name)
	require.Equal(t, KindType, u.Kind)
}

func TestNearestFallsBackToModule(t *testing.T) {
	lines := []string{"// just a comment", "// r[impl x.y]"}
	u, ok := Nearest("go", lines, 2)
	require.False(t, ok)
	require.Equal(t, "(module)", u.Name)
	require.Equal(t, KindModule, u.Kind)
}

func TestNearestUnknownExtensionUsesFallbackPatterns(t *testing.T) {
	lines := []string{"def handler():", "    pass  # r[impl x.y]"}
	u, ok := Nearest("unknownext", lines, 2)
	require.True(t, ok)
	require.Equal(t, "handler", u.Name)
}
