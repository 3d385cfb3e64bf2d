package validate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"tracey/internal/buildcache"
	"tracey/internal/snapshot"
	"tracey/internal/styxconfig"
)

func build(t *testing.T, files map[string]string, cfg styxconfig.Config) *snapshot.Snapshot {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	snap, err := snapshot.Build(root, cfg, 1, nil, buildcache.New())
	require.NoError(t, err)
	return snap
}

func basicConfig() styxconfig.Config {
	return styxconfig.Config{Specs: []styxconfig.Spec{{
		Name:    "docs",
		Include: []string{"docs/**/*.md"},
		Impls:   []styxconfig.Impl{{Name: "src", Include: []string{"src/**/*.go"}}},
	}}}
}

func TestRunFlagsDuplicateID(t *testing.T) {
	snap := build(t, map[string]string{
		"docs/a.md": "r[x.y]\nfirst\n\nr[x.y]\nsecond\n",
	}, basicConfig())

	out := Run(snap, "")
	require.True(t, out.Blocked)
	require.NotEmpty(t, out.HardFails())
}

func TestRunFlagsUnreferencedAsSuggestion(t *testing.T) {
	snap := build(t, map[string]string{
		"docs/a.md": "r[x.y]\nunreferenced\n",
	}, basicConfig())

	out := Run(snap, "")
	require.False(t, out.Blocked)
	require.NotEmpty(t, out.Suggestions())
}

func TestRunFlagsStaleAsWarning(t *testing.T) {
	snap := build(t, map[string]string{
		"docs/a.md":    "r[x.y+2]\ncurrent\n",
		"src/impl.go": "// r[impl x.y]\nfunc F() {}\n",
	}, basicConfig())

	out := Run(snap, "")
	require.NotEmpty(t, out.Warnings())
}

func TestRunScopedToRuleFilter(t *testing.T) {
	snap := build(t, map[string]string{
		"docs/a.md": "r[x.y]\nfirst\n\nr[x.y]\nsecond\n\nr[a.b]\nother\n",
	}, basicConfig())

	out := Run(snap, "a.b")
	for _, f := range out.Findings {
		require.Equal(t, "a.b", f.RuleID)
	}
}
