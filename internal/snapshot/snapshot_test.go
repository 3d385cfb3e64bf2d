package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"tracey/internal/buildcache"
	"tracey/internal/styxconfig"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestBuildBasicCoverage(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/auth.md", "r[auth.login]\nUsers must log in.\n")
	writeFile(t, root, "src/login.go", "// r[impl auth.login]\nfunc Login() {}\n")
	writeFile(t, root, "src/orphan.go", "// r[impl unknown.rule]\nfunc X() {}\n")

	cfg := styxconfig.Config{Specs: []styxconfig.Spec{{
		Name:    "docs",
		Include: []string{"docs/**/*.md"},
		Impls: []styxconfig.Impl{{
			Name:    "src",
			Include: []string{"src/**/*.go"},
		}},
	}}}

	snap, err := Build(root, cfg, 1, nil, buildcache.New())
	require.NoError(t, err)
	require.Len(t, snap.Defs["auth.login"], 1)
	require.Len(t, snap.Coverages, 1)

	cov := snap.Coverages[0]
	require.Len(t, cov.Covered["auth.login"], 1)
	require.Empty(t, cov.Uncovered)
	require.Len(t, cov.Unmapped, 1)
	require.Equal(t, "unknown.rule", cov.Unmapped[0].RuleID)
}

func TestBuildDetectsUncovered(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/auth.md", "r[auth.login]\nmust log in\n")

	cfg := styxconfig.Config{Specs: []styxconfig.Spec{{
		Name:    "docs",
		Include: []string{"docs/**/*.md"},
		Impls:   []styxconfig.Impl{{Name: "src", Include: []string{"src/**/*.go"}}},
	}}}

	snap, err := Build(root, cfg, 1, nil, buildcache.New())
	require.NoError(t, err)
	require.Len(t, snap.Coverages[0].Uncovered, 1)
}

func TestBuildOverlayShadowsDisk(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/auth.md", "r[auth.login]\nmust log in\n")

	cfg := styxconfig.Config{Specs: []styxconfig.Spec{{
		Name:    "docs",
		Include: []string{"docs/**/*.md"},
		Impls:   []styxconfig.Impl{{Name: "src", Include: []string{"src/**/*.go"}}},
	}}}

	overlay := map[string]string{"docs/auth.md": "r[auth.login]\nmust log in\n\nr[auth.logout]\nmust log out\n"}
	snap, err := Build(root, cfg, 1, overlay, buildcache.New())
	require.NoError(t, err)
	require.Len(t, snap.Defs, 2)
}

func TestBuildClassifiesStaleReferenceToVersionedRule(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/auth.md", "r[auth.login+2]\nmust log in with MFA\n")
	writeFile(t, root, "src/login.go", "// r[impl auth.login]\nfunc Login() {}\n")

	cfg := styxconfig.Config{Specs: []styxconfig.Spec{{
		Name:    "docs",
		Include: []string{"docs/**/*.md"},
		Impls:   []styxconfig.Impl{{Name: "src", Include: []string{"src/**/*.go"}}},
	}}}

	snap, err := Build(root, cfg, 1, nil, buildcache.New())
	require.NoError(t, err)
	require.Len(t, snap.Defs["auth.login"], 1)

	cov := snap.Coverages[0]
	require.Len(t, cov.Stale, 1)
	require.Len(t, cov.Covered["auth.login"], 1)
	require.Empty(t, cov.Unmapped)
	require.Empty(t, cov.Uncovered)
}
