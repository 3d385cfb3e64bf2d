package styxconfig

import (
	"fmt"
	"os"
	"path/filepath"
)

// DeprecatedConfigPaths are legacy config locations the daemon refuses to
// load, returning a migration message instead of falling back silently.
func DeprecatedConfigPaths(projectRoot, appName string) []string {
	dir := filepath.Join(projectRoot, ".config", appName)
	return []string{
		filepath.Join(dir, "config.kdl"),
		filepath.Join(dir, "config.yaml"),
	}
}

// CheckDeprecated returns a non-empty migration message if a legacy
// config file exists, checked in the order returned by
// DeprecatedConfigPaths (kdl before yaml, matching the order the original
// daemon used).
func CheckDeprecated(projectRoot, appName string) string {
	for _, p := range DeprecatedConfigPaths(projectRoot, appName) {
		if _, err := os.Stat(p); err == nil {
			return migrationMessage(p, appName)
		}
	}
	return ""
}

func migrationMessage(foundPath, appName string) string {
	return fmt.Sprintf(`Config file %s is no longer supported.

Migrate it to .config/%s/config.styx with this shape:

specs (
    {
        name my-spec
        include (docs/**/*.md)
        impls (
            {
                name my-impl
                include (src/**/*.go)
            }
        )
    }
)
`, foundPath, appName)
}
