// Package sources enumerates workspace files eligible for rule-reference
// scanning or rule-definition parsing.
package sources

import (
	"os"
	"path/filepath"
	"strings"
)

// SupportedExtensions lists source file extensions (without the leading
// dot) the reference lexer understands comment styles for.
var SupportedExtensions = map[string]bool{
	"rs": true, "go": true, "c": true, "h": true, "cc": true, "cpp": true,
	"cxx": true, "hpp": true, "hh": true, "hxx": true,
	"js": true, "mjs": true, "cjs": true, "ts": true, "mts": true, "cts": true,
	"jsx": true, "tsx": true, "py": true, "rb": true, "java": true,
	"kt": true, "kts": true, "scala": true, "sh": true, "bash": true, "zsh": true,
	"zig": true, "swift": true, "ex": true, "exs": true, "hs": true, "lhs": true,
	"ml": true, "mli": true, "lua": true, "php": true, "r": true,
}

// MarkdownExtensions lists extensions eligible for rule-definition parsing.
var MarkdownExtensions = map[string]bool{"md": true, "markdown": true}

// IsSupportedExtension reports whether path's extension is a recognized
// source extension.
func IsSupportedExtension(path string) bool {
	return SupportedExtensions[ext(path)]
}

// IsMarkdown reports whether path's extension is a recognized markdown
// extension.
func IsMarkdown(path string) bool {
	return MarkdownExtensions[ext(path)]
}

func ext(path string) string {
	e := filepath.Ext(path)
	return strings.ToLower(strings.TrimPrefix(e, "."))
}

// WalkMatching walks root and returns workspace-relative, forward-slash
// paths for which match(relPath) is true. Hidden directories (dotfiles)
// other than the root itself are skipped, matching the common convention
// of not descending into .git, .tracey, etc.
func WalkMatching(root string, match func(relPath string) bool) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		base := filepath.Base(path)
		if d.IsDir() {
			if strings.HasPrefix(base, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if match(rel) {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
