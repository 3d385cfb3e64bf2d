// Package codeunits approximates the nearest enclosing top-level
// declaration for a given source line, used to label reverse-traceability
// projections with a human-readable code unit name rather than a bare
// file:line pair.
//
// This is a conservative heuristic, not a parser: it scans backward from
// the target line for the last line matching a per-extension declaration
// pattern. It can misattribute a reference nested inside a closure or
// anonymous block to its enclosing named declaration; that is an accepted
// approximation, matching the same philosophy the reference lexer uses
// for comment detection.
package codeunits

import "regexp"

// Kind names the declaration category the heuristic recognized.
type Kind string

const (
	KindFunction Kind = "function"
	KindType     Kind = "type"
	KindModule   Kind = "module"
)

// Unit is the nearest enclosing declaration found for a line.
type Unit struct {
	Name string
	Kind Kind
	Line int
}

type pattern struct {
	re   *regexp.Regexp
	kind Kind
}

var patternsByExt = map[string][]pattern{
	"go": {
		{regexp.MustCompile(`^func\s+(?:\([^)]*\)\s*)?([A-Za-z_][A-Za-z0-9_]*)`), KindFunction},
		{regexp.MustCompile(`^type\s+([A-Za-z_][A-Za-z0-9_]*)`), KindType},
	},
	"rs": {
		{regexp.MustCompile(`^\s*(?:pub\s+)?fn\s+([A-Za-z_][A-Za-z0-9_]*)`), KindFunction},
		{regexp.MustCompile(`^\s*(?:pub\s+)?(?:struct|enum|trait)\s+([A-Za-z_][A-Za-z0-9_]*)`), KindType},
	},
	"py": {
		{regexp.MustCompile(`^\s*def\s+([A-Za-z_][A-Za-z0-9_]*)`), KindFunction},
		{regexp.MustCompile(`^\s*class\s+([A-Za-z_][A-Za-z0-9_]*)`), KindType},
	},
	"ts": {
		{regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s+([A-Za-z_][A-Za-z0-9_]*)`), KindFunction},
		{regexp.MustCompile(`^\s*(?:export\s+)?(?:class|interface|type)\s+([A-Za-z_][A-Za-z0-9_]*)`), KindType},
	},
	"js": {
		{regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s+([A-Za-z_][A-Za-z0-9_]*)`), KindFunction},
		{regexp.MustCompile(`^\s*(?:export\s+)?class\s+([A-Za-z_][A-Za-z0-9_]*)`), KindType},
	},
	"java": {
		{regexp.MustCompile(`^\s*(?:public|private|protected)?\s*(?:static\s+)?[\w<>\[\]]+\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`), KindFunction},
		{regexp.MustCompile(`^\s*(?:public\s+)?(?:class|interface|enum)\s+([A-Za-z_][A-Za-z0-9_]*)`), KindType},
	},
}

var fallbackPatterns = []pattern{
	{regexp.MustCompile(`^\s*(?:def|fn|func|function)\s+([A-Za-z_][A-Za-z0-9_]*)`), KindFunction},
	{regexp.MustCompile(`^\s*(?:class|struct|type|interface)\s+([A-Za-z_][A-Za-z0-9_]*)`), KindType},
}

// Nearest returns the nearest enclosing declaration above (and including)
// targetLine (1-based) in lines, or ok=false if no declaration pattern
// matched anywhere above it.
func Nearest(ext string, lines []string, targetLine int) (u Unit, ok bool) {
	pats, found := patternsByExt[ext]
	if !found {
		pats = fallbackPatterns
	}

	if targetLine > len(lines) {
		targetLine = len(lines)
	}
	for i := targetLine - 1; i >= 0; i-- {
		for _, p := range pats {
			if m := p.re.FindStringSubmatch(lines[i]); m != nil {
				return Unit{Name: m[1], Kind: p.kind, Line: i + 1}, true
			}
		}
	}
	return Unit{Name: "(module)", Kind: KindModule, Line: 1}, false
}
