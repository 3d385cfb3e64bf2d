// Package specdoc extracts rule definitions from Markdown documents.
//
// A definition is an r[ID attrs...] block at the start of a line; whether
// that line begins a paragraph is not checked. Occurrences inside inline
// code spans or fenced/indented code blocks are not definitions; they are
// masked out before scanning.
package specdoc

import "regexp"

// Definition is one r[ID attrs...] block found at the start of a line.
type Definition struct {
	ID     string
	Attrs  map[string]string
	Offset int
	Line   int
}

var defPattern = regexp.MustCompile(`(?m)^r\[\s*([A-Za-z0-9_.+-]+)((?:\s+[A-Za-z][A-Za-z0-9_-]*=\S+)*)\s*\]`)
var attrPattern = regexp.MustCompile(`([A-Za-z][A-Za-z0-9_-]*)=(\S+)`)

// ExtractDefinitions scans markdown text for line-leading r[...] blocks,
// excluding any occurrence whose byte range overlaps a code span.
func ExtractDefinitions(source string) []Definition {
	dedented, indexMap := dedentWithIndexMap(source)
	dedentedMask := codeMask([]byte(dedented))
	mask := toOriginalMask(dedentedMask, indexMap, len(source))

	var defs []Definition
	for _, loc := range defPattern.FindAllStringSubmatchIndex(source, -1) {
		start := loc[0]
		if overlapsMask(start, loc[1], mask) {
			continue
		}
		idStart, idEnd := loc[2], loc[3]
		def := Definition{
			ID:     source[idStart:idEnd],
			Attrs:  map[string]string{},
			Offset: start,
			Line:   1 + countNewlines(source[:start]),
		}
		if loc[4] >= 0 {
			attrsText := source[loc[4]:loc[5]]
			for _, am := range attrPattern.FindAllStringSubmatch(attrsText, -1) {
				def.Attrs[am[1]] = am[2]
			}
		}
		defs = append(defs, def)
	}
	return defs
}

func overlapsMask(start, end int, mask []bool) bool {
	for i := start; i < end && i < len(mask); i++ {
		if mask[i] {
			return true
		}
	}
	return false
}

func countNewlines(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
		}
	}
	return n
}
