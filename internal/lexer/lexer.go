// Package lexer scans source files for rule-reference tokens of the form
// r[VERB? ID] embedded in line or block comments.
package lexer

import (
	"regexp"
	"strings"
)

// Verb classifies the relationship a reference expresses toward a rule.
type Verb int

const (
	VerbImpl Verb = iota
	VerbVerify
	VerbDepends
	VerbRelated
	VerbDefine
)

func (v Verb) String() string {
	switch v {
	case VerbImpl:
		return "impl"
	case VerbVerify:
		return "verify"
	case VerbDepends:
		return "depends"
	case VerbRelated:
		return "related"
	case VerbDefine:
		return "define"
	default:
		return "impl"
	}
}

var verbByName = map[string]Verb{
	"impl":    VerbImpl,
	"verify":  VerbVerify,
	"depends": VerbDepends,
	"related": VerbRelated,
	"define":  VerbDefine,
}

// WarningKind categorizes a non-fatal lexer problem.
type WarningKind int

const (
	WarningUnknownVerb WarningKind = iota
	WarningMalformedBracket
)

// Warning records a recoverable problem found while scanning.
type Warning struct {
	Kind    WarningKind
	Message string
	Offset  int
}

// Span is a byte range within the scanned file, [Start, End).
type Span struct {
	Start int
	End   int
}

// Reference is a single r[...] token found in a comment.
type Reference struct {
	Verb   Verb
	RuleID string
	Span   Span
	Line   int
}

// tokenPattern matches r[ ... ] allowing an optional leading verb word
// (separated from the id by whitespace) and arbitrary internal whitespace.
// An empty r[] matches with no id and is warned about in scanTokens; an
// unterminated "r[" is caught separately by scanning for "r[" and failing
// to find a matching "]".
var tokenPattern = regexp.MustCompile(`r\[\s*(?:([A-Za-z]+)\s+)?([A-Za-z0-9_.+-]+)?\s*\]`)

// legacyPattern matches the legacy bare "[req.id]" form used before the
// r[...] syntax was introduced.
var legacyPattern = regexp.MustCompile(`\[([A-Za-z][A-Za-z0-9_.]*(?:\+[0-9]+)?)\]`)

// commentStyle describes how to recognize comments for a file extension
// class. Block comments are matched start..end; line comments run to
// end-of-line.
type commentStyle struct {
	line  []string
	block [][2]string
}

var defaultStyle = commentStyle{
	line:  []string{"//", "#"},
	block: [][2]string{{"/*", "*/"}},
}

// styleByExt maps a subset of supported extensions to a specific comment
// style; extensions not listed fall back to defaultStyle, which covers the
// common C-like "//" and script-like "#" cases.
var styleByExt = map[string]commentStyle{
	"py":  {line: []string{"#"}},
	"rb":  {line: []string{"#"}, block: [][2]string{{"=begin", "=end"}}},
	"sh":  {line: []string{"#"}},
	"lua": {line: []string{"--"}, block: [][2]string{{"--[[", "]]"}}},
	"hs":  {line: []string{"--"}, block: [][2]string{{"{-", "-}"}}},
	"ex":  {line: []string{"#"}},
	"exs": {line: []string{"#"}},
}

// Scan extracts rule references and lexer warnings from source text for
// the given file extension (without the leading dot).
func Scan(ext, text string) ([]Reference, []Warning) {
	style, ok := styleByExt[ext]
	if !ok {
		style = defaultStyle
	}

	var refs []Reference
	var warns []Warning

	for _, seg := range commentSegments(text, style) {
		refs = append(refs, scanTokens(text, seg, &warns)...)
	}
	return refs, warns
}

type segment struct {
	start, end int
}

// commentSegments returns the byte ranges of text that fall inside a
// recognized comment, conservatively: line comments run to the next
// newline, block comments run until their closing delimiter or EOF.
func commentSegments(text string, style commentStyle) []segment {
	var segs []segment
	i := 0
	for i < len(text) {
		advanced := false

		for _, bc := range style.block {
			if strings.HasPrefix(text[i:], bc[0]) {
				end := strings.Index(text[i+len(bc[0]):], bc[1])
				if end < 0 {
					segs = append(segs, segment{i, len(text)})
					return segs
				}
				closeAt := i + len(bc[0]) + end + len(bc[1])
				segs = append(segs, segment{i, closeAt})
				i = closeAt
				advanced = true
				break
			}
		}
		if advanced {
			continue
		}

		for _, lc := range style.line {
			if strings.HasPrefix(text[i:], lc) {
				nl := strings.IndexByte(text[i:], '\n')
				end := len(text)
				if nl >= 0 {
					end = i + nl
				}
				segs = append(segs, segment{i, end})
				i = end
				advanced = true
				break
			}
		}
		if advanced {
			continue
		}
		i++
	}
	return segs
}

func scanTokens(text string, seg segment, warns *[]Warning) []Reference {
	chunk := text[seg.start:seg.end]
	var refs []Reference

	for _, loc := range tokenPattern.FindAllStringSubmatchIndex(chunk, -1) {
		fullStart, fullEnd := loc[0]+seg.start, loc[1]+seg.start
		verbStart, verbEnd := loc[2], loc[3]
		idStart, idEnd := loc[4], loc[5]

		if idStart < 0 {
			*warns = append(*warns, Warning{
				Kind:    WarningMalformedBracket,
				Message: "r[...] token missing a rule id",
				Offset:  fullStart,
			})
			continue
		}

		verb := VerbImpl
		if verbStart >= 0 {
			name := strings.ToLower(chunk[verbStart:verbEnd])
			v, known := verbByName[name]
			if !known {
				*warns = append(*warns, Warning{
					Kind:    WarningUnknownVerb,
					Message: "unknown reference verb " + name,
					Offset:  fullStart,
				})
				verb = VerbImpl
			} else {
				verb = v
			}
		}

		refs = append(refs, Reference{
			Verb:   verb,
			RuleID: chunk[idStart:idEnd],
			Span:   Span{Start: fullStart, End: fullEnd},
			Line:   lineOf(text, fullStart),
		})
	}

	// Unterminated bracket: "r[" with no closing "]" before end of segment.
	for idx := strings.Index(chunk, "r["); idx >= 0; {
		closeIdx := strings.IndexByte(chunk[idx:], ']')
		if closeIdx < 0 {
			*warns = append(*warns, Warning{
				Kind:    WarningMalformedBracket,
				Message: "unterminated r[ token",
				Offset:  seg.start + idx,
			})
			break
		}
		next := strings.Index(chunk[idx+2:], "r[")
		if next < 0 {
			break
		}
		idx = idx + 2 + next
	}

	for _, loc := range legacyPattern.FindAllStringSubmatchIndex(chunk, -1) {
		if loc[0] > 0 && chunk[loc[0]-1] == 'r' {
			continue // already captured by tokenPattern as r[id]
		}
		fullStart, fullEnd := loc[0]+seg.start, loc[1]+seg.start
		idStart, idEnd := loc[2], loc[3]
		refs = append(refs, Reference{
			Verb:   VerbImpl,
			RuleID: chunk[idStart:idEnd],
			Span:   Span{Start: fullStart, End: fullEnd},
			Line:   lineOf(text, fullStart),
		})
	}

	return refs
}

func lineOf(text string, offset int) int {
	return 1 + strings.Count(text[:offset], "\n")
}
