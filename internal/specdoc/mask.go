package specdoc

import (
	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// codeMask marks every byte of the normalized source that falls inside an
// inline code span or a fenced/indented code block, mirroring the
// original's event-stream walk: Code nodes always mask, CodeBlock/
// FencedCodeBlock nodes mask their full segment.
func codeMask(normalized []byte) []bool {
	md := goldmark.New()
	reader := text.NewReader(normalized)
	doc := md.Parser().Parse(reader)

	mask := make([]bool, len(normalized))
	markRange := func(start, stop int) {
		if start < 0 || stop > len(mask) || start >= stop {
			return
		}
		for i := start; i < stop; i++ {
			mask[i] = true
		}
	}

	var walk func(n gast.Node)
	walk = func(n gast.Node) {
		switch n.Kind() {
		case gast.KindCodeSpan:
			lines := nodeLines(n)
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				markRange(seg.Start, seg.Stop)
			}
		case gast.KindCodeBlock, gast.KindFencedCodeBlock:
			lines := nodeLines(n)
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				markRange(seg.Start, seg.Stop)
			}
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	walk(doc)
	return mask
}

// nodeLines returns a node's backing line segments regardless of whether it
// is a block node (Lines()) or an inline code span (built from its
// children's segments).
func nodeLines(n gast.Node) *text.Segments {
	if b, ok := n.(interface{ Lines() *text.Segments }); ok {
		return b.Lines()
	}
	segs := text.NewSegments()
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*gast.Text); ok {
			segs.Append(t.Segment)
		}
	}
	return segs
}

// IsCodeIndex reports whether byte offset idx in the original (not
// normalized) text falls within a masked code span, per a mask computed by
// codeMask and translated to original offsets by toOriginalMask.
func IsCodeIndex(idx int, mask []bool) bool {
	if idx < 0 || idx >= len(mask) {
		return false
	}
	return mask[idx]
}
