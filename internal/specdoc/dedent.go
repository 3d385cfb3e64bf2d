package specdoc

import "strings"

// dedentWithIndexMap strips the minimum common leading whitespace from
// every non-blank line of text and returns the dedented bytes alongside an
// index map: indexMap[i] is the byte offset in the original text that
// produced dedented byte i. This lets a mask computed against the dedented
// text (what the markdown parser actually sees) be translated back to
// original byte offsets.
func dedentWithIndexMap(text string) (string, []int) {
	lines := splitInclusive(text, '\n')

	minIndent := -1
	for _, line := range lines {
		trimmed := strings.TrimRight(line, "\n")
		if strings.TrimSpace(trimmed) == "" {
			continue
		}
		indent := leadingWhitespace(trimmed)
		if minIndent < 0 || indent < minIndent {
			minIndent = indent
		}
	}
	if minIndent < 0 {
		minIndent = 0
	}

	var out strings.Builder
	indexMap := make([]int, 0, len(text))
	offset := 0
	for _, line := range lines {
		strip := minIndent
		if strip > len(line) {
			strip = len(line)
		}
		// Never strip past a non-whitespace byte.
		actual := 0
		for actual < strip && (line[actual] == ' ' || line[actual] == '\t') {
			actual++
		}
		kept := line[actual:]
		for i := 0; i < len(kept); i++ {
			indexMap = append(indexMap, offset+actual+i)
		}
		out.WriteString(kept)
		offset += len(line)
	}
	return out.String(), indexMap
}

func splitInclusive(s string, sep byte) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			out = append(out, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func leadingWhitespace(line string) int {
	n := 0
	for n < len(line) && (line[n] == ' ' || line[n] == '\t') {
		n++
	}
	return n
}

// toOriginalMask translates a mask computed over dedented bytes back to a
// mask over the original source bytes using indexMap.
func toOriginalMask(dedentedMask []bool, indexMap []int, originalLen int) []bool {
	mask := make([]bool, originalLen)
	for i, marked := range dedentedMask {
		if !marked || i >= len(indexMap) {
			continue
		}
		mask[indexMap[i]] = true
	}
	return mask
}
