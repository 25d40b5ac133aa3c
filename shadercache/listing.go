package shadercache

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// listingContext is the number of lines shown around each line a
// diagnostic mentions.
const listingContext = 2

// lineRefPattern finds line references in compiler diagnostics. The common
// formats are "0:12:" (glslang), "line 12", and ":12:".
var lineRefPattern = regexp.MustCompile(`(?:line\s+|:)(\d+)(?::|\b)`)

// annotateListing builds a numbered source listing focused on the lines a
// diagnostic references. When the diagnostic carries no recognizable line
// numbers the full numbered listing is returned, so the context is never
// silently empty.
func annotateListing(source, diagnostic string) string {
	lines := strings.Split(source, "\n")

	refs := referencedLines(diagnostic, len(lines))
	if len(refs) == 0 {
		return numberLines(lines, 0, len(lines), nil)
	}

	marked := make(map[int]bool, len(refs))
	for _, n := range refs {
		marked[n] = true
	}

	var b strings.Builder
	prevEnd := -1
	for _, n := range refs {
		start := n - 1 - listingContext
		if start < 0 {
			start = 0
		}
		end := n + listingContext
		if end > len(lines) {
			end = len(lines)
		}
		if start < prevEnd {
			start = prevEnd
		}
		if start >= end {
			continue
		}
		if prevEnd >= 0 && start > prevEnd {
			b.WriteString("\t...\n")
		}
		b.WriteString(numberLines(lines, start, end, marked))
		prevEnd = end
	}
	return b.String()
}

// referencedLines extracts the distinct, in-range line numbers a
// diagnostic mentions, in ascending order. Line numbers are 1-based.
func referencedLines(diagnostic string, lineCount int) []int {
	seen := make(map[int]bool)
	var refs []int
	for _, m := range lineRefPattern.FindAllStringSubmatch(diagnostic, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > lineCount || seen[n] {
			continue
		}
		seen[n] = true
		refs = append(refs, n)
	}
	sort.Ints(refs)
	return refs
}

// numberLines renders lines[start:end] with 1-based line numbers, marking
// referenced lines with a ">" gutter.
func numberLines(lines []string, start, end int, marked map[int]bool) string {
	var b strings.Builder
	for i := start; i < end; i++ {
		gutter := " "
		if marked[i+1] {
			gutter = ">"
		}
		fmt.Fprintf(&b, "%s%4d | %s\n", gutter, i+1, lines[i])
	}
	return b.String()
}
