// Package textdiff reduces two versions of a document section to the minimal
// whole-word replacement between them.
package textdiff

import (
	"strings"
	"unicode"
)

// Change is one replacement: Original is the span to find, New replaces it.
type Change struct {
	Original string `json:"original"`
	New      string `json:"new"`
}

// Diff returns the edit turning original into updated, or nil when they are
// equal (ignoring whitespace at the edges of the changed span).
//
// The changed window is found by stripping the longest common prefix and the
// longest common suffix, then widened so it never starts or ends inside a
// word. A pure insertion between two words is anchored to the word before it
// (or after it at the very start) so the original span is never empty.
// The result has at most one element.
func Diff(original, updated string) []Change {
	if original == updated {
		return nil
	}
	if original == "" || updated == "" {
		orig, repl := strings.TrimSpace(original), strings.TrimSpace(updated)
		if orig == repl {
			return nil
		}
		return []Change{{Original: orig, New: repl}}
	}

	a, b := []rune(original), []rune(updated)

	p := commonPrefix(a, b)
	s := commonSuffix(a[p:], b[p:])
	start, endA, endB := p, len(a)-s, len(b)-s

	// Left edge. The character before start is shared by a and b.
	for start > 0 && isWord(a[start-1]) && (opensWithWord(a, start, endA) || opensWithWord(b, start, endB)) {
		start--
	}
	// Right edge. a[endA] == b[endB] is shared.
	for endA < len(a) && isWord(a[endA]) && (closesWithWord(a, start, endA) || closesWithWord(b, start, endB)) {
		endA++
		endB++
	}

	if strings.TrimSpace(string(a[start:endA])) == "" {
		start, endA, endB = anchor(a, start, endA, endB)
	}

	orig := strings.TrimSpace(string(a[start:endA]))
	repl := strings.TrimSpace(string(b[start:endB]))
	if orig == repl {
		return nil
	}
	return []Change{{Original: orig, New: repl}}
}

// anchor widens an insertion so the original side covers a neighbouring word.
func anchor(a []rune, start, endA, endB int) (int, int, int) {
	i := start
	for i > 0 && unicode.IsSpace(a[i-1]) {
		i--
	}
	if i > 0 {
		for i > 0 && !unicode.IsSpace(a[i-1]) {
			i--
		}
		return i, endA, endB
	}

	j := endA
	for j < len(a) && unicode.IsSpace(a[j]) {
		j++
	}
	for j < len(a) && !unicode.IsSpace(a[j]) {
		j++
	}
	return start, j, endB + (j - endA)
}

func commonPrefix(a, b []rune) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

func commonSuffix(a, b []rune) int {
	n := 0
	for n < len(a) && n < len(b) && a[len(a)-1-n] == b[len(b)-1-n] {
		n++
	}
	return n
}

func opensWithWord(x []rune, start, end int) bool {
	return start < end && isWord(x[start])
}

func closesWithWord(x []rune, start, end int) bool {
	return end > start && isWord(x[end-1])
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
