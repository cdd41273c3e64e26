package patch

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// maxEntityLen bounds how far past '&' a terminating ';' is looked for.
const maxEntityLen = 12

// textMap is the visible text of an HTML string with, for every rune, the byte
// range in the HTML it came from. Tags are dropped, entities decoded and
// whitespace runs collapsed to one space mapped to the whole run.
type textMap struct {
	runes  []rune
	starts []int
	ends   []int
}

func buildTextMap(h string) textMap {
	var m textMap
	spaceStart, spaceEnd := -1, -1

	emit := func(r rune, start, end int) {
		if unicode.IsSpace(r) {
			if spaceStart < 0 {
				spaceStart = start
			}
			spaceEnd = end
			return
		}
		if spaceStart >= 0 {
			if len(m.runes) > 0 {
				m.push(' ', spaceStart, spaceEnd)
			}
			spaceStart = -1
		}
		m.push(r, start, end)
	}

	for i := 0; i < len(h); {
		switch h[i] {
		case '<':
			j := strings.IndexByte(h[i:], '>')
			if j < 0 {
				i = len(h)
				continue
			}
			i += j + 1
			continue
		case '&':
			if k := strings.IndexByte(h[i:min(len(h), i+maxEntityLen)], ';'); k > 0 {
				ent := h[i : i+k+1]
				if dec := html.UnescapeString(ent); dec != ent {
					for _, r := range dec {
						emit(r, i, i+k+1)
					}
					i += k + 1
					continue
				}
			}
		}
		r, size := utf8.DecodeRuneInString(h[i:])
		emit(r, i, i+size)
		i += size
	}
	return m
}

func (m *textMap) push(r rune, start, end int) {
	m.runes = append(m.runes, r)
	m.starts = append(m.starts, start)
	m.ends = append(m.ends, end)
}

// PlainText strips tags, decodes entities and collapses whitespace.
func PlainText(s string) string {
	return string(buildTextMap(s).runes)
}

// foldRunes lower-cases rune by rune so indexes stay aligned with the source.
func foldRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

// indexRunes returns the first index >= from where needle occurs in hay, or -1.
func indexRunes(hay, needle []rune, from int) int {
	if len(needle) == 0 {
		return -1
	}
outer:
	for i := from; i+len(needle) <= len(hay); i++ {
		for j := range needle {
			if hay[i+j] != needle[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}
