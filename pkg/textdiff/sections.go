package textdiff

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/codeready-toolchain/drafter/pkg/models"
)

// WholeDocument is the identifier of the implicit section used when a
// document carries no section markers.
const WholeDocument = "document"

// Markers tell ExtractSections which elements delimit sections. An element is
// a section when it carries Attribute or has Class among its classes.
type Markers struct {
	Attribute string
	Class     string
}

// DefaultMarkers matches the markup produced by the proposal generator.
var DefaultMarkers = Markers{Attribute: "data-section-id", Class: "proposal-section"}

// Section is one semantically delimited fragment of a document.
type Section struct {
	Identifier string // heading text, falling back to the section id or position
	SectionID  string // marker attribute or element id, may be empty
	Title      string // first heading inside the section
	Text       string // rendered text, one line per block element
}

// key pairs a section with its counterpart in another version of the document.
func (s Section) key() string {
	if s.SectionID != "" {
		return "id:" + s.SectionID
	}
	return "name:" + s.Identifier
}

// ExtractSections walks the document and returns its sections in document
// order. Nested markers belong to the outermost section. A document without
// markers is returned as a single WholeDocument section.
func ExtractSections(doc string, m Markers) ([]Section, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	var sections []Section
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && m.matches(n) {
			sections = append(sections, newSection(n, m, len(sections)))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if len(sections) == 0 {
		body := findBody(root)
		if body == nil {
			body = root
		}
		return []Section{{Identifier: WholeDocument, Text: renderText(body)}}, nil
	}
	return sections, nil
}

// ComputeChanges diffs every section present in both versions and returns one
// TextChange per section whose text differs. Sections added or removed
// between the versions are not reported.
func ComputeChanges(originalHTML, editedHTML string, m Markers) ([]models.TextChange, error) {
	before, err := ExtractSections(originalHTML, m)
	if err != nil {
		return nil, fmt.Errorf("original: %w", err)
	}
	after, err := ExtractSections(editedHTML, m)
	if err != nil {
		return nil, fmt.Errorf("edited: %w", err)
	}

	edited := make(map[string]Section, len(after))
	for _, s := range after {
		if _, dup := edited[s.key()]; !dup {
			edited[s.key()] = s
		}
	}

	var changes []models.TextChange
	for _, orig := range before {
		upd, ok := edited[orig.key()]
		if !ok {
			continue
		}
		for _, c := range Diff(orig.Text, upd.Text) {
			changes = append(changes, models.TextChange{
				SectionIdentifier: orig.Identifier,
				SectionID:         orig.SectionID,
				OriginalText:      c.Original,
				NewText:           c.New,
			})
		}
	}
	return changes, nil
}

func (m Markers) matches(n *html.Node) bool {
	for _, a := range n.Attr {
		if m.Attribute != "" && a.Key == m.Attribute {
			return true
		}
		if m.Class != "" && a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == m.Class {
					return true
				}
			}
		}
	}
	return false
}

func newSection(n *html.Node, m Markers, pos int) Section {
	s := Section{Text: renderText(n)}
	s.SectionID = attr(n, m.Attribute)
	if s.SectionID == "" {
		s.SectionID = attr(n, "id")
	}
	if h := firstHeading(n); h != nil {
		s.Title = collapse(renderText(h))
	}
	switch {
	case s.Title != "":
		s.Identifier = s.Title
	case s.SectionID != "":
		s.Identifier = s.SectionID
	default:
		s.Identifier = fmt.Sprintf("section-%d", pos+1)
	}
	return s
}

func attr(n *html.Node, key string) string {
	if key == "" {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func firstHeading(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			switch c.DataAtom {
			case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				return c
			}
			if h := firstHeading(c); h != nil {
				return h
			}
		}
	}
	return nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

var blockAtoms = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Li: true, atom.Ul: true, atom.Ol: true, atom.Table: true, atom.Tr: true,
	atom.Td: true, atom.Th: true, atom.Blockquote: true, atom.Pre: true, atom.Br: true,
	atom.Header: true, atom.Footer: true,
}

// renderText returns the visible text of n with one line per block element
// and whitespace collapsed inside each line.
func renderText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
		}
		block := n.Type == html.ElementNode && blockAtoms[n.DataAtom]
		if block {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte('\n')
		}
	}
	walk(n)

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line = collapse(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
