package patch

import (
	"bytes"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultSelectableClass is the class of the selection-helper spans the
// editor wraps around text runs.
const DefaultSelectableClass = "selectable-text"

var (
	unwrapMu    sync.Mutex
	unwrapCache = map[string]*regexp.Regexp{}
)

func unwrapPattern(class string) *regexp.Regexp {
	unwrapMu.Lock()
	defer unwrapMu.Unlock()
	if re, ok := unwrapCache[class]; ok {
		return re
	}
	re := regexp.MustCompile(`<span\s+class\s*=\s*["']` + regexp.QuoteMeta(class) + `["']\s*>([^<]*)</span>`)
	unwrapCache[class] = re
	return re
}

// Unwrap removes selection-helper spans, keeping their text. Everything else
// is left byte-for-byte intact.
func Unwrap(doc, class string) string {
	if !strings.Contains(doc, class) {
		return doc
	}
	return unwrapPattern(class).ReplaceAllString(doc, "$1")
}

// Wrap puts every non-blank text run that is not already inside a
// selection-helper span into one. Wrap is idempotent. The document is
// re-serialized, so attribute quoting and entity spelling are normalized.
// Unparseable input is returned unchanged.
func Wrap(doc, class string) string {
	if looksLikeFullDocument(doc) {
		root, err := html.Parse(strings.NewReader(doc))
		if err != nil {
			return doc
		}
		wrapText(root, class)
		var buf bytes.Buffer
		if err := html.Render(&buf, root); err != nil {
			return doc
		}
		return buf.String()
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(doc), body)
	if err != nil {
		return doc
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	wrapText(body, class)

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return doc
		}
	}
	return buf.String()
}

func wrapText(n *html.Node, class string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch c.Type {
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				span := &html.Node{
					Type:     html.ElementNode,
					Data:     "span",
					DataAtom: atom.Span,
					Attr:     []html.Attribute{{Key: "class", Val: class}},
				}
				n.InsertBefore(span, c)
				n.RemoveChild(c)
				span.AppendChild(c)
			}
		case html.ElementNode, html.DocumentNode:
			if !skipWrap(c, class) {
				wrapText(c, class)
			}
		}
		c = next
	}
}

func skipWrap(n *html.Node, class string) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Textarea, atom.Title, atom.Head, atom.Pre:
		return true
	case atom.Span:
		return hasClass(n, class)
	}
	return false
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func looksLikeFullDocument(doc string) bool {
	head := strings.ToLower(strings.TrimSpace(doc))
	if len(head) > 64 {
		head = head[:64]
	}
	return strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html")
}
