// Package patch locates an edit's original text inside an HTML document and
// substitutes the proposed text, falling back through progressively looser
// matching strategies.
//
// Strategies, each tried only when the previous one finds nothing:
//
//  1. Exact: the original is a literal substring of the document.
//  2. Unwrapped: the original is a literal substring once selection-helper
//     spans are removed. The result is re-wrapped.
//  3. PlainText: the original's visible text, whitespace-collapsed, matches the
//     document's visible text case-insensitively. The corresponding HTML range
//     of the unwrapped document is replaced and the result re-wrapped.
//
// When nothing matches the document is returned unchanged. A failed patch is
// a value, never an error.
package patch

import (
	"log/slog"
	"strings"
)

// Strategy identifies which matching strategy located the original text.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyExact
	StrategyUnwrapped
	StrategyPlainText
)

func (s Strategy) String() string {
	switch s {
	case StrategyExact:
		return "exact"
	case StrategyUnwrapped:
		return "unwrapped"
	case StrategyPlainText:
		return "plain_text"
	}
	return "none"
}

// Span is a half-open byte range [Start, End) of Matches.Base.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Occurrence is one place an edit applies: where, what is there now, and what
// would replace it.
type Occurrence struct {
	Span   Span   `json:"span"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// Matches is the outcome of locating an edit. Spans index into Base, which is
// the document itself for StrategyExact and the unwrapped document otherwise.
type Matches struct {
	Base        string
	Strategy    Strategy
	Occurrences []Occurrence
}

// Result describes a patch attempt.
type Result struct {
	HTML     string
	Applied  bool
	Strategy Strategy
	Count    int
}

// Applier applies edits for documents using a given selection-helper class.
type Applier struct {
	SelectableClass string
	logger          *slog.Logger
}

// NewApplier returns an Applier. An empty class selects DefaultSelectableClass.
func NewApplier(selectableClass string) *Applier {
	if selectableClass == "" {
		selectableClass = DefaultSelectableClass
	}
	return &Applier{
		SelectableClass: selectableClass,
		logger:          slog.With("component", "patch"),
	}
}

var defaultApplier = NewApplier(DefaultSelectableClass)

// Apply replaces the first occurrence of original with proposed using the
// default selection-helper class.
func Apply(doc, original, proposed string) (string, bool) {
	r := defaultApplier.Apply(doc, original, proposed)
	return r.HTML, r.Applied
}

// Apply replaces the first occurrence of original.
func (a *Applier) Apply(doc, original, proposed string) Result {
	return a.apply(doc, original, proposed, false)
}

// ApplyAll replaces every occurrence found by the first strategy that finds any.
func (a *Applier) ApplyAll(doc, original, proposed string) Result {
	return a.apply(doc, original, proposed, true)
}

func (a *Applier) apply(doc, original, proposed string, all bool) Result {
	m := a.FindOccurrences(doc, original, proposed)
	if len(m.Occurrences) == 0 {
		a.logger.Debug("Edit did not match the document", "original_len", len(original))
		return Result{HTML: doc}
	}
	occ := m.Occurrences
	if !all {
		occ = occ[:1]
	}
	html := a.commit(m, occ)
	a.logger.Debug("Edit applied", "strategy", m.Strategy, "count", len(occ))
	return Result{HTML: html, Applied: true, Strategy: m.Strategy, Count: len(occ)}
}

// FindOccurrences locates every non-overlapping occurrence of original using
// the first strategy that yields at least one. It does not modify anything.
func (a *Applier) FindOccurrences(doc, original, proposed string) Matches {
	if strings.TrimSpace(original) == "" {
		return Matches{Base: doc}
	}

	if occ := literalOccurrences(doc, original, proposed); len(occ) > 0 {
		return Matches{Base: doc, Strategy: StrategyExact, Occurrences: occ}
	}

	clean := Unwrap(doc, a.SelectableClass)
	if clean != doc {
		if occ := literalOccurrences(clean, original, proposed); len(occ) > 0 {
			return Matches{Base: clean, Strategy: StrategyUnwrapped, Occurrences: occ}
		}
	}

	if occ := plainTextOccurrences(clean, original, proposed); len(occ) > 0 {
		return Matches{Base: clean, Strategy: StrategyPlainText, Occurrences: occ}
	}
	return Matches{Base: doc}
}

// commit rewrites m.Base with the chosen occurrences replaced. Occurrences
// must be a subset of m.Occurrences, in order.
func (a *Applier) commit(m Matches, chosen []Occurrence) string {
	var b strings.Builder
	last := 0
	for _, o := range chosen {
		b.WriteString(m.Base[last:o.Span.Start])
		b.WriteString(o.After)
		last = o.Span.End
	}
	b.WriteString(m.Base[last:])

	if m.Strategy == StrategyExact {
		return b.String()
	}
	return Wrap(b.String(), a.SelectableClass)
}

func literalOccurrences(base, original, proposed string) []Occurrence {
	var out []Occurrence
	for from := 0; ; {
		i := strings.Index(base[from:], original)
		if i < 0 {
			return out
		}
		start := from + i
		end := start + len(original)
		out = append(out, Occurrence{Span: Span{start, end}, Before: original, After: proposed})
		from = end
	}
}

func plainTextOccurrences(base, original, proposed string) []Occurrence {
	needle := foldRunes(buildTextMap(original).runes)
	if len(needle) == 0 {
		return nil
	}
	tm := buildTextMap(base)
	hay := foldRunes(tm.runes)

	var out []Occurrence
	for from := 0; ; {
		i := indexRunes(hay, needle, from)
		if i < 0 {
			return out
		}
		last := i + len(needle) - 1
		start, end := tm.starts[i], tm.ends[last]
		out = append(out, Occurrence{Span: Span{start, end}, Before: base[start:end], After: proposed})
		from = last + 1
	}
}
