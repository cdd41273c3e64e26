package patch

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"
)

// ErrOccurrenceRange is returned when resolving an occurrence that does not exist.
var ErrOccurrenceRange = errors.New("patch: occurrence index out of range")

// Decision is the user's verdict on one previewed occurrence.
type Decision string

const (
	DecisionPending  Decision = "pending"
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
)

// Preview is the side buffer of a two-phase edit. Nothing reaches the
// document until the owner commits Result().HTML. Pending occurrences are
// treated as accepted on commit.
type Preview struct {
	ID       string
	Source   string // document the preview was computed against
	Original string
	Proposed string

	applier   *Applier
	matches   Matches
	decisions []Decision
}

// NewPreview locates the edit and opens a preview. With all=false only the
// first occurrence is offered. ok is false when the edit matches nothing.
func (a *Applier) NewPreview(doc, original, proposed string, all bool) (p *Preview, ok bool) {
	m := a.FindOccurrences(doc, original, proposed)
	if len(m.Occurrences) == 0 {
		return nil, false
	}
	if !all {
		m.Occurrences = m.Occurrences[:1]
	}
	p = &Preview{
		ID:        uuid.New().String(),
		Source:    doc,
		Original:  original,
		Proposed:  proposed,
		applier:   a,
		matches:   m,
		decisions: make([]Decision, len(m.Occurrences)),
	}
	for i := range p.decisions {
		p.decisions[i] = DecisionPending
	}
	return p, true
}

// Strategy returns the strategy that located the occurrences.
func (p *Preview) Strategy() Strategy {
	return p.matches.Strategy
}

// Occurrences returns the occurrences on offer.
func (p *Preview) Occurrences() []Occurrence {
	return append([]Occurrence(nil), p.matches.Occurrences...)
}

// Decisions returns the per-occurrence decisions, index-aligned with Occurrences.
func (p *Preview) Decisions() []Decision {
	return append([]Decision(nil), p.decisions...)
}

// Resolve records a decision for occurrence i.
func (p *Preview) Resolve(i int, accept bool) error {
	if i < 0 || i >= len(p.decisions) {
		return fmt.Errorf("%w: %d of %d", ErrOccurrenceRange, i, len(p.decisions))
	}
	if accept {
		p.decisions[i] = DecisionAccepted
	} else {
		p.decisions[i] = DecisionRejected
	}
	return nil
}

// Result applies every occurrence not rejected.
func (p *Preview) Result() Result {
	var chosen []Occurrence
	for i, o := range p.matches.Occurrences {
		if p.decisions[i] != DecisionRejected {
			chosen = append(chosen, o)
		}
	}
	if len(chosen) == 0 {
		return Result{HTML: p.Source, Strategy: p.matches.Strategy}
	}
	return Result{
		HTML:     p.applier.commit(p.matches, chosen),
		Applied:  true,
		Strategy: p.matches.Strategy,
		Count:    len(chosen),
	}
}

// Annotated renders the working document with each occurrence marked up for
// inline review:
//
//	<span class="edit-preview" data-occurrence="0" data-decision="pending"><del>old</del><ins>new</ins></span>
//
// Accepted occurrences show only the new text, rejected ones only the old.
// The old text is the raw document markup of the span and may hold unbalanced
// tags; the new text is escaped.
func (p *Preview) Annotated() string {
	base := p.matches.Base
	var b strings.Builder
	last := 0
	for i, o := range p.matches.Occurrences {
		b.WriteString(base[last:o.Span.Start])
		fmt.Fprintf(&b, `<span class="edit-preview" data-occurrence="%d" data-decision="%s">`, i, p.decisions[i])
		if p.decisions[i] != DecisionAccepted {
			b.WriteString("<del>" + o.Before + "</del>")
		}
		if p.decisions[i] != DecisionRejected {
			b.WriteString("<ins>" + html.EscapeString(o.After) + "</ins>")
		}
		b.WriteString("</span>")
		last = o.Span.End
	}
	b.WriteString(base[last:])
	return b.String()
}
