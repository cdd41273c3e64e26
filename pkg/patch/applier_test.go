package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_WrappedDocument(t *testing.T) {
	doc := `<p><span class="selectable-text">Hello World</span></p>`

	got, ok := Apply(doc, "Hello World", "Hi There")

	require.True(t, ok)
	assert.Contains(t, Unwrap(got, DefaultSelectableClass), "Hi There")
	assert.NotContains(t, got, "Hello World")
}

func TestApplier_Strategies(t *testing.T) {
	tests := []struct {
		name         string
		doc          string
		original     string
		proposed     string
		wantHTML     string
		wantStrategy Strategy
	}{
		{
			name:         "exact substring",
			doc:          `<p>The quick brown fox</p>`,
			original:     "quick",
			proposed:     "slow",
			wantHTML:     `<p>The slow brown fox</p>`,
			wantStrategy: StrategyExact,
		},
		{
			name:         "text split across selection spans",
			doc:          `<p><span class="selectable-text">Hello</span> <span class="selectable-text">World</span></p>`,
			original:     "Hello World",
			proposed:     "Hi There",
			wantHTML:     `<p><span class="selectable-text">Hi There</span></p>`,
			wantStrategy: StrategyUnwrapped,
		},
		{
			name:         "plain text across inline markup, case and whitespace insensitive",
			doc:          `<p>The <b>Quick</b>  brown fox</p>`,
			original:     "the quick brown",
			proposed:     "A slow brown",
			wantHTML:     `<p><span class="selectable-text">A slow brown fox</span></p>`,
			wantStrategy: StrategyPlainText,
		},
		{
			name:         "plain text through entities",
			doc:          `<p>Fish &amp; Chips</p>`,
			original:     "Fish & Chips",
			proposed:     "Burgers",
			wantHTML:     `<p><span class="selectable-text">Burgers</span></p>`,
			wantStrategy: StrategyPlainText,
		},
	}

	a := NewApplier("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := a.Apply(tt.doc, tt.original, tt.proposed)
			require.True(t, r.Applied)
			assert.Equal(t, tt.wantStrategy, r.Strategy)
			assert.Equal(t, tt.wantHTML, r.HTML)
			assert.Equal(t, 1, r.Count)
		})
	}
}

func TestApply_NoMatchLeavesDocumentUnchanged(t *testing.T) {
	doc := `<p><span class="selectable-text">Hello World</span></p>`

	assert.NotPanics(t, func() {
		got, ok := Apply(doc, "text that does not exist", "x")
		assert.False(t, ok)
		assert.Equal(t, doc, got)
	})
}

func TestApply_BlankOriginalNeverMatches(t *testing.T) {
	doc := `<p>Hello</p>`
	for _, orig := range []string{"", "   "} {
		got, ok := Apply(doc, orig, "x")
		assert.False(t, ok)
		assert.Equal(t, doc, got)
	}
}

func TestApplier_FirstOccurrenceOnly(t *testing.T) {
	r := NewApplier("").Apply(`<p>cat and cat</p>`, "cat", "dog")
	assert.Equal(t, `<p>dog and cat</p>`, r.HTML)
	assert.Equal(t, 1, r.Count)
}

func TestApplier_ApplyAll(t *testing.T) {
	a := NewApplier("")

	r := a.ApplyAll(`<p>cat and cat</p>`, "cat", "dog")
	assert.Equal(t, `<p>dog and dog</p>`, r.HTML)
	assert.Equal(t, 2, r.Count)

	r = a.ApplyAll(`<p>Big <i>Cat</i></p><p>big cat</p>`, "BIG CAT", "small dog")
	assert.Equal(t, StrategyPlainText, r.Strategy)
	assert.Equal(t, 2, r.Count)
	assert.Equal(t, `<p><span class="selectable-text">small dog</span></p><p><span class="selectable-text">small dog</span></p>`, r.HTML)
}

func TestApplier_FindOccurrences(t *testing.T) {
	m := NewApplier("").FindOccurrences(`<p>The <b>Quick</b> fox</p>`, "quick fox", "slow dog")

	assert.Equal(t, StrategyPlainText, m.Strategy)
	require.Len(t, m.Occurrences, 1)
	occ := m.Occurrences[0]
	assert.Equal(t, "Quick</b> fox", occ.Before)
	assert.Equal(t, "slow dog", occ.After)
	assert.Equal(t, occ.Before, m.Base[occ.Span.Start:occ.Span.End])
}

func TestApplier_CustomSelectableClass(t *testing.T) {
	doc := `<p><span class="sel">Hello</span> <span class="sel">World</span></p>`
	r := NewApplier("sel").Apply(doc, "Hello World", "Bye")
	require.True(t, r.Applied)
	assert.Equal(t, StrategyUnwrapped, r.Strategy)
	assert.Equal(t, `<p><span class="sel">Bye</span></p>`, r.HTML)
}
