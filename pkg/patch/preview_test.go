package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreview_PerOccurrenceDecisions(t *testing.T) {
	doc := `<p>cat and cat and cat</p>`
	p, ok := NewApplier("").NewPreview(doc, "cat", "dog", true)
	require.True(t, ok)
	require.Len(t, p.Occurrences(), 3)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, StrategyExact, p.Strategy())

	require.NoError(t, p.Resolve(0, true))
	require.NoError(t, p.Resolve(1, false))
	assert.Equal(t, []Decision{DecisionAccepted, DecisionRejected, DecisionPending}, p.Decisions())

	assert.Equal(t,
		`<p><span class="edit-preview" data-occurrence="0" data-decision="accepted"><ins>dog</ins></span>`+
			` and <span class="edit-preview" data-occurrence="1" data-decision="rejected"><del>cat</del></span>`+
			` and <span class="edit-preview" data-occurrence="2" data-decision="pending"><del>cat</del><ins>dog</ins></span></p>`,
		p.Annotated())

	r := p.Result()
	assert.True(t, r.Applied)
	assert.Equal(t, 2, r.Count)
	assert.Equal(t, `<p>dog and cat and dog</p>`, r.HTML)
	assert.Equal(t, doc, p.Source, "preview never touches its source")
}

func TestPreview_AnnotatedEscapesProposedText(t *testing.T) {
	p, ok := NewApplier("").NewPreview(`<p>cat</p>`, "cat", `<b>dog</b> & co`, true)
	require.True(t, ok)
	assert.Equal(t,
		`<p><span class="edit-preview" data-occurrence="0" data-decision="pending">`+
			`<del>cat</del><ins>&lt;b&gt;dog&lt;/b&gt; &amp; co</ins></span></p>`,
		p.Annotated())
}

func TestPreview_SingleOccurrence(t *testing.T) {
	p, ok := NewApplier("").NewPreview(`<p>cat and cat</p>`, "cat", "dog", false)
	require.True(t, ok)
	assert.Len(t, p.Occurrences(), 1)
	assert.Equal(t, `<p>dog and cat</p>`, p.Result().HTML)
}

func TestPreview_AllRejected(t *testing.T) {
	doc := `<p>cat</p>`
	p, ok := NewApplier("").NewPreview(doc, "cat", "dog", true)
	require.True(t, ok)
	require.NoError(t, p.Resolve(0, false))

	r := p.Result()
	assert.False(t, r.Applied)
	assert.Equal(t, doc, r.HTML)
}

func TestPreview_ResolveOutOfRange(t *testing.T) {
	p, ok := NewApplier("").NewPreview(`<p>cat</p>`, "cat", "dog", true)
	require.True(t, ok)
	assert.ErrorIs(t, p.Resolve(1, true), ErrOccurrenceRange)
	assert.ErrorIs(t, p.Resolve(-1, true), ErrOccurrenceRange)
}

func TestPreview_NoMatch(t *testing.T) {
	p, ok := NewApplier("").NewPreview(`<p>cat</p>`, "horse", "dog", true)
	assert.False(t, ok)
	assert.Nil(t, p)
}

func TestPreview_FallbackStrategyRewraps(t *testing.T) {
	doc := `<p><span class="selectable-text">Hello</span> <span class="selectable-text">World</span></p>`
	p, ok := NewApplier("").NewPreview(doc, "Hello World", "Hi", true)
	require.True(t, ok)
	assert.Equal(t, StrategyUnwrapped, p.Strategy())
	assert.Equal(t, `<p><span class="selectable-text">Hi</span></p>`, p.Result().HTML)
}
