package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/drafter/pkg/models"
	"github.com/codeready-toolchain/drafter/pkg/progress"
	"github.com/codeready-toolchain/drafter/pkg/session"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want command
	}{
		{line: "  hello there ", want: command{arg: "hello there"}},
		{line: "/quit", want: command{name: "quit"}},
		{line: "/Preview  cat => dog ", want: command{name: "preview", arg: "cat => dog"}},
		{line: "/keep 2", want: command{name: "keep", arg: "2"}},
		{line: "", want: command{}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, parseCommand(tt.line))
		})
	}
}

func TestParseReplacement(t *testing.T) {
	original, proposed, err := parseReplacement("the quick fox =>  the slow fox")
	require.NoError(t, err)
	assert.Equal(t, "the quick fox", original)
	assert.Equal(t, "the slow fox", proposed)

	original, proposed, err = parseReplacement("very =>")
	require.NoError(t, err)
	assert.Equal(t, "very", original)
	assert.Empty(t, proposed)

	_, _, err = parseReplacement("no arrow")
	assert.Error(t, err)
	_, _, err = parseReplacement(" => x")
	assert.Error(t, err)
}

func TestPrinter_Render(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf)

	snap := session.Snapshot{
		Session: models.Session{SessionID: "s1", ConnectionState: models.ConnectionConnected},
		Messages: []models.Message{
			{ID: "m1", Kind: models.MessageKindUser, Content: "Draft it"},
			{ID: "streaming-s1", Kind: models.MessageKindAI, Content: "Wor", IsStreaming: true},
		},
		Progress:      models.GenerationProgress{Stage: "outline", Percent: 20, IsActive: true},
		ProgressState: progress.StateRunning,
	}
	p.render(snap)

	out := buf.String()
	assert.Contains(t, out, "* connected")
	assert.Contains(t, out, "[user] Draft it")
	assert.NotContains(t, out, "Wor")
	assert.Contains(t, out, "... outline 20%")

	buf.Reset()
	snap.Messages[1] = models.Message{ID: "m2", Kind: models.MessageKindAI, Content: "Working on it", Suggestions: []string{"Shorter?"}}
	p.render(snap)

	out = buf.String()
	assert.NotContains(t, out, "Draft it", "finished messages print once")
	assert.Contains(t, out, "[ai] Working on it")
	assert.Contains(t, out, "? Shorter?")
	assert.NotContains(t, out, "outline", "unchanged progress is not repeated")
}
