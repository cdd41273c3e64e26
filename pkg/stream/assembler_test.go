package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/drafter/pkg/models"
)

func TestAssembler_ChunksThenComplete(t *testing.T) {
	a := NewAssembler("p1")

	a.OnChunk("s1", "Hel")
	a.OnChunk("s1", "Hello wor")
	row, ok := a.Streaming("s1")
	require.True(t, ok)
	assert.Equal(t, "Hello wor", row.Content, "chunks overwrite, never concatenate")
	assert.True(t, row.IsStreaming)
	assert.Equal(t, "streaming-s1", row.ID)
	assert.Equal(t, "p1", row.ProjectID)

	final := a.OnComplete("s1", "Hello world", []string{"More?"})

	msgs := a.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hello world", msgs[0].Content)
	assert.False(t, msgs[0].IsStreaming)
	assert.Equal(t, []string{"More?"}, msgs[0].Suggestions)
	assert.NotEqual(t, "streaming-s1", msgs[0].ID)
	assert.Equal(t, final.ID, msgs[0].ID)

	_, ok = a.Streaming("s1")
	assert.False(t, ok)
}

func TestAssembler_ConsecutiveTurnsGetSeparateRows(t *testing.T) {
	a := NewAssembler("")

	a.OnChunk("s1", "first")
	a.OnComplete("s1", "first turn", nil)
	a.Append(models.Message{Kind: models.MessageKindUser, Content: "next", SessionID: "s1"})
	a.OnChunk("s1", "sec")
	a.OnComplete("s1", "second turn", nil)

	msgs := a.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "first turn", msgs[0].Content)
	assert.Equal(t, "next", msgs[1].Content)
	assert.Equal(t, "second turn", msgs[2].Content)
	assert.NotEqual(t, msgs[0].ID, msgs[2].ID)
}

func TestAssembler_CompleteWithoutChunks(t *testing.T) {
	a := NewAssembler("p1")

	msg := a.OnComplete("s1", "Just the answer", nil)

	assert.False(t, msg.IsStreaming)
	assert.Equal(t, models.MessageKindAI, msg.Kind)
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.Timestamp.IsZero())
	assert.Equal(t, 1, a.Len())
}

func TestAssembler_EmptyFinalTextKeepsStreamedContent(t *testing.T) {
	a := NewAssembler("")
	a.OnChunk("s1", "streamed body")
	msg := a.OnComplete("s1", "", nil)
	assert.Equal(t, "streamed body", msg.Content)
	assert.Nil(t, msg.Suggestions)
}

func TestAssembler_SessionsStreamIndependently(t *testing.T) {
	a := NewAssembler("")
	a.OnChunk("s1", "one")
	a.OnChunk("s2", "two")
	a.OnChunk("s1", "one more")

	msgs := a.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "one more", msgs[0].Content)
	assert.Equal(t, "two", msgs[1].Content)
}

func TestAssembler_SnapshotIsIsolated(t *testing.T) {
	a := NewAssembler("")
	a.OnComplete("s1", "answer", []string{"q1"})

	snap := a.Messages()
	snap[0].Content = "mutated"
	snap[0].Suggestions[0] = "mutated"

	again := a.Messages()
	assert.Equal(t, "answer", again[0].Content)
	assert.Equal(t, []string{"q1"}, again[0].Suggestions)
}

func TestAssembler_AppendKeepsGivenIdentity(t *testing.T) {
	a := NewAssembler("p1")
	in := models.Message{ID: "m-1", Kind: models.MessageKindError, Content: "boom", IsStreaming: true}
	out := a.Append(in)

	assert.Equal(t, "m-1", out.ID)
	assert.False(t, out.IsStreaming)
	assert.Equal(t, "p1", out.ProjectID)
}
