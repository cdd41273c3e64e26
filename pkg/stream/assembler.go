// Package stream assembles streamed agent turns into the session transcript.
package stream

import (
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/drafter/pkg/events"
	"github.com/codeready-toolchain/drafter/pkg/models"
)

// Assembler is the ordered, append-only transcript of one session. The only
// in-place update is the streaming row, addressed by events.StreamingMessageID,
// which is overwritten by every chunk until the turn completes.
//
// Assembler is not safe for concurrent use; the session controller serializes
// access to it.
type Assembler struct {
	projectID string
	messages  []models.Message
	index     map[string]int

	now   func() time.Time
	newID func() string
}

// NewAssembler returns an empty transcript. projectID is stamped on every row.
func NewAssembler(projectID string) *Assembler {
	return &Assembler{
		projectID: projectID,
		index:     make(map[string]int),
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// OnChunk overwrites the streaming row for sessionID with the cumulative text,
// creating the row on the first chunk of a turn.
func (a *Assembler) OnChunk(sessionID, cumulativeText string) models.Message {
	id := events.StreamingMessageID(sessionID)
	if i, ok := a.index[id]; ok {
		a.messages[i].Content = cumulativeText
		return a.messages[i].Clone()
	}
	return a.add(models.Message{
		ID:          id,
		Kind:        models.MessageKindAI,
		Content:     cumulativeText,
		SessionID:   sessionID,
		IsStreaming: true,
	})
}

// OnComplete finalizes the turn. The streaming row, when present, receives the
// final text and suggestions, loses its streaming flag and gets a permanent id
// so the next turn starts a fresh row. Without a streaming row a finalized
// message is appended.
func (a *Assembler) OnComplete(sessionID, finalText string, suggestions []string) models.Message {
	id := events.StreamingMessageID(sessionID)
	i, ok := a.index[id]
	if !ok {
		return a.add(models.Message{
			Kind:        models.MessageKindAI,
			Content:     finalText,
			SessionID:   sessionID,
			Suggestions: suggestions,
		})
	}

	msg := &a.messages[i]
	if finalText != "" {
		msg.Content = finalText
	}
	msg.Suggestions = append([]string(nil), suggestions...)
	if len(msg.Suggestions) == 0 {
		msg.Suggestions = nil
	}
	msg.IsStreaming = false
	delete(a.index, id)
	msg.ID = a.newID()
	a.index[msg.ID] = i
	return msg.Clone()
}

// Append adds a finished row. Empty ID and zero Timestamp are filled in.
func (a *Assembler) Append(msg models.Message) models.Message {
	msg.IsStreaming = false
	return a.add(msg)
}

// Streaming returns the in-flight row for sessionID, if a turn is streaming.
func (a *Assembler) Streaming(sessionID string) (models.Message, bool) {
	i, ok := a.index[events.StreamingMessageID(sessionID)]
	if !ok {
		return models.Message{}, false
	}
	return a.messages[i].Clone(), true
}

// Messages returns a snapshot of the transcript in arrival order.
func (a *Assembler) Messages() []models.Message {
	out := make([]models.Message, len(a.messages))
	for i, m := range a.messages {
		out[i] = m.Clone()
	}
	return out
}

// Len returns the number of rows.
func (a *Assembler) Len() int {
	return len(a.messages)
}

func (a *Assembler) add(msg models.Message) models.Message {
	if msg.ID == "" {
		msg.ID = a.newID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = a.now()
	}
	if msg.ProjectID == "" {
		msg.ProjectID = a.projectID
	}
	msg = msg.Clone()
	a.index[msg.ID] = len(a.messages)
	a.messages = append(a.messages, msg)
	return msg.Clone()
}
