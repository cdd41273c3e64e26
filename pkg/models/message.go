package models

import "time"

// MessageKind classifies a transcript entry.
type MessageKind string

const (
	MessageKindUser           MessageKind = "user"
	MessageKindAI             MessageKind = "ai"
	MessageKindProposal       MessageKind = "proposal"
	MessageKindError          MessageKind = "error"
	MessageKindEditSuggestion MessageKind = "edit_suggestion"
)

// Message is one entry of the session transcript.
// Streaming messages are updated in place until IsStreaming is cleared.
type Message struct {
	ID          string      `json:"id"`
	Kind        MessageKind `json:"kind"`
	Content     string      `json:"content"`
	Timestamp   time.Time   `json:"timestamp"`
	SessionID   string      `json:"session_id"`
	ProjectID   string      `json:"project_id,omitempty"`
	IsStreaming bool        `json:"is_streaming"`
	Suggestions []string    `json:"suggestions,omitempty"`
	EditData    *EditData   `json:"edit_data,omitempty"`
}

// Clone returns a copy that shares no slices with the receiver.
func (m Message) Clone() Message {
	out := m
	if m.Suggestions != nil {
		out.Suggestions = append([]string(nil), m.Suggestions...)
	}
	if m.EditData != nil {
		ed := *m.EditData
		out.EditData = &ed
	}
	return out
}

// HistoryEntry is one prior conversation turn returned by the history collaborator.
type HistoryEntry struct {
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// KindForRole maps a history role onto a transcript MessageKind.
func KindForRole(role string) MessageKind {
	switch role {
	case "user", "human":
		return MessageKindUser
	case "proposal":
		return MessageKindProposal
	case "error":
		return MessageKindError
	default:
		return MessageKindAI
	}
}
