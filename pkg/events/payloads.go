package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/codeready-toolchain/drafter/pkg/models"
)

// envelope reads only the discriminant of a frame.
type envelope struct {
	Type FrameType `json:"type"`
}

// ConnectionEstablishedPayload is sent once by the backend after the socket opens.
type ConnectionEstablishedPayload struct {
	Type      FrameType `json:"type"`                 // always FrameConnectionEstablished
	AgentMode string    `json:"agent_mode,omitempty"` // chat, generate, edit (optional)
	Message   string    `json:"message,omitempty"`
}

// AIMessageChunkPayload is the payload for ai_message_chunk frames.
type AIMessageChunkPayload struct {
	Type        FrameType `json:"type"`         // always FrameAIMessageChunk
	SessionID   string    `json:"session_id"`   // owning session
	CurrentText string    `json:"current_text"` // cumulative text so far
}

// AIMessagePayload is the payload for ai_message and ai_message_complete frames.
type AIMessagePayload struct {
	Type               FrameType `json:"type"`
	SessionID          string    `json:"session_id"`
	Message            string    `json:"message"`
	SuggestedQuestions []string  `json:"suggested_questions,omitempty"`
}

// TitleGeneratedPayload is the payload for title_generated frames.
type TitleGeneratedPayload struct {
	Type      FrameType `json:"type"`
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
}

// GenerationPayload is the payload for generation_started, generation_completed
// and generation_error frames. Message is optional on generation_completed.
type GenerationPayload struct {
	Type      FrameType `json:"type"`
	SessionID string    `json:"session_id"`
	Message   string    `json:"message,omitempty"`
}

// GenerationProgressPayload is the payload for generation_progress frames.
type GenerationProgressPayload struct {
	Type      FrameType   `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Stage     string      `json:"stage"`
	Progress  ProgressVal `json:"progress"`
}

// EditSuggestionPayload is the payload for edit_suggestion frames.
type EditSuggestionPayload struct {
	Type             FrameType        `json:"type"`
	SessionID        string           `json:"session_id"`
	Message          string           `json:"message"`
	EditData         *models.EditData `json:"edit_data"`
	ShowAcceptReject bool             `json:"show_accept_reject"`
}

// EditResultPayload is the payload for edit_applied, edit_rejected and edit_error frames.
type EditResultPayload struct {
	Type      FrameType `json:"type"`
	SessionID string    `json:"session_id"`
	Message   string    `json:"message"`
}

// ProgressVal accepts a JSON number or a numeric string and rounds it to an int.
// The backend is not consistent about which it sends. Values are clamped to
// [0, 100].
type ProgressVal int

// UnmarshalJSON implements json.Unmarshaler.
func (p *ProgressVal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("progress: %w", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("progress: non-finite value %q", data)
	}
	*p = ProgressVal(math.Round(max(0, min(f, 100))))
	return nil
}

// ChatMessageFrame is the outbound chat_message frame.
type ChatMessageFrame struct {
	Type            FrameType        `json:"type"` // always FrameChatMessage
	Message         string           `json:"message"`
	SessionID       string           `json:"session_id"`
	ProjectID       string           `json:"project_id"`
	DocumentContext *DocumentContext `json:"document_context,omitempty"`
}

// DocumentContext describes what the user is looking at when sending a message.
type DocumentContext struct {
	DocumentID   string `json:"document_id,omitempty"`
	SectionID    string `json:"section_id,omitempty"`
	SelectedText string `json:"selected_text,omitempty"`
}

// EditRequestFrame is the outbound edit_request frame.
type EditRequestFrame struct {
	Type      FrameType  `json:"type"` // always FrameEditRequest
	SessionID string     `json:"session_id"`
	EditID    string     `json:"edit_id"`
	Action    EditAction `json:"action"`
}

// NewChatMessageFrame builds a chat_message frame.
func NewChatMessageFrame(sessionID, projectID, text string, docCtx *DocumentContext) ChatMessageFrame {
	return ChatMessageFrame{
		Type:            FrameChatMessage,
		Message:         text,
		SessionID:       sessionID,
		ProjectID:       projectID,
		DocumentContext: docCtx,
	}
}

// NewEditRequestFrame builds an edit_request frame.
func NewEditRequestFrame(sessionID, editID string, action EditAction) EditRequestFrame {
	return EditRequestFrame{
		Type:      FrameEditRequest,
		SessionID: sessionID,
		EditID:    editID,
		Action:    action,
	}
}
