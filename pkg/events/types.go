// Package events defines the frames exchanged with the backend agent over the
// session socket and routes inbound frames to state transitions.
//
// ════════════════════════════════════════════════════════════════
// Turn Lifecycle Patterns
// ════════════════════════════════════════════════════════════════
//
// Agent replies arrive in one of two shapes. Both end with exactly one
// transcript row for the turn.
//
// Pattern 1: STREAMING
//
//   ai_message_chunk     {session_id, current_text: "Hel"}
//   ai_message_chunk     {session_id, current_text: "Hello wor"}   (repeated)
//   ai_message_complete  {session_id, message: "Hello world", suggested_questions}
//
//   Chunks carry the CUMULATIVE text so far, not a delta. Consumers
//   overwrite the streaming row; they never concatenate chunk payloads.
//   The completion frame carries the authoritative final text.
//
// Pattern 2: SINGLE SHOT
//
//   ai_message           {session_id, message, suggested_questions}
//
//   Appended as a finished row immediately.
//
// Generation jobs (proposal drafting) are bracketed by generation_started
// and generation_completed / generation_error, with any number of
// generation_progress frames in between.
//
// ════════════════════════════════════════════════════════════════
package events

// FrameType is the discriminant carried in the "type" field of every frame.
type FrameType string

// Inbound frame types (backend → client).
const (
	FrameConnectionEstablished FrameType = "connection_established"

	// Streaming turn lifecycle, see package doc.
	FrameAIMessageChunk    FrameType = "ai_message_chunk"
	FrameAIMessageComplete FrameType = "ai_message_complete"
	FrameAIMessage         FrameType = "ai_message"

	FrameTitleGenerated FrameType = "title_generated"

	// Generation job lifecycle
	FrameGenerationStarted   FrameType = "generation_started"
	FrameGenerationProgress  FrameType = "generation_progress"
	FrameGenerationCompleted FrameType = "generation_completed"
	FrameGenerationError     FrameType = "generation_error"

	// Edit suggestion lifecycle
	FrameEditSuggestion FrameType = "edit_suggestion"
	FrameEditApplied    FrameType = "edit_applied"
	FrameEditRejected   FrameType = "edit_rejected"
	FrameEditError      FrameType = "edit_error"
)

// Outbound frame types (client → backend).
const (
	FrameChatMessage FrameType = "chat_message"
	FrameEditRequest FrameType = "edit_request"
)

// EditAction is the decision carried by an edit_request frame.
type EditAction string

const (
	EditActionAccept EditAction = "accept"
	EditActionReject EditAction = "reject"
)

// StreamingMessageID returns the deterministic transcript key of the
// in-flight streaming turn for a session.
// Format: "streaming-{session_id}"
func StreamingMessageID(sessionID string) string {
	return "streaming-" + sessionID
}
