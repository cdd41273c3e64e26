package events

import (
	"encoding/json"
	"fmt"

	"github.com/codeready-toolchain/drafter/pkg/models"
)

// Transition describes one state mutation derived from an inbound frame.
// Route never applies it; the session controller does, under its single
// mutation point.
type Transition interface {
	transition()
}

// ConnectionEstablished updates connection-level flags.
type ConnectionEstablished struct {
	AgentMode models.AgentMode // empty when the backend did not report one
}

// StreamChunk overwrites the streaming row with cumulative text.
type StreamChunk struct {
	SessionID string
	Text      string
}

// StreamComplete finalizes the streaming row.
type StreamComplete struct {
	SessionID   string
	Text        string
	Suggestions []string
}

// AppendMessage appends a finished transcript row.
type AppendMessage struct {
	SessionID   string
	Kind        models.MessageKind
	Content     string
	Suggestions []string
}

// TitleChanged updates the session and document title.
type TitleChanged struct {
	SessionID string
	Title     string
}

// GenerationStarted moves progress tracking to Running.
type GenerationStarted struct {
	SessionID string
	Message   string
}

// GenerationProgressed updates stage and percent of the running job.
type GenerationProgressed struct {
	SessionID string
	Stage     string
	Percent   int
}

// GenerationCompleted finishes the running job successfully.
type GenerationCompleted struct {
	SessionID string
	Message   string
}

// GenerationFailed finishes the running job with an error.
type GenerationFailed struct {
	SessionID string
	Message   string
}

// EditSuggested installs a pending edit suggestion.
type EditSuggested struct {
	SessionID        string
	Message          string
	Edit             models.EditData
	ShowAcceptReject bool
}

// EditOutcome is the backend's verdict on a previously requested edit decision.
type EditOutcome string

const (
	EditOutcomeApplied  EditOutcome = "applied"
	EditOutcomeRejected EditOutcome = "rejected"
	EditOutcomeError    EditOutcome = "error"
)

// EditResolved reports the result of an edit decision.
type EditResolved struct {
	SessionID string
	Outcome   EditOutcome
	Message   string
}

// Ignored is returned for unknown or malformed frames. Never fatal.
type Ignored struct {
	Type   FrameType
	Reason string
}

func (ConnectionEstablished) transition() {}
func (StreamChunk) transition()           {}
func (StreamComplete) transition()        {}
func (AppendMessage) transition()         {}
func (TitleChanged) transition()          {}
func (GenerationStarted) transition()     {}
func (GenerationProgressed) transition()  {}
func (GenerationCompleted) transition()   {}
func (GenerationFailed) transition()      {}
func (EditSuggested) transition()         {}
func (EditResolved) transition()          {}
func (Ignored) transition()               {}

// SessionOf returns the session a transition is addressed to, or "" when the
// frame is not session-scoped.
func SessionOf(t Transition) string {
	switch tr := t.(type) {
	case StreamChunk:
		return tr.SessionID
	case StreamComplete:
		return tr.SessionID
	case AppendMessage:
		return tr.SessionID
	case TitleChanged:
		return tr.SessionID
	case GenerationStarted:
		return tr.SessionID
	case GenerationProgressed:
		return tr.SessionID
	case GenerationCompleted:
		return tr.SessionID
	case GenerationFailed:
		return tr.SessionID
	case EditSuggested:
		return tr.SessionID
	case EditResolved:
		return tr.SessionID
	}
	return ""
}

// Route parses one raw frame and maps it onto a Transition.
// It performs no I/O. Malformed and unknown frames yield Ignored.
func Route(raw []byte) Transition {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Ignored{Reason: fmt.Sprintf("malformed frame: %v", err)}
	}

	switch env.Type {
	case FrameConnectionEstablished:
		var p ConnectionEstablishedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return malformed(env.Type, err)
		}
		return ConnectionEstablished{AgentMode: models.AgentMode(p.AgentMode)}

	case FrameAIMessageChunk:
		var p AIMessageChunkPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return malformed(env.Type, err)
		}
		if p.SessionID == "" {
			return missingField(env.Type, "session_id")
		}
		return StreamChunk{SessionID: p.SessionID, Text: p.CurrentText}

	case FrameAIMessageComplete, FrameAIMessage:
		var p AIMessagePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return malformed(env.Type, err)
		}
		if p.SessionID == "" {
			return missingField(env.Type, "session_id")
		}
		if env.Type == FrameAIMessageComplete {
			return StreamComplete{SessionID: p.SessionID, Text: p.Message, Suggestions: p.SuggestedQuestions}
		}
		return AppendMessage{
			SessionID:   p.SessionID,
			Kind:        models.MessageKindAI,
			Content:     p.Message,
			Suggestions: p.SuggestedQuestions,
		}

	case FrameTitleGenerated:
		var p TitleGeneratedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return malformed(env.Type, err)
		}
		if p.Title == "" {
			return missingField(env.Type, "title")
		}
		return TitleChanged{SessionID: p.SessionID, Title: p.Title}

	case FrameGenerationStarted, FrameGenerationCompleted, FrameGenerationError:
		var p GenerationPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return malformed(env.Type, err)
		}
		if p.SessionID == "" {
			return missingField(env.Type, "session_id")
		}
		switch env.Type {
		case FrameGenerationStarted:
			return GenerationStarted{SessionID: p.SessionID, Message: p.Message}
		case FrameGenerationCompleted:
			return GenerationCompleted{SessionID: p.SessionID, Message: p.Message}
		default:
			return GenerationFailed{SessionID: p.SessionID, Message: p.Message}
		}

	case FrameGenerationProgress:
		var p GenerationProgressPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return malformed(env.Type, err)
		}
		return GenerationProgressed{SessionID: p.SessionID, Stage: p.Stage, Percent: int(p.Progress)}

	case FrameEditSuggestion:
		var p EditSuggestionPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return malformed(env.Type, err)
		}
		if p.SessionID == "" {
			return missingField(env.Type, "session_id")
		}
		if p.EditData == nil || p.EditData.EditID == "" {
			return missingField(env.Type, "edit_data.edit_id")
		}
		edit := *p.EditData
		edit.Confidence = clampConfidence(edit.Confidence)
		return EditSuggested{
			SessionID:        p.SessionID,
			Message:          p.Message,
			Edit:             edit,
			ShowAcceptReject: p.ShowAcceptReject,
		}

	case FrameEditApplied, FrameEditRejected, FrameEditError:
		var p EditResultPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return malformed(env.Type, err)
		}
		if p.SessionID == "" {
			return missingField(env.Type, "session_id")
		}
		outcome := EditOutcomeApplied
		switch env.Type {
		case FrameEditRejected:
			outcome = EditOutcomeRejected
		case FrameEditError:
			outcome = EditOutcomeError
		}
		return EditResolved{SessionID: p.SessionID, Outcome: outcome, Message: p.Message}
	}

	return Ignored{Type: env.Type, Reason: "unknown frame type"}
}

func malformed(t FrameType, err error) Ignored {
	return Ignored{Type: t, Reason: fmt.Sprintf("malformed payload: %v", err)}
}

func missingField(t FrameType, field string) Ignored {
	return Ignored{Type: t, Reason: "missing required field " + field}
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
