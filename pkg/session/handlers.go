package session

import (
	"errors"

	"github.com/codeready-toolchain/drafter/pkg/connection"
	"github.com/codeready-toolchain/drafter/pkg/events"
	"github.com/codeready-toolchain/drafter/pkg/models"
)

// handleEvent is the transport listener. Events for another session or for
// a superseded socket generation are dropped.
func (c *Controller) handleEvent(ev connection.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.session.Active() || ev.SessionID != c.session.SessionID {
		c.logger.Debug("Dropping event for inactive session", "session_id", ev.SessionID, "kind", ev.Kind)
		return
	}

	switch ev.Kind {
	case connection.EventOpened:
		if ev.Generation != c.transport.Generation() {
			return
		}
		c.generation = ev.Generation
		c.session.ConnectionState = models.ConnectionConnected
		c.flushQueuedLocked()
		if c.opts.LoadDocumentOnStart && !c.documentLoaded[c.session.SessionID] {
			c.refreshDocumentLocked()
		}

	case connection.EventClosed, connection.EventErrored:
		if ev.Generation < c.generation {
			return
		}
		c.session.ConnectionState = c.transport.State()
		if errors.Is(ev.Err, connection.ErrRetriesExhausted) {
			c.appendLocked(models.MessageKindError, msgRetriesExhausted)
		}

	case connection.EventFrame:
		if ev.Generation != c.generation {
			c.logger.Debug("Dropping frame from superseded connection",
				"session_id", ev.SessionID, "generation", ev.Generation, "current", c.generation)
			return
		}
		c.applyLocked(events.Route(ev.Data))
	}
	c.notifyLocked()
}

// applyLocked is the single mutation point for inbound frames.
func (c *Controller) applyLocked(tr events.Transition) {
	sid := c.session.SessionID

	if ig, ok := tr.(events.Ignored); ok {
		c.logger.Warn("Ignoring frame", "session_id", sid, "type", ig.Type, "reason", ig.Reason)
		return
	}
	if target := events.SessionOf(tr); target != "" && target != sid {
		c.logger.Debug("Dropping frame addressed to another session", "session_id", sid, "target", target)
		return
	}

	switch t := tr.(type) {
	case events.ConnectionEstablished:
		if t.AgentMode != "" {
			c.session.AgentMode = t.AgentMode
		}

	case events.StreamChunk:
		c.transcript.OnChunk(sid, t.Text)

	case events.StreamComplete:
		c.transcript.OnComplete(sid, t.Text, t.Suggestions)

	case events.AppendMessage:
		c.transcript.Append(models.Message{
			Kind:        t.Kind,
			Content:     t.Content,
			SessionID:   sid,
			Suggestions: t.Suggestions,
		})

	case events.TitleChanged:
		c.session.Title = t.Title
		c.document.Title = t.Title

	case events.GenerationStarted:
		c.progress.Start()
		c.appendLocked(models.MessageKindAI, orDefault(t.Message, msgGenerationStarted))

	case events.GenerationProgressed:
		if !c.progress.Update(t.Stage, t.Percent) {
			c.logger.Debug("Ignoring progress regression", "session_id", sid, "stage", t.Stage, "percent", t.Percent)
		}

	case events.GenerationCompleted:
		c.progress.Complete()
		c.appendLocked(models.MessageKindProposal, orDefault(t.Message, msgGenerationCompleted))
		c.refreshDocumentLocked()

	case events.GenerationFailed:
		c.progress.Fail(t.Message)
		c.appendLocked(models.MessageKindError, orDefault(t.Message, msgGenerationFailed))

	case events.EditSuggested:
		edit := t.Edit
		c.transcript.Append(models.Message{
			Kind:      models.MessageKindEditSuggestion,
			Content:   t.Message,
			SessionID: sid,
			EditData:  &edit,
		})
		if t.ShowAcceptReject {
			pending := edit
			c.pendingEdit = &pending
		}

	case events.EditResolved:
		switch t.Outcome {
		case events.EditOutcomeApplied:
			c.appendLocked(models.MessageKindAI, orDefault(t.Message, msgEditApplied))
			c.refreshDocumentLocked()
		case events.EditOutcomeRejected:
			c.appendLocked(models.MessageKindAI, orDefault(t.Message, msgEditRejected))
		default:
			c.appendLocked(models.MessageKindError, orDefault(t.Message, msgEditFailed))
		}
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
