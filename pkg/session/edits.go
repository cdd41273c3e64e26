package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/drafter/pkg/events"
	"github.com/codeready-toolchain/drafter/pkg/models"
	"github.com/codeready-toolchain/drafter/pkg/patch"
	"github.com/codeready-toolchain/drafter/pkg/textdiff"
)

// openPreview is the side buffer of a two-phase edit.
type openPreview struct {
	id         string
	original   string
	proposed   string
	all        bool
	local      *patch.Preview // nil when only the backend matched
	serverHTML string
}

func (p *openPreview) info() PreviewInfo {
	info := PreviewInfo{
		ID:         p.id,
		Original:   p.original,
		Proposed:   p.proposed,
		ApplyToAll: p.all,
		ServerHTML: p.serverHTML,
	}
	if p.local != nil {
		info.Strategy = p.local.Strategy()
		info.Occurrences = p.local.Occurrences()
		info.Decisions = p.local.Decisions()
		info.Annotated = p.local.Annotated()
	}
	return info
}

func (p *openPreview) hasRejections() bool {
	if p.local == nil {
		return false
	}
	for _, d := range p.local.Decisions() {
		if d == patch.DecisionRejected {
			return true
		}
	}
	return false
}

// AcceptEdit accepts the pending suggestion: it sends the decision and then
// patches the local document optimistically. The returned Result reports
// whether the local patch matched; a miss is not an error.
func (c *Controller) AcceptEdit(ctx context.Context, editID string) (patch.Result, error) {
	edit, sid, epoch, err := c.takeEditDecision(ctx, editID, events.EditActionAccept)
	if err != nil {
		return patch.Result{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return patch.Result{}, ErrNoSession
	}
	c.clearPendingLocked(editID)

	res := c.applier.Apply(c.document.Content, edit.Original, edit.Proposed)
	if res.Applied {
		c.commitDocumentLocked(res.HTML)
		c.logger.Info("Applied accepted edit locally", "session_id", sid, "edit_id", editID, "strategy", res.Strategy)
	} else {
		c.logger.Warn("Accepted edit did not match the local document", "session_id", sid, "edit_id", editID)
		c.appendLocked(models.MessageKindError, msgPatchFailed)
	}
	c.notifyLocked()
	return res, nil
}

// RejectEdit rejects the pending suggestion.
func (c *Controller) RejectEdit(ctx context.Context, editID string) error {
	_, _, epoch, err := c.takeEditDecision(ctx, editID, events.EditActionReject)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch == epoch {
		c.clearPendingLocked(editID)
		c.notifyLocked()
	}
	return nil
}

// takeEditDecision validates the preconditions and sends the edit_request frame.
func (c *Controller) takeEditDecision(ctx context.Context, editID string, action events.EditAction) (models.EditData, string, uint64, error) {
	c.mu.Lock()
	if err := c.requireConnectedLocked(); err != nil {
		c.mu.Unlock()
		return models.EditData{}, "", 0, err
	}
	if c.pendingEdit == nil {
		c.mu.Unlock()
		return models.EditData{}, "", 0, ErrNoPendingEdit
	}
	if c.pendingEdit.EditID != editID {
		pending := c.pendingEdit.EditID
		c.mu.Unlock()
		return models.EditData{}, "", 0, fmt.Errorf("%w: pending %s, got %s", ErrEditMismatch, pending, editID)
	}
	edit := *c.pendingEdit
	sid, epoch := c.session.SessionID, c.epoch
	c.mu.Unlock()

	if err := c.transport.Send(ctx, events.NewEditRequestFrame(sid, editID, action)); err != nil {
		return models.EditData{}, "", 0, fmt.Errorf("send edit decision: %w", err)
	}
	return edit, sid, epoch, nil
}

func (c *Controller) clearPendingLocked(editID string) {
	if c.pendingEdit != nil && c.pendingEdit.EditID == editID {
		c.pendingEdit = nil
	}
}

// PreviewEdit opens a two-phase edit replacing original with proposed. The
// local document is matched with the patch fallback chain and, when an edit
// service is configured, the backend is asked for its own preview. ok is
// false when neither matched; nothing is opened in that case.
func (c *Controller) PreviewEdit(ctx context.Context, original, proposed string, applyToAll bool) (info PreviewInfo, ok bool, err error) {
	c.mu.Lock()
	if err := c.requireActiveLocked(); err != nil {
		c.mu.Unlock()
		return PreviewInfo{}, false, err
	}
	doc := c.document.Content
	sid, pid, epoch := c.session.SessionID, c.session.ProjectID, c.epoch
	c.mu.Unlock()

	local, matched := c.applier.NewPreview(doc, original, proposed, applyToAll)

	var serverHTML string
	if c.collab.Edits != nil && pid != "" {
		res, err := c.collab.Edits.SubmitEdit(ctx, models.EditRequest{
			SessionID:  sid,
			ProjectID:  pid,
			Change:     models.TextChange{OriginalText: original, NewText: proposed},
			Preview:    true,
			ApplyToAll: applyToAll,
		})
		if err != nil {
			return PreviewInfo{}, false, fmt.Errorf("request edit preview: %w", err)
		}
		serverHTML = res.PreviewHTML
	}

	if !matched && serverHTML == "" {
		c.logger.Warn("Edit preview matched nothing", "session_id", sid, "original_len", len(original))
		return PreviewInfo{}, false, nil
	}

	p := &openPreview{
		original:   original,
		proposed:   proposed,
		all:        applyToAll,
		serverHTML: serverHTML,
	}
	if matched {
		p.local = local
		p.id = local.ID
	} else {
		p.id = uuid.New().String()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return PreviewInfo{}, false, ErrNoSession
	}
	c.preview = p
	c.notifyLocked()
	return p.info(), true, nil
}

// ResolveOccurrence records the decision for one previewed occurrence.
func (c *Controller) ResolveOccurrence(index int, accept bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.preview == nil {
		return ErrNoPreview
	}
	if c.preview.local == nil {
		return fmt.Errorf("%w: preview has no local occurrences", patch.ErrOccurrenceRange)
	}
	if err := c.preview.local.Resolve(index, accept); err != nil {
		return err
	}
	c.notifyLocked()
	return nil
}

// DiscardPreview drops the open preview without touching the document.
func (c *Controller) DiscardPreview() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.preview == nil {
		return ErrNoPreview
	}
	c.preview = nil
	c.notifyLocked()
	return nil
}

// ConfirmPreview commits the open preview.
//
// With an edit service, the backend commits the change and its returned
// html_content replaces the document; without it the local preview result
// is committed. When some occurrences were rejected the backend cannot
// express the selection, so the local result is committed and its section
// changes are submitted instead.
func (c *Controller) ConfirmPreview(ctx context.Context) (patch.Result, error) {
	c.mu.Lock()
	if err := c.requireActiveLocked(); err != nil {
		c.mu.Unlock()
		return patch.Result{}, err
	}
	p := c.preview
	if p == nil {
		c.mu.Unlock()
		return patch.Result{}, ErrNoPreview
	}
	doc := c.document.Content
	sid, pid, epoch := c.session.SessionID, c.session.ProjectID, c.epoch
	c.mu.Unlock()

	local := c.localResult(p, doc)
	remote := c.collab.Edits != nil && pid != ""

	final := local
	switch {
	case !remote:
		// local result only

	case p.hasRejections():
		if local.Applied {
			changes, err := textdiff.ComputeChanges(doc, local.HTML, c.opts.Markers)
			if err != nil {
				return patch.Result{}, fmt.Errorf("compute section changes: %w", err)
			}
			results, err := c.submitChanges(ctx, sid, pid, changes, false)
			if err != nil {
				return patch.Result{}, err
			}
			if html := lastHTML(results); html != "" {
				final.HTML = html
			}
		}

	default:
		res, err := c.collab.Edits.SubmitEdit(ctx, models.EditRequest{
			SessionID:  sid,
			ProjectID:  pid,
			Change:     models.TextChange{OriginalText: p.original, NewText: p.proposed},
			ApplyToAll: p.all,
		})
		if err != nil {
			return patch.Result{}, fmt.Errorf("confirm edit: %w", err)
		}
		if res.HTMLContent != "" {
			final = patch.Result{
				HTML:     res.HTMLContent,
				Applied:  true,
				Strategy: local.Strategy,
				Count:    res.ReplacementsCount,
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return patch.Result{}, ErrNoSession
	}
	if c.preview == p {
		c.preview = nil
	}
	if final.Applied {
		c.commitDocumentLocked(final.HTML)
		c.logger.Info("Committed edit preview", "session_id", sid, "count", final.Count, "strategy", final.Strategy)
	} else {
		c.logger.Warn("Confirmed preview changed nothing", "session_id", sid)
	}
	c.notifyLocked()
	return final, nil
}

// localResult commits the local preview against doc. If the document was
// replaced since the preview opened, the edit is re-matched against the
// current body and per-occurrence decisions no longer apply.
func (c *Controller) localResult(p *openPreview, doc string) patch.Result {
	if p.local == nil {
		return patch.Result{HTML: doc}
	}
	if p.local.Source == doc {
		return p.local.Result()
	}
	c.logger.Info("Document changed under open preview, re-matching edit")
	if p.all {
		return c.applier.ApplyAll(doc, p.original, p.proposed)
	}
	return c.applier.Apply(doc, p.original, p.proposed)
}

// SubmitSectionEdits saves an edited copy of the document. The edited HTML
// is diffed section by section against the current document and every
// resulting change is submitted to the edit service, as a preview or as a
// commit. On commit the document becomes the backend's returned body, or the
// edited HTML when none was returned.
func (c *Controller) SubmitSectionEdits(ctx context.Context, editedHTML string, preview bool) (SaveReport, error) {
	c.mu.Lock()
	if err := c.requireActiveLocked(); err != nil {
		c.mu.Unlock()
		return SaveReport{}, err
	}
	doc := c.document.Content
	sid, pid, epoch := c.session.SessionID, c.session.ProjectID, c.epoch
	c.mu.Unlock()

	if doc == "" {
		return SaveReport{}, ErrNoDocument
	}

	changes, err := textdiff.ComputeChanges(doc, editedHTML, c.opts.Markers)
	if err != nil {
		return SaveReport{}, fmt.Errorf("compute section changes: %w", err)
	}
	report := SaveReport{Changes: changes}
	if len(changes) == 0 {
		return report, nil
	}

	if c.collab.Edits != nil && pid != "" {
		report.Results, err = c.submitChanges(ctx, sid, pid, changes, preview)
		if err != nil {
			return report, err
		}
	}
	if preview {
		return report, nil
	}

	final := editedHTML
	if html := lastHTML(report.Results); html != "" {
		final = html
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return report, ErrNoSession
	}
	c.commitDocumentLocked(final)
	c.logger.Info("Saved section edits", "session_id", sid, "changes", len(changes))
	c.notifyLocked()
	return report, nil
}

func (c *Controller) submitChanges(ctx context.Context, sessionID, projectID string, changes []models.TextChange, preview bool) ([]models.EditResult, error) {
	results := make([]models.EditResult, 0, len(changes))
	for _, ch := range changes {
		res, err := c.collab.Edits.SubmitEdit(ctx, models.EditRequest{
			SessionID: sessionID,
			ProjectID: projectID,
			Change:    ch,
			Preview:   preview,
		})
		if err != nil {
			return results, fmt.Errorf("submit change in section %q: %w", ch.SectionIdentifier, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func lastHTML(results []models.EditResult) string {
	for i := len(results) - 1; i >= 0; i-- {
		if results[i].HTMLContent != "" {
			return results[i].HTMLContent
		}
	}
	return ""
}
