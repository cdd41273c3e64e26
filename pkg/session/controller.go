// Package session is the composition root of the client. The Controller owns
// the single mutable session state: inbound frames and caller operations are
// both applied under one mutex, and background work (document fetches,
// queued sends) re-enters through the same lock and is discarded when the
// session it was started for has ended.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/codeready-toolchain/drafter/pkg/connection"
	"github.com/codeready-toolchain/drafter/pkg/events"
	"github.com/codeready-toolchain/drafter/pkg/models"
	"github.com/codeready-toolchain/drafter/pkg/patch"
	"github.com/codeready-toolchain/drafter/pkg/progress"
	"github.com/codeready-toolchain/drafter/pkg/stream"
)

const (
	msgGenerationStarted   = "Generating your proposal..."
	msgGenerationCompleted = "Proposal generated."
	msgGenerationFailed    = "Proposal generation failed."
	msgEditApplied         = "Edit applied."
	msgEditRejected        = "Edit rejected."
	msgEditFailed          = "The edit could not be applied."
	msgPatchFailed         = "The accepted edit was not found in the local document; it will refresh from the server."
	msgSendFailed          = "Message could not be delivered."
	msgRetriesExhausted    = "Connection lost. Start the session again to reconnect."
	msgUnauthorized        = "Authentication was rejected. Sign in again to continue."
)

// queuedMessage is a chat message waiting for its session's socket to open.
type queuedMessage struct {
	text   string
	echoed bool
}

// Controller serializes all session mutations.
//
// Lock order: Controller.mu before the transport's internal lock. The
// transport never calls back into the controller synchronously from Connect,
// Close or Send, so those may be invoked with mu held.
type Controller struct {
	transport Transport
	collab    Collaborators
	opts      Options
	applier   *patch.Applier
	logger    *slog.Logger
	changes   chan struct{}

	mu          sync.Mutex
	session     models.Session
	epoch       uint64 // bumped on every start and end
	generation  uint64 // socket generation whose frames are accepted
	ctx         context.Context
	cancel      context.CancelFunc
	transcript  *stream.Assembler
	progress    *progress.Tracker
	document    models.Document
	pendingEdit *models.EditData
	preview     *openPreview

	// Per-session bookkeeping, created on start and cleared on end.
	historyLoaded  map[string]bool
	documentLoaded map[string]bool
	pendingSent    map[string]map[string]bool
	queued         map[string][]queuedMessage
}

// NewController wires the controller to the transport's hooks.
func NewController(transport Transport, collab Collaborators, opts Options) *Controller {
	defaults := DefaultOptions()
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaults.FetchTimeout
	}
	if opts.Markers.Attribute == "" && opts.Markers.Class == "" {
		opts.Markers = defaults.Markers
	}

	c := &Controller{
		transport:      transport,
		collab:         collab,
		opts:           opts,
		applier:        patch.NewApplier(opts.SelectableClass),
		logger:         slog.With("component", "session"),
		changes:        make(chan struct{}, 1),
		session:        models.Session{ConnectionState: models.ConnectionDisconnected},
		ctx:            context.Background(),
		transcript:     stream.NewAssembler(""),
		progress:       progress.NewTracker(),
		historyLoaded:  make(map[string]bool),
		documentLoaded: make(map[string]bool),
		pendingSent:    make(map[string]map[string]bool),
		queued:         make(map[string][]queuedMessage),
	}

	transport.SetListener(c.handleEvent)
	transport.SetCredentialStore(credentialStore{c: c})
	transport.SetActiveCheck(c.isActive)
	return c
}

// Changes is signalled after every state mutation. Signals coalesce; readers
// re-render from Snapshot.
func (c *Controller) Changes() <-chan struct{} {
	return c.changes
}

// Snapshot returns a consistent copy of the session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Session:       c.session,
		Messages:      c.transcript.Messages(),
		Document:      c.document,
		Progress:      c.progress.Snapshot(),
		ProgressState: c.progress.State(),
	}
	if c.pendingEdit != nil {
		e := *c.pendingEdit
		s.PendingEdit = &e
	}
	if c.preview != nil {
		info := c.preview.info()
		s.Preview = &info
	}
	return s
}

// StartSession makes sessionID the active session and connects to it.
//
// It is a no-op when sessionID is already active with a live or pending
// socket. Otherwise the previous session is ended, all ephemeral state is
// reset, prior turns are loaded from the history collaborator, and the
// socket is opened. Connection progress is reported asynchronously.
func (c *Controller) StartSession(ctx context.Context, sessionID, projectID, token string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: empty session id", ErrNoSession)
	}

	c.mu.Lock()
	if c.session.SessionID == sessionID {
		switch c.transport.State() {
		case models.ConnectionConnected, models.ConnectionConnecting:
			c.mu.Unlock()
			c.logger.Debug("Session already active", "session_id", sessionID)
			return nil
		}
	}

	if c.session.Active() {
		c.endLocked()
	}
	c.resetLocked(sessionID, projectID)
	epoch := c.epoch

	hydrate := c.opts.HydrateHistory && c.collab.History != nil && !c.historyLoaded[sessionID]
	if hydrate {
		c.historyLoaded[sessionID] = true
	}
	c.notifyLocked()
	c.mu.Unlock()

	c.logger.Info("Starting session", "session_id", sessionID, "project_id", projectID)

	if token != "" && c.collab.Tokens != nil {
		c.collab.Tokens.SetToken(token)
	}

	var history []models.HistoryEntry
	var historyErr error
	if hydrate {
		history, historyErr = c.collab.History.FetchHistory(ctx, sessionID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		c.logger.Debug("Session start superseded", "session_id", sessionID)
		return nil
	}

	if hydrate {
		if historyErr != nil {
			delete(c.historyLoaded, sessionID)
			c.logger.Warn("Failed to load session history", "session_id", sessionID, "error", historyErr)
		} else {
			for _, h := range history {
				c.transcript.Append(models.Message{
					Kind:      models.KindForRole(h.Role),
					Content:   h.Message,
					Timestamp: h.Timestamp,
					SessionID: sessionID,
				})
			}
			c.logger.Debug("Loaded session history", "session_id", sessionID, "entries", len(history))
		}
	}

	if token == "" {
		c.session.ConnectionState = models.ConnectionError
		c.notifyLocked()
		c.logger.Error("Cannot connect without a token", "session_id", sessionID)
		return connection.ErrMissingToken
	}

	if err := c.transport.Connect(sessionID, token); err != nil {
		c.session.ConnectionState = c.transport.State()
		c.notifyLocked()
		return fmt.Errorf("connect session %s: %w", sessionID, err)
	}
	c.session.ConnectionState = c.transport.State()
	c.notifyLocked()
	return nil
}

// EndSession closes the socket with a normal closure and returns to the
// no-session state. Ending when no session is active is a no-op.
func (c *Controller) EndSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.Active() {
		return
	}
	c.logger.Info("Ending session", "session_id", c.session.SessionID)
	c.endLocked()
	c.notifyLocked()
}

// SendMessage sends a chat message and appends its local echo right away.
func (c *Controller) SendMessage(ctx context.Context, text string, docCtx *events.DocumentContext) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if err := c.requireConnectedLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	sid, pid, epoch := c.session.SessionID, c.session.ProjectID, c.epoch
	c.transcript.Append(models.Message{Kind: models.MessageKindUser, Content: text, SessionID: sid})
	c.notifyLocked()
	c.mu.Unlock()

	if err := c.transport.Send(ctx, events.NewChatMessageFrame(sid, pid, text, docCtx)); err != nil {
		c.mu.Lock()
		if c.epoch == epoch {
			c.appendLocked(models.MessageKindError, msgSendFailed)
			c.notifyLocked()
		}
		c.mu.Unlock()
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// QueueMessage stores a message for sessionID to be sent exactly once when
// that session's socket is open. If it is open now, the message goes out
// immediately. Queuing the same text twice for a session is a no-op.
func (c *Controller) QueueMessage(sessionID, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if sessionID == "" {
		return fmt.Errorf("%w: empty session id", ErrNoSession)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pendingSent[sessionID][text] {
		return nil
	}
	for _, q := range c.queued[sessionID] {
		if q.text == text {
			return nil
		}
	}
	c.queued[sessionID] = append(c.queued[sessionID], queuedMessage{text: text})

	if c.session.SessionID == sessionID && c.transport.State() == models.ConnectionConnected {
		c.flushQueuedLocked()
		c.notifyLocked()
	}
	return nil
}

func (c *Controller) requireActiveLocked() error {
	if !c.session.Active() {
		return ErrNoSession
	}
	return nil
}

func (c *Controller) requireConnectedLocked() error {
	if err := c.requireActiveLocked(); err != nil {
		return err
	}
	if c.transport.State() != models.ConnectionConnected {
		return ErrNotConnected
	}
	return nil
}

func (c *Controller) isActive(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sessionID != "" && c.session.SessionID == sessionID
}

// resetLocked installs a fresh, empty state for sessionID.
func (c *Controller) resetLocked(sessionID, projectID string) {
	if c.cancel != nil {
		c.cancel()
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.epoch++
	c.session = models.Session{
		SessionID:       sessionID,
		ProjectID:       projectID,
		ConnectionState: models.ConnectionDisconnected,
	}
	c.generation = 0
	c.transcript = stream.NewAssembler(projectID)
	c.progress.Reset()
	c.document = models.Document{}
	c.pendingEdit = nil
	c.preview = nil

	delete(c.historyLoaded, sessionID)
	delete(c.documentLoaded, sessionID)
	delete(c.pendingSent, sessionID)
}

// endLocked closes the socket and clears everything owned by the active session.
func (c *Controller) endLocked() {
	sid := c.session.SessionID
	c.transport.Close()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.ctx = context.Background()

	delete(c.historyLoaded, sid)
	delete(c.documentLoaded, sid)
	delete(c.pendingSent, sid)
	delete(c.queued, sid)
	if inv, ok := c.collab.History.(historyInvalidator); ok {
		inv.InvalidateHistory(sid)
	}

	c.epoch++
	c.session = models.Session{ConnectionState: models.ConnectionDisconnected}
	c.generation = 0
	c.transcript = stream.NewAssembler("")
	c.progress.Reset()
	c.document = models.Document{}
	c.pendingEdit = nil
	c.preview = nil
}

func (c *Controller) notifyLocked() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

func (c *Controller) appendLocked(kind models.MessageKind, content string) {
	c.transcript.Append(models.Message{Kind: kind, Content: content, SessionID: c.session.SessionID})
}

// flushQueuedLocked hands every queued message of the active session to a
// sender goroutine, marking each as sent so it goes out once.
func (c *Controller) flushQueuedLocked() {
	sid := c.session.SessionID
	pending := c.queued[sid]
	if len(pending) == 0 {
		return
	}
	delete(c.queued, sid)

	sent := c.pendingSent[sid]
	if sent == nil {
		sent = make(map[string]bool)
		c.pendingSent[sid] = sent
	}
	batch := make([]queuedMessage, 0, len(pending))
	for _, q := range pending {
		if sent[q.text] {
			continue
		}
		sent[q.text] = true
		if !q.echoed {
			c.transcript.Append(models.Message{Kind: models.MessageKindUser, Content: q.text, SessionID: sid})
			q.echoed = true
		}
		batch = append(batch, q)
	}
	if len(batch) > 0 {
		go c.sendQueued(c.ctx, c.epoch, sid, c.session.ProjectID, batch)
	}
}

func (c *Controller) sendQueued(ctx context.Context, epoch uint64, sessionID, projectID string, batch []queuedMessage) {
	for i, q := range batch {
		err := c.transport.Send(ctx, events.NewChatMessageFrame(sessionID, projectID, q.text, nil))
		if err == nil {
			continue
		}
		c.logger.Warn("Failed to send queued message, will retry on next connect",
			"session_id", sessionID, "error", err)

		c.mu.Lock()
		if c.epoch == epoch {
			for _, rest := range batch[i:] {
				delete(c.pendingSent[sessionID], rest.text)
			}
			c.queued[sessionID] = append(batch[i:len(batch):len(batch)], c.queued[sessionID]...)
			c.notifyLocked()
		}
		c.mu.Unlock()
		return
	}
}

// refreshDocumentLocked fetches the document in the background. The result
// is applied only if the session has not changed in the meantime.
func (c *Controller) refreshDocumentLocked() {
	sid, pid := c.session.SessionID, c.session.ProjectID
	if c.collab.Documents == nil || pid == "" {
		return
	}
	c.documentLoaded[sid] = true
	go c.fetchDocument(c.ctx, c.epoch, sid, pid)
}

func (c *Controller) fetchDocument(ctx context.Context, epoch uint64, sessionID, projectID string) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
	defer cancel()

	doc, err := c.collab.Documents.FetchDocument(ctx, projectID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return
	}
	if err != nil {
		delete(c.documentLoaded, sessionID)
		if !errors.Is(err, context.Canceled) {
			c.logger.Warn("Failed to fetch document", "session_id", sessionID, "project_id", projectID, "error", err)
		}
		return
	}
	if doc.Title == "" {
		doc.Title = c.session.Title
	}
	c.document = doc
	c.logger.Debug("Document refreshed", "session_id", sessionID, "document_id", doc.ID)
	c.notifyLocked()
}

// commitDocumentLocked replaces the document body. It is the only writer of
// document content besides a fetched refresh.
func (c *Controller) commitDocumentLocked(content string) {
	c.document.Content = content
	c.document.UpdatedAt = time.Now()
}

// credentialStore drops the REST bearer token when the transport reports an
// unauthorized close.
type credentialStore struct {
	c *Controller
}

func (s credentialStore) Clear() {
	c := s.c
	if c.collab.Tokens != nil {
		c.collab.Tokens.SetToken("")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.Active() {
		c.appendLocked(models.MessageKindError, msgUnauthorized)
		c.notifyLocked()
	}
}
