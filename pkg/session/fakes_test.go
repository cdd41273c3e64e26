package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/drafter/pkg/connection"
	"github.com/codeready-toolchain/drafter/pkg/models"
)

const waitFor = 2 * time.Second

// fakeTransport records calls and lets tests deliver events synchronously.
type fakeTransport struct {
	mu       sync.Mutex
	state    models.ConnectionState
	gen      uint64
	session  string
	connects []string
	closes   int
	sent     [][]byte
	sendErr  error

	listener connection.Listener
	creds    connection.CredentialStore
	active   func(string) bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{state: models.ConnectionDisconnected}
}

func (f *fakeTransport) Connect(sessionID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects = append(f.connects, sessionID)
	f.session = sessionID
	f.gen++
	f.state = models.ConnectionConnecting
	return nil
}

func (f *fakeTransport) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	f.gen++
	f.state = models.ConnectionDisconnected
}

func (f *fakeTransport) Send(_ context.Context, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	if f.state != models.ConnectionConnected {
		return connection.ErrNotConnected
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeTransport) State() models.ConnectionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeTransport) Generation() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gen
}

func (f *fakeTransport) SetListener(l connection.Listener)                { f.listener = l }
func (f *fakeTransport) SetCredentialStore(cs connection.CredentialStore) { f.creds = cs }
func (f *fakeTransport) SetActiveCheck(fn func(string) bool)              { f.active = fn }

// open simulates the socket opening for the current generation.
func (f *fakeTransport) open() {
	f.mu.Lock()
	f.state = models.ConnectionConnected
	ev := connection.Event{Kind: connection.EventOpened, SessionID: f.session, Generation: f.gen}
	f.mu.Unlock()
	f.listener(ev)
}

// reconnect simulates a drop followed by a successful redial.
func (f *fakeTransport) reconnect() {
	f.mu.Lock()
	f.gen++
	f.mu.Unlock()
	f.open()
}

func (f *fakeTransport) frame(raw string) {
	f.mu.Lock()
	ev := connection.Event{Kind: connection.EventFrame, SessionID: f.session, Generation: f.gen, Data: []byte(raw)}
	f.mu.Unlock()
	f.listener(ev)
}

func (f *fakeTransport) emit(ev connection.Event, state models.ConnectionState) {
	f.mu.Lock()
	f.state = state
	if ev.SessionID == "" {
		ev.SessionID = f.session
	}
	if ev.Generation == 0 {
		ev.Generation = f.gen
	}
	f.mu.Unlock()
	f.listener(ev)
}

func (f *fakeTransport) sentFrames() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.sent))
	for _, data := range f.sent {
		var m map[string]any
		_ = json.Unmarshal(data, &m)
		out = append(out, m)
	}
	return out
}

func (f *fakeTransport) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.connects)
}

type fakeTokens struct {
	mu  sync.Mutex
	set []string
}

func (f *fakeTokens) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.set = append(f.set, token)
}

func (f *fakeTokens) history() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.set...)
}

type fakeHistory struct {
	mu          sync.Mutex
	entries     []models.HistoryEntry
	err         error
	calls       int
	invalidated []string
}

func (h *fakeHistory) FetchHistory(_ context.Context, _ string) ([]models.HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	return h.entries, h.err
}

func (h *fakeHistory) InvalidateHistory(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.invalidated = append(h.invalidated, sessionID)
}

type fakeDocuments struct {
	mu    sync.Mutex
	doc   models.Document
	err   error
	calls int
}

func (d *fakeDocuments) FetchDocument(_ context.Context, _ string) (models.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return d.doc, d.err
}

func (d *fakeDocuments) set(doc models.Document) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.doc = doc
}

func (d *fakeDocuments) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type fakeEdits struct {
	mu       sync.Mutex
	requests []models.EditRequest
	respond  func(models.EditRequest) models.EditResult
	err      error
}

func (e *fakeEdits) SubmitEdit(_ context.Context, req models.EditRequest) (models.EditResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, req)
	if e.err != nil {
		return models.EditResult{}, e.err
	}
	if e.respond != nil {
		return e.respond(req), nil
	}
	return models.EditResult{PreviewMode: req.Preview}, nil
}

func (e *fakeEdits) submitted() []models.EditRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.EditRequest(nil), e.requests...)
}

func newTestController(t *testing.T, collab Collaborators) (*Controller, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport()
	opts := DefaultOptions()
	opts.FetchTimeout = time.Second
	c := NewController(ft, collab, opts)
	t.Cleanup(c.EndSession)
	return c, ft
}

// startConnected starts a session and opens its socket.
func startConnected(t *testing.T, c *Controller, ft *fakeTransport, sessionID, projectID string) {
	t.Helper()
	require.NoError(t, c.StartSession(context.Background(), sessionID, projectID, "tok"))
	ft.open()
	require.Equal(t, models.ConnectionConnected, c.Snapshot().Session.ConnectionState)
}

// startWithDocument starts a connected session whose document is loaded.
func startWithDocument(t *testing.T, content string, edits EditService) (*Controller, *fakeTransport) {
	t.Helper()
	docs := &fakeDocuments{doc: models.Document{ID: "doc-1", Title: "Proposal", Content: content}}
	c, ft := newTestController(t, Collaborators{Documents: docs, Edits: edits})
	startConnected(t, c, ft, "s1", "p1")
	require.Eventually(t, func() bool { return c.Snapshot().Document.Content == content }, waitFor, 5*time.Millisecond)
	return c, ft
}
