package session

import (
	"context"
	"time"

	"github.com/codeready-toolchain/drafter/pkg/connection"
	"github.com/codeready-toolchain/drafter/pkg/models"
	"github.com/codeready-toolchain/drafter/pkg/patch"
	"github.com/codeready-toolchain/drafter/pkg/progress"
	"github.com/codeready-toolchain/drafter/pkg/textdiff"
)

// Transport is the socket owner driven by the controller.
// *connection.ConnectionManager implements it. Connect (with a non-empty
// token), Close and Send must not invoke the listener synchronously.
type Transport interface {
	Connect(sessionID, token string) error
	Close()
	Send(ctx context.Context, v any) error
	State() models.ConnectionState
	Generation() uint64
	SetListener(l connection.Listener)
	SetCredentialStore(cs connection.CredentialStore)
	SetActiveCheck(fn func(sessionID string) bool)
}

// HistoryFetcher returns the prior turns of a session, oldest first.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, sessionID string) ([]models.HistoryEntry, error)
}

// DocumentFetcher returns the current generated document of a project.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, projectID string) (models.Document, error)
}

// EditService previews or commits a text change on the backend.
type EditService interface {
	SubmitEdit(ctx context.Context, req models.EditRequest) (models.EditResult, error)
}

// TokenStore holds the bearer token the REST collaborators send. The
// controller installs the session token on start and clears it when the
// backend rejects it.
type TokenStore interface {
	SetToken(token string)
}

// historyInvalidator is implemented by history fetchers that cache.
type historyInvalidator interface {
	InvalidateHistory(sessionID string)
}

// Collaborators are the REST-side dependencies. Any of them may be nil.
type Collaborators struct {
	History   HistoryFetcher
	Documents DocumentFetcher
	Edits     EditService
	Tokens    TokenStore
}

// Options tune controller behavior.
type Options struct {
	// HydrateHistory loads prior turns into the transcript on session start.
	HydrateHistory bool

	// LoadDocumentOnStart fetches the document when the first socket opens.
	LoadDocumentOnStart bool

	SelectableClass string
	Markers         textdiff.Markers

	// FetchTimeout bounds each background document fetch.
	FetchTimeout time.Duration
}

// DefaultOptions returns the options used by the CLI when none are configured.
func DefaultOptions() Options {
	return Options{
		HydrateHistory:      true,
		LoadDocumentOnStart: true,
		SelectableClass:     patch.DefaultSelectableClass,
		Markers:             textdiff.DefaultMarkers,
		FetchTimeout:        30 * time.Second,
	}
}

// PreviewInfo is the render view of an open two-phase edit.
type PreviewInfo struct {
	ID          string
	Original    string
	Proposed    string
	ApplyToAll  bool
	Strategy    patch.Strategy
	Occurrences []patch.Occurrence
	Decisions   []patch.Decision

	// Annotated is the local document with inline accept/reject markup,
	// empty when the edit only matched on the backend.
	Annotated string

	// ServerHTML is the backend's preview_html, when it returned one.
	ServerHTML string
}

// Snapshot is a consistent copy of the session state for rendering.
type Snapshot struct {
	Session       models.Session
	Messages      []models.Message
	Document      models.Document
	Progress      models.GenerationProgress
	ProgressState progress.State
	PendingEdit   *models.EditData
	Preview       *PreviewInfo
}

// SaveReport describes a section save.
type SaveReport struct {
	Changes []models.TextChange
	Results []models.EditResult
}
