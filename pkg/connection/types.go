// Package connection owns the single persistent socket between the client and
// the backend agent for the active session: connect, authenticate, detect
// close/error, reconnect with bounded exponential backoff, and debounce
// duplicate connect attempts.
package connection

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Close codes the manager distinguishes. The unauthorized code is configurable
// because backends disagree on it; DefaultUnauthorizedCode is the common one.
const (
	StatusNormalClosure   = 1000
	StatusGoingAway       = 1001
	StatusAbnormalClosure = 1006

	DefaultUnauthorizedCode = 4001
)

var (
	// ErrNotConnected is returned by Send when no socket is open.
	ErrNotConnected = errors.New("connection: not connected")

	// ErrMissingToken is returned by Connect when no bearer token is supplied.
	ErrMissingToken = errors.New("connection: missing auth token")

	// ErrMissingSession is returned by Connect when the session id is empty.
	ErrMissingSession = errors.New("connection: missing session id")

	// ErrUnauthorized marks a dial rejected by the backend's auth check.
	ErrUnauthorized = errors.New("connection: unauthorized")

	// ErrRetriesExhausted is carried by the Errored event emitted when the
	// reconnect budget runs out.
	ErrRetriesExhausted = errors.New("connection: reconnect attempts exhausted")
)

// CloseError is a close frame received from the peer.
// Conn implementations return it from Read so the manager can classify closes.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("connection closed: status %d: %s", e.Code, e.Reason)
}

// Conn is one open socket.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close(code int, reason string) error
}

// Dialer opens sockets. The token is the bearer credential for the handshake.
type Dialer interface {
	Dial(ctx context.Context, endpoint, token string) (Conn, error)
}

// CredentialStore is the external token store. The manager clears it when the
// backend rejects the credential.
type CredentialStore interface {
	Clear()
}

// EventKind enumerates lifecycle events.
type EventKind int

const (
	EventOpened EventKind = iota
	EventClosed
	EventErrored
	EventFrame
)

func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventClosed:
		return "closed"
	case EventErrored:
		return "errored"
	case EventFrame:
		return "frame"
	}
	return "unknown"
}

// Event is one lifecycle notification. Generation identifies the socket that
// produced it; events from a superseded socket carry an older generation.
type Event struct {
	Kind       EventKind
	SessionID  string
	Generation uint64
	Code       int    // EventClosed only
	Data       []byte // EventFrame only
	Err        error  // EventErrored, and EventClosed when a read error caused it
}

// Listener receives events. It is called from the socket's read goroutine,
// in arrival order, and never while the manager holds its lock.
type Listener func(Event)

// Config controls endpoint construction, timeouts and the retry policy.
type Config struct {
	// URL is the socket endpoint. "{session_id}" is replaced with the
	// path-escaped session id.
	URL string

	// TokenQueryParam, when set, also sends the token as this query parameter.
	TokenQueryParam string

	DialTimeout  time.Duration
	WriteTimeout time.Duration

	// DebounceInterval drops explicit Connect calls for the same session that
	// arrive sooner than this after the previous accepted one.
	DebounceInterval time.Duration

	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int

	UnauthorizedCode int
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		URL:              "ws://localhost:8000/ws/chat/{session_id}/",
		DialTimeout:      10 * time.Second,
		WriteTimeout:     10 * time.Second,
		DebounceInterval: 2 * time.Second,
		BaseDelay:        time.Second,
		MaxDelay:         30 * time.Second,
		MaxAttempts:      5,
		UnauthorizedCode: DefaultUnauthorizedCode,
	}
}

// Endpoint builds the dial URL for a session.
func (c Config) Endpoint(sessionID, token string) (string, error) {
	raw := strings.ReplaceAll(c.URL, "{session_id}", url.PathEscape(sessionID))
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", raw, err)
	}
	if c.TokenQueryParam != "" {
		q := u.Query()
		q.Set(c.TokenQueryParam, token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
