package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/codeready-toolchain/drafter/pkg/masking"
	"github.com/codeready-toolchain/drafter/pkg/models"
)

// ConnectionManager owns at most one live socket. Every dial gets a new
// generation number; work belonging to an older generation is discarded.
//
// Lock discipline: mu guards all fields below it. The listener, the credential
// store and the active-session check are always called with mu released.
type ConnectionManager struct {
	cfg    Config
	dialer Dialer
	masker *masking.Service
	logger *slog.Logger

	listener    Listener
	creds       CredentialStore
	stillActive func(sessionID string) bool
	hooksMu     sync.RWMutex

	mu         sync.Mutex
	state      models.ConnectionState
	sessionID  string
	token      string
	generation uint64
	conn       Conn
	cancel     context.CancelFunc
	policy     backoff.BackOff
	attempts   int
	timer      *time.Timer
	debounce   *rate.Limiter
	debounceID string
	now        func() time.Time
}

// NewConnectionManager creates a manager. A nil dialer selects WebsocketDialer.
func NewConnectionManager(cfg Config, dialer Dialer) *ConnectionManager {
	if dialer == nil {
		dialer = WebsocketDialer{}
	}
	if cfg.UnauthorizedCode == 0 {
		cfg.UnauthorizedCode = DefaultUnauthorizedCode
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	m := &ConnectionManager{
		cfg:    cfg,
		dialer: dialer,
		masker: masking.NewService(cfg.TokenQueryParam),
		logger: slog.With("component", "connection"),
		state:  models.ConnectionDisconnected,
		now:    time.Now,
	}
	m.policy = m.newPolicy()
	return m
}

// newPolicy builds delay = min(base * 2^attempt, cap) with the total number of
// dials per outage bounded by MaxAttempts.
func (m *ConnectionManager) newPolicy() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = m.cfg.BaseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = m.cfg.MaxDelay
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithMaxRetries(exp, uint64(m.cfg.MaxAttempts-1))
}

// SetListener sets the event listener. Called once during startup.
func (m *ConnectionManager) SetListener(l Listener) {
	m.hooksMu.Lock()
	defer m.hooksMu.Unlock()
	m.listener = l
}

// SetCredentialStore sets the store cleared on an unauthorized close.
func (m *ConnectionManager) SetCredentialStore(cs CredentialStore) {
	m.hooksMu.Lock()
	defer m.hooksMu.Unlock()
	m.creds = cs
}

// SetActiveCheck sets the hook consulted right before a delayed reconnect
// fires. Returning false cancels the reconnect.
func (m *ConnectionManager) SetActiveCheck(fn func(sessionID string) bool) {
	m.hooksMu.Lock()
	defer m.hooksMu.Unlock()
	m.stillActive = fn
}

// State returns the current connection state.
func (m *ConnectionManager) State() models.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SessionID returns the session the manager is bound to, if any.
func (m *ConnectionManager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Generation returns the generation of the current (or last) socket.
func (m *ConnectionManager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// ReconnectPending reports whether a delayed reconnect is scheduled.
func (m *ConnectionManager) ReconnectPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timer != nil
}

// Connect opens a socket for sessionID. It returns immediately; progress is
// reported through the listener.
//
// A call for the session that is already Connecting or Connected is a no-op,
// as is a call arriving within DebounceInterval of the previous accepted call
// for the same session, unless Close was called in between. Connecting to a different session tears the current
// socket down with a normal closure first.
func (m *ConnectionManager) Connect(sessionID, token string) error {
	if sessionID == "" {
		return ErrMissingSession
	}

	m.mu.Lock()
	if sessionID == m.sessionID &&
		(m.state == models.ConnectionConnecting || m.state == models.ConnectionConnected) {
		m.mu.Unlock()
		m.logger.Debug("Connect ignored, socket already live", "session_id", sessionID, "state", m.state)
		return nil
	}

	if m.debounce == nil || m.debounceID != sessionID {
		m.debounce = rate.NewLimiter(rate.Every(m.cfg.DebounceInterval), 1)
		m.debounceID = sessionID
	}
	if !m.debounce.AllowN(m.now(), 1) {
		m.mu.Unlock()
		m.logger.Debug("Connect debounced", "session_id", sessionID)
		return nil
	}

	release := m.teardownLocked()
	m.sessionID = sessionID
	m.token = token
	m.policy.Reset()
	m.attempts = 0

	if token == "" {
		m.state = models.ConnectionError
		ev := Event{Kind: EventErrored, SessionID: sessionID, Generation: m.generation, Err: ErrMissingToken}
		m.mu.Unlock()
		release()
		m.logger.Error("Refusing to connect without a token", "session_id", sessionID)
		m.emit(ev)
		return ErrMissingToken
	}

	m.dialLocked()
	m.mu.Unlock()
	release()
	return nil
}

// Close closes the socket with a normal closure and cancels any pending
// reconnect. It does not wait for the read goroutine and emits no event.
// An explicit close also resets the connect debounce, so the next Connect
// for any session is accepted.
func (m *ConnectionManager) Close() {
	m.mu.Lock()
	release := m.teardownLocked()
	m.state = models.ConnectionDisconnected
	m.debounce = nil
	m.debounceID = ""
	m.mu.Unlock()
	release()
}

// Send marshals v as JSON and writes it to the open socket.
func (m *ConnectionManager) Send(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	m.mu.Lock()
	conn := m.conn
	connected := m.state == models.ConnectionConnected
	m.mu.Unlock()
	if conn == nil || !connected {
		return ErrNotConnected
	}

	writeCtx, cancel := context.WithTimeout(ctx, m.cfg.WriteTimeout)
	defer cancel()
	if err := conn.Write(writeCtx, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// teardownLocked invalidates the current generation, stops the reconnect
// timer and detaches the socket. The returned func performs the actual close
// and must be called after mu is released.
func (m *ConnectionManager) teardownLocked() func() {
	m.generation++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	conn, cancel := m.conn, m.cancel
	m.conn, m.cancel = nil, nil

	return func() {
		if conn == nil {
			if cancel != nil {
				cancel()
			}
			return
		}
		// Read context is cancelled only after the close handshake, otherwise
		// the library would fail the socket with a policy-violation code.
		go func() {
			if err := conn.Close(StatusNormalClosure, "session closed"); err != nil {
				m.logger.Debug("Close handshake did not complete", "error", err)
			}
			if cancel != nil {
				cancel()
			}
		}()
	}
}

// dialLocked starts a new generation and its dial/read goroutine.
func (m *ConnectionManager) dialLocked() {
	m.generation++
	m.state = models.ConnectionConnecting
	m.attempts++
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.run(ctx, m.generation, m.sessionID, m.token, m.attempts)
}

func (m *ConnectionManager) run(ctx context.Context, gen uint64, sessionID, token string, attempt int) {
	log := m.logger.With("session_id", sessionID, "generation", gen)

	endpoint, err := m.cfg.Endpoint(sessionID, token)
	if err != nil {
		err = m.masker.MaskError(err, token)
		m.emit(Event{Kind: EventErrored, SessionID: sessionID, Generation: gen, Err: err})
		m.handleClose(gen, StatusAbnormalClosure, err)
		return
	}

	dialCtx, cancelDial := context.WithTimeout(ctx, m.cfg.DialTimeout)
	conn, err := m.dialer.Dial(dialCtx, endpoint, token)
	cancelDial()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// the dial error embeds the endpoint, and with it a query-string token
		err = m.masker.MaskError(err, token)
		if errors.Is(err, ErrUnauthorized) {
			m.handleClose(gen, m.cfg.UnauthorizedCode, err)
			return
		}
		log.Info("Dial failed", "attempt", attempt, "error", err)
		m.emit(Event{Kind: EventErrored, SessionID: sessionID, Generation: gen, Err: err})
		m.handleClose(gen, StatusAbnormalClosure, err)
		return
	}

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		_ = conn.Close(StatusNormalClosure, "superseded")
		return
	}
	m.conn = conn
	m.state = models.ConnectionConnected
	m.policy.Reset()
	m.attempts = 0
	m.mu.Unlock()

	log.Info("Connected", "attempt", attempt)
	m.emit(Event{Kind: EventOpened, SessionID: sessionID, Generation: gen})

	for {
		data, err := conn.Read(ctx)
		if err != nil {
			m.handleClose(gen, closeCode(err), err)
			return
		}
		m.emit(Event{Kind: EventFrame, SessionID: sessionID, Generation: gen, Data: data})
	}
}

// handleClose applies the close policy for generation gen. Stale generations
// are ignored: the owner already moved on.
func (m *ConnectionManager) handleClose(gen uint64, code int, cause error) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	sessionID := m.sessionID
	m.conn = nil
	m.cancel = nil

	events := []Event{{Kind: EventClosed, SessionID: sessionID, Generation: gen, Code: code, Err: cause}}
	clearCreds := false

	switch {
	case code == StatusNormalClosure || code == StatusGoingAway:
		m.state = models.ConnectionDisconnected
		m.logger.Info("Connection closed by peer", "session_id", sessionID, "code", code)

	case code == m.cfg.UnauthorizedCode:
		m.state = models.ConnectionError
		m.token = ""
		clearCreds = true
		m.logger.Error("Connection rejected as unauthorized", "session_id", sessionID, "code", code)

	default:
		delay := m.policy.NextBackOff()
		if delay == backoff.Stop {
			m.state = models.ConnectionError
			events = append(events, Event{Kind: EventErrored, SessionID: sessionID, Generation: gen, Err: ErrRetriesExhausted})
			m.logger.Error("Giving up reconnecting", "session_id", sessionID, "attempts", m.attempts)
			break
		}
		m.state = models.ConnectionConnecting
		m.timer = time.AfterFunc(delay, func() { m.fireReconnect(gen) })
		m.logger.Info("Scheduling reconnect",
			"session_id", sessionID, "code", code, "delay", delay, "attempt", m.attempts+1)
	}
	m.mu.Unlock()

	if clearCreds {
		m.hooksMu.RLock()
		cs := m.creds
		m.hooksMu.RUnlock()
		if cs != nil {
			cs.Clear()
		}
	}
	for _, ev := range events {
		m.emit(ev)
	}
}

// fireReconnect runs on the timer goroutine. It re-validates that the
// generation is current and that the owner still wants this session.
func (m *ConnectionManager) fireReconnect(gen uint64) {
	m.mu.Lock()
	if gen != m.generation || m.timer == nil {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	sessionID := m.sessionID
	m.mu.Unlock()

	m.hooksMu.RLock()
	stillActive := m.stillActive
	m.hooksMu.RUnlock()
	active := stillActive == nil || stillActive(sessionID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		return
	}
	if !active {
		m.state = models.ConnectionDisconnected
		m.logger.Info("Reconnect cancelled, session no longer active", "session_id", sessionID)
		return
	}
	m.dialLocked()
}

func (m *ConnectionManager) emit(ev Event) {
	m.hooksMu.RLock()
	l := m.listener
	m.hooksMu.RUnlock()
	if l != nil {
		l(ev)
	}
}
