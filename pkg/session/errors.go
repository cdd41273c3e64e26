package session

import "errors"

// Precondition failures of the controller's public operations. Transport and
// protocol problems never surface through these.
var (
	ErrNoSession     = errors.New("no active session")
	ErrNotConnected  = errors.New("session is not connected")
	ErrEmptyMessage  = errors.New("message is empty")
	ErrNoPendingEdit = errors.New("no pending edit suggestion")
	ErrEditMismatch  = errors.New("edit id does not match the pending suggestion")
	ErrNoPreview     = errors.New("no edit preview open")
	ErrNoDocument    = errors.New("no document loaded")
)
