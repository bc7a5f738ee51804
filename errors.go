package certstream

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	ErrClosed    = errors.New("certstream: connection closed")
	ErrRunning   = errors.New("certstream: client already running")
	ErrStopped   = errors.New("certstream: client stopped")
	ErrNotObject = errors.New("certstream: payload is not a JSON object")
)

// ConnectError is returned when a transport session cannot be opened:
// DNS failure, refused connection, TLS or handshake failure, or timeout.
type ConnectError struct {
	URL string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("certstream: connect %s: %v", e.URL, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// SessionError represents a failure of a live session, such as a read
// error or an unexpected close. It ends the current cycle.
type SessionError struct {
	Op        string
	SessionID string
	Err       error
}

func (e *SessionError) Error() string {
	if e.SessionID != "" {
		return fmt.Sprintf("certstream: session %s: %s: %v", e.SessionID, e.Op, e.Err)
	}
	return fmt.Sprintf("certstream: session %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// DecodeError is reported when a text frame does not hold a JSON object.
// The session keeps reading after a DecodeError.
type DecodeError struct {
	SessionID string
	Payload   []byte
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("certstream: decode %d bytes: %v", len(e.Payload), e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// HandlerError wraps a failure of a single registered handler.
type HandlerError struct {
	Index       int
	MessageType string
	Err         error
}

func (e *HandlerError) Error() string {
	if e.MessageType != "" {
		return fmt.Sprintf("certstream: handler %d [%s]: %v", e.Index, e.MessageType, e.Err)
	}
	return fmt.Sprintf("certstream: handler %d: %v", e.Index, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
