package certstream

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one live transport connection. A session is never reused:
// reconnecting opens a new one.
type Session struct {
	id        string
	endpoint  string
	openedAt  time.Time
	transport Transport

	closeOnce sync.Once
	closeErr  error
}

func newSession(endpoint string, transport Transport) *Session {
	return &Session{
		id:        uuid.New().String(),
		endpoint:  endpoint,
		openedAt:  time.Now(),
		transport: transport,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Endpoint returns the address the session is connected to.
func (s *Session) Endpoint() string {
	return s.endpoint
}

// OpenedAt returns when the session was established.
func (s *Session) OpenedAt() time.Time {
	return s.openedAt
}

// Messages returns an iterator over inbound messages. Each step blocks in
// the transport until a frame arrives. The sequence ends after yielding a
// MessageClose or MessageError message, or when the consumer stops.
func (s *Session) Messages(ctx context.Context) iter.Seq[Message] {
	return func(yield func(Message) bool) {
		for {
			msg, err := s.transport.Receive(ctx)
			if err != nil {
				yield(Message{Kind: MessageError, Err: err})
				return
			}
			if !yield(msg) {
				return
			}
			if msg.Kind == MessageClose || msg.Kind == MessageError {
				return
			}
		}
	}
}

// Close closes the underlying transport. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.transport.Close()
	})
	return s.closeErr
}
