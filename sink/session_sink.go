package sink

import (
	"chat-hub/domain/event"
	"chat-hub/errors"
	"context"
	"sync"
)

// SessionSink is the core-side half of a connection.
// Events are queued on a bounded buffer that the transport drains; the transport
// stops when Done is closed.
type SessionSink struct {
	id        string
	userID    string
	username  string
	events    chan event.Event
	done      chan struct{}
	closeOnce sync.Once
}

func NewSessionSink(id, userID, username string, bufferSize int) *SessionSink {
	return &SessionSink{
		id:       id,
		userID:   userID,
		username: username,
		events:   make(chan event.Event, bufferSize),
		done:     make(chan struct{}),
	}
}

func (s *SessionSink) ID() string       { return s.id }
func (s *SessionSink) UserID() string   { return s.userID }
func (s *SessionSink) Username() string { return s.username }

// Consume queues e for the transport.
// It waits for room in the buffer until ctx expires, which is reported as
// ErrSlowConsumer so the caller can drop the session.
func (s *SessionSink) Consume(ctx context.Context, e event.Event) error {
	select {
	case <-s.done:
		return errors.ErrSessionClosed
	default:
	}

	select {
	case s.events <- e:
		return nil
	case <-s.done:
		return errors.ErrSessionClosed
	case <-ctx.Done():
		return errors.ErrSlowConsumer
	}
}

// Events is drained by the write loop of the connection.
func (s *SessionSink) Events() <-chan event.Event { return s.events }

// Done is closed once the session is closed.
func (s *SessionSink) Done() <-chan struct{} { return s.done }

func (s *SessionSink) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *SessionSink) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
