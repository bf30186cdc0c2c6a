package ws

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/ride-dispatch/internal/events"
	"github.com/example/ride-dispatch/internal/observability"
)

// ErrSessionClosed reports a send to a session whose write pump has shut
// down.
var ErrSessionClosed = errors.New("session closed")

// ErrQueueFull reports a dropped send. Delivery is fire-and-forget, so
// callers normally ignore it; the drop is counted.
var ErrQueueFull = errors.New("session queue full")

// Session wraps a websocket connection with a buffered outbound queue.
// All writes go through the write pump goroutine so producers never
// block on a slow client; when the queue is full the event is dropped.
type Session struct {
	conn         *websocket.Conn
	send         chan events.Envelope
	done         chan struct{}
	writeTimeout time.Duration
	logger       *slog.Logger
}

func newSession(conn *websocket.Conn, queueSize int, writeTimeout time.Duration, logger *slog.Logger) *Session {
	return &Session{
		conn:         conn,
		send:         make(chan events.Envelope, queueSize),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// Send queues an envelope for delivery. Never blocks.
func (s *Session) Send(env events.Envelope) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.send <- env:
		return nil
	default:
		observability.DroppedSendsTotal.Inc()
		s.logger.Debug("outbound event dropped", "event", env.Event, "remote", s.conn.RemoteAddr().String())
		return ErrQueueFull
	}
}

// writePump drains the outbound queue onto the wire. It exits when the
// session closes; a write error closes the connection, which in turn
// terminates the read loop and triggers reconciliation.
func (s *Session) writePump() {
	for {
		select {
		case <-s.done:
			return
		case env := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteJSON(env); err != nil {
				s.logger.Debug("ws write error", "error", err)
				_ = s.conn.Close()
				return
			}
		}
	}
}

// close stops the write pump and closes the underlying connection. Safe
// to call more than once from the owning supervisor goroutine.
func (s *Session) close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	_ = s.conn.Close()
}
