package ws

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const sendBufferSize = 64

// Session wraps one upgraded WebSocket connection. All writes go through the
// buffered send channel and a single write pump goroutine, so concurrent
// broadcasts never race on the connection.
type Session struct {
	ID   string
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewSession(conn *websocket.Conn) *Session {
	return &Session{
		ID:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// Enqueue offers a payload to the session without blocking. It reports false
// when the session is closed or its buffer is full; callers treat a full
// buffer as a dead session.
func (s *Session) Enqueue(payload []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

// Close stops accepting new payloads and lets the write pump drain and exit.
// Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// WritePump writes queued payloads to the connection until the send channel
// is closed or a write fails. It must run in its own goroutine, one per
// session.
func (s *Session) WritePump() {
	defer s.conn.Close()

	for payload := range s.send {
		if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			zap.L().Debug("ws: write failed", zap.String("session_id", s.ID), zap.Error(err))
			return
		}
	}
}
