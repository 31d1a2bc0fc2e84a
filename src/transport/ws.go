package transport

import (
	"errors"
	"sync"
	"time"

	"github.com/pulsegrid/realtime/src/message"
	"github.com/pulsegrid/realtime/src/types"
)

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	WriteJSON(v any) error
	ReadJSON(v any) error
	SetWriteDeadline(t time.Time) error
	Ping(deadline time.Time) error
	Close() error
}

var (
	// ErrTransportClosed is returned by Send after Close.
	ErrTransportClosed = errors.New("transport: closed")
	// ErrBufferFull is returned when the outbound queue is full; the
	// message is dropped rather than blocking the dispatcher.
	ErrBufferFull = errors.New("transport: send buffer full")
)

// WSTransport adapts a WebSocket connection to the Transport contract.
// Sends are queued on a buffered channel drained by WritePump, so Send
// never blocks the dispatching goroutine.
type WSTransport struct {
	conn Conn
	send chan message.Message

	pingInterval time.Duration
	writeTimeout time.Duration

	mu     sync.RWMutex
	id     string
	closed bool
	done   chan struct{}
}

var _ types.Transport = (*WSTransport)(nil)

// NewWSTransport wraps conn. The connection id is bound after a
// successful Connect via Bind.
func NewWSTransport(conn Conn) *WSTransport {
	return &WSTransport{
		conn: conn,
		send: make(chan message.Message, 256),
		done: make(chan struct{}),
	}
}

// WithDeadlines sets the keep-alive ping interval and the per-write
// deadline used by WritePump. Zero disables either. Call before starting
// the pump.
func (t *WSTransport) WithDeadlines(ping, write time.Duration) *WSTransport {
	t.pingInterval = ping
	t.writeTimeout = write
	return t
}

// Bind records the connection id this transport belongs to.
func (t *WSTransport) Bind(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.id = id
}

// ID returns the bound connection id.
func (t *WSTransport) ID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.id
}

// Send queues msg for delivery. It never blocks: a full buffer or a
// closed transport yields an error and the message is dropped.
func (t *WSTransport) Send(msg message.Message) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return ErrTransportClosed
	}
	select {
	case t.send <- msg:
		return nil
	default:
		return ErrBufferFull
	}
}

// IsOpen reports whether the transport accepts sends.
func (t *WSTransport) IsOpen() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return !t.closed
}

// Close stops the write pump and closes the underlying connection.
// Repeated calls are no-ops.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.done)
	t.mu.Unlock()
	return t.conn.Close()
}

// WritePump drains the send queue onto the wire and keeps the connection
// alive with periodic pings. Call in a goroutine; it returns when the
// transport closes or a write fails.
func (t *WSTransport) WritePump() {
	defer t.conn.Close()

	var tick <-chan time.Time
	if t.pingInterval > 0 {
		ticker := time.NewTicker(t.pingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case msg := <-t.send:
			if t.writeTimeout > 0 {
				_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
			}
			if err := t.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-tick:
			if err := t.conn.Ping(t.pingDeadline()); err != nil {
				return
			}
		case <-t.done:
			return
		}
	}
}

func (t *WSTransport) pingDeadline() time.Time {
	if t.writeTimeout > 0 {
		return time.Now().Add(t.writeTimeout)
	}
	return time.Now().Add(10 * time.Second)
}
