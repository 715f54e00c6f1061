package bidding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lcaohoanq/koibid/internal/shared/logger"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const (
	// Time allowed for the WebSocket handshake.
	defaultHandshakeTimeout = 10 * time.Second

	// Time allowed to write a message to the peer.
	defaultWriteWait = 10 * time.Second
)

// ConnState is the observable state of the bidding connection.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return "disconnected"
}

// ConnManager owns one WebSocket connection to the bidding server and may be
// shared by several sessions. Sharing is reference counted: each session
// calls Acquire before connecting and Release when it closes, and only the
// last release tears the transport down. There is no automatic reconnect;
// the owner decides whether to redial based on the auction lifecycle.
type ConnManager struct {
	url              string
	handshakeTimeout time.Duration
	writeWait        time.Duration
	onMessage        func(data []byte)

	mu        sync.Mutex
	state     ConnState
	conn      *websocket.Conn
	refs      int
	pending   []func(error)
	observers []func(ConnState)

	// Serializes writers; gorilla allows at most one concurrent writer.
	writeMu sync.Mutex
}

// NewConnManager creates a manager for the given ws:// or wss:// URL.
// Inbound frames are handed to onMessage as raw bytes; a nil onMessage drops them.
// Zero timeouts fall back to the package defaults.
func NewConnManager(url string, handshakeTimeout, writeWait time.Duration, onMessage func([]byte)) *ConnManager {
	if handshakeTimeout <= 0 {
		handshakeTimeout = defaultHandshakeTimeout
	}
	if writeWait <= 0 {
		writeWait = defaultWriteWait
	}
	return &ConnManager{
		url:              url,
		handshakeTimeout: handshakeTimeout,
		writeWait:        writeWait,
		onMessage:        onMessage,
	}
}

// State returns the current connection state.
func (m *ConnManager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnStateChange registers fn to be invoked on every state transition.
// Registration is permanent for the lifetime of the manager.
func (m *ConnManager) OnStateChange(fn func(ConnState)) {
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

// Acquire records one more owner of the shared connection.
func (m *ConnManager) Acquire() {
	m.mu.Lock()
	m.refs++
	m.mu.Unlock()
}

// Release drops one owner; the last release disconnects the transport.
func (m *ConnManager) Release() {
	m.mu.Lock()
	if m.refs > 0 {
		m.refs--
	}
	last := m.refs == 0
	m.mu.Unlock()
	if last {
		m.Disconnect()
	}
}

// Connect establishes the transport if needed. It is idempotent: when
// already connected, onDone runs immediately with nil; when a handshake is in
// flight, onDone is queued and receives that handshake's outcome, so a caller
// sharing someone else's dial still learns about its failure. When Connect
// itself returns an error, onDone is never invoked; when it returns nil,
// onDone is invoked exactly once. The handshake honors ctx cancellation, so a
// caller abandoning the connect is never left hanging.
func (m *ConnManager) Connect(ctx context.Context, onDone func(error)) error {
	m.mu.Lock()
	switch m.state {
	case StateConnected:
		m.mu.Unlock()
		if onDone != nil {
			onDone(nil)
		}
		return nil
	case StateConnecting:
		if onDone != nil {
			m.pending = append(m.pending, onDone)
		}
		m.mu.Unlock()
		return nil
	}
	m.state = StateConnecting
	m.mu.Unlock()
	m.notify(StateConnecting)

	dialer := &websocket.Dialer{HandshakeTimeout: m.handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, m.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		err = fmt.Errorf("connect to bidding server %s: %w", m.url, err)
		m.mu.Lock()
		m.state = StateDisconnected
		waiting := m.pending
		m.pending = nil
		m.mu.Unlock()
		m.notify(StateDisconnected)
		log.Error("WebSocket dial failed",
			zap.String("url", m.url),
			zap.Error(err),
		)
		for _, fn := range waiting {
			fn(err)
		}
		return err
	}

	m.mu.Lock()
	m.conn = conn
	m.state = StateConnected
	waiting := m.pending
	m.pending = nil
	if onDone != nil {
		waiting = append(waiting, onDone)
	}
	m.mu.Unlock()

	log.Info("Connected to bidding server", zap.String("url", m.url))
	m.notify(StateConnected)
	go m.readLoop(conn)

	for _, fn := range waiting {
		fn(nil)
	}
	return nil
}

// Disconnect tears the transport down if open. Safe to call repeatedly.
func (m *ConnManager) Disconnect() {
	m.mu.Lock()
	if m.state == StateDisconnected {
		m.mu.Unlock()
		return
	}
	conn := m.conn
	m.conn = nil
	m.state = StateDisconnected
	waiting := m.pending
	m.pending = nil
	m.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(m.writeWait))
		_ = conn.Close()
	}
	log.Info("Disconnected from bidding server", zap.String("url", m.url))
	m.notify(StateDisconnected)
	for _, fn := range waiting {
		fn(ErrNotConnected)
	}
}

// Send marshals v as JSON and hands it to the transport. It fails with
// ErrNotConnected while disconnected; there is no delivery guarantee beyond
// the write succeeding.
func (m *ConnManager) Send(v any) error {
	m.mu.Lock()
	if m.state != StateConnected || m.conn == nil {
		m.mu.Unlock()
		return ErrNotConnected
	}
	conn := m.conn
	m.mu.Unlock()

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(m.writeWait))
	if err := conn.WriteJSON(v); err != nil {
		return fmt.Errorf("send to bidding server: %w", err)
	}
	return nil
}

// readLoop delivers inbound frames until the connection drops. A read error
// transitions the manager to disconnected and notifies observers, so
// dependents learn their subscription went dead.
func (m *ConnManager) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("WebSocket read error",
					zap.String("url", m.url),
					zap.Error(err),
				)
			} else {
				log.Info("WebSocket connection closed by peer",
					zap.String("url", m.url),
					zap.Error(err),
				)
			}
			m.dropConn(conn)
			return
		}
		if m.onMessage != nil {
			m.onMessage(data)
		}
	}
}

// dropConn marks the connection as lost unless a newer one replaced it.
func (m *ConnManager) dropConn(conn *websocket.Conn) {
	m.mu.Lock()
	if m.conn != conn {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.state = StateDisconnected
	m.mu.Unlock()
	_ = conn.Close()
	m.notify(StateDisconnected)
}

func (m *ConnManager) notify(state ConnState) {
	m.mu.Lock()
	observers := make([]func(ConnState), len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()
	for _, fn := range observers {
		fn(state)
	}
}
