package tcp

import (
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"ovdlink/internal/metrics"
	"ovdlink/internal/protocol"
)

// State is a point-in-time view of the link for the status API.
type State struct {
	Connected            bool       `json:"connected"`
	ClientID             string     `json:"client_id,omitempty"`
	RemoteAddr           string     `json:"remote_addr,omitempty"`
	ConnectedAt          *time.Time `json:"connected_at,omitempty"`
	Accepted             uint64     `json:"accepted"`
	LastDisconnectReason string     `json:"last_disconnect_reason,omitempty"`
}

// ConnectionManager owns the single active client slot and the send path.
type ConnectionManager struct {
	mu         sync.RWMutex // guards active, closed, accepted, lastReason
	active     *ClientConnection
	closed     bool
	accepted   uint64
	lastReason string

	connected atomic.Bool // read lock free on the send path

	sendMu       sync.Mutex // one frame on the wire at a time
	writeTimeout time.Duration

	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewConnectionManager(logger *slog.Logger, m *metrics.Metrics, writeTimeout time.Duration) *ConnectionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnectionManager{
		logger:       logger,
		metrics:      m,
		writeTimeout: writeTimeout,
	}
}

// AddConnection makes client the active connection. It returns false once the
// manager has been shut down; the caller then owns closing the connection.
func (m *ConnectionManager) AddConnection(client *ClientConnection) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.active = client
	m.accepted++
	m.mu.Unlock()

	m.connected.Store(true)
	m.metrics.SetConnected(true)
	m.logger.Info("client_connected",
		"client_id", client.ID,
		"remote_addr", client.RemoteAddr,
	)
	return true
}

// RemoveConnection clears the active slot after the receive loop ended.
func (m *ConnectionManager) RemoveConnection(client *ClientConnection, reason string) {
	m.mu.Lock()
	if m.active == client {
		m.active = nil
		m.connected.Store(false)
	}
	m.lastReason = reason
	m.mu.Unlock()

	client.Close()
	m.metrics.SetConnected(false)
	m.metrics.Disconnected(reason)
	m.logger.Info("client_removed",
		"client_id", client.ID,
		"reason", reason,
		"duration", time.Since(client.ConnectedAt).Round(time.Millisecond),
	)
}

// CloseAllConnections closes the active connection, unblocking its receive
// loop, and rejects every later AddConnection.
func (m *ConnectionManager) CloseAllConnections() {
	m.mu.Lock()
	m.closed = true
	client := m.active
	m.mu.Unlock()

	if client != nil {
		client.Close()
		m.logger.Info("client_connection_closed",
			"client_id", client.ID,
		)
	}
}

func (m *ConnectionManager) IsConnected() bool {
	return m.connected.Load()
}

func (m *ConnectionManager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := State{
		Accepted:             m.accepted,
		LastDisconnectReason: m.lastReason,
	}
	if c := m.active; c != nil {
		at := c.ConnectedAt
		st.Connected = true
		st.ClientID = c.ID
		st.RemoteAddr = c.RemoteAddr
		st.ConnectedAt = &at
	}
	return st
}

// SendFrame writes one eye frame to the active client. Header, info block and
// pixels leave in a single vectored write under sendMu, so concurrent callers
// never interleave. It returns false when no client is connected, when f is
// malformed, or when the write fails. A write that failed before any byte
// went out leaves the connection up; a partial write closes it, since the
// client can no longer find the next header.
func (m *ConnectionManager) SendFrame(f protocol.Frame) bool {
	if !m.connected.Load() {
		m.metrics.FrameSendFailed("disconnected")
		return false
	}
	if err := f.Validate(); err != nil {
		m.metrics.FrameSendFailed("invalid_frame")
		m.logger.Warn("frame_rejected",
			"width", f.Width,
			"height", f.Height,
			"eye", f.Eye,
			"error", err,
		)
		return false
	}

	m.sendMu.Lock()
	defer m.sendMu.Unlock()

	m.mu.RLock()
	client := m.active
	m.mu.RUnlock()
	if client == nil {
		m.metrics.FrameSendFailed("disconnected")
		return false
	}

	if m.writeTimeout > 0 {
		client.conn.SetWriteDeadline(time.Now().Add(m.writeTimeout))
		defer client.conn.SetWriteDeadline(time.Time{})
	}

	bufs := net.Buffers{protocol.FramePrefix(f), f.Pixels}
	n, err := bufs.WriteTo(client.conn)
	if err != nil {
		m.metrics.FrameSendFailed("write_error")
		m.logger.Warn("frame_send_failed",
			"client_id", client.ID,
			"eye", f.Eye,
			"written", n,
			"error", err,
		)
		if n > 0 {
			// the receive loop sees the closed socket and tears down
			client.Close()
		}
		return false
	}
	m.metrics.FrameSent(int(n))
	return true
}
