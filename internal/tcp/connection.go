package tcp

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"ovdlink/internal/metrics"
	"ovdlink/internal/protocol"
)

const readBufferSize = 64 * 1024

type ClientConnection struct {
	ID          string // uuid, used in every log line of this connection
	RemoteAddr  string
	ConnectedAt time.Time

	conn    net.Conn
	handler MessageHandler
	quit    <-chan struct{}

	readIdleTimeout time.Duration
	logger          *slog.Logger
	metrics         *metrics.Metrics

	closeOnce sync.Once
}

func NewClientConnection(conn net.Conn, handler MessageHandler, logger *slog.Logger, m *metrics.Metrics, readIdleTimeout time.Duration, quit <-chan struct{}) *ClientConnection {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClientConnection{
		ID:              uuid.NewString(),
		RemoteAddr:      conn.RemoteAddr().String(),
		ConnectedAt:     time.Now(),
		conn:            conn,
		handler:         handler,
		quit:            quit,
		readIdleTimeout: readIdleTimeout,
		logger:          logger,
		metrics:         m,
	}
}

// Listen reads framed messages until the connection ends and hands each one
// to the handler before reading the next header. It returns the disconnect reason.
func (c *ClientConnection) Listen() string {
	reader := bufio.NewReaderSize(c.conn, readBufferSize)

	for {
		select {
		case <-c.quit:
			return ReasonShutdown
		default:
		}

		if c.readIdleTimeout > 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.readIdleTimeout))
		}

		msg, err := protocol.ReadInbound(reader)
		if err != nil {
			return c.readFailed(err)
		}

		kind := msg.Kind().String()
		c.metrics.MessageReceived(kind)
		if err := c.handler.Route(msg); err != nil {
			// kinds the router has no channel for
			c.metrics.ProtocolError("unroutable")
			c.logger.Warn("protocol_error",
				"client_id", c.ID,
				"kind", kind,
				"error", err,
			)
			return ReasonProtocolError
		}
	}
}

// classify the read error, log it and return the disconnect reason
func (c *ClientConnection) readFailed(err error) string {
	var perr *protocol.ProtocolError
	var netErr net.Error
	switch {
	case errors.As(err, &perr):
		c.metrics.ProtocolError(protocolReason(perr))
		c.logger.Warn("protocol_error",
			"client_id", c.ID,
			"kind", perr.Header.Kind,
			"size", perr.Header.Size,
			"error", err,
		)
		return ReasonProtocolError
	case errors.Is(err, io.EOF):
		c.logger.Info("client_disconnected",
			"client_id", c.ID,
		)
		return ReasonPeerClosed
	case errors.Is(err, io.ErrUnexpectedEOF):
		c.logger.Warn("client_short_read",
			"client_id", c.ID,
		)
		return ReasonShortRead
	case errors.Is(err, net.ErrClosed):
		// closed locally by Stop
		return ReasonShutdown
	case errors.As(err, &netErr) && netErr.Timeout():
		c.logger.Warn("client_read_timeout",
			"client_id", c.ID,
			"timeout", c.readIdleTimeout,
		)
		return ReasonReadTimeout
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.ECONNABORTED):
		c.logger.Info("client_disconnected",
			"client_id", c.ID,
			"error", err,
		)
		return ReasonPeerClosed
	default:
		c.logger.Error("client_read_error",
			"client_id", c.ID,
			"error", err,
		)
		return ReasonReadError
	}
}

func protocolReason(perr *protocol.ProtocolError) string {
	switch {
	case errors.Is(perr, protocol.ErrUnknownKind):
		return "unknown_kind"
	case errors.Is(perr, protocol.ErrOutboundOnly):
		return "outbound_only"
	case errors.Is(perr, protocol.ErrFrameTooLarge):
		return "frame_too_large"
	case errors.Is(perr, protocol.ErrSizeMismatch):
		return "size_mismatch"
	default:
		return "malformed"
	}
}

// Close closes the underlying socket; safe to call more than once.
func (c *ClientConnection) Close() {
	c.closeOnce.Do(func() {
		c.conn.Close()
	})
}
