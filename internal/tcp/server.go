package tcp

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"ovdlink/internal/metrics"
	"ovdlink/internal/protocol"
)

type Option func(*TCPServer)

func WithLogger(logger *slog.Logger) Option {
	return func(s *TCPServer) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *TCPServer) { s.metrics = m }
}

// WithReadIdleTimeout ends a connection that sends nothing for d; 0 disables it.
func WithReadIdleTimeout(d time.Duration) Option {
	return func(s *TCPServer) { s.readIdleTimeout = d }
}

// WithWriteTimeout bounds every frame write; 0 disables it.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *TCPServer) { s.writeTimeout = d }
}

// TCPServer accepts one tracking client at a time and feeds its messages to
// the handler. Frames go back to the active client through Manager.
type TCPServer struct {
	Addr    string
	Manager *ConnectionManager

	handler  MessageHandler
	listener net.Listener

	logger          *slog.Logger
	metrics         *metrics.Metrics
	readIdleTimeout time.Duration
	writeTimeout    time.Duration

	quitChan chan struct{} // closed by Stop; checked at the top of the accept loop
	stopOnce sync.Once

	mu      sync.Mutex // orders Serve's wg.Add against Stop's wg.Wait
	stopped bool
	wg      sync.WaitGroup
}

func NewServer(addr string, handler MessageHandler, opts ...Option) *TCPServer {
	s := &TCPServer{
		Addr:     addr,
		handler:  handler,
		logger:   slog.Default(),
		quitChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Manager = NewConnectionManager(s.logger, s.metrics, s.writeTimeout)
	return s
}

// Listen binds the listening socket. It must be called once before Serve.
func (s *TCPServer) Listen() error {
	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("%w on %s: %w", ErrListen, s.Addr, err)
	}
	s.listener = listener
	s.logger.Info("tcp_server_listening",
		"addr", listener.Addr().String(),
	)
	return nil
}

// ListenAddr returns the bound address, useful when Addr used port 0.
func (s *TCPServer) ListenAddr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start binds and runs the accept loop in the background.
func (s *TCPServer) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	go s.Serve()
	return nil
}

// Serve runs the accept loop until Stop. Clients are served one at a time:
// the receive loop runs inline and later clients wait in the listen backlog.
// Stop waits for Serve to return before closing the handler; a Serve called
// after Stop returns at once.
func (s *TCPServer) Serve() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	backoff := newAcceptBackoff()
	for {
		select {
		case <-s.quitChan:
			return
		default:
		}

		conn, err := s.listener.Accept()
		if err != nil {
			if s.stopping() || errors.Is(err, net.ErrClosed) {
				return
			}
			delay := backoff.next()
			s.logger.Warn("accept_failed",
				"error", err,
				"retry_in", delay,
			)
			select {
			case <-s.quitChan:
				return
			case <-time.After(delay):
			}
			continue
		}
		backoff.reset()
		s.handleConnection(conn)
	}
}

// handle the lifecycle of a single client connection
func (s *TCPServer) handleConnection(conn net.Conn) {
	client := NewClientConnection(conn, s.handler, s.logger, s.metrics, s.readIdleTimeout, s.quitChan)
	if !s.Manager.AddConnection(client) { // manager already shut down
		client.Close()
		return
	}
	reason := client.Listen()
	s.Manager.RemoveConnection(client, reason)
}

func (s *TCPServer) stopping() bool {
	select {
	case <-s.quitChan:
		return true
	default:
		return false
	}
}

// SendFrame forwards to the connection manager's send path.
func (s *TCPServer) SendFrame(f protocol.Frame) bool {
	return s.Manager.SendFrame(f)
}

// Stop closes the listener and the active connection, waits for the accept
// loop to exit, then closes the handler so consumers observe closure.
// Stop is idempotent.
func (s *TCPServer) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()

		close(s.quitChan)
		if s.listener != nil {
			s.listener.Close()
		}
		s.Manager.CloseAllConnections()
		s.wg.Wait()

		if c, ok := s.handler.(closer); ok {
			c.Close()
		}
		s.logger.Info("tcp_server_stopped")
	})
}
