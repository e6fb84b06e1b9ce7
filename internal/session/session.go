package session

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ovdlink/internal/metrics"
	"ovdlink/internal/protocol"
	"ovdlink/internal/router"
	"ovdlink/internal/tcp"
)

const DefaultAddr = "0.0.0.0:21213"

type Config struct {
	Addr               string
	ReadIdleTimeout    time.Duration
	WriteTimeout       time.Duration
	PartialBodyUpdates bool
	QueueHighWatermark int
}

func DefaultConfig() Config {
	return Config{
		Addr:               DefaultAddr,
		PartialBodyUpdates: true,
		QueueHighWatermark: 1024,
	}
}

type Option func(*Session)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// Session owns the router, the TCP server and the per-eye frame state.
// Consumers take their channels from Endpoints; the renderer submits and
// presents frames.
type Session struct {
	ID        string
	StartedAt time.Time

	cfg       Config
	router    *router.Router
	endpoints *router.Endpoints
	server    *tcp.TCPServer

	logger  *slog.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex // guards layers and presented
	layers    [2]*protocol.Frame
	presented uint64

	closeOnce sync.Once
}

func New(cfg Config, opts ...Option) *Session {
	s := &Session{
		ID:     uuid.NewString(),
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session_id", s.ID)

	s.router, s.endpoints = router.New(
		router.WithPartialUpdates(cfg.PartialBodyUpdates),
		router.WithHighWatermark(cfg.QueueHighWatermark),
		router.WithLogger(s.logger),
		router.WithMetrics(s.metrics),
	)
	s.server = tcp.NewServer(cfg.Addr, s.router,
		tcp.WithLogger(s.logger),
		tcp.WithMetrics(s.metrics),
		tcp.WithReadIdleTimeout(cfg.ReadIdleTimeout),
		tcp.WithWriteTimeout(cfg.WriteTimeout),
	)
	return s
}

// Start binds the listener and starts accepting; a bind failure is returned.
func (s *Session) Start() error {
	s.StartedAt = time.Now()
	if err := s.server.Start(); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	s.logger.Info("session_started",
		"addr", s.ListenAddr(),
	)
	return nil
}

// Close stops the server; consumers observe closure once their queues drain.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.server.Stop()
		s.logger.Info("session_closed")
	})
}

// ListenAddr is the bound address, or the configured one before Start.
func (s *Session) ListenAddr() string {
	if addr := s.server.ListenAddr(); addr != nil {
		return addr.String()
	}
	return s.cfg.Addr
}

func (s *Session) Endpoints() *router.Endpoints {
	return s.endpoints
}

func (s *Session) Connected() bool {
	return s.server.Manager.IsConnected()
}

// SendFrame sends one eye image immediately, bypassing the frame state.
func (s *Session) SendFrame(width, height uint32, eye protocol.Eye, pixels []byte) bool {
	return s.server.SendFrame(protocol.Frame{Width: width, Height: height, Eye: eye, Pixels: pixels})
}

// SubmitLayer records f as the latest image for eye. The pixels are copied,
// so the caller may reuse its buffer.
func (s *Session) SubmitLayer(eye protocol.Eye, f protocol.Frame) error {
	if eye > protocol.EyeRight {
		return fmt.Errorf("submit layer: unknown eye %d", eye)
	}
	f.Eye = eye
	if err := f.Validate(); err != nil {
		return fmt.Errorf("submit layer: %w", err)
	}
	f.Pixels = bytes.Clone(f.Pixels)

	s.mu.Lock()
	s.layers[eye] = &f
	s.mu.Unlock()
	return nil
}

// Present sends the latest submitted frame of each eye that has one and
// returns how many were sent. Layers stay in place and can be presented again.
func (s *Session) Present() int {
	s.mu.Lock()
	layers := s.layers
	s.mu.Unlock()

	sent := 0
	for _, f := range layers {
		if f == nil {
			continue
		}
		if s.server.SendFrame(*f) {
			sent++
		}
	}

	s.mu.Lock()
	s.presented += uint64(sent)
	s.mu.Unlock()
	return sent
}

// LastFrame returns the latest submitted frame for eye.
func (s *Session) LastFrame(eye protocol.Eye) (protocol.Frame, bool) {
	if eye > protocol.EyeRight {
		return protocol.Frame{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if f := s.layers[eye]; f != nil {
		return *f, true
	}
	return protocol.Frame{}, false
}
