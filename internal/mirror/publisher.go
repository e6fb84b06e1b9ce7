package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"ovdlink/internal/device"
	"ovdlink/internal/protocol"
)

const (
	channelPrefix  = "ovd"
	publishTimeout = 500 * time.Millisecond
	closeTimeout   = 2 * time.Second
	queueSize      = 256
)

// PoseChannel is the pub/sub channel carrying a role's pose updates.
func PoseChannel(role device.Role) string {
	return fmt.Sprintf("%s:pose:%s", channelPrefix, role)
}

// InputChannel is the pub/sub channel carrying a role's controller input.
func InputChannel(role device.Role) string {
	return fmt.Sprintf("%s:input:%s", channelPrefix, role)
}

type PoseEvent struct {
	Role      string     `json:"role"`
	Serial    string     `json:"serial"`
	Position  [3]float64 `json:"position"`
	Rotation  [4]float64 `json:"rotation"` // w, x, y, z
	Timestamp int64      `json:"ts"`       // unix millis
}

type InputEvent struct {
	Role      string                   `json:"role"`
	Input     protocol.ControllerInput `json:"input"`
	Timestamp int64                    `json:"ts"`
}

// redisPublisher is the part of *redis.Client the mirror uses.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type Options struct {
	URL      string
	Password string // overrides the password in URL when set
	RateHz   float64
	Logger   *slog.Logger
}

// Mirror is a device.Sink that forwards every update to an inner sink and
// publishes a throttled copy to Redis. Publishing is fire-and-forget: it
// never blocks a device loop and nothing is stored.
type Mirror struct {
	inner   device.Sink
	pub     redisPublisher
	client  *redis.Client // owned, closed by Close; nil when injected
	rateHz  float64
	pool    *WorkerPool
	logger  *slog.Logger
	dropped atomic.Uint64

	backlogged   atomic.Bool // set while publishes are being dropped
	closeTimeout time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Dial connects to Redis, verifies it with PING and starts the publisher.
func Dial(ctx context.Context, opts Options, inner device.Sink) (*Mirror, error) {
	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.Password != "" {
		redisOpts.Password = opts.Password
	}
	redisOpts.DialTimeout = 5 * time.Second
	redisOpts.WriteTimeout = publishTimeout

	client := redis.NewClient(redisOpts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	m := New(client, inner, opts.RateHz, opts.Logger)
	m.client = client
	return m, nil
}

// New wraps inner with a mirror publishing through pub.
func New(pub redisPublisher, inner device.Sink, rateHz float64, logger *slog.Logger) *Mirror {
	return newMirror(pub, inner, rateHz, logger, queueSize)
}

func newMirror(pub redisPublisher, inner device.Sink, rateHz float64, logger *slog.Logger, queue int) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	if rateHz <= 0 {
		rateHz = 30
	}
	m := &Mirror{
		inner:        inner,
		pub:          pub,
		rateHz:       rateHz,
		pool:         NewWorkerPool(1, queue, logger),
		logger:       logger,
		limiters:     make(map[string]*rate.Limiter),
		closeTimeout: closeTimeout,
	}
	m.pool.Start()
	return m
}

func (m *Mirror) allow(channel string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.limiters[channel]
	if !ok {
		l = rate.NewLimiter(rate.Limit(m.rateHz), 1)
		m.limiters[channel] = l
	}
	return l.Allow()
}

func (m *Mirror) publish(channel string, event any) {
	if !m.allow(channel) {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		m.logger.Error("mirror_marshal_failed",
			"channel", channel,
			"error", err,
		)
		return
	}
	accepted := m.pool.TrySubmit(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		return m.pub.Publish(ctx, channel, payload).Err()
	})
	if accepted {
		if m.backlogged.CompareAndSwap(true, false) {
			m.logger.Info("mirror_backlog_recovered",
				"dropped_total", m.dropped.Load(),
			)
		}
		return
	}
	m.dropped.Add(1)
	if m.backlogged.CompareAndSwap(false, true) {
		m.logger.Warn("mirror_backlog_dropping",
			"channel", channel,
			"dropped_total", m.dropped.Load(),
		)
	}
}

func (m *Mirror) UpdatePose(role device.Role, pose device.DriverPose) {
	if m.inner != nil {
		m.inner.UpdatePose(role, pose)
	}
	m.publish(PoseChannel(role), PoseEvent{
		Role:      role.String(),
		Serial:    role.Info().Serial,
		Position:  pose.Position,
		Rotation:  [4]float64{pose.Rotation.W, pose.Rotation.X, pose.Rotation.Y, pose.Rotation.Z},
		Timestamp: time.Now().UnixMilli(),
	})
}

func (m *Mirror) UpdateInput(role device.Role, in protocol.ControllerInput) {
	if m.inner != nil {
		m.inner.UpdateInput(role, in)
	}
	m.publish(InputChannel(role), InputEvent{
		Role:      role.String(),
		Input:     in,
		Timestamp: time.Now().UnixMilli(),
	})
}

// Dropped reports how many events were discarded because the queue was full.
func (m *Mirror) Dropped() uint64 {
	return m.dropped.Load()
}

// Close drains queued publishes and closes the Redis client if owned.
// Publishes still running after closeTimeout are cancelled.
func (m *Mirror) Close() error {
	drained := make(chan struct{})
	go func() {
		m.pool.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(m.closeTimeout):
		m.logger.Warn("mirror_close_timeout",
			"timeout", m.closeTimeout,
		)
		m.pool.Shutdown()
		<-drained
	}
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}
