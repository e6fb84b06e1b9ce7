package router

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"ovdlink/internal/metrics"
	"ovdlink/internal/mpsc"
	"ovdlink/internal/protocol"
)

// ErrUnroutable is returned for messages that have no inbound destination (frames, unknown types).
var ErrUnroutable = errors.New("message kind has no inbound route")

// channel names used for logs, metrics and queue depth reports
const (
	ChannelHead       = "head"
	ChannelLeftInput  = "left_input"
	ChannelRightInput = "right_input"
)

const defaultHighWatermark = 1024

type Option func(*Router)

// WithPartialUpdates controls null-pose filtering for body poses (default on).
// When on, an all-zero sub-pose is not forwarded and its consumer keeps its last pose.
func WithPartialUpdates(enabled bool) Option {
	return func(r *Router) { r.partial = enabled }
}

// WithHighWatermark sets the queue depth that triggers a backlog warning; 0 disables it.
func WithHighWatermark(n int) Option {
	return func(r *Router) { r.highWatermark = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// Router demultiplexes decoded inbound messages into per-consumer channels.
// Fan-out is sequential on the calling goroutine.
type Router struct {
	head       *mpsc.Sender[protocol.Position]
	leftInput  *mpsc.Sender[protocol.ControllerInput]
	rightInput *mpsc.Sender[protocol.ControllerInput]
	joints     [protocol.JointCount]*mpsc.Sender[protocol.Pose]

	endpoints *Endpoints // for queue depths only

	partial       bool
	highWatermark int
	logger        *slog.Logger
	metrics       *metrics.Metrics

	mu      sync.Mutex
	dead    map[string]bool // consumers already reported gone
	backlog map[string]bool // channels currently above the high watermark
	closed  bool
}

// Endpoints holds the consumer handle of every channel the router feeds.
// Each handle belongs to exactly one consumer.
type Endpoints struct {
	Head       *mpsc.Receiver[protocol.Position]
	LeftInput  *mpsc.Receiver[protocol.ControllerInput]
	RightInput *mpsc.Receiver[protocol.ControllerInput]
	joints     [protocol.JointCount]*mpsc.Receiver[protocol.Pose]
}

// New creates every channel pair and returns the producer side wrapped in a
// Router and the consumer side as Endpoints.
func New(opts ...Option) (*Router, *Endpoints) {
	r := &Router{
		partial:       true,
		highWatermark: defaultHighWatermark,
		logger:        slog.Default(),
		dead:          make(map[string]bool),
		backlog:       make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}

	e := &Endpoints{}
	r.head, e.Head = mpsc.New[protocol.Position]()
	r.leftInput, e.LeftInput = mpsc.New[protocol.ControllerInput]()
	r.rightInput, e.RightInput = mpsc.New[protocol.ControllerInput]()
	for j := range r.joints {
		r.joints[j], e.joints[j] = mpsc.New[protocol.Pose]()
	}
	r.endpoints = e

	return r, e
}

// Route forwards one decoded message. ControllerInput goes to the left then
// the right channel; body poses go joint by joint in wire order.
// A consumer that is gone is not an error.
func (r *Router) Route(msg protocol.Message) error {
	switch m := msg.(type) {
	case protocol.Position:
		deliver(r, ChannelHead, r.head, r.endpoints.Head, m)
	case protocol.ControllerInput:
		deliver(r, ChannelLeftInput, r.leftInput, r.endpoints.LeftInput, m)
		deliver(r, ChannelRightInput, r.rightInput, r.endpoints.RightInput, m)
	case protocol.BodyPose:
		for j := range m.Joints {
			pose := m.Joints[j]
			if r.partial && pose.IsNull() {
				continue
			}
			joint := protocol.Joint(j)
			deliver(r, joint.String(), r.joints[j], r.endpoints.joints[j], pose)
		}
	default:
		return fmt.Errorf("route %T: %w", msg, ErrUnroutable)
	}
	return nil
}

func deliver[T any](r *Router, name string, tx *mpsc.Sender[T], rx *mpsc.Receiver[T], v T) {
	if !tx.Send(v) {
		r.metrics.DeadConsumer(name)
		r.mu.Lock()
		first := !r.dead[name] && !r.closed
		r.dead[name] = true
		r.mu.Unlock()
		if first {
			r.logger.Warn("consumer_gone",
				"channel", name,
			)
		}
		return
	}
	r.metrics.Delivered(name)

	if r.highWatermark <= 0 {
		return
	}
	depth := rx.Len()
	r.mu.Lock()
	was := r.backlog[name]
	now := depth > r.highWatermark
	r.backlog[name] = now
	r.mu.Unlock()
	if now && !was {
		r.logger.Warn("queue_high_watermark",
			"channel", name,
			"queue_depth", depth,
			"high_watermark", r.highWatermark,
		)
	}
}

// Close drops every producer handle so consumers observe closure once their
// queues drain. Close is idempotent.
func (r *Router) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.head.Close()
	r.leftInput.Close()
	r.rightInput.Close()
	for _, tx := range r.joints {
		tx.Close()
	}
}

// Joint returns the consumer handle for one body joint.
func (e *Endpoints) Joint(j protocol.Joint) *mpsc.Receiver[protocol.Pose] {
	return e.joints[j]
}

// Depths reports the queue depth of every channel by name.
func (e *Endpoints) Depths() map[string]int {
	depths := map[string]int{
		ChannelHead:       e.Head.Len(),
		ChannelLeftInput:  e.LeftInput.Len(),
		ChannelRightInput: e.RightInput.Len(),
	}
	for j, rx := range e.joints {
		depths[protocol.Joint(j).String()] = rx.Len()
	}
	return depths
}

// Close drops every consumer handle; later routes report the consumers as gone.
func (e *Endpoints) Close() {
	e.Head.Close()
	e.LeftInput.Close()
	e.RightInput.Close()
	for _, rx := range e.joints {
		rx.Close()
	}
}
