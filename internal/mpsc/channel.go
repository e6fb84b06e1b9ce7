package mpsc

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by RecvContext once every sender is gone and the queue is drained.
var ErrClosed = errors.New("mpsc: channel closed")

// channel is the shared state behind one Sender/Receiver family.
// the queue is unbounded: Send never blocks the producer
type channel[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []T
	head    int // index of the oldest queued value
	senders int // live sender handles

	receiverAlive atomic.Bool // read by Send without taking mu
}

func (c *channel[T]) lenLocked() int {
	return len(c.queue) - c.head
}

// popLocked removes the oldest value; caller holds mu and has checked lenLocked() > 0
func (c *channel[T]) popLocked() T {
	var zero T
	v := c.queue[c.head]
	c.queue[c.head] = zero // release reference for GC
	c.head++

	// compact once the consumed prefix dominates the backing array
	switch {
	case c.head == len(c.queue):
		c.queue = c.queue[:0]
		c.head = 0
	case c.head > 64 && c.head*2 >= len(c.queue):
		n := copy(c.queue, c.queue[c.head:])
		clear(c.queue[n:])
		c.queue = c.queue[:n]
		c.head = 0
	}
	return v
}

// Sender is a producer handle. Handles are cheap; use Clone for every
// additional producer and Close each one when done.
type Sender[T any] struct {
	ch     *channel[T]
	closed atomic.Bool
}

// Receiver is the single consumer handle of a channel. It must not be copied.
type Receiver[T any] struct {
	ch     *channel[T]
	closed atomic.Bool
}

// New creates a channel and returns its first producer handle and its consumer handle.
func New[T any]() (*Sender[T], *Receiver[T]) {
	ch := &channel[T]{senders: 1}
	ch.cond = sync.NewCond(&ch.mu)
	ch.receiverAlive.Store(true)
	return &Sender[T]{ch: ch}, &Receiver[T]{ch: ch}
}

// Send enqueues v and wakes one waiting receiver. It returns false without
// queueing when the receiver has been closed or this handle was already closed.
func (s *Sender[T]) Send(v T) bool {
	if s == nil || s.closed.Load() || !s.ch.receiverAlive.Load() {
		return false
	}

	s.ch.mu.Lock()
	// re-check under the lock so a concurrent Receiver.Close never sees the queue grow afterwards
	if !s.ch.receiverAlive.Load() {
		s.ch.mu.Unlock()
		return false
	}
	s.ch.queue = append(s.ch.queue, v)
	s.ch.mu.Unlock()

	s.ch.cond.Signal()
	return true
}

// Clone returns a new producer handle for the same channel.
// Cloning a closed handle returns a closed handle.
func (s *Sender[T]) Clone() *Sender[T] {
	clone := &Sender[T]{ch: s.ch}
	if s.closed.Load() {
		clone.closed.Store(true)
		return clone
	}

	s.ch.mu.Lock()
	s.ch.senders++
	s.ch.mu.Unlock()
	return clone
}

// Close drops this producer handle. When the last handle is dropped every
// blocked receiver wakes up to observe closure. Close is idempotent.
func (s *Sender[T]) Close() {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return
	}

	s.ch.mu.Lock()
	s.ch.senders--
	last := s.ch.senders == 0
	s.ch.mu.Unlock()

	if last {
		s.ch.cond.Broadcast()
	}
}

// Recv blocks until a value is available or the channel is closed.
// ok is false once every sender is gone and the queue is empty.
func (r *Receiver[T]) Recv() (v T, ok bool) {
	if r.closed.Load() {
		return v, false
	}

	r.ch.mu.Lock()
	defer r.ch.mu.Unlock()

	for r.ch.lenLocked() == 0 && r.ch.senders > 0 && r.ch.receiverAlive.Load() {
		r.ch.cond.Wait()
	}
	if r.ch.lenLocked() == 0 {
		return v, false
	}
	return r.ch.popLocked(), true
}

// RecvContext behaves like Recv but also gives up when ctx is done.
// It returns ErrClosed when the channel is closed and ctx.Err() on cancellation.
// A value already queued is returned even if ctx is done.
func (r *Receiver[T]) RecvContext(ctx context.Context) (v T, err error) {
	if r.closed.Load() {
		return v, ErrClosed
	}

	// cancellation has to wake the cond wait; Broadcast under the lock so the
	// wakeup cannot slip in between the predicate check and Wait
	stop := context.AfterFunc(ctx, func() {
		r.ch.mu.Lock()
		r.ch.cond.Broadcast()
		r.ch.mu.Unlock()
	})
	defer stop()

	r.ch.mu.Lock()
	defer r.ch.mu.Unlock()

	for r.ch.lenLocked() == 0 && r.ch.senders > 0 && r.ch.receiverAlive.Load() && ctx.Err() == nil {
		r.ch.cond.Wait()
	}
	if r.ch.lenLocked() > 0 {
		return r.ch.popLocked(), nil
	}
	if r.ch.senders == 0 || !r.ch.receiverAlive.Load() {
		return v, ErrClosed
	}
	return v, ctx.Err()
}

// TryRecv returns the oldest queued value without blocking.
// It does not tell a closed channel apart from an empty one; see Drained.
func (r *Receiver[T]) TryRecv() (v T, ok bool) {
	if r.closed.Load() {
		return v, false
	}

	r.ch.mu.Lock()
	defer r.ch.mu.Unlock()

	if r.ch.lenLocked() == 0 {
		return v, false
	}
	return r.ch.popLocked(), true
}

// Drained reports whether every sender is gone and nothing is left to receive.
func (r *Receiver[T]) Drained() bool {
	if r.closed.Load() {
		return true
	}

	r.ch.mu.Lock()
	defer r.ch.mu.Unlock()
	return r.ch.senders == 0 && r.ch.lenLocked() == 0
}

// Len returns the number of queued values.
func (r *Receiver[T]) Len() int {
	r.ch.mu.Lock()
	defer r.ch.mu.Unlock()
	return r.ch.lenLocked()
}

// Close marks the consumer side dead. Later sends fail fast and the
// queued values are released. Close is idempotent.
func (r *Receiver[T]) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}

	r.ch.mu.Lock()
	r.ch.receiverAlive.Store(false)
	clear(r.ch.queue)
	r.ch.queue = nil
	r.ch.head = 0
	r.ch.mu.Unlock()

	r.ch.cond.Broadcast()
}
