package tcp

import "time"

const (
	acceptBackoffMin = 25 * time.Millisecond
	acceptBackoffMax = time.Second
)

// acceptBackoff doubles the delay after each failed Accept, capped at max.
type acceptBackoff struct {
	delay time.Duration
	min   time.Duration
	max   time.Duration
}

func newAcceptBackoff() *acceptBackoff {
	return &acceptBackoff{min: acceptBackoffMin, max: acceptBackoffMax}
}

func (b *acceptBackoff) next() time.Duration {
	if b.delay == 0 {
		b.delay = b.min
	} else {
		b.delay *= 2
	}
	if b.delay > b.max {
		b.delay = b.max
	}
	return b.delay
}

func (b *acceptBackoff) reset() {
	b.delay = 0
}
