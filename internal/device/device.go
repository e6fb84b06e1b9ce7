package device

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"ovdlink/internal/mpsc"
	"ovdlink/internal/protocol"
)

const (
	DefaultControllerHz = 90
	DefaultTrackerHz    = 200
)

// Device is one consumer of the distribution layer. Run returns nil when ctx
// is cancelled or the device's channels are closed and drained.
type Device interface {
	Role() Role
	Run(ctx context.Context) error
}

// stopped reports whether a receive error is a normal way for a loop to end.
func stopped(err error) bool {
	return errors.Is(err, mpsc.ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Head reports every head pose as it arrives.
type Head struct {
	rx   *mpsc.Receiver[protocol.Position]
	sink Sink
}

func NewHead(rx *mpsc.Receiver[protocol.Position], sink Sink) *Head {
	return &Head{rx: rx, sink: sink}
}

func (h *Head) Role() Role { return RoleHead }

func (h *Head) Run(ctx context.Context) error {
	h.sink.UpdatePose(RoleHead, RoleHead.Info().DefaultPose)
	for {
		p, err := h.rx.RecvContext(ctx)
		if err != nil {
			if stopped(err) {
				return nil
			}
			return err
		}
		h.sink.UpdatePose(RoleHead, FromPosition(p))
	}
}

// Controller runs two loops: input forwarded as it arrives, and the hand pose
// re-reported at a fixed rate.
type Controller struct {
	role  Role
	input *mpsc.Receiver[protocol.ControllerInput]
	pose  *mpsc.Receiver[protocol.Pose]
	sink  Sink
	hz    float64
}

func NewController(role Role, input *mpsc.Receiver[protocol.ControllerInput], pose *mpsc.Receiver[protocol.Pose], sink Sink, hz float64) *Controller {
	return &Controller{role: role, input: input, pose: pose, sink: sink, hz: hz}
}

func (c *Controller) Role() Role { return c.role }

func (c *Controller) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.runInput(gctx)
	})
	g.Go(func() error {
		return runPoseLoop(gctx, c.role, c.pose, c.sink, c.hz)
	})
	return g.Wait()
}

func (c *Controller) runInput(ctx context.Context) error {
	for {
		in, err := c.input.RecvContext(ctx)
		if err != nil {
			if stopped(err) {
				return nil
			}
			return err
		}
		c.sink.UpdateInput(c.role, in)
	}
}

// Tracker re-reports its last known pose at a fixed rate. Null poses never
// reach it when the router filters partial updates.
type Tracker struct {
	role Role
	pose *mpsc.Receiver[protocol.Pose]
	sink Sink
	hz   float64
}

func NewTracker(role Role, pose *mpsc.Receiver[protocol.Pose], sink Sink, hz float64) *Tracker {
	return &Tracker{role: role, pose: pose, sink: sink, hz: hz}
}

func (t *Tracker) Role() Role { return t.role }

func (t *Tracker) Run(ctx context.Context) error {
	return runPoseLoop(ctx, t.role, t.pose, t.sink, t.hz)
}

// runPoseLoop polls rx once per tick, keeps the newest pose and reports it.
// It exits once rx is closed and drained, or when ctx is done.
func runPoseLoop(ctx context.Context, role Role, rx *mpsc.Receiver[protocol.Pose], sink Sink, hz float64) error {
	if hz <= 0 {
		hz = DefaultTrackerHz
	}
	limiter := rate.NewLimiter(rate.Limit(hz), 1)
	current := role.Info().DefaultPose

	for {
		if err := limiter.Wait(ctx); err != nil {
			// cancelled, or the next tick would pass the ctx deadline
			return nil
		}
		for {
			p, ok := rx.TryRecv()
			if !ok {
				break
			}
			current = FromPose(p)
		}
		sink.UpdatePose(role, current)
		if rx.Drained() {
			return nil
		}
	}
}

// logRun wraps a device run with start/stop log lines.
func logRun(ctx context.Context, logger *slog.Logger, d Device) error {
	info := d.Role().Info()
	logger.Info("device_started",
		"role", info.Name,
		"serial", info.Serial,
		"class", info.Class.String(),
	)
	err := d.Run(ctx)
	if err != nil {
		logger.Error("device_failed",
			"role", info.Name,
			"error", err,
		)
		return err
	}
	logger.Info("device_stopped",
		"role", info.Name,
	)
	return nil
}
