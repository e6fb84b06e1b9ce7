package device

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"ovdlink/internal/router"
)

type FleetOption func(*Fleet)

func WithControllerHz(hz float64) FleetOption {
	return func(f *Fleet) { f.controllerHz = hz }
}

func WithTrackerHz(hz float64) FleetOption {
	return func(f *Fleet) { f.trackerHz = hz }
}

func WithLogger(logger *slog.Logger) FleetOption {
	return func(f *Fleet) { f.logger = logger }
}

// Fleet is the full device set: head, two controllers and ten trackers, each
// bound to its own channel of the router's endpoints.
type Fleet struct {
	devices      []Device
	controllerHz float64
	trackerHz    float64
	logger       *slog.Logger
}

func NewFleet(e *router.Endpoints, sink Sink, opts ...FleetOption) *Fleet {
	f := &Fleet{
		controllerHz: DefaultControllerHz,
		trackerHz:    DefaultTrackerHz,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}

	f.devices = make([]Device, 0, roleCount)
	for _, role := range Roles() {
		switch role.Info().Class {
		case ClassHMD:
			f.devices = append(f.devices, NewHead(e.Head, sink))
		case ClassController:
			joint, _ := role.Joint()
			input := e.LeftInput
			if role == RoleRightController {
				input = e.RightInput
			}
			f.devices = append(f.devices, NewController(role, input, e.Joint(joint), sink, f.controllerHz))
		case ClassTracker:
			joint, _ := role.Joint()
			f.devices = append(f.devices, NewTracker(role, e.Joint(joint), sink, f.trackerHz))
		}
	}
	return f
}

func (f *Fleet) Devices() []Device {
	return f.devices
}

// Run runs every device until ctx is done or all channels are closed, and
// returns once all of them have exited.
func (f *Fleet) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range f.devices {
		g.Go(func() error {
			return logRun(gctx, f.logger, d)
		})
	}
	return g.Wait()
}
