package device

import (
	"context"
	"log/slog"

	"ovdlink/internal/protocol"
)

// Sink is the host runtime side of the fleet. Every device loop calls it from
// its own goroutine, so implementations must be safe for concurrent use.
type Sink interface {
	UpdatePose(role Role, pose DriverPose)
	UpdateInput(role Role, input protocol.ControllerInput)
}

// LogSink writes every update as a structured log record.
type LogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogSink logs at debug level; pose loops report at their full rate.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger, level: slog.LevelDebug}
}

func (s *LogSink) UpdatePose(role Role, pose DriverPose) {
	s.logger.Log(context.Background(), s.level, "pose_updated",
		"role", role.String(),
		"x", pose.Position[0],
		"y", pose.Position[1],
		"z", pose.Position[2],
		"qw", pose.Rotation.W,
		"qx", pose.Rotation.X,
		"qy", pose.Rotation.Y,
		"qz", pose.Rotation.Z,
	)
}

func (s *LogSink) UpdateInput(role Role, in protocol.ControllerInput) {
	s.logger.Log(context.Background(), s.level, "input_updated",
		"role", role.String(),
		"joystick_x", in.JoystickX,
		"joystick_y", in.JoystickY,
		"trigger", in.Trigger,
		"grip", in.Grip,
		"a_click", in.AClick,
		"b_click", in.BClick,
		"system_click", in.SystemClick,
		"menu_click", in.MenuClick,
	)
}

// MultiSink forwards every update to each sink in order.
type MultiSink []Sink

func (m MultiSink) UpdatePose(role Role, pose DriverPose) {
	for _, s := range m {
		s.UpdatePose(role, pose)
	}
}

func (m MultiSink) UpdateInput(role Role, in protocol.ControllerInput) {
	for _, s := range m {
		s.UpdateInput(role, in)
	}
}
