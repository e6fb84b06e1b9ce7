package protocol

import "math"

// FromEuler builds the head quaternion (w, x, y, z) for a yaw around +Y
// followed by a pitch around +X, both in radians.
func FromEuler(yaw, pitch float64) (qw, qx, qy, qz float64) {
	cy, sy := math.Cos(yaw*0.5), math.Sin(yaw*0.5)
	cp, sp := math.Cos(pitch*0.5), math.Sin(pitch*0.5)

	// q_pitch * q_yaw
	return cp * cy, sp * cy, cp * sy, -sp * sy
}

// HeadPosition is a convenience constructor for a head pose looking along yaw/pitch.
func HeadPosition(x, y, z, yaw, pitch float64) Position {
	qw, qx, qy, qz := FromEuler(yaw, pitch)
	return Position{X: x, Y: y, Z: z, QW: qw, QX: qx, QY: qy, QZ: qz}
}
