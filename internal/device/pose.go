package device

import "ovdlink/internal/protocol"

type Quaternion struct {
	W, X, Y, Z float64
}

var Identity = Quaternion{W: 1}

// DriverPose is the pose handed to the host runtime, in meters and a unit quaternion.
type DriverPose struct {
	Position [3]float64
	Rotation Quaternion
}

// withValidRotation replaces an all-zero rotation with identity.
func (d DriverPose) withValidRotation() DriverPose {
	if d.Rotation == (Quaternion{}) {
		d.Rotation = Identity
	}
	return d
}

func FromPosition(p protocol.Position) DriverPose {
	return DriverPose{
		Position: [3]float64{p.X, p.Y, p.Z},
		Rotation: Quaternion{W: p.QW, X: p.QX, Y: p.QY, Z: p.QZ},
	}.withValidRotation()
}

func FromPose(p protocol.Pose) DriverPose {
	return DriverPose{
		Position: [3]float64{float64(p.PosX), float64(p.PosY), float64(p.PosZ)},
		Rotation: Quaternion{W: float64(p.RotW), X: float64(p.RotX), Y: float64(p.RotY), Z: float64(p.RotZ)},
	}.withValidRotation()
}
