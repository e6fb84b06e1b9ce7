package device

import (
	"fmt"

	"ovdlink/internal/protocol"
)

// Class is the kind of tracked device a role is exposed as.
type Class int

const (
	ClassHMD Class = iota
	ClassController
	ClassTracker
)

func (c Class) String() string {
	switch c {
	case ClassHMD:
		return "hmd"
	case ClassController:
		return "controller"
	case ClassTracker:
		return "tracker"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Role identifies one device of the fleet.
type Role int

const (
	RoleHead Role = iota
	RoleLeftController
	RoleRightController
	RoleWaist
	RoleChest
	RoleLeftFoot
	RoleRightFoot
	RoleLeftKnee
	RoleRightKnee
	RoleLeftElbow
	RoleRightElbow
	RoleLeftShoulder
	RoleRightShoulder

	roleCount
)

// RoleInfo is the static description of a role as presented to the host runtime.
type RoleInfo struct {
	Name   string
	Serial string
	Model  string
	Class  Class
	// Hint is the controller type the host uses to assign a tracker to a body part.
	Hint        string
	DefaultPose DriverPose

	joint    protocol.Joint
	hasJoint bool
}

func tracker(name string, joint protocol.Joint) RoleInfo {
	return RoleInfo{
		Name:        name,
		Serial:      "OVD-TRACKER-" + name,
		Model:       "OVD Tracker",
		Class:       ClassTracker,
		Hint:        "vive_tracker_" + name,
		DefaultPose: DriverPose{Rotation: Identity},
		joint:       joint,
		hasJoint:    true,
	}
}

var roles = [roleCount]RoleInfo{
	RoleHead: {
		Name:        "head",
		Serial:      "OVD-HMD-001",
		Model:       "OVD HMD",
		Class:       ClassHMD,
		DefaultPose: DriverPose{Position: [3]float64{0, 1.6, 0}, Rotation: Identity},
	},
	RoleLeftController: {
		Name:        "left_hand",
		Serial:      "OVD-CTRL-LEFT",
		Model:       "OVD Controller",
		Class:       ClassController,
		DefaultPose: DriverPose{Position: [3]float64{-0.67, 1.41, 0}, Rotation: Identity},
		joint:       protocol.JointLeftHand,
		hasJoint:    true,
	},
	RoleRightController: {
		Name:        "right_hand",
		Serial:      "OVD-CTRL-RIGHT",
		Model:       "OVD Controller",
		Class:       ClassController,
		DefaultPose: DriverPose{Position: [3]float64{0.67, 1.41, 0}, Rotation: Identity},
		joint:       protocol.JointRightHand,
		hasJoint:    true,
	},
	RoleWaist:         tracker("waist", protocol.JointWaist),
	RoleChest:         tracker("chest", protocol.JointChest),
	RoleLeftFoot:      tracker("left_foot", protocol.JointLeftFoot),
	RoleRightFoot:     tracker("right_foot", protocol.JointRightFoot),
	RoleLeftKnee:      tracker("left_knee", protocol.JointLeftKnee),
	RoleRightKnee:     tracker("right_knee", protocol.JointRightKnee),
	RoleLeftElbow:     tracker("left_elbow", protocol.JointLeftElbow),
	RoleRightElbow:    tracker("right_elbow", protocol.JointRightElbow),
	RoleLeftShoulder:  tracker("left_shoulder", protocol.JointLeftShoulder),
	RoleRightShoulder: tracker("right_shoulder", protocol.JointRightShoulder),
}

func (r Role) valid() bool {
	return r >= 0 && r < roleCount
}

// Info returns the role's table entry; unknown roles return the zero value.
func (r Role) Info() RoleInfo {
	if !r.valid() {
		return RoleInfo{}
	}
	return roles[r]
}

func (r Role) String() string {
	if !r.valid() {
		return fmt.Sprintf("role(%d)", int(r))
	}
	return roles[r].Name
}

// Joint returns the body pose slot feeding this role's pose, if any.
// The head is fed by Position messages and has none.
func (r Role) Joint() (protocol.Joint, bool) {
	info := r.Info()
	return info.joint, info.hasJoint
}

// Roles lists every role in fleet order.
func Roles() []Role {
	out := make([]Role, 0, roleCount)
	for r := RoleHead; r < roleCount; r++ {
		out = append(out, r)
	}
	return out
}

// TrackerRoles lists the ten body trackers.
func TrackerRoles() []Role {
	return Roles()[RoleWaist:]
}
