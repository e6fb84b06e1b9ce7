package protocol

import "fmt"

// Kind tags every frame on the wire. The set is closed.
type Kind uint32

const (
	KindFrame      Kind = 0 // outbound rendered eye image
	KindPosition   Kind = 1 // head pose, 7 float64
	KindController Kind = 2 // controller input, mirrored to both hands
	KindBodyPose   Kind = 3 // 12 packed poses
)

func (k Kind) String() string {
	switch k {
	case KindFrame:
		return "frame"
	case KindPosition:
		return "position"
	case KindController:
		return "controller"
	case KindBodyPose:
		return "body_pose"
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}

// byte sizes of every fixed layout; the codec tests pin these against binary.Size
const (
	HeaderSize          = 8
	PositionSize        = 7 * 8
	PoseSize            = 7 * 4
	ControllerInputSize = 36
	BodyPoseSize        = JointCount * PoseSize
	FrameInfoSize       = 12
	BytesPerPixel       = 4

	// MaxFramePayload caps what a frame reader will allocate for a single image.
	MaxFramePayload = 64 << 20
)

// Header prefixes every frame: kind then payload length.
type Header struct {
	Kind Kind
	Size uint32
}

// Message is one decoded wire payload.
type Message interface {
	Kind() Kind
}

// Position is the head pose: position in meters and a rotation quaternion.
type Position struct {
	X, Y, Z        float64
	QW, QX, QY, QZ float64
}

func (Position) Kind() Kind { return KindPosition }

// IsNull reports whether every field is exactly zero.
func (p Position) IsNull() bool {
	return p == Position{}
}

// Pose is one tracked point in the body pose aggregate.
type Pose struct {
	PosX, PosY, PosZ       float32
	RotW, RotX, RotY, RotZ float32
}

// IsNull reports whether every field is exactly zero, the "no update" sentinel.
func (p Pose) IsNull() bool {
	return p == Pose{}
}

// ControllerInput mirrors the packed controller state. Field order is the wire order.
type ControllerInput struct {
	JoystickX     float32
	JoystickY     float32
	JoystickClick bool
	JoystickTouch bool

	Trigger      float32
	TriggerClick bool
	TriggerTouch bool

	Grip      float32
	GripClick bool
	GripTouch bool

	AClick      bool
	ATouch      bool
	BClick      bool
	BTouch      bool
	SystemClick bool
	MenuClick   bool

	// right controller rotation in radians
	RightYaw   float32
	RightPitch float32
}

func (ControllerInput) Kind() Kind { return KindController }

// Joint names one slot of the body pose aggregate, in wire order.
type Joint int

const (
	JointLeftHand Joint = iota
	JointRightHand
	JointWaist
	JointChest
	JointLeftFoot
	JointRightFoot
	JointLeftKnee
	JointRightKnee
	JointLeftElbow
	JointRightElbow
	JointLeftShoulder
	JointRightShoulder

	JointCount = 12
)

var jointNames = [JointCount]string{
	"left_hand",
	"right_hand",
	"waist",
	"chest",
	"left_foot",
	"right_foot",
	"left_knee",
	"right_knee",
	"left_elbow",
	"right_elbow",
	"left_shoulder",
	"right_shoulder",
}

func (j Joint) String() string {
	if j < 0 || int(j) >= JointCount {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// ParseJoint maps a joint name such as "left_knee" back to its slot.
func ParseJoint(name string) (Joint, bool) {
	for i, n := range jointNames {
		if n == name {
			return Joint(i), true
		}
	}
	return 0, false
}

// BodyPose is the full body update. Joints are stored in wire order.
type BodyPose struct {
	Joints [JointCount]Pose
}

func (BodyPose) Kind() Kind { return KindBodyPose }

// Get returns the pose of one joint.
func (b *BodyPose) Get(j Joint) Pose {
	return b.Joints[j]
}

// Set replaces the pose of one joint.
func (b *BodyPose) Set(j Joint, p Pose) {
	b.Joints[j] = p
}

// Eye indexes the rendered image.
type Eye uint32

const (
	EyeLeft  Eye = 0
	EyeRight Eye = 1
)

// Frame is one rendered eye image, tightly packed RGBA8, row-major.
type Frame struct {
	Width  uint32
	Height uint32
	Eye    Eye
	Pixels []byte
}

func (Frame) Kind() Kind { return KindFrame }

// PixelBytes is the pixel payload length implied by the dimensions.
func (f Frame) PixelBytes() uint64 {
	return uint64(f.Width) * uint64(f.Height) * BytesPerPixel
}

// Validate checks that the pixel buffer matches the declared dimensions.
func (f Frame) Validate() error {
	want := f.PixelBytes()
	if uint64(len(f.Pixels)) != want {
		return fmt.Errorf("%w: have %d bytes, %dx%d needs %d", ErrPixelSize, len(f.Pixels), f.Width, f.Height, want)
	}
	if want+FrameInfoSize > MaxFramePayload {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrFrameTooLarge, want+FrameInfoSize, MaxFramePayload)
	}
	return nil
}
