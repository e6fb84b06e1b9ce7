package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutSizes(t *testing.T) {
	assert.Equal(t, PositionSize, binary.Size(Position{}))
	assert.Equal(t, PoseSize, binary.Size(Pose{}))
	assert.Equal(t, ControllerInputSize, binary.Size(ControllerInput{}))
	assert.Equal(t, BodyPoseSize, binary.Size(BodyPose{}))
	assert.Equal(t, 336, BodyPoseSize)
}

func sampleInput() ControllerInput {
	return ControllerInput{
		JoystickX:     0.5,
		JoystickY:     -0.25,
		JoystickClick: true,
		Trigger:       1.0,
		TriggerTouch:  true,
		Grip:          0.75,
		GripClick:     true,
		BTouch:        true,
		MenuClick:     true,
		RightYaw:      float32(math.Pi / 4),
		RightPitch:    -0.1,
	}
}

func sampleBody() BodyPose {
	var b BodyPose
	for j := 0; j < JointCount; j++ {
		f := float32(j + 1)
		b.Joints[j] = Pose{PosX: f, PosY: f * 0.5, PosZ: -f, RotW: 1, RotX: 0, RotY: f / 100, RotZ: 0}
	}
	return b
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		msg  Message
	}{
		{"position", Position{X: 1.25, Y: 1.6, Z: -0.5, QW: 0.9, QX: 0.1, QY: 0.3, QZ: -0.2}},
		{"controller input", sampleInput()},
		{"body pose", sampleBody()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wire, err := Encode(tc.msg)
			require.NoError(t, err)

			got, err := ReadMessage(bytes.NewReader(wire))
			require.NoError(t, err)
			assert.Equal(t, tc.msg, got)

			again, err := Encode(got)
			require.NoError(t, err)
			assert.Equal(t, wire, again, "re-encoding must be bit identical")
		})
	}
}

func TestControllerInputWireLayout(t *testing.T) {
	in := ControllerInput{JoystickX: 0.5, Trigger: 1.0, AClick: true, RightPitch: 2}
	wire, err := Encode(in)
	require.NoError(t, err)
	require.Len(t, wire, HeaderSize+ControllerInputSize)

	assert.Equal(t, uint32(KindController), binary.LittleEndian.Uint32(wire[0:4]))
	assert.Equal(t, uint32(ControllerInputSize), binary.LittleEndian.Uint32(wire[4:8]))

	p := wire[HeaderSize:]
	assert.Equal(t, float32(0.5), math.Float32frombits(binary.LittleEndian.Uint32(p[0:4])))
	// joystick click/touch are the single bytes at 8 and 9, trigger follows without padding
	assert.Equal(t, []byte{0, 0}, p[8:10])
	assert.Equal(t, float32(1.0), math.Float32frombits(binary.LittleEndian.Uint32(p[10:14])))
	// aClick follows grip (16..20) and grip click/touch (20, 21)
	assert.Equal(t, byte(1), p[22])
	assert.Equal(t, float32(2), math.Float32frombits(binary.LittleEndian.Uint32(p[32:36])))
}

func TestNonZeroBoolByteDecodesTrue(t *testing.T) {
	payload := make([]byte, ControllerInputSize)
	payload[8] = 0x7f // joystick click

	msg, err := Decode(Header{Kind: KindController, Size: ControllerInputSize}, payload)
	require.NoError(t, err)
	assert.True(t, msg.(ControllerInput).JoystickClick)
}

func TestHeaderValidate(t *testing.T) {
	cases := []struct {
		name   string
		header Header
		reason error
	}{
		{"position ok", Header{KindPosition, PositionSize}, nil},
		{"position short", Header{KindPosition, PositionSize - 1}, ErrSizeMismatch},
		{"controller long", Header{KindController, ControllerInputSize + 4}, ErrSizeMismatch},
		{"body ok", Header{KindBodyPose, BodyPoseSize}, nil},
		{"frame info only", Header{KindFrame, FrameInfoSize}, nil},
		{"frame too small", Header{KindFrame, 4}, ErrSizeMismatch},
		{"frame too large", Header{KindFrame, MaxFramePayload + 1}, ErrFrameTooLarge},
		{"unknown kind", Header{Kind(9), 0}, ErrUnknownKind},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.header.Validate()
			if tc.reason == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.reason)
			assert.ErrorIs(t, err, ErrProtocol)
		})
	}
}

func TestReadMessage_SizeMismatchDoesNotConsumePayload(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(AppendHeader(nil, Header{Kind: KindController, Size: 12}))
	buf.Write(make([]byte, 12))

	_, err := ReadMessage(&buf)
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, uint32(ControllerInputSize), perr.Want)
	assert.Equal(t, 12, buf.Len(), "payload of a rejected frame is never read")
}

func TestReadInbound_RejectsFrameOnHeader(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(AppendHeader(nil, Header{Kind: KindFrame, Size: 60 << 20}))
	buf.Write(make([]byte, 64))

	_, err := ReadInbound(&buf)
	assert.ErrorIs(t, err, ErrOutboundOnly)
	assert.ErrorIs(t, err, ErrProtocol)
	assert.Equal(t, 64, buf.Len(), "no payload byte is read for a frame header")

	// the same header is fine for a client reading frames
	assert.NoError(t, Header{Kind: KindFrame, Size: 60 << 20}.Validate())
}

func TestReadInbound_AcceptsTrackingKinds(t *testing.T) {
	in := ControllerInput{Trigger: 1}
	wire, err := Encode(in)
	require.NoError(t, err)

	msg, err := ReadInbound(bytes.NewReader(wire))
	require.NoError(t, err)
	assert.Equal(t, in, msg)
}

func TestReadMessage_ShortReads(t *testing.T) {
	t.Run("clean close", func(t *testing.T) {
		_, err := ReadMessage(bytes.NewReader(nil))
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("partial header", func(t *testing.T) {
		_, err := ReadMessage(bytes.NewReader([]byte{2, 0, 0}))
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("header without payload", func(t *testing.T) {
		wire := AppendHeader(nil, Header{Kind: KindController, Size: ControllerInputSize})
		_, err := ReadMessage(bytes.NewReader(wire))
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
		assert.False(t, errors.Is(err, ErrProtocol), "a short read is a transport error")
	})
}

func TestFrameEncoding(t *testing.T) {
	pixels := make([]byte, 4*2*4)
	for i := range pixels {
		pixels[i] = byte(i)
	}
	f := Frame{Width: 4, Height: 2, Eye: EyeRight, Pixels: pixels}

	wire, err := Encode(f)
	require.NoError(t, err)
	require.Len(t, wire, HeaderSize+FrameInfoSize+32)

	assert.Equal(t, uint32(KindFrame), binary.LittleEndian.Uint32(wire[0:4]))
	assert.Equal(t, uint32(12+32), binary.LittleEndian.Uint32(wire[4:8]))
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(wire[8:12]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(wire[12:16]))
	assert.Equal(t, uint32(EyeRight), binary.LittleEndian.Uint32(wire[16:20]))
	assert.Equal(t, pixels, wire[20:])

	assert.Equal(t, wire[:20], FramePrefix(f))

	msg, err := ReadMessage(bytes.NewReader(wire))
	require.NoError(t, err)
	assert.Equal(t, f, msg)
}

func TestFrameValidate(t *testing.T) {
	err := Frame{Width: 4, Height: 2, Pixels: make([]byte, 31)}.Validate()
	assert.ErrorIs(t, err, ErrPixelSize)

	_, err = Encode(Frame{Width: 1, Height: 1, Pixels: nil})
	assert.ErrorIs(t, err, ErrPixelSize)

	assert.NoError(t, Frame{}.Validate(), "an empty 0x0 frame is valid")
}

func TestDecodeFrame_DimensionMismatch(t *testing.T) {
	payload := make([]byte, FrameInfoSize+8)
	binary.LittleEndian.PutUint32(payload[0:4], 4)
	binary.LittleEndian.PutUint32(payload[4:8], 4)

	_, err := DecodeFrame(payload)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestNullPose(t *testing.T) {
	assert.True(t, Pose{}.IsNull())
	assert.False(t, Pose{RotW: 1}.IsNull())
	assert.True(t, Position{}.IsNull())
	assert.False(t, Position{Y: 1.6}.IsNull())

	// negative zero compares equal to zero
	assert.True(t, Pose{PosX: float32(math.Copysign(0, -1))}.IsNull())
}

func TestBodyPoseJointOrder(t *testing.T) {
	b := sampleBody()
	wire, err := Encode(b)
	require.NoError(t, err)

	// the waist pose is the third 28 byte record
	off := HeaderSize + int(JointWaist)*PoseSize
	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(wire[off:off+4])))
	assert.Equal(t, "right_shoulder", JointRightShoulder.String())
	assert.Equal(t, b.Joints[JointChest], b.Get(JointChest))
}

func TestFromEuler(t *testing.T) {
	qw, qx, qy, qz := FromEuler(0, 0)
	assert.Equal(t, [4]float64{1, 0, 0, 0}, [4]float64{qw, qx, qy, qz})

	qw, _, qy, _ = FromEuler(math.Pi, 0)
	assert.InDelta(t, 0, qw, 1e-9)
	assert.InDelta(t, 1, qy, 1e-9)

	p := HeadPosition(0, 1.6, 0, 0.3, -0.2)
	norm := p.QW*p.QW + p.QX*p.QX + p.QY*p.QY + p.QZ*p.QZ
	assert.InDelta(t, 1, norm, 1e-9)
}

func TestEncodePointerMessages(t *testing.T) {
	in := sampleInput()
	a, err := Encode(in)
	require.NoError(t, err)
	b, err := Encode(&in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestParseJoint(t *testing.T) {
	for j := Joint(0); j < JointCount; j++ {
		got, ok := ParseJoint(j.String())
		require.True(t, ok, j.String())
		assert.Equal(t, j, got)
	}
	_, ok := ParseJoint("tail")
	assert.False(t, ok)
}
