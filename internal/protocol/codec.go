package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// byteOrder is the wire byte order for every integer and float.
var byteOrder = binary.LittleEndian

// ExpectedSize returns the exact payload size of a fixed-layout kind.
// Frames are variable sized and report false.
func ExpectedSize(k Kind) (uint32, bool) {
	switch k {
	case KindPosition:
		return PositionSize, true
	case KindController:
		return ControllerInputSize, true
	case KindBodyPose:
		return BodyPoseSize, true
	default:
		return 0, false
	}
}

// Validate checks a header before any payload byte is read, so a bad
// length never drives an allocation or a read.
func (h Header) Validate() error {
	switch h.Kind {
	case KindPosition, KindController, KindBodyPose:
		want, _ := ExpectedSize(h.Kind)
		if h.Size != want {
			return &ProtocolError{Header: h, Reason: ErrSizeMismatch, Want: want}
		}
		return nil
	case KindFrame:
		if h.Size < FrameInfoSize {
			return &ProtocolError{Header: h, Reason: ErrSizeMismatch, Want: FrameInfoSize}
		}
		if h.Size > MaxFramePayload {
			return &ProtocolError{Header: h, Reason: ErrFrameTooLarge}
		}
		return nil
	default:
		return &ProtocolError{Header: h, Reason: ErrUnknownKind}
	}
}

// ValidateInbound is Validate for headers arriving at the server. Frames
// only ever travel server to client, so a frame header is rejected before
// its payload is read.
func (h Header) ValidateInbound() error {
	if h.Kind == KindFrame {
		return &ProtocolError{Header: h, Reason: ErrOutboundOnly}
	}
	return h.Validate()
}

// AppendHeader appends the 8 byte header encoding of h to dst.
func AppendHeader(dst []byte, h Header) []byte {
	dst = byteOrder.AppendUint32(dst, uint32(h.Kind))
	return byteOrder.AppendUint32(dst, h.Size)
}

// ReadHeader reads exactly one header. A partial header is an error.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, err
	}
	return Header{
		Kind: Kind(byteOrder.Uint32(buf[0:4])),
		Size: byteOrder.Uint32(buf[4:8]),
	}, nil
}

// Decode turns a validated header and its payload into a message.
func Decode(h Header, payload []byte) (Message, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	if uint32(len(payload)) != h.Size {
		return nil, &ProtocolError{Header: h, Reason: ErrSizeMismatch, Want: h.Size}
	}

	switch h.Kind {
	case KindPosition:
		var p Position
		if _, err := binary.Decode(payload, byteOrder, &p); err != nil {
			return nil, fmt.Errorf("decode position: %w", err)
		}
		return p, nil
	case KindController:
		var in ControllerInput
		if _, err := binary.Decode(payload, byteOrder, &in); err != nil {
			return nil, fmt.Errorf("decode controller input: %w", err)
		}
		return in, nil
	case KindBodyPose:
		var b BodyPose
		if _, err := binary.Decode(payload, byteOrder, &b); err != nil {
			return nil, fmt.Errorf("decode body pose: %w", err)
		}
		return b, nil
	default: // KindFrame, the only other kind Validate lets through
		return DecodeFrame(payload)
	}
}

// DecodeFrame decodes a frame payload (info block plus pixels).
// Pixels alias payload.
func DecodeFrame(payload []byte) (Frame, error) {
	if len(payload) < FrameInfoSize {
		h := Header{Kind: KindFrame, Size: uint32(len(payload))}
		return Frame{}, &ProtocolError{Header: h, Reason: ErrSizeMismatch, Want: FrameInfoSize}
	}

	f := Frame{
		Width:  byteOrder.Uint32(payload[0:4]),
		Height: byteOrder.Uint32(payload[4:8]),
		Eye:    Eye(byteOrder.Uint32(payload[8:12])),
		Pixels: payload[FrameInfoSize:],
	}
	if uint64(len(f.Pixels)) != f.PixelBytes() {
		h := Header{Kind: KindFrame, Size: uint32(len(payload))}
		return Frame{}, &ProtocolError{Header: h, Reason: ErrSizeMismatch, Want: uint32(f.PixelBytes() + FrameInfoSize)}
	}
	return f, nil
}

// ReadInbound reads one message sent by a tracking client. It fails on the
// header alone for any kind the server does not accept.
func ReadInbound(r io.Reader) (Message, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if err := h.ValidateInbound(); err != nil {
		return nil, err
	}
	return readPayload(r, h)
}

// ReadMessage reads one complete frame from r. Transport errors are returned
// as-is (io.EOF on a clean close before a header, io.ErrUnexpectedEOF on a
// short read); header problems come back as *ProtocolError.
func ReadMessage(r io.Reader) (Message, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return readPayload(r, h)
}

func readPayload(r io.Reader, h Header) (Message, error) {
	payload := make([]byte, h.Size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return Decode(h, payload)
}

// FramePrefix returns the header and info block that precede a frame's pixels.
func FramePrefix(f Frame) []byte {
	buf := make([]byte, 0, HeaderSize+FrameInfoSize)
	buf = AppendHeader(buf, Header{Kind: KindFrame, Size: uint32(FrameInfoSize + f.PixelBytes())})
	buf = byteOrder.AppendUint32(buf, f.Width)
	buf = byteOrder.AppendUint32(buf, f.Height)
	return byteOrder.AppendUint32(buf, uint32(f.Eye))
}

// Encode returns the full wire bytes (header included) for msg.
func Encode(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case Frame:
		if err := m.Validate(); err != nil {
			return nil, err
		}
		return append(FramePrefix(m), m.Pixels...), nil
	case *Frame:
		return Encode(*m)
	case *Position:
		return Encode(*m)
	case *ControllerInput:
		return Encode(*m)
	case *BodyPose:
		return Encode(*m)
	case Position, ControllerInput, BodyPose:
		size, _ := ExpectedSize(msg.Kind())
		buf := make([]byte, 0, HeaderSize+size)
		buf = AppendHeader(buf, Header{Kind: msg.Kind(), Size: size})
		out, err := binary.Append(buf, byteOrder, m)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", msg.Kind(), err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("encode %T: %w", msg, ErrUnknownKind)
	}
}

// WriteMessage encodes msg and writes it with a single Write call.
func WriteMessage(w io.Writer, msg Message) error {
	buf, err := Encode(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}
