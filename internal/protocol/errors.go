package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocol marks a stream that can no longer be trusted; the connection should be dropped.
	ErrProtocol = errors.New("protocol error")

	ErrUnknownKind   = errors.New("unknown message kind")
	ErrSizeMismatch  = errors.New("payload size does not match message kind")
	ErrFrameTooLarge = errors.New("frame payload too large")
	ErrOutboundOnly  = errors.New("message kind is outbound only")
	ErrPixelSize     = errors.New("pixel buffer does not match frame dimensions")
)

// ProtocolError describes a frame whose header cannot be honored.
// It matches ErrProtocol and its Reason under errors.Is.
type ProtocolError struct {
	Header Header
	Reason error
	Want   uint32 // expected size, zero when not applicable
}

func (e *ProtocolError) Error() string {
	if e.Want != 0 {
		return fmt.Sprintf("protocol error: %v (%s declared %d bytes, want %d)", e.Reason, e.Header.Kind, e.Header.Size, e.Want)
	}
	return fmt.Sprintf("protocol error: %v (%s, %d bytes)", e.Reason, e.Header.Kind, e.Header.Size)
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

func (e *ProtocolError) Unwrap() error {
	return e.Reason
}
