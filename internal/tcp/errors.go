package tcp

import "errors"

// ErrListen wraps bind/listen failures; it is fatal to initialization.
var ErrListen = errors.New("tcp listen failed")

// disconnect reasons, used as log attributes and metric labels
const (
	ReasonPeerClosed    = "peer_closed"
	ReasonShortRead     = "short_read"
	ReasonReadTimeout   = "read_timeout"
	ReasonReadError     = "read_error"
	ReasonProtocolError = "protocol_error"
	ReasonShutdown      = "shutdown"
)
