package tcp

import "ovdlink/internal/protocol"

// MessageHandler receives every decoded inbound message, in arrival order,
// on the receive loop goroutine. A returned error is treated as a protocol
// violation and ends the connection.
type MessageHandler interface {
	Route(msg protocol.Message) error
}

// closer is implemented by handlers that own resources released on Stop
// (the router drops its producer handles).
type closer interface {
	Close()
}
