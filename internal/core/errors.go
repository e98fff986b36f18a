// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors shared by the decoders and the inspector.
var (
	// Packet decoding errors
	ErrPacketTooShort   = errors.New("enip: packet too short")
	ErrUnsupportedProto = errors.New("enip: unsupported protocol")
	ErrUnsupportedLink  = errors.New("enip: unsupported link type")

	// Encapsulation / CPF errors
	ErrTruncatedMessage = errors.New("enip: truncated encapsulation message")
	ErrTruncatedItem    = errors.New("enip: truncated CPF item")
	ErrInvalidSockAddr  = errors.New("enip: invalid SockAddr info item")
	ErrMessageTooLong   = errors.New("enip: encapsulation message too long")

	// Resolver errors
	ErrUnknownResolver = errors.New("enip: unknown resolver mode")

	// Configuration errors
	ErrConfigInvalid = errors.New("enip: invalid configuration")
)
