// Package core defines core data structures with zero external dependencies.
package core

import (
	"net/netip"
	"time"
)

// RawPacket is one frame read from a capture.
type RawPacket struct {
	Data       []byte    // Raw frame data, zero-copy slice
	Timestamp  time.Time // Capture timestamp
	CaptureLen uint32    // Actual captured length
	OrigLen    uint32    // Original frame length
}

// DecodedPacket is the result of L2-L4 protocol stack decoding.
type DecodedPacket struct {
	Timestamp  time.Time
	Ethernet   EthernetHeader
	IP         IPHeader
	Transport  TransportHeader
	Payload    []byte // Application layer payload, zero-copy slice
	CaptureLen uint32
	OrigLen    uint32
}

// Src returns the source address and port.
func (p *DecodedPacket) Src() netip.AddrPort {
	return netip.AddrPortFrom(p.IP.SrcIP, p.Transport.SrcPort)
}

// Dst returns the destination address and port.
func (p *DecodedPacket) Dst() netip.AddrPort {
	return netip.AddrPortFrom(p.IP.DstIP, p.Transport.DstPort)
}
