// Package sockaddr implements the IPv4 socket address carried by the
// EtherNet/IP Common Packet Format "SockAddr Info Item".
//
// A SockAddr has the same memory layout as the Linux struct sockaddr_in:
// port and address are kept in network byte order while every accessor takes
// and returns host-order integers, so client code can mostly forget about
// endianness. On Linux the record can be handed to raw socket calls through
// AsRaw / AsSockaddrPtr without copying.
package sockaddr

import (
	"encoding/binary"
	"net/netip"
	"strconv"
)

// FamilyInet is the address family tag a valid SockAddr Info Item carries
// (AF_INET).
const FamilyInet uint16 = 2

// AddrAny is the wildcard address (INADDR_ANY).
const AddrAny uint32 = 0

// Size is the size of a SockAddr in memory and on the wire.
const Size = 16

// SockAddr is an IPv4 socket address. The zero value has no family and is
// therefore not valid; use New.
type SockAddr struct {
	family uint16
	port   [2]byte // network order
	addr   [4]byte // network order
	zero   [8]byte
}

// New returns a SockAddr with family FamilyInet and the given host-order
// port and address. New(0, AddrAny) is the wildcard address.
func New(port uint16, addr uint32) SockAddr {
	var sa SockAddr
	sa.family = FamilyInet
	sa.SetPort(port)
	sa.SetAddr(addr)
	return sa
}

// FromAddrPort converts an IPv4 (or IPv4-mapped IPv6) netip.AddrPort.
// It reports false for any other address.
func FromAddrPort(ap netip.AddrPort) (SockAddr, bool) {
	ip := ap.Addr().Unmap()
	if !ip.Is4() {
		return SockAddr{}, false
	}
	sa := New(ap.Port(), 0)
	sa.addr = ip.As4()
	return sa, true
}

// SetFamily stores the address family tag as is.
func (sa *SockAddr) SetFamily(family uint16) *SockAddr {
	sa.family = family
	return sa
}

// SetPort stores a host-order port in network order.
func (sa *SockAddr) SetPort(port uint16) *SockAddr {
	binary.BigEndian.PutUint16(sa.port[:], port)
	return sa
}

// SetAddr stores a host-order IPv4 address in network order.
func (sa *SockAddr) SetAddr(addr uint32) *SockAddr {
	binary.BigEndian.PutUint32(sa.addr[:], addr)
	return sa
}

// Family returns the address family tag.
func (sa SockAddr) Family() uint16 { return sa.family }

// Port returns the port in host order.
func (sa SockAddr) Port() uint16 { return binary.BigEndian.Uint16(sa.port[:]) }

// Addr returns the IPv4 address in host order.
func (sa SockAddr) Addr() uint32 { return binary.BigEndian.Uint32(sa.addr[:]) }

// AddrStr returns the address in dotted-quad notation.
func (sa SockAddr) AddrStr() string { return IPAddrStr(sa.addr) }

// AddrPort returns the address as a netip.AddrPort.
func (sa SockAddr) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(netip.AddrFrom4(sa.addr), sa.Port())
}

// String returns "a.b.c.d:port".
func (sa SockAddr) String() string {
	return sa.AddrStr() + ":" + strconv.FormatUint(uint64(sa.Port()), 10)
}

// Equals compares address and port only; family and padding are ignored.
func (sa SockAddr) Equals(other SockAddr) bool {
	return sa.addr == other.addr && sa.port == other.port
}

// IsValid checks the fields of a decoded SockAddr Info Item as required by
// CIP Vol 2 3-3.9.4: the family must be AF_INET and the eight reserved bytes
// must all be zero. It never modifies the record.
func (sa SockAddr) IsValid() bool {
	return sa.family == FamilyInet && sa.zero == [8]byte{}
}

// IsMulticast reports whether the address lies in 224.0.0.0/4
// (224.0.0.0 through 239.255.255.255, CIP Vol 2 3-5.3).
func (sa SockAddr) IsMulticast() bool {
	return sa.Addr()&0xf0000000 == 0xe0000000
}

// Padding returns a copy of the eight reserved bytes.
func (sa SockAddr) Padding() [8]byte { return sa.zero }

// IPAddrStr formats a network-order IPv4 address as "a.b.c.d" without going
// through the platform's inet_ntoa.
func IPAddrStr(ip [4]byte) string {
	b := make([]byte, 0, 15)
	for i, octet := range ip {
		if i > 0 {
			b = append(b, '.')
		}
		b = strconv.AppendUint(b, uint64(octet), 10)
	}
	return string(b)
}
