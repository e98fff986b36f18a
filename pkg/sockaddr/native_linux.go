package sockaddr

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// SockAddr and unix.RawSockaddrInet4 must stay layout-identical.
var _ [unix.SizeofSockaddrInet4 - unsafe.Sizeof(SockAddr{})]struct{}
var _ [unsafe.Sizeof(SockAddr{}) - unix.SizeofSockaddrInet4]struct{}

// FromNative copies a kernel sockaddr_in.
func FromNative(raw unix.RawSockaddrInet4) SockAddr {
	return *(*SockAddr)(unsafe.Pointer(&raw))
}

// ToNative copies the record out as a kernel sockaddr_in.
func (sa SockAddr) ToNative() unix.RawSockaddrInet4 {
	return *(*unix.RawSockaddrInet4)(unsafe.Pointer(&sa))
}

// AsRaw returns a sockaddr_in view of sa. Writes through the view are
// visible in sa; the view must not outlive it.
func (sa *SockAddr) AsRaw() *unix.RawSockaddrInet4 {
	return (*unix.RawSockaddrInet4)(unsafe.Pointer(sa))
}

// AsSockaddrPtr returns the generic sockaddr pointer and length to pass to
// raw bind, connect, sendto or recvfrom syscalls. The pointer borrows sa.
func (sa *SockAddr) AsSockaddrPtr() (unsafe.Pointer, uint32) {
	return unsafe.Pointer(sa), unix.SizeofSockaddrInet4
}

// Sockaddr converts the record for use with the unix package socket calls.
func (sa SockAddr) Sockaddr() *unix.SockaddrInet4 {
	return &unix.SockaddrInet4{Port: int(sa.Port()), Addr: sa.addr}
}

// FromSockaddr converts a unix.Sockaddr returned by Getsockname, Recvfrom and
// friends. It reports false for anything but an IPv4 address.
func FromSockaddr(from unix.Sockaddr) (SockAddr, bool) {
	in4, ok := from.(*unix.SockaddrInet4)
	if !ok {
		return SockAddr{}, false
	}
	sa := New(uint16(in4.Port), 0)
	sa.addr = in4.Addr
	return sa, true
}
