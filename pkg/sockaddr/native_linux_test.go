package sockaddr

import (
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"
)

func TestNativeRoundTrip(t *testing.T) {
	sa := New(44818, 0xC0A80A01)

	raw := sa.ToNative()
	if raw.Family != unix.AF_INET {
		t.Errorf("Expected family AF_INET, got %d", raw.Family)
	}
	if raw.Addr != [4]byte{192, 168, 10, 1} {
		t.Errorf("Unexpected raw address % x", raw.Addr)
	}
	// sin_port holds network-order bytes regardless of host endianness.
	portBytes := (*[2]byte)(unsafe.Pointer(&raw.Port))
	if *portBytes != [2]byte{0xAF, 0x12} {
		t.Errorf("Unexpected raw port bytes % x", *portBytes)
	}

	back := FromNative(raw)
	if back != sa {
		t.Errorf("FromNative(ToNative()) = %v, expected %v", back, sa)
	}
}

func TestAsRawIsView(t *testing.T) {
	sa := New(1, 0x01020304)

	raw := sa.AsRaw()
	raw.Addr = [4]byte{10, 0, 0, 9}
	raw.Zero[0] = 1

	if sa.AddrStr() != "10.0.0.9" {
		t.Errorf("Write through view not visible, got %s", sa.AddrStr())
	}
	if sa.IsValid() {
		t.Error("Padding written through view must invalidate the record")
	}

	ptr, n := sa.AsSockaddrPtr()
	if ptr != unsafe.Pointer(&sa) || n != unix.SizeofSockaddrInet4 {
		t.Errorf("Unexpected sockaddr pointer %p/%d", ptr, n)
	}
}

func TestSockaddrConversion(t *testing.T) {
	sa := New(2222, 0xEFC00001)

	in4 := sa.Sockaddr()
	if in4.Port != 2222 || in4.Addr != [4]byte{239, 192, 0, 1} {
		t.Errorf("Unexpected SockaddrInet4 %+v", in4)
	}

	back, ok := FromSockaddr(in4)
	if !ok || !back.Equals(sa) || !back.IsValid() {
		t.Errorf("FromSockaddr = %v %v", back, ok)
	}

	if _, ok := FromSockaddr(&unix.SockaddrInet6{Port: 1}); ok {
		t.Error("Expected IPv6 sockaddr to be rejected")
	}
}

func TestBindLoopback(t *testing.T) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		t.Skipf("socket unavailable: %v", err)
	}
	defer unix.Close(fd)

	sa := New(0, 0x7F000001)
	if err := unix.Bind(fd, sa.Sockaddr()); err != nil {
		t.Fatalf("Bind failed: %v", NewSocketError("bind", sa.String(), err))
	}

	name, err := unix.Getsockname(fd)
	if err != nil {
		t.Fatalf("Getsockname failed: %v", err)
	}
	bound, ok := FromSockaddr(name)
	if !ok {
		t.Fatalf("Unexpected sockname %T", name)
	}
	if bound.AddrStr() != "127.0.0.1" || bound.Port() == 0 {
		t.Errorf("Unexpected bound address %v", bound)
	}
}
