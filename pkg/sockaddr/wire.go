package sockaddr

import (
	"encoding/binary"
	"fmt"
)

// SetPadding overwrites the eight reserved bytes. Only decoders and tests
// have a reason to put anything but zeros here.
func (sa *SockAddr) SetPadding(p [8]byte) *SockAddr {
	sa.zero = p
	return sa
}

// AppendBinary appends the 16-byte SockAddr Info Item body to b. Every field,
// the family included, is big endian on the wire.
func (sa SockAddr) AppendBinary(b []byte) ([]byte, error) {
	b = binary.BigEndian.AppendUint16(b, sa.family)
	b = append(b, sa.port[:]...)
	b = append(b, sa.addr[:]...)
	return append(b, sa.zero[:]...), nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (sa SockAddr) MarshalBinary() ([]byte, error) {
	return sa.AppendBinary(make([]byte, 0, Size))
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. It accepts exactly
// Size bytes and copies them as-is; call IsValid afterwards to check the
// family and padding.
func (sa *SockAddr) UnmarshalBinary(data []byte) error {
	if len(data) != Size {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrItemLength, len(data), Size)
	}
	sa.family = binary.BigEndian.Uint16(data[0:2])
	copy(sa.port[:], data[2:4])
	copy(sa.addr[:], data[4:8])
	copy(sa.zero[:], data[8:16])
	return nil
}
