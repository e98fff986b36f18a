package cpf

import (
	"encoding/binary"
	"fmt"

	"firestige.xyz/enipaddr/internal/core"
	"firestige.xyz/enipaddr/pkg/sockaddr"
)

// identityFixedLen covers everything in a ListIdentity item before the
// product name: version, socket address, vendor, device type, product code,
// revision, status and serial number.
const identityFixedLen = 2 + sockaddr.Size + 2 + 2 + 2 + 2 + 2 + 4

// Identity is the body of a ListIdentity reply item (CIP Vol 2, 2-4.3.2).
type Identity struct {
	ProtocolVersion uint16
	SockAddr        sockaddr.SockAddr
	VendorID        uint16
	DeviceType      uint16
	ProductCode     uint16
	Revision        [2]byte // major, minor
	Status          uint16
	SerialNumber    uint32
	ProductName     string
	State           uint8
}

// DecodeIdentity decodes a ListIdentity item body. The embedded socket
// address is big endian like a SockAddr Info Item; the other fields are
// little endian.
func DecodeIdentity(data []byte) (Identity, error) {
	var id Identity
	if len(data) < identityFixedLen+1 {
		return id, fmt.Errorf("%w: ListIdentity item of %d bytes", core.ErrTruncatedItem, len(data))
	}
	id.ProtocolVersion = binary.LittleEndian.Uint16(data[0:2])
	if err := id.SockAddr.UnmarshalBinary(data[2:18]); err != nil {
		return id, err
	}
	id.VendorID = binary.LittleEndian.Uint16(data[18:20])
	id.DeviceType = binary.LittleEndian.Uint16(data[20:22])
	id.ProductCode = binary.LittleEndian.Uint16(data[22:24])
	id.Revision = [2]byte{data[24], data[25]}
	id.Status = binary.LittleEndian.Uint16(data[26:28])
	id.SerialNumber = binary.LittleEndian.Uint32(data[28:32])

	nameLen := int(data[identityFixedLen])
	rest := data[identityFixedLen+1:]
	if len(rest) < nameLen+1 {
		return id, fmt.Errorf("%w: ListIdentity product name", core.ErrTruncatedItem)
	}
	id.ProductName = string(rest[:nameLen])
	id.State = rest[nameLen]
	return id, nil
}

// Append appends the encoded identity to b.
func (id Identity) Append(b []byte) []byte {
	b = binary.LittleEndian.AppendUint16(b, id.ProtocolVersion)
	b, _ = id.SockAddr.AppendBinary(b)
	b = binary.LittleEndian.AppendUint16(b, id.VendorID)
	b = binary.LittleEndian.AppendUint16(b, id.DeviceType)
	b = binary.LittleEndian.AppendUint16(b, id.ProductCode)
	b = append(b, id.Revision[:]...)
	b = binary.LittleEndian.AppendUint16(b, id.Status)
	b = binary.LittleEndian.AppendUint32(b, id.SerialNumber)
	name := id.ProductName
	if len(name) > 255 {
		name = name[:255]
	}
	b = append(b, byte(len(name)))
	b = append(b, name...)
	return append(b, id.State)
}
