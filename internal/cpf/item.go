package cpf

import (
	"encoding/binary"
	"fmt"

	"firestige.xyz/enipaddr/internal/core"
	"firestige.xyz/enipaddr/pkg/sockaddr"
)

// ItemType is a CPF item type ID.
type ItemType uint16

// CPF item type IDs (CIP Vol 2, Table 2-6.3).
const (
	ItemNull             ItemType = 0x0000
	ItemListIdentity     ItemType = 0x000C
	ItemConnectedAddress ItemType = 0x00A1
	ItemConnectedData    ItemType = 0x00B1
	ItemUnconnectedData  ItemType = 0x00B2
	ItemListServices     ItemType = 0x0100
	ItemSockAddrO2T      ItemType = 0x8000
	ItemSockAddrT2O      ItemType = 0x8001
	ItemSequencedAddress ItemType = 0x8002
)

var itemNames = map[ItemType]string{
	ItemNull:             "Null",
	ItemListIdentity:     "ListIdentity",
	ItemConnectedAddress: "ConnectedAddress",
	ItemConnectedData:    "ConnectedData",
	ItemUnconnectedData:  "UnconnectedData",
	ItemListServices:     "ListServices",
	ItemSockAddrO2T:      "SockAddrO2T",
	ItemSockAddrT2O:      "SockAddrT2O",
	ItemSequencedAddress: "SequencedAddress",
}

func (t ItemType) String() string {
	if name, ok := itemNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Item(0x%04X)", uint16(t))
}

// IsSockAddr reports whether t is one of the two SockAddr Info Item types.
func (t ItemType) IsSockAddr() bool {
	return t == ItemSockAddrO2T || t == ItemSockAddrT2O
}

// Item is one CPF item. Data aliases the decoded buffer.
type Item struct {
	Type ItemType
	Data []byte
}

// DecodeItems decodes a CPF item list: a UINT item count followed by that
// many {type, length, data} items. Bytes after the last item are ignored.
func DecodeItems(b []byte) ([]Item, error) {
	if len(b) < 2 {
		return nil, fmt.Errorf("%w: missing item count", core.ErrTruncatedItem)
	}
	count := int(binary.LittleEndian.Uint16(b[0:2]))
	b = b[2:]

	items := make([]Item, 0, count)
	for i := 0; i < count; i++ {
		if len(b) < 4 {
			return items, fmt.Errorf("%w: item %d header", core.ErrTruncatedItem, i)
		}
		typ := ItemType(binary.LittleEndian.Uint16(b[0:2]))
		n := int(binary.LittleEndian.Uint16(b[2:4]))
		if len(b) < 4+n {
			return items, fmt.Errorf("%w: item %d (%s) wants %d bytes, have %d",
				core.ErrTruncatedItem, i, typ, n, len(b)-4)
		}
		items = append(items, Item{Type: typ, Data: b[4 : 4+n]})
		b = b[4+n:]
	}
	return items, nil
}

// AppendItems appends an encoded item list to b. Item data longer than
// 0xFFFF bytes is not representable and is not checked here.
func AppendItems(b []byte, items []Item) []byte {
	b = binary.LittleEndian.AppendUint16(b, uint16(len(items)))
	for _, it := range items {
		b = binary.LittleEndian.AppendUint16(b, uint16(it.Type))
		b = binary.LittleEndian.AppendUint16(b, uint16(len(it.Data)))
		b = append(b, it.Data...)
	}
	return b
}

// SockAddrItem builds a SockAddr Info Item of type t (ItemSockAddrO2T or
// ItemSockAddrT2O).
func SockAddrItem(t ItemType, sa sockaddr.SockAddr) Item {
	data, _ := sa.MarshalBinary()
	return Item{Type: t, Data: data}
}

// CheckSockAddr decodes a SockAddr Info Item and checks it. A structurally
// invalid item (wrong family or nonzero sin_zero) is reported with
// core.ErrInvalidSockAddr alongside the decoded address so callers can still
// log what the peer sent.
func CheckSockAddr(it Item) (sockaddr.SockAddr, error) {
	if !it.Type.IsSockAddr() {
		return sockaddr.SockAddr{}, fmt.Errorf("%w: %s is not a SockAddr item", core.ErrUnsupportedProto, it.Type)
	}
	var sa sockaddr.SockAddr
	if err := sa.UnmarshalBinary(it.Data); err != nil {
		return sa, fmt.Errorf("%s: %w", it.Type, err)
	}
	if !sa.IsValid() {
		return sa, fmt.Errorf("%w: %s family=%d sin_zero=% x", core.ErrInvalidSockAddr, it.Type, sa.Family(), sa.Padding())
	}
	return sa, nil
}
