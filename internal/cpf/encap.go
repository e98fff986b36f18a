// Package cpf decodes and encodes EtherNet/IP encapsulation messages and the
// Common Packet Format item lists they carry.
//
// Encapsulation headers and CPF item headers are little endian. The bodies of
// SockAddr Info Items (and the socket address inside a ListIdentity item) are
// big endian; those are handled by the sockaddr package.
package cpf

import (
	"encoding/binary"
	"fmt"

	"firestige.xyz/enipaddr/internal/core"
)

// HeaderLen is the size of the encapsulation header.
const HeaderLen = 24

// Command is an encapsulation command code.
type Command uint16

// Encapsulation commands (CIP Vol 2, Table 2-3.2).
const (
	CmdNOP               Command = 0x0000
	CmdListServices      Command = 0x0004
	CmdListIdentity      Command = 0x0063
	CmdListInterfaces    Command = 0x0064
	CmdRegisterSession   Command = 0x0065
	CmdUnRegisterSession Command = 0x0066
	CmdSendRRData        Command = 0x006F
	CmdSendUnitData      Command = 0x0070
)

var commandNames = map[Command]string{
	CmdNOP:               "NOP",
	CmdListServices:      "ListServices",
	CmdListIdentity:      "ListIdentity",
	CmdListInterfaces:    "ListInterfaces",
	CmdRegisterSession:   "RegisterSession",
	CmdUnRegisterSession: "UnRegisterSession",
	CmdSendRRData:        "SendRRData",
	CmdSendUnitData:      "SendUnitData",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(0x%04X)", uint16(c))
}

// Header is the fixed encapsulation header.
type Header struct {
	Command       Command
	Length        uint16 // bytes following the header
	SessionHandle uint32
	Status        uint32
	SenderContext [8]byte
	Options       uint32
}

// DecodeHeader decodes the header at the start of b and returns the rest.
func DecodeHeader(b []byte) (Header, []byte, error) {
	if len(b) < HeaderLen {
		return Header{}, nil, fmt.Errorf("%w: %d byte header", core.ErrTruncatedMessage, len(b))
	}
	var h Header
	h.Command = Command(binary.LittleEndian.Uint16(b[0:2]))
	h.Length = binary.LittleEndian.Uint16(b[2:4])
	h.SessionHandle = binary.LittleEndian.Uint32(b[4:8])
	h.Status = binary.LittleEndian.Uint32(b[8:12])
	copy(h.SenderContext[:], b[12:20])
	h.Options = binary.LittleEndian.Uint32(b[20:24])
	return h, b[HeaderLen:], nil
}

// Append appends the encoded header to b.
func (h Header) Append(b []byte) []byte {
	b = binary.LittleEndian.AppendUint16(b, uint16(h.Command))
	b = binary.LittleEndian.AppendUint16(b, h.Length)
	b = binary.LittleEndian.AppendUint32(b, h.SessionHandle)
	b = binary.LittleEndian.AppendUint32(b, h.Status)
	b = append(b, h.SenderContext[:]...)
	return binary.LittleEndian.AppendUint32(b, h.Options)
}

// Message is an encapsulation message with its CPF item list, if the
// command carries one.
type Message struct {
	Header
	// InterfaceHandle and Timeout prefix the item list of SendRRData and
	// SendUnitData.
	InterfaceHandle uint32
	Timeout         uint16
	Items           []Item
}

// hasItems reports whether a message with this command and body length
// carries a CPF item list. ListIdentity, ListServices and ListInterfaces
// requests have an empty body; their replies are a bare item list.
func hasItems(cmd Command, length uint16) bool {
	switch cmd {
	case CmdSendRRData, CmdSendUnitData:
		return true
	case CmdListIdentity, CmdListServices, CmdListInterfaces:
		return length > 0
	}
	return false
}

// DecodeMessage decodes one encapsulation message from the start of b and
// returns it with the number of bytes it occupied, so a TCP payload holding
// several messages can be walked.
func DecodeMessage(b []byte) (Message, int, error) {
	h, rest, err := DecodeHeader(b)
	if err != nil {
		return Message{}, 0, err
	}
	if len(rest) < int(h.Length) {
		return Message{}, 0, fmt.Errorf("%w: %s wants %d bytes, have %d",
			core.ErrTruncatedMessage, h.Command, h.Length, len(rest))
	}
	body := rest[:h.Length]
	n := HeaderLen + int(h.Length)

	m := Message{Header: h}
	if !hasItems(h.Command, h.Length) {
		return m, n, nil
	}

	if h.Command == CmdSendRRData || h.Command == CmdSendUnitData {
		if len(body) < 6 {
			return m, n, fmt.Errorf("%w: %s body of %d bytes", core.ErrTruncatedMessage, h.Command, len(body))
		}
		m.InterfaceHandle = binary.LittleEndian.Uint32(body[0:4])
		m.Timeout = binary.LittleEndian.Uint16(body[4:6])
		body = body[6:]
	}

	m.Items, err = DecodeItems(body)
	if err != nil {
		return m, n, fmt.Errorf("%s: %w", h.Command, err)
	}
	return m, n, nil
}

// MaxBodyLen is the largest body the 16-bit header length can describe.
const MaxBodyLen = 0xFFFF

// MarshalBinary encodes m after checking every length fits its 16-bit field.
func (m Message) MarshalBinary() ([]byte, error) {
	if len(m.Items) > 0xFFFF {
		return nil, fmt.Errorf("%w: %d items", core.ErrMessageTooLong, len(m.Items))
	}
	body := 0
	if m.Command == CmdSendRRData || m.Command == CmdSendUnitData {
		body = 6
	}
	if len(m.Items) > 0 || body > 0 {
		body += 2
	}
	for _, it := range m.Items {
		if len(it.Data) > 0xFFFF {
			return nil, fmt.Errorf("%w: %s item of %d bytes", core.ErrMessageTooLong, it.Type, len(it.Data))
		}
		body += 4 + len(it.Data)
	}
	if body > MaxBodyLen {
		return nil, fmt.Errorf("%w: body of %d bytes", core.ErrMessageTooLong, body)
	}
	return m.Append(make([]byte, 0, HeaderLen+body)), nil
}

// Append encodes m, computing Header.Length from the items. Lengths are not
// checked: a body over MaxBodyLen or an item over 0xFFFF bytes produces a
// corrupt message. Use MarshalBinary for input of unknown size.
func (m Message) Append(b []byte) []byte {
	var body []byte
	if m.Command == CmdSendRRData || m.Command == CmdSendUnitData {
		body = binary.LittleEndian.AppendUint32(body, m.InterfaceHandle)
		body = binary.LittleEndian.AppendUint16(body, m.Timeout)
	}
	if len(m.Items) > 0 || len(body) > 0 {
		body = AppendItems(body, m.Items)
	}

	h := m.Header
	h.Length = uint16(len(body))
	b = h.Append(b)
	return append(b, body...)
}
