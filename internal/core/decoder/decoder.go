// Package decoder implements L2-L4 protocol stack decoding.
package decoder

import (
	"fmt"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/enipaddr/internal/core"
)

// Decoder decodes raw packets into structured format.
type Decoder interface {
	Decode(raw core.RawPacket) (core.DecodedPacket, error)
}

// Config selects the link layer the decoder starts from.
type Config struct {
	// LinkType of the capture; zero means Ethernet.
	LinkType layers.LinkType
}

// Supported reports whether the decoder can start from link type lt.
func Supported(lt layers.LinkType) bool {
	switch lt {
	case layers.LinkTypeEthernet, layers.LinkTypeLinuxSLL, layers.LinkTypeRaw, layers.LinkTypeIPv4:
		return true
	}
	return false
}

// StandardDecoder decodes Ethernet (optionally 802.1Q tagged), Linux cooked
// (SLL) or raw IPv4 frames down to TCP/UDP with a gopacket DecodingLayerParser. It reuses its
// layer structs between calls and must not be shared between goroutines.
type StandardDecoder struct {
	eth   layers.Ethernet
	sll   layers.LinuxSLL
	dot1q layers.Dot1Q
	ip4   layers.IPv4
	tcp   layers.TCP
	udp   layers.UDP

	parser  *gopacket.DecodingLayerParser
	decoded []gopacket.LayerType
}

// NewStandardDecoder creates a decoder for the configured link type.
func NewStandardDecoder(cfg Config) *StandardDecoder {
	d := &StandardDecoder{decoded: make([]gopacket.LayerType, 0, 6)}

	first := layers.LayerTypeEthernet
	switch cfg.LinkType {
	case layers.LinkTypeLinuxSLL:
		first = layers.LayerTypeLinuxSLL
	case layers.LinkTypeRaw, layers.LinkTypeIPv4:
		first = layers.LayerTypeIPv4
	}

	d.parser = gopacket.NewDecodingLayerParser(first, &d.eth, &d.sll, &d.dot1q, &d.ip4, &d.tcp, &d.udp)
	d.parser.IgnoreUnsupported = true
	return d
}

// Decode decodes one frame. The returned payload aliases raw.Data.
func (d *StandardDecoder) Decode(raw core.RawPacket) (core.DecodedPacket, error) {
	out := core.DecodedPacket{
		Timestamp:  raw.Timestamp,
		CaptureLen: raw.CaptureLen,
		OrigLen:    raw.OrigLen,
	}
	if len(raw.Data) == 0 {
		return out, core.ErrPacketTooShort
	}

	d.decoded = d.decoded[:0]
	if err := d.parser.DecodeLayers(raw.Data, &d.decoded); err != nil {
		return out, fmt.Errorf("%w: %v", core.ErrPacketTooShort, err)
	}

	var haveIP, haveTransport bool
	for _, lt := range d.decoded {
		switch lt {
		case layers.LayerTypeEthernet:
			copy(out.Ethernet.SrcMAC[:], d.eth.SrcMAC)
			copy(out.Ethernet.DstMAC[:], d.eth.DstMAC)
			out.Ethernet.EtherType = uint16(d.eth.EthernetType)
		case layers.LayerTypeLinuxSLL:
			// Cooked captures carry only the sender's link address.
			copy(out.Ethernet.SrcMAC[:], d.sll.Addr)
			out.Ethernet.EtherType = uint16(d.sll.EthernetType)
		case layers.LayerTypeDot1Q:
			// Nested tags share one layer struct, so only the innermost ID survives.
			out.Ethernet.VLANs = append(out.Ethernet.VLANs, d.dot1q.VLANIdentifier)
			out.Ethernet.EtherType = uint16(d.dot1q.Type)
		case layers.LayerTypeIPv4:
			haveIP = true
			out.IP = core.IPHeader{
				Version:  4,
				SrcIP:    toAddr(d.ip4.SrcIP),
				DstIP:    toAddr(d.ip4.DstIP),
				Protocol: uint8(d.ip4.Protocol),
				TTL:      d.ip4.TTL,
				TotalLen: d.ip4.Length,
			}
		case layers.LayerTypeTCP:
			haveTransport = true
			out.Transport = core.TransportHeader{
				SrcPort:  uint16(d.tcp.SrcPort),
				DstPort:  uint16(d.tcp.DstPort),
				Protocol: core.ProtoTCP,
				TCPFlags: tcpFlags(&d.tcp),
			}
			out.Payload = d.tcp.Payload
		case layers.LayerTypeUDP:
			haveTransport = true
			out.Transport = core.TransportHeader{
				SrcPort:  uint16(d.udp.SrcPort),
				DstPort:  uint16(d.udp.DstPort),
				Protocol: core.ProtoUDP,
			}
			out.Payload = d.udp.Payload
		}
	}

	if !haveIP || !haveTransport {
		return out, core.ErrUnsupportedProto
	}
	return out, nil
}

func toAddr(ip []byte) netip.Addr {
	addr, _ := netip.AddrFromSlice(ip)
	return addr.Unmap()
}

func tcpFlags(t *layers.TCP) uint8 {
	var f uint8
	for i, set := range []bool{t.FIN, t.SYN, t.RST, t.PSH, t.ACK, t.URG, t.ECE, t.CWR} {
		if set {
			f |= 1 << i
		}
	}
	return f
}
