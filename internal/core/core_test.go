package core

import (
	"errors"
	"fmt"
	"net/netip"
	"testing"
	"time"
)

// Test zero values of core structs
func TestStructZeroValues(t *testing.T) {
	t.Run("EthernetHeader", func(t *testing.T) {
		var eth EthernetHeader
		if eth.EtherType != 0 {
			t.Errorf("expected EtherType=0, got %d", eth.EtherType)
		}
		if eth.VLANs != nil {
			t.Errorf("expected VLANs=nil, got %v", eth.VLANs)
		}
	})

	t.Run("IPHeader", func(t *testing.T) {
		var ip IPHeader
		if ip.SrcIP.IsValid() || ip.DstIP.IsValid() {
			t.Errorf("expected invalid addresses, got %v %v", ip.SrcIP, ip.DstIP)
		}
	})

	t.Run("DecodedPacket", func(t *testing.T) {
		var decoded DecodedPacket
		if decoded.Payload != nil {
			t.Errorf("expected Payload=nil, got %v", decoded.Payload)
		}
		if decoded.Src().IsValid() {
			t.Errorf("expected invalid Src, got %v", decoded.Src())
		}
	})
}

func TestSentinelErrors(t *testing.T) {
	all := []error{
		ErrPacketTooShort,
		ErrUnsupportedProto,
		ErrTruncatedMessage,
		ErrTruncatedItem,
		ErrInvalidSockAddr,
		ErrUnknownResolver,
		ErrConfigInvalid,
	}

	t.Run("Distinct", func(t *testing.T) {
		for i, a := range all {
			for j, b := range all {
				if i != j && errors.Is(a, b) {
					t.Errorf("%v must not match %v", a, b)
				}
			}
		}
	})

	t.Run("ErrorWrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("item 2: %w", ErrInvalidSockAddr)
		if !errors.Is(wrapped, ErrInvalidSockAddr) {
			t.Error("errors.Is failed for wrapped error")
		}
	})
}

func TestDecodedPacketEndpoints(t *testing.T) {
	decoded := DecodedPacket{
		Timestamp: time.Now(),
		IP: IPHeader{
			Version:  4,
			SrcIP:    netip.MustParseAddr("192.168.1.10"),
			DstIP:    netip.MustParseAddr("192.168.1.20"),
			Protocol: ProtoTCP,
		},
		Transport: TransportHeader{
			SrcPort:  51000,
			DstPort:  44818,
			Protocol: ProtoTCP,
		},
	}

	if got := decoded.Src(); got != netip.MustParseAddrPort("192.168.1.10:51000") {
		t.Errorf("unexpected Src %v", got)
	}
	if got := decoded.Dst(); got != netip.MustParseAddrPort("192.168.1.20:44818") {
		t.Errorf("unexpected Dst %v", got)
	}
}
