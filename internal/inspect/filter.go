package inspect

import (
	"fmt"

	"golang.org/x/net/bpf"
)

// MaxPorts bounds the port set so every jump in the filter program fits in
// a BPF jump offset.
const MaxPorts = 64

const (
	etherTypeIPv4 = 0x0800
	etherTypeVLAN = 0x8100
	ipProtoTCP    = 6
	ipProtoUDP    = 17
	acceptLen     = 262144
)

// portFilter pre-screens Ethernet frames with a classic BPF program run in
// the pure Go VM, so frames on other ports are skipped before layer
// decoding. 802.1Q tagged frames are always passed through.
type portFilter struct {
	vm *bpf.VM
}

// portProgram assembles
//
//	ether proto 0x8100 or (ip and (tcp or udp) and not ip[6:2] & 0x1fff != 0
//	  and (src port P1 or ... or dst port P1 or ...))
func portProgram(ports []uint16) ([]bpf.Instruction, error) {
	n := len(ports)
	if n == 0 || n > MaxPorts {
		return nil, fmt.Errorf("port filter needs 1..%d ports, got %d", MaxPorts, n)
	}

	reject := 11 + 2*n
	accept := reject + 1
	skip := func(from, to int) uint8 { return uint8(to - from - 1) }

	prog := []bpf.Instruction{
		bpf.LoadAbsolute{Off: 12, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: etherTypeVLAN, SkipTrue: skip(1, accept)},
		bpf.JumpIf{Cond: bpf.JumpNotEqual, Val: etherTypeIPv4, SkipTrue: skip(2, reject)},
		bpf.LoadAbsolute{Off: 23, Size: 1},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: ipProtoTCP, SkipTrue: 1},
		bpf.JumpIf{Cond: bpf.JumpNotEqual, Val: ipProtoUDP, SkipTrue: skip(5, reject)},
		bpf.LoadAbsolute{Off: 20, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpBitsSet, Val: 0x1fff, SkipTrue: skip(7, reject)},
		bpf.LoadMemShift{Off: 14},
		bpf.LoadIndirect{Off: 14, Size: 2},
	}
	for _, p := range ports {
		prog = append(prog, bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(p), SkipTrue: skip(len(prog), accept)})
	}
	prog = append(prog, bpf.LoadIndirect{Off: 16, Size: 2})
	for _, p := range ports {
		prog = append(prog, bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(p), SkipTrue: skip(len(prog), accept)})
	}
	prog = append(prog,
		bpf.RetConstant{Val: 0},
		bpf.RetConstant{Val: acceptLen},
	)
	return prog, nil
}

func newPortFilter(ports []uint16) (*portFilter, error) {
	prog, err := portProgram(ports)
	if err != nil {
		return nil, err
	}
	vm, err := bpf.NewVM(prog)
	if err != nil {
		return nil, fmt.Errorf("failed to load port filter: %w", err)
	}
	return &portFilter{vm: vm}, nil
}

// match reports whether the frame may carry traffic on a filtered port.
// A nil filter matches everything.
func (f *portFilter) match(frame []byte) bool {
	if f == nil {
		return true
	}
	n, err := f.vm.Run(frame)
	return err == nil && n > 0
}
