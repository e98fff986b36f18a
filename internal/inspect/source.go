package inspect

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// PacketSource yields captured frames until io.EOF.
type PacketSource interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// pcapngMagic is the block type of a pcapng Section Header Block.
const pcapngMagic = 0x0A0D0D0A

// FileSource reads a pcap or pcapng capture file.
type FileSource struct {
	path string
	file *os.File
	PacketSource
}

// OpenFile opens path and picks the pcap or pcapng reader from its magic.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture %s: %w", path, err)
	}

	src, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read capture %s: %w", path, err)
	}
	return &FileSource{path: path, file: f, PacketSource: src}, nil
}

// NewReader wraps r with the reader matching its leading magic number.
func NewReader(r io.Reader) (PacketSource, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}

	if binary.BigEndian.Uint32(magic) == pcapngMagic {
		return pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	}
	return pcapgo.NewReader(br)
}

// Path returns the file the source reads.
func (fs *FileSource) Path() string {
	return fs.path
}

// Close closes the underlying file.
func (fs *FileSource) Close() error {
	if fs.file == nil {
		return nil
	}
	err := fs.file.Close()
	fs.file = nil
	return err
}
