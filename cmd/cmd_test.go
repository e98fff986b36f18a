package cmd

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"firestige.xyz/enipaddr/internal/config"
	"firestige.xyz/enipaddr/internal/cpf"
	"firestige.xyz/enipaddr/internal/inspect"
	"firestige.xyz/enipaddr/pkg/sockaddr"
)

// flakyResolver fails with a timeout a fixed number of times.
type flakyResolver struct {
	failures int
	err      error
	calls    int
}

func (f *flakyResolver) LookupNetIP(_ context.Context, _, host string) ([]netip.Addr, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.calls <= f.failures {
		return nil, &net.DNSError{Err: "i/o timeout", Name: host, IsTimeout: true}
	}
	return []netip.Addr{netip.MustParseAddr("10.0.0.7")}, nil
}

func fastRetry(t *testing.T) {
	prev := retryBase
	retryBase = time.Millisecond
	t.Cleanup(func() { retryBase = prev })
}

func TestRunResolve_Literal(t *testing.T) {
	var buf bytes.Buffer
	err := runResolve(context.Background(), &flakyResolver{}, "10.0.0.5", 44818, 0, &buf)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "address:   10.0.0.5:44818")
	assert.Contains(t, buf.String(), "wire:      0002af120a0000050000000000000000")
	assert.Contains(t, buf.String(), "valid:     true")
	assert.Contains(t, buf.String(), "multicast: false")
}

func TestRunResolve_RetriesTemporaryFailures(t *testing.T) {
	fastRetry(t)
	r := &flakyResolver{failures: 2}

	var buf bytes.Buffer
	err := runResolve(context.Background(), r, "plc.example", 2222, 3, &buf)

	require.NoError(t, err)
	assert.Equal(t, 3, r.calls)
	assert.Contains(t, buf.String(), "address:   10.0.0.7:2222")
}

func TestRunResolve_RetriesExhausted(t *testing.T) {
	fastRetry(t)
	r := &flakyResolver{failures: 10}

	var buf bytes.Buffer
	err := runResolve(context.Background(), r, "plc.example", 2222, 1, &buf)

	var se *sockaddr.SocketError
	require.True(t, errors.As(err, &se), "expected *SocketError, got %v", err)
	assert.Equal(t, sockaddr.EAIAgain, se.Code)
	assert.Equal(t, 2, r.calls)
	assert.Empty(t, buf.String())
}

func TestRunResolve_PermanentFailureNotRetried(t *testing.T) {
	fastRetry(t)
	r := &flakyResolver{err: &net.DNSError{Err: "no such host", Name: "nope", IsNotFound: true}}

	err := runResolve(context.Background(), r, "nope", 2222, 5, &bytes.Buffer{})

	var se *sockaddr.SocketError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, sockaddr.EAINoName, se.Code)
	assert.Equal(t, 1, r.calls)
}

func TestRunDecode_SockAddrBody(t *testing.T) {
	var buf bytes.Buffer
	err := runDecode("00 02 08 ae ef c0 00 01 00 00 00 00 00 00 00 00", &buf)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "address:   239.192.0.1:2222")
	assert.Contains(t, buf.String(), "multicast: true")
	assert.Contains(t, buf.String(), "valid:     true")
}

func TestRunDecode_InvalidBody(t *testing.T) {
	var buf bytes.Buffer
	err := runDecode("0200:08ae:efc00001:0000000000000000", &buf)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "family:    512")
	assert.Contains(t, buf.String(), "valid:     false")
}

func TestRunDecode_Message(t *testing.T) {
	msg := cpf.Message{
		Header: cpf.Header{Command: cpf.CmdSendRRData, SessionHandle: 0x11223344},
		Items: []cpf.Item{
			{Type: cpf.ItemNull},
			cpf.SockAddrItem(cpf.ItemSockAddrO2T, sockaddr.New(2222, 0xEFC00001)),
		},
	}

	var buf bytes.Buffer
	err := runDecode(hex.EncodeToString(msg.Append(nil)), &buf)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "SendRRData session=0x11223344 status=0 items=2")
	assert.Contains(t, buf.String(), "SockAddrO2T")
	assert.Contains(t, buf.String(), "239.192.0.1:2222")
	assert.Contains(t, buf.String(), "multicast=true")
}

func TestRunDecode_Errors(t *testing.T) {
	assert.Error(t, runDecode("zz", &bytes.Buffer{}))
	// Too short for an encapsulation header.
	assert.Error(t, runDecode("6f00", &bytes.Buffer{}))
}

// writeCapture writes a pcap holding one SendRRData reply whose T->O item has
// a nonzero sin_zero.
func writeCapture(t *testing.T) string {
	t.Helper()

	bad := sockaddr.New(2222, 0x0A000002)
	bad.SetPadding([8]byte{0xFF})
	msg := cpf.Message{
		Header: cpf.Header{Command: cpf.CmdSendRRData},
		Items: []cpf.Item{
			{Type: cpf.ItemNull},
			cpf.SockAddrItem(cpf.ItemSockAddrT2O, bad),
		},
	}

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 5},
		DstMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 6},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolTCP,
		SrcIP: net.IP{10, 0, 0, 2}, DstIP: net.IP{10, 0, 0, 1}}
	tcp := &layers.TCP{SrcPort: 44818, DstPort: 50000, ACK: true, PSH: true, Window: 512}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload(msg.Append(nil))))

	path := filepath.Join(t.TempDir(), "capture.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))
	ci := gopacket.CaptureInfo{Timestamp: time.Unix(1700000000, 0), CaptureLength: len(buf.Bytes()), Length: len(buf.Bytes())}
	require.NoError(t, w.WritePacket(ci, buf.Bytes()))
	return path
}

func inspectConfig() config.InspectConfig {
	return config.InspectConfig{Ports: []int{44818}, Workers: 1}
}

func TestRunInspect_YAML(t *testing.T) {
	path := writeCapture(t)

	var buf bytes.Buffer
	err := runInspect(context.Background(), inspectConfig(), []string{path}, inspectOptions{Format: "yaml"}, &buf)
	require.NoError(t, err)

	var report inspect.Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, int64(1), report.Counters.Invalid)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, "SockAddrT2O", report.Findings[0].Item)
	assert.Equal(t, "10.0.0.2:2222", report.Findings[0].SockAddr)
	assert.False(t, report.Findings[0].Valid)
}

func TestRunInspect_JSONStrict(t *testing.T) {
	path := writeCapture(t)

	var buf bytes.Buffer
	err := runInspect(context.Background(), inspectConfig(), []string{path}, inspectOptions{Format: "json", Strict: true}, &buf)
	assert.ErrorIs(t, err, errInvalidFound)

	// The report is still written before failing.
	var report inspect.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, []string{path}, report.Files)
	assert.Equal(t, int64(1), report.Counters.Endpoints)
}

func TestRunInspect_MetricsFile(t *testing.T) {
	path := writeCapture(t)
	promPath := filepath.Join(t.TempDir(), "enipaddr.prom")

	err := runInspect(context.Background(), inspectConfig(), []string{path},
		inspectOptions{Format: "json", MetricsFile: promPath}, &bytes.Buffer{})
	require.NoError(t, err)

	data, err := os.ReadFile(promPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `enipaddr_inspect_endpoints_total{item="SockAddrT2O",multicast="false",valid="false"} 1`)
}

func TestRunInspect_Errors(t *testing.T) {
	err := runInspect(context.Background(), inspectConfig(), []string{"x.pcap"}, inspectOptions{Format: "xml"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "unsupported output format")

	err = runInspect(context.Background(), inspectConfig(), []string{filepath.Join(t.TempDir(), "missing.pcap")}, inspectOptions{Format: "json"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunInspect_PartialReportOnError(t *testing.T) {
	good := writeCapture(t)
	garbage := filepath.Join(t.TempDir(), "garbage.pcap")
	require.NoError(t, os.WriteFile(garbage, []byte("not a capture file"), 0o644))

	var buf bytes.Buffer
	err := runInspect(context.Background(), inspectConfig(), []string{good, garbage}, inspectOptions{Format: "json"}, &buf)
	require.Error(t, err)

	var report inspect.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, []string{good}, report.Files)
	assert.Equal(t, int64(1), report.Counters.Invalid)
}

func TestSetup(t *testing.T) {
	prevFile, prevLevel := configFile, logLevel
	t.Cleanup(func() { configFile, logLevel = prevFile, prevLevel })

	configFile = ""
	logLevel = "debug"
	require.NoError(t, setup())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "system", cfg.Resolver.Mode)

	logLevel = "loud"
	assert.Error(t, setup())
}
