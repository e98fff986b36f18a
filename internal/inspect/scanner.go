// Package inspect scans packet captures for EtherNet/IP socket addresses.
package inspect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/gopacket/layers"
	"golang.org/x/sync/errgroup"

	"firestige.xyz/enipaddr/internal/config"
	"firestige.xyz/enipaddr/internal/core"
	"firestige.xyz/enipaddr/internal/core/decoder"
	"firestige.xyz/enipaddr/internal/cpf"
)

// Scanner extracts socket addresses from encapsulation traffic. A Scanner
// may scan several sources concurrently; each scan uses its own decoder and
// warning limiter.
type Scanner struct {
	ports      map[uint16]struct{}
	list       []uint16
	warnLimit  int
	warnWindow time.Duration
	logger     *slog.Logger

	stats stats

	mu       sync.Mutex
	files    []string
	findings []Finding
}

// NewScanner creates a scanner for the configured ports. A nil logger
// means slog.Default().
func NewScanner(cfg config.InspectConfig, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	ports := make(map[uint16]struct{}, len(cfg.Ports))
	list := make([]uint16, 0, len(cfg.Ports))
	for _, p := range cfg.Ports {
		if _, dup := ports[uint16(p)]; !dup {
			list = append(list, uint16(p))
		}
		ports[uint16(p)] = struct{}{}
	}
	return &Scanner{
		ports:      ports,
		list:       list,
		warnLimit:  cfg.WarnLimit,
		warnWindow: cfg.WarnWindowValue,
		logger:     logger.With("component", "inspect"),
	}
}

// ScanFiles scans paths with at most cfg.Workers files in flight and
// returns the merged report. The first failing file cancels the rest.
func ScanFiles(ctx context.Context, cfg config.InspectConfig, logger *slog.Logger, paths []string) (Report, error) {
	s := NewScanner(cfg, logger)

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Workers > 0 {
		g.SetLimit(cfg.Workers)
	}
	for _, path := range paths {
		path := path
		g.Go(func() error {
			return s.ScanFile(ctx, path)
		})
	}
	err := g.Wait()
	return s.Report(), err
}

// ScanFile scans one capture file.
func (s *Scanner) ScanFile(ctx context.Context, path string) error {
	src, err := OpenFile(path)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := s.Scan(ctx, src, path); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Scan reads src until EOF. name labels the findings. Captures on a link
// type the decoder cannot start from are rejected up front.
func (s *Scanner) Scan(ctx context.Context, src PacketSource, name string) error {
	if !decoder.Supported(src.LinkType()) {
		return fmt.Errorf("%w: %s", core.ErrUnsupportedLink, src.LinkType())
	}
	dec := decoder.NewStandardDecoder(decoder.Config{LinkType: src.LinkType()})
	log := s.logger.With("file", name)
	log.Debug("scan started", "link_type", src.LinkType().String())

	var filter *portFilter
	if src.LinkType() == layers.LinkTypeEthernet {
		var err error
		if filter, err = newPortFilter(s.list); err != nil {
			log.Debug("port filter disabled", "error", err)
		}
	}

	limiter := NewWarnLimiter(s.warnLimit, s.warnWindow)

	var found []Finding
	defer func() {
		s.stats.suppressed.Add(limiter.Suppressed())
		s.mu.Lock()
		s.files = append(s.files, name)
		s.findings = append(s.findings, found...)
		s.mu.Unlock()
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, ci, err := src.ReadPacketData()
		if errors.Is(err, io.EOF) {
			log.Debug("scan finished", "findings", len(found))
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read packet: %w", err)
		}
		s.stats.packets.Inc()
		if !filter.match(data) {
			continue
		}

		pkt, err := dec.Decode(core.RawPacket{
			Data:       data,
			Timestamp:  ci.Timestamp,
			CaptureLen: uint32(ci.CaptureLength),
			OrigLen:    uint32(ci.Length),
		})
		if err != nil {
			// Non-IPv4 and non-TCP/UDP traffic is expected in mixed captures.
			continue
		}
		if !s.match(pkt.Transport) {
			continue
		}
		s.stats.matched.Inc()

		found = s.scanPayload(log, limiter, &pkt, name, found)
	}
}

func (s *Scanner) match(t core.TransportHeader) bool {
	_, src := s.ports[t.SrcPort]
	_, dst := s.ports[t.DstPort]
	return src || dst
}

// scanPayload walks the encapsulation messages in one payload. TCP segments
// are not reassembled, so a message split across segments counts as a
// decode error.
func (s *Scanner) scanPayload(log *slog.Logger, limiter *WarnLimiter, pkt *core.DecodedPacket, name string, found []Finding) []Finding {
	transport := "udp"
	if pkt.Transport.Protocol == core.ProtoTCP {
		transport = "tcp"
	}

	payload := pkt.Payload
	for len(payload) > 0 {
		msg, n, err := cpf.DecodeMessage(payload)
		if n == 0 {
			s.stats.decodeErrors.Inc()
			log.Debug("undecodable encapsulation payload", "src", pkt.Src(), "dst", pkt.Dst(), "error", err)
			return found
		}
		payload = payload[n:]
		s.stats.messages.Inc()
		if err != nil {
			s.stats.decodeErrors.Inc()
			log.Warn("malformed item list", "src", pkt.Src(), "command", msg.Command.String(), "error", err)
			continue
		}

		eps, err := msg.Endpoints()
		if err != nil {
			s.stats.decodeErrors.Inc()
			log.Warn("undecodable address item", "src", pkt.Src(), "command", msg.Command.String(), "error", err)
		}

		for _, ep := range eps {
			s.stats.endpoints.Inc()
			f := Finding{
				Time:      pkt.Timestamp,
				File:      name,
				Transport: transport,
				Src:       pkt.Src().String(),
				Dst:       pkt.Dst().String(),
				Command:   msg.Command.String(),
				Item:      ep.Item.String(),
				SockAddr:  ep.Addr.String(),
				Family:    ep.Addr.Family(),
				Valid:     ep.Addr.IsValid(),
				Multicast: ep.Addr.IsMulticast(),
			}
			found = append(found, f)

			if f.Valid {
				continue
			}
			s.stats.invalid.Inc()
			if limiter.Allow(pkt.IP.SrcIP, pkt.Timestamp) {
				log.Warn("invalid sockaddr item",
					"src", f.Src,
					"command", f.Command,
					"item", f.Item,
					"sockaddr", f.SockAddr,
					"family", f.Family,
					"sin_zero", fmt.Sprintf("% x", ep.Addr.Padding()))
			}
		}
	}
	return found
}

// Report returns the findings so far, ordered by capture time.
func (s *Scanner) Report() Report {
	s.mu.Lock()
	files := append([]string(nil), s.files...)
	findings := append([]Finding(nil), s.findings...)
	s.mu.Unlock()

	sort.Strings(files)
	sortFindings(findings)
	return Report{
		Files:    files,
		Counters: s.stats.snapshot(),
		Findings: findings,
	}
}

// Suppressed returns the number of invalid-item warnings dropped by the
// rate limiters of finished scans.
func (s *Scanner) Suppressed() int64 {
	return s.stats.suppressed.Load()
}
