package resolver

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"

	"firestige.xyz/enipaddr/pkg/sockaddr"
)

// DNS queries A records from a single server. Failures are reported as
// *net.DNSError, the same shape the system resolver uses, so callers map
// both onto getaddrinfo codes the same way.
type DNS struct {
	udp    *dns.Client
	tcp    *dns.Client
	server string
}

// NewDNS returns a resolver querying server ("host:port").
func NewDNS(server string, timeout time.Duration) *DNS {
	return &DNS{
		udp:    &dns.Client{Net: "udp", Timeout: timeout},
		tcp:    &dns.Client{Net: "tcp", Timeout: timeout},
		server: server,
	}
}

// LookupNetIP implements sockaddr.HostResolver. Only "ip4" and "ip" are
// accepted and only A records are asked for. An answer without A records
// yields an empty slice and no error.
func (d *DNS) LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error) {
	if network != "ip4" && network != "ip" {
		return nil, sockaddr.NewSocketErrorCode("lookup", host+": network "+network, sockaddr.EAIFamily)
	}

	req := new(dns.Msg)
	req.SetQuestion(dns.Fqdn(host), dns.TypeA)

	resp, _, err := d.udp.ExchangeContext(ctx, req, d.server)
	if err == nil && resp.Truncated {
		resp, _, err = d.tcp.ExchangeContext(ctx, req, d.server)
	}
	if err != nil {
		timeout := isTimeout(err)
		return nil, &net.DNSError{
			Err:         err.Error(),
			Name:        host,
			Server:      d.server,
			IsTimeout:   timeout,
			IsTemporary: timeout,
		}
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, &net.DNSError{Err: "no such host", Name: host, Server: d.server, IsNotFound: true}
	case dns.RcodeServerFailure:
		return nil, &net.DNSError{Err: "server misbehaving", Name: host, Server: d.server, IsTemporary: true}
	default:
		return nil, &net.DNSError{Err: "server replied " + dns.RcodeToString[resp.Rcode], Name: host, Server: d.server}
	}

	var addrs []netip.Addr
	for _, rr := range resp.Answer {
		a, ok := rr.(*dns.A)
		if !ok {
			continue
		}
		if ip, ok := netip.AddrFromSlice(a.A.To4()); ok {
			addrs = append(addrs, ip)
		}
	}
	return addrs, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
