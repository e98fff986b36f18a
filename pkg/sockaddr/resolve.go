package sockaddr

import (
	"context"
	"net"
	"net/netip"
)

// HostResolver looks up the addresses of a host. *net.Resolver satisfies it.
type HostResolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Resolve builds a SockAddr from a hostname or IPv4 literal and a host-order
// port using the system resolver. On failure it returns a *SocketError
// carrying the resolver's error code. The lookup blocks until ctx is done or
// the resolver gives up; there is no caching and no retry.
func Resolve(ctx context.Context, nameOrAddr string, port uint16) (SockAddr, error) {
	return ResolveWith(ctx, net.DefaultResolver, nameOrAddr, port)
}

// ResolveWith is Resolve with an explicit resolver. Literals never reach r.
func ResolveWith(ctx context.Context, r HostResolver, nameOrAddr string, port uint16) (SockAddr, error) {
	if ip, err := netip.ParseAddr(nameOrAddr); err == nil {
		sa, ok := FromAddrPort(netip.AddrPortFrom(ip, port))
		if !ok {
			return SockAddr{}, NewSocketErrorCode("resolve", nameOrAddr+": not an IPv4 address", EAIFamily)
		}
		return sa, nil
	}

	addrs, err := r.LookupNetIP(ctx, "ip4", nameOrAddr)
	if err != nil {
		return SockAddr{}, NewSocketError("resolve", nameOrAddr, err)
	}
	for _, ip := range addrs {
		if sa, ok := FromAddrPort(netip.AddrPortFrom(ip, port)); ok {
			return sa, nil
		}
	}
	return SockAddr{}, NewSocketErrorCode("resolve", nameOrAddr+": no IPv4 address", EAINoData)
}
