// Package resolver provides the host resolvers behind sockaddr.ResolveWith.
package resolver

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"firestige.xyz/enipaddr/internal/config"
	"firestige.xyz/enipaddr/internal/core"
	"firestige.xyz/enipaddr/pkg/sockaddr"
)

// New returns the resolver selected by cfg.Mode.
func New(cfg config.ResolverConfig) (sockaddr.HostResolver, error) {
	switch cfg.Mode {
	case "", "system":
		return System(cfg.TimeoutValue), nil
	case "dns":
		if cfg.Server == "" {
			return nil, fmt.Errorf("%w: dns resolver without server", core.ErrConfigInvalid)
		}
		return NewDNS(cfg.Server, cfg.TimeoutValue), nil
	}
	return nil, fmt.Errorf("%w: %q", core.ErrUnknownResolver, cfg.Mode)
}

// System returns the platform resolver, bounding each lookup by timeout
// when it is positive.
func System(timeout time.Duration) sockaddr.HostResolver {
	if timeout <= 0 {
		return net.DefaultResolver
	}
	return &timeoutResolver{r: net.DefaultResolver, timeout: timeout}
}

type timeoutResolver struct {
	r       sockaddr.HostResolver
	timeout time.Duration
}

func (t *timeoutResolver) LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.r.LookupNetIP(ctx, network, host)
}
