package launcher

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrNoIPv4Address is returned when a hostname has no A record, including
	// when it does not exist at all
	ErrNoIPv4Address = errors.New("no IPv4 address found")

	ErrResolveFailed = errors.New("hostname lookup failed")
)

// Resolver maps a hostname to the IPv4 address the client is redirected to
type Resolver interface {
	LookupIPv4(ctx context.Context, host string) (net.IP, error)
}

// NetResolver resolves through net.Resolver. The zero value uses the default
// resolver.
type NetResolver struct {
	Resolver *net.Resolver
}

// LookupIPv4 returns the first IPv4 address of host. IP literals are returned
// as is.
func (r NetResolver) LookupIPv4(ctx context.Context, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNoIPv4Address, host)
	}

	res := r.Resolver
	if res == nil {
		res = net.DefaultResolver
	}

	ips, err := res.LookupIP(ctx, "ip4", host)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNoIPv4Address, host)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrResolveFailed, host, err)
	}

	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNoIPv4Address, host)
}
