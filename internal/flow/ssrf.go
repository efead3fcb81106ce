package flow

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"time"
)

// privateNetworks are the destinations an api-request node must never
// reach, no matter what a flow author puts in the URL.
var privateNetworks = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

func isPrivateAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, network := range privateNetworks {
		if network.Contains(addr) {
			return true
		}
	}
	return false
}

// safeDialContext resolves the host itself and refuses to connect to
// any private or link-local address, so DNS answers cannot steer a
// request into the hub's own network.
func safeDialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}

	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, err
	}

	var dialer net.Dialer
	for _, addr := range addrs {
		if isPrivateAddr(addr) {
			continue
		}
		conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(addr.Unmap().String(), port))
		if err == nil {
			return conn, nil
		}
	}
	return nil, fmt.Errorf("no public address for host %q", host)
}

// newOutboundClient builds the HTTP client api-request nodes go out
// through: private destinations blocked, redirects not followed, no
// cookies, six second timeout.
func newOutboundClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{DialContext: safeDialContext},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
		Timeout: 6 * time.Second,
	}
}
