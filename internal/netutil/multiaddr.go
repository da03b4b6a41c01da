// Package netutil resolves libp2p-style multiaddresses to a concrete IPv4
// socket address, the way pkg/p2p.go in the teacher codebase parses
// bootstrap multiaddrs with go-multiaddr before handing them to its host —
// except this package owns the resolution rule itself rather than
// delegating to peer.AddrInfoFromP2pAddr, since spec §6 only needs a plain
// dial target, not a full libp2p peer.AddrInfo.
package netutil

import (
	"fmt"
	"net"

	ma "github.com/multiformats/go-multiaddr"

	"github.com/gosuda/libp2p-handshake/internal/wireerr"
)

// ResolveMultiaddr parses addr and resolves it to a dialable IPv4 TCP
// address, per spec §6's resolution rule:
//   - `/dns4/<name>` + `/tcp/<port>`: resolve the name, take the first IPv4
//     result, combine with the port.
//   - `/ip4/<a.b.c.d>` + `/tcp/<port>`: combine directly.
//   - anything else (missing port, missing address component, unsupported
//     component): ErrParse.
func ResolveMultiaddr(addr string) (*net.TCPAddr, error) {
	m, err := ma.NewMultiaddr(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: parse multiaddr %q: %v", wireerr.ErrParse, addr, err)
	}
	for _, p := range m.Protocols() {
		switch p.Code {
		case ma.P_DNS4, ma.P_IP4, ma.P_TCP:
		default:
			return nil, fmt.Errorf("%w: multiaddr %q has unsupported component /%s", wireerr.ErrParse, addr, p.Name)
		}
	}

	dnsName, hasDNS := valueFor(m, ma.P_DNS4)
	ip4Literal, hasIP4 := valueFor(m, ma.P_IP4)
	portStr, hasTCP := valueFor(m, ma.P_TCP)

	if !hasTCP {
		return nil, fmt.Errorf("%w: multiaddr %q has no /tcp/<port> component", wireerr.ErrParse, addr)
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return nil, fmt.Errorf("%w: multiaddr %q has non-numeric tcp port: %v", wireerr.ErrParse, addr, err)
	}

	switch {
	case hasDNS:
		ips, err := net.LookupIP(dnsName)
		if err != nil {
			return nil, fmt.Errorf("%w: resolve dns4 name %q: %v", wireerr.ErrParse, dnsName, err)
		}
		for _, ip := range ips {
			if v4 := ip.To4(); v4 != nil {
				return &net.TCPAddr{IP: v4, Port: port}, nil
			}
		}
		return nil, fmt.Errorf("%w: dns4 name %q has no IPv4 address", wireerr.ErrParse, dnsName)
	case hasIP4:
		ip := net.ParseIP(ip4Literal).To4()
		if ip == nil {
			return nil, fmt.Errorf("%w: multiaddr %q has invalid ip4 literal %q", wireerr.ErrParse, addr, ip4Literal)
		}
		return &net.TCPAddr{IP: ip, Port: port}, nil
	default:
		return nil, fmt.Errorf("%w: multiaddr %q has neither /dns4/ nor /ip4/", wireerr.ErrParse, addr)
	}
}

func valueFor(m ma.Multiaddr, code int) (string, bool) {
	v, err := m.ValueForProtocol(code)
	if err != nil {
		return "", false
	}
	return v, true
}
