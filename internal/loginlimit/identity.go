package loginlimit

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/mssola/useragent"
)

// TrustedProxies lists the reverse proxies whose X-Forwarded-For header is
// believed. The zero value trusts nobody.
type TrustedProxies []netip.Prefix

// ParseTrustedProxies reads addresses or CIDR ranges, e.g.
// "10.0.0.0/8, 192.0.2.7". An empty list trusts nobody.
func ParseTrustedProxies(entries []string) (TrustedProxies, error) {
	var proxies TrustedProxies
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
			}
			proxies = append(proxies, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		proxies = append(proxies, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return proxies, nil
}

// Trusts reports whether ip belongs to a trusted proxy
func (t TrustedProxies) Trusts(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range t {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientID identifies the browser behind a request: client address plus
// browser family and OS. It stands in for browser-local storage on the server.
func (t TrustedProxies) ClientID(r *http.Request) string {
	ua := useragent.New(r.UserAgent())
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "unknown"
	}
	platform := ua.OS()
	if platform == "" {
		platform = "unknown"
	}
	return t.clientIP(r) + "|" + browser + "|" + platform
}

// clientIP is the peer address unless the peer is a trusted proxy. Then the
// X-Forwarded-For chain is walked from the right and the first hop that is
// not itself a trusted proxy is the client.
func (t TrustedProxies) clientIP(r *http.Request) string {
	remote, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remote = r.RemoteAddr
	}
	if !t.Trusts(remote) {
		return remote
	}

	var hops []string
	for _, header := range r.Header.Values("X-Forwarded-For") {
		for _, hop := range strings.Split(header, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}
	for i := len(hops) - 1; i >= 0; i-- {
		if !t.Trusts(hops[i]) {
			return hops[i]
		}
	}
	if len(hops) > 0 {
		return hops[0]
	}
	return remote
}
