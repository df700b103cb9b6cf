package validation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrInvalidURL is returned for URLs that cannot be parsed or have an unsupported shape
	ErrInvalidURL = errors.New("invalid webhook url")
	// ErrSSRFBlocked is returned when a URL points at a non-routable destination
	ErrSSRFBlocked = errors.New("webhook url targets a blocked address")
)

// Resolver resolves a host name to its IP addresses
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// blockedPrefixes are destinations a webhook must never reach
var blockedPrefixes = mustPrefixes(
	"0.0.0.0/8",          // current network
	"10.0.0.0/8",         // RFC1918
	"100.64.0.0/10",      // shared address space (RFC6598)
	"127.0.0.0/8",        // loopback
	"169.254.0.0/16",     // link-local, cloud metadata
	"172.16.0.0/12",      // RFC1918
	"192.0.0.0/24",       // IETF protocol assignments
	"192.0.2.0/24",       // TEST-NET-1
	"192.168.0.0/16",     // RFC1918
	"198.18.0.0/15",      // benchmarking
	"198.51.100.0/24",    // TEST-NET-2
	"203.0.113.0/24",     // TEST-NET-3
	"224.0.0.0/4",        // multicast
	"240.0.0.0/4",        // reserved
	"255.255.255.255/32", // broadcast
	"::/128",             // unspecified
	"::1/128",            // loopback
	"64:ff9b::/96",       // NAT64
	"fc00::/7",           // unique local
	"fe80::/10",          // link-local
	"ff00::/8",           // multicast
	"2001:db8::/32",      // documentation
)

func mustPrefixes(cidrs ...string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		out = append(out, netip.MustParsePrefix(c))
	}
	return out
}

// URLValidator rejects webhook URLs that could be used for SSRF
type URLValidator struct {
	resolver      Resolver
	lookupTimeout time.Duration
	allowPrivate  bool
}

// Option configures a URLValidator
type Option func(*URLValidator)

// WithResolver replaces the DNS resolver
func WithResolver(r Resolver) Option {
	return func(v *URLValidator) {
		v.resolver = r
	}
}

// WithLookupTimeout bounds each DNS lookup
func WithLookupTimeout(d time.Duration) Option {
	return func(v *URLValidator) {
		v.lookupTimeout = d
	}
}

// AllowPrivateNetworks disables the address checks. Scheme and host checks still apply.
// Meant for local development against services on the same machine.
func AllowPrivateNetworks() Option {
	return func(v *URLValidator) {
		v.allowPrivate = true
	}
}

// NewURLValidator creates a validator using the system resolver
func NewURLValidator(opts ...Option) *URLValidator {
	v := &URLValidator{
		resolver:      net.DefaultResolver,
		lookupTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks the URL scheme and every address the host resolves to
func (v *URLValidator) Validate(ctx context.Context, rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: empty url", ErrInvalidURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q not allowed", ErrInvalidURL, u.Scheme)
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return fmt.Errorf("%w: empty host", ErrInvalidURL)
	}
	if v.allowPrivate {
		return nil
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("%w: host %q", ErrSSRFBlocked, host)
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		return checkAddr(addr)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, v.lookupTimeout)
	defer cancel()
	ips, err := v.resolver.LookupIPAddr(lookupCtx, host)
	if err != nil {
		return fmt.Errorf("%w: resolving %q: %v", ErrInvalidURL, host, err)
	}
	if len(ips) == 0 {
		return fmt.Errorf("%w: %q resolved to no addresses", ErrInvalidURL, host)
	}
	for _, ip := range ips {
		addr, ok := netip.AddrFromSlice(ip.IP)
		if !ok {
			return fmt.Errorf("%w: unparseable address for %q", ErrInvalidURL, host)
		}
		if err := checkAddr(addr); err != nil {
			return fmt.Errorf("%s resolves to blocked address: %w", host, err)
		}
	}
	return nil
}

// IsBlocked reports whether addr is a non-routable destination
func IsBlocked(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() || addr.IsMulticast() {
		return true
	}
	for _, p := range blockedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func checkAddr(addr netip.Addr) error {
	if IsBlocked(addr) {
		return fmt.Errorf("%w: %s", ErrSSRFBlocked, addr.Unmap())
	}
	return nil
}
