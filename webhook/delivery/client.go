package delivery

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"

	"github.com/marcelsud/mes-webhooks/webhook/validation"
)

/* NewHTTPClient returns the client used for deliveries
 * Redirects are never followed. With guard set, connections to blocked
 * addresses are refused at dial time, which also covers DNS answers that
 * changed after the URL was validated.
 */
func NewHTTPClient(guard bool) *http.Client {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	if guard {
		dialer.Control = dialControl
	}
	transport := &http.Transport{
		Proxy:                 nil,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func dialControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %v", validation.ErrSSRFBlocked, err)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %v", validation.ErrSSRFBlocked, err)
	}
	if validation.IsBlocked(addr) {
		return fmt.Errorf("%w: %s", validation.ErrSSRFBlocked, addr)
	}
	return nil
}
