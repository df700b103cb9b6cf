package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/marcelsud/mes-webhooks/webhook"
	"github.com/marcelsud/mes-webhooks/webhook/payload"
	"github.com/marcelsud/mes-webhooks/webhook/signature"
)

const (
	// maxResponseBytes caps how much of a response is read
	maxResponseBytes = 64 * 1024
	// maxLoggedBody caps the response body kept in the delivery log
	maxLoggedBody = 1000
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type attemptResult struct {
	statusCode int
	body       string
	latencyMs  int64
	err        error
}

// attempt makes a single POST with its own timeout
func (e *Engine) attempt(ctx context.Context, endpoint webhook.Endpoint, p payload.Payload, body []byte, timeout time.Duration) attemptResult {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint.URL, bytes.NewReader(body))
	if err != nil {
		return attemptResult{err: fmt.Errorf("creating request: %w", err)}
	}
	setHeaders(req.Header, endpoint, p, body)

	start := e.now()
	resp, err := e.client.Do(req)
	latency := e.now().Sub(start).Milliseconds()
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return attemptResult{latencyMs: latency, err: fmt.Errorf("%w after %s", ErrTimeout, timeout)}
		}
		return attemptResult{latencyMs: latency, err: fmt.Errorf("sending request: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	res := attemptResult{
		statusCode: resp.StatusCode,
		body:       truncate(string(raw), maxLoggedBody),
		latencyMs:  latency,
	}
	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		res.err = fmt.Errorf("%w: HTTP %d", ErrRedirect, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		res.err = fmt.Errorf("%w: HTTP %d %s", ErrNon2xx, resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return res
}

/* setHeaders applies, in order: standard headers, endpoint custom headers, signature
 * A custom header cannot replace or forge the signature
 */
func setHeaders(h http.Header, endpoint webhook.Endpoint, p payload.Payload, body []byte) {
	h.Set("Content-Type", "application/json")
	h.Set(HeaderEvent, p.Event)
	h.Set(HeaderTimestamp, p.FormattedTimestamp())
	h.Set(HeaderDelivery, p.DeliveryID)
	h.Set("User-Agent", UserAgent)

	for k, v := range endpoint.Headers {
		if strings.EqualFold(k, signature.HeaderName) {
			continue
		}
		h.Set(k, v)
	}

	if endpoint.Secret != "" {
		h.Set(signature.HeaderName, signature.Sign(body, endpoint.Secret))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
