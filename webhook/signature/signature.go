package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// Prefix identifies the digest algorithm in the signature header value
	Prefix = "sha256="

	// HeaderName is the request header carrying the signature
	HeaderName = "X-Webhook-Signature"
)

// Sign computes the HMAC-SHA256 of the exact payload bytes and returns it as
// "sha256=<lowercase hex>". The same inputs always produce the same output.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return Prefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature for payload and compares it with the
// received one in constant time.
func Verify(payload []byte, received, secret string) bool {
	expected := Sign(payload, secret)
	return constantTimeEqual(expected, received)
}

/* constantTimeEqual fails closed on a length mismatch and otherwise
 * XOR-accumulates every byte so the comparison time does not depend on
 * where the first difference is
 */
func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := 0; i < len(a); i++ {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}

// ParseHeader decodes the hex digest out of a signature header value
func ParseHeader(value string) ([]byte, error) {
	if !strings.HasPrefix(value, Prefix) {
		return nil, fmt.Errorf("signature must start with %s", Prefix)
	}
	digest, err := hex.DecodeString(strings.TrimPrefix(value, Prefix))
	if err != nil {
		return nil, fmt.Errorf("decoding signature: %w", err)
	}
	if len(digest) != sha256.Size {
		return nil, fmt.Errorf("signature must be %d bytes, got %d", sha256.Size, len(digest))
	}
	return digest, nil
}
