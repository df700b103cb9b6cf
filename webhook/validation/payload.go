package validation

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultMaxPayloadBytes is the serialized payload ceiling (1 MiB)
const DefaultMaxPayloadBytes = 1 << 20

var (
	// ErrInvalidPayload is returned for nil payloads and malformed JSON
	ErrInvalidPayload = errors.New("invalid webhook payload")
	// ErrPayloadTooLarge is returned when the serialized payload exceeds the ceiling
	ErrPayloadTooLarge = errors.New("webhook payload too large")
)

/* ValidatePayload checks a payload before it is sent
 * Strings and byte slices must already be JSON; anything else must marshal.
 * maxBytes <= 0 selects DefaultMaxPayloadBytes
 */
func ValidatePayload(v any, maxBytes int) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPayloadBytes
	}

	var raw []byte
	switch p := v.(type) {
	case nil:
		return fmt.Errorf("%w: payload is nil", ErrInvalidPayload)
	case string:
		raw = []byte(p)
	case []byte:
		raw = p
	case json.RawMessage:
		raw = p
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		if string(b) == "null" {
			return fmt.Errorf("%w: payload is nil", ErrInvalidPayload)
		}
		raw = b
	}

	if len(raw) > maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrPayloadTooLarge, len(raw), maxBytes)
	}
	if !json.Valid(raw) {
		return fmt.Errorf("%w: not valid JSON", ErrInvalidPayload)
	}
	return nil
}
