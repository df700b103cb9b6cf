package payload

import (
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"strings"
	"time"
)

// TimestampLayout is ISO 8601 in UTC with millisecond precision, e.g. 2024-03-01T08:15:00.000Z
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Wildcard subscribes an endpoint to every event type
const Wildcard = "*"

// eventTypePattern validates event types: snake_case words, optionally full-stop delimited
var eventTypePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+(\.[a-zA-Z0-9_]+)*$`)

/* Payload is the JSON envelope delivered to every endpoint
 * Uses value semantics: the With* helpers return copies, so a payload handed
 * to the delivery engine is never mutated afterwards
 */
type Payload struct {
	Event          string
	Timestamp      time.Time
	Data           map[string]any
	IdempotencyKey string
	DeliveryID     string
}

// wire keeps the field order of the body stable: event, timestamp, data, idempotency_key, delivery_id
type wire struct {
	Event          string         `json:"event"`
	Timestamp      string         `json:"timestamp"`
	Data           map[string]any `json:"data"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	DeliveryID     string         `json:"delivery_id,omitempty"`
}

// New creates a payload for eventType stamped with the current time
func New(eventType string, data map[string]any) (Payload, error) {
	if data == nil {
		data = map[string]any{}
	}
	p := Payload{
		Event:     eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	if err := p.Validate(); err != nil {
		return Payload{}, fmt.Errorf("validating payload: %w", err)
	}
	return p, nil
}

// Validate checks the envelope fields that every delivery relies on
func (p Payload) Validate() error {
	if err := ValidateEventType(p.Event); err != nil {
		return err
	}
	if p.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	return nil
}

// WithDeliveryID returns a copy of p carrying the given delivery id
func (p Payload) WithDeliveryID(id string) Payload {
	p.Data = maps.Clone(p.Data)
	p.DeliveryID = id
	return p
}

// WithIdempotencyKey returns a copy of p carrying the given idempotency key
func (p Payload) WithIdempotencyKey(key string) Payload {
	p.Data = maps.Clone(p.Data)
	p.IdempotencyKey = key
	return p
}

// FormattedTimestamp returns the timestamp as sent in the body and the X-Webhook-Timestamp header
func (p Payload) FormattedTimestamp() string {
	return p.Timestamp.UTC().Format(TimestampLayout)
}

// MarshalJSON returns the wire encoding of the payload
func (p Payload) MarshalJSON() ([]byte, error) {
	data := p.Data
	if data == nil {
		data = map[string]any{}
	}
	return json.Marshal(wire{
		Event:          p.Event,
		Timestamp:      p.FormattedTimestamp(),
		Data:           data,
		IdempotencyKey: p.IdempotencyKey,
		DeliveryID:     p.DeliveryID,
	})
}

// UnmarshalJSON parses the wire encoding of the payload
func (p *Payload) UnmarshalJSON(b []byte) error {
	var w wire
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("unmarshaling payload: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, w.Timestamp)
	if err != nil {
		return fmt.Errorf("parsing timestamp: %w", err)
	}
	*p = Payload{
		Event:          w.Event,
		Timestamp:      ts.UTC(),
		Data:           w.Data,
		IdempotencyKey: w.IdempotencyKey,
		DeliveryID:     w.DeliveryID,
	}
	return nil
}

// Bytes returns the minified JSON body sent on the wire
func (p Payload) Bytes() ([]byte, error) {
	return json.Marshal(p)
}

// Parse parses and validates a JSON body
func Parse(b []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return Payload{}, err
	}
	if err := p.Validate(); err != nil {
		return Payload{}, fmt.Errorf("validating payload: %w", err)
	}
	return p, nil
}

// ValidateEventType validates an event type name
func ValidateEventType(eventType string) error {
	if eventType == "" {
		return fmt.Errorf("event type cannot be empty")
	}
	if !eventTypePattern.MatchString(eventType) {
		return fmt.Errorf("event type must contain only [a-zA-Z0-9_.]: %s", eventType)
	}
	return nil
}

// ValidatePattern validates a subscription pattern: an event type, "*" or "prefix.*"
func ValidatePattern(pattern string) error {
	if pattern == Wildcard {
		return nil
	}
	if prefix, ok := strings.CutSuffix(pattern, ".*"); ok {
		return ValidateEventType(prefix)
	}
	return ValidateEventType(pattern)
}

// MatchEventType reports whether eventType satisfies a subscription pattern.
// Supports exact matching, "*" and prefix matching ("work_order.*" matches "work_order.created").
func MatchEventType(pattern, eventType string) bool {
	if pattern == Wildcard || pattern == eventType {
		return true
	}
	prefix, ok := strings.CutSuffix(pattern, ".*")
	if !ok {
		return false
	}
	return strings.HasPrefix(eventType, prefix+".") && len(eventType) > len(prefix)+1
}
