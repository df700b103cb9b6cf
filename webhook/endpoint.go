package webhook

import (
	"fmt"
	"maps"
	"time"

	"github.com/marcelsud/mes-webhooks/webhook/payload"
)

/* Endpoint is a subscriber registered for one event type
 * Uses value semantics: the registry owns the record, the pipeline only reads it
 */
type Endpoint struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	EventType string            `json:"event_type"`
	Enabled   bool              `json:"enabled"`
	Secret    string            `json:"-"`
	Headers   map[string]string `json:"headers,omitempty"`
	// Timeout overrides the engine default per attempt; zero means default
	Timeout time.Duration `json:"timeout,omitempty"`
	// MaxAttempts overrides the dispatcher default; zero means default
	MaxAttempts int `json:"max_attempts,omitempty"`
}

// Equal reports whether two records describe the same endpoint; nil and empty headers match
func (e Endpoint) Equal(o Endpoint) bool {
	return e.ID == o.ID &&
		e.Name == o.Name &&
		e.URL == o.URL &&
		e.EventType == o.EventType &&
		e.Enabled == o.Enabled &&
		e.Secret == o.Secret &&
		e.Timeout == o.Timeout &&
		e.MaxAttempts == o.MaxAttempts &&
		maps.Equal(e.Headers, o.Headers)
}

// Validate checks if the endpoint record is usable
func (e Endpoint) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("id cannot be empty")
	}
	if e.URL == "" {
		return fmt.Errorf("url cannot be empty for endpoint %s", e.ID)
	}
	if err := payload.ValidatePattern(e.EventType); err != nil {
		return fmt.Errorf("invalid event_type for endpoint %s: %w", e.ID, err)
	}
	if e.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative for endpoint %s", e.ID)
	}
	if e.MaxAttempts < 0 {
		return fmt.Errorf("retry_count cannot be negative for endpoint %s", e.ID)
	}
	return nil
}

// Subscribes reports whether the endpoint should receive eventType
func (e Endpoint) Subscribes(eventType string) bool {
	return e.Enabled && payload.MatchEventType(e.EventType, eventType)
}
