package endpoints

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/marcelsud/mes-webhooks/webhook"
	"gopkg.in/yaml.v3"
)

/* Loader manages endpoint configuration from endpoints.yaml
 * Provides in-memory lookup for fast access and implements webhook.EndpointRegistry
 */

// ErrNotFound is returned when no endpoint has the requested id
var ErrNotFound = errors.New("endpoint not found")

// Config represents the structure of endpoints.yaml
type Config struct {
	Endpoints []EndpointConfig `yaml:"endpoints"`
}

// EndpointConfig represents a single endpoint in the YAML file
type EndpointConfig struct {
	ID         string            `yaml:"id"`
	Name       string            `yaml:"name"`
	URL        string            `yaml:"url"`
	EventType  string            `yaml:"event_type"`
	Enabled    *bool             `yaml:"enabled"` // Default: true
	Secret     string            `yaml:"secret"`  // ${VAR} references are expanded from the environment
	Headers    map[string]string `yaml:"headers"`
	TimeoutMs  int               `yaml:"timeout_ms"`  // Optional: per-attempt timeout override
	RetryCount int               `yaml:"retry_count"` // Optional: attempt budget override
}

// Loader holds the loaded endpoints
type Loader struct {
	endpoints map[string]webhook.Endpoint
	order     []string
}

// NewLoader creates a new endpoint loader
func NewLoader() *Loader {
	return &Loader{
		endpoints: make(map[string]webhook.Endpoint),
	}
}

// Load reads and parses the endpoints.yaml file
func (l *Loader) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading endpoints file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing endpoints YAML: %w", err)
	}

	// Convert and validate endpoints
	for _, ec := range config.Endpoints {
		enabled := true
		if ec.Enabled != nil {
			enabled = *ec.Enabled
		}
		name := ec.Name
		if name == "" {
			name = ec.ID
		}

		endpoint := webhook.Endpoint{
			ID:          ec.ID,
			Name:        name,
			URL:         ec.URL,
			EventType:   ec.EventType,
			Enabled:     enabled,
			Secret:      os.ExpandEnv(ec.Secret),
			Headers:     ec.Headers,
			Timeout:     time.Duration(ec.TimeoutMs) * time.Millisecond,
			MaxAttempts: ec.RetryCount,
		}

		if err := endpoint.Validate(); err != nil {
			return fmt.Errorf("validating endpoint: %w", err)
		}
		if _, dup := l.endpoints[endpoint.ID]; dup {
			return fmt.Errorf("duplicate endpoint id: %s", endpoint.ID)
		}

		l.endpoints[endpoint.ID] = endpoint
		l.order = append(l.order, endpoint.ID)
	}

	return nil
}

// Get retrieves an endpoint by its ID
func (l *Loader) Get(id string) (webhook.Endpoint, error) {
	endpoint, exists := l.endpoints[id]
	if !exists {
		return webhook.Endpoint{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return endpoint, nil
}

// List returns all loaded endpoints in file order
func (l *Loader) List() []webhook.Endpoint {
	endpoints := make([]webhook.Endpoint, 0, len(l.order))
	for _, id := range l.order {
		endpoints = append(endpoints, l.endpoints[id])
	}
	return endpoints
}

// Exists checks if an endpoint ID exists
func (l *Loader) Exists(id string) bool {
	_, exists := l.endpoints[id]
	return exists
}

// ListSubscribed implements webhook.EndpointRegistry
func (l *Loader) ListSubscribed(_ context.Context, eventType string) ([]webhook.Endpoint, error) {
	endpoints := make([]webhook.Endpoint, 0)
	for _, id := range l.order {
		if e := l.endpoints[id]; e.Subscribes(eventType) {
			endpoints = append(endpoints, e)
		}
	}
	return endpoints, nil
}
