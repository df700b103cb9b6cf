package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

/* Config holds the service settings
 * Values come from a .env file (TOML) in the working directory when present, overridden by the environment
 */

type Config struct {
	Port                 string  `mapstructure:"PORT"`
	EndpointsFile        string  `mapstructure:"ENDPOINTS_FILE"`
	DatabaseURL          string  `mapstructure:"DATABASE_URL"`
	PostgresMaxConns     int32   `mapstructure:"POSTGRES_MAX_CONNS"`
	RedisAddr            string  `mapstructure:"REDIS_ADDR"`
	RedisPassword        string  `mapstructure:"REDIS_PASSWORD"`
	RedisDB              int     `mapstructure:"REDIS_DB"`
	WebhookTimeoutMs     int     `mapstructure:"WEBHOOK_TIMEOUT_MS"`
	WebhookMaxAttempts   int     `mapstructure:"WEBHOOK_MAX_ATTEMPTS"`
	DeadLetterCapacity   int     `mapstructure:"DEAD_LETTER_CAPACITY"`
	IdempotencyTTLHours  int     `mapstructure:"IDEMPOTENCY_TTL_HOURS"`
	MaxPayloadBytes      int     `mapstructure:"MAX_PAYLOAD_BYTES"`
	RateLimitWindowMs    int     `mapstructure:"RATE_LIMIT_WINDOW_MS"`
	RateLimitMaxRequests int     `mapstructure:"RATE_LIMIT_MAX_REQUESTS"`
	AllowPrivateNetworks bool    `mapstructure:"ALLOW_PRIVATE_NETWORKS"`
	DeadLetterReplayRPS  float64 `mapstructure:"DEAD_LETTER_REPLAY_RPS"`
	LogLevel             string  `mapstructure:"LOG_LEVEL"`
	LogJSON              bool    `mapstructure:"LOG_JSON"`
}

var defaults = map[string]any{
	"PORT":                    "8080",
	"ENDPOINTS_FILE":          "endpoints.yaml",
	"DATABASE_URL":            "",
	"POSTGRES_MAX_CONNS":      10,
	"REDIS_ADDR":              "",
	"REDIS_PASSWORD":          "",
	"REDIS_DB":                0,
	"WEBHOOK_TIMEOUT_MS":      10000,
	"WEBHOOK_MAX_ATTEMPTS":    3,
	"DEAD_LETTER_CAPACITY":    1000,
	"IDEMPOTENCY_TTL_HOURS":   24,
	"MAX_PAYLOAD_BYTES":       1 << 20,
	"RATE_LIMIT_WINDOW_MS":    60000,
	"RATE_LIMIT_MAX_REQUESTS": 100,
	"ALLOW_PRIVATE_NETWORKS":  false,
	"DEAD_LETTER_REPLAY_RPS":  5.0,
	"LOG_LEVEL":               "info",
	"LOG_JSON":                true,
}

func GetConfig() (*Config, error) {
	return load(viper.New(), ".")
}

func load(v *viper.Viper, path string) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName(".env")
	v.SetConfigType("toml")
	v.AddConfigPath(path)
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects values the pipeline cannot run with
func (c *Config) Validate() error {
	switch {
	case c.Port == "":
		return errors.New("invalid config: PORT cannot be empty")
	case c.WebhookTimeoutMs <= 0:
		return errors.New("invalid config: WEBHOOK_TIMEOUT_MS must be positive")
	case c.WebhookMaxAttempts <= 0:
		return errors.New("invalid config: WEBHOOK_MAX_ATTEMPTS must be positive")
	case c.DeadLetterCapacity <= 0:
		return errors.New("invalid config: DEAD_LETTER_CAPACITY must be positive")
	case c.IdempotencyTTLHours <= 0:
		return errors.New("invalid config: IDEMPOTENCY_TTL_HOURS must be positive")
	case c.MaxPayloadBytes <= 0:
		return errors.New("invalid config: MAX_PAYLOAD_BYTES must be positive")
	case c.RateLimitWindowMs <= 0 || c.RateLimitMaxRequests <= 0:
		return errors.New("invalid config: rate limit window and max requests must be positive")
	case c.DeadLetterReplayRPS <= 0:
		return errors.New("invalid config: DEAD_LETTER_REPLAY_RPS must be positive")
	}
	return nil
}

func (c *Config) GetWebhookTimeout() time.Duration {
	return time.Duration(c.WebhookTimeoutMs) * time.Millisecond
}

func (c *Config) GetIdempotencyTTL() time.Duration {
	return time.Duration(c.IdempotencyTTLHours) * time.Hour
}

func (c *Config) GetRateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowMs) * time.Millisecond
}

// UsePostgres reports whether endpoints and logs live in Postgres
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// UseRedis reports whether the log stream and shared stores live in Redis
func (c *Config) UseRedis() bool {
	return c.RedisAddr != ""
}
