// Package config defines all configuration structures for the
// PharmaCliff-Intelligence platform.  No I/O or parsing logic lives here —
// only plain data types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
)

// Version is the platform version reported by servers and the CLI.
const Version = "0.1.0"

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// FirestoreConfig holds Firebase / Firestore connection parameters.
// Exactly one credential source is used, in order of precedence:
// CredentialsFile, CredentialsJSON (base64), then Application Default
// Credentials.
type FirestoreConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	CredentialsJSON string `mapstructure:"credentials_json"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds the audit-event producer parameters.  The producer is
// optional; with no brokers configured reconciliation events are only logged.
type KafkaConfig struct {
	Brokers         []string      `mapstructure:"brokers"`
	Topic           string        `mapstructure:"topic"`
	ProducerRetries int           `mapstructure:"producer_retries"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
}

// SearchAPIConfig holds the external patent-search job API parameters.
type SearchAPIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// PollInterval is the fixed delay between job status polls.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// PollBudget bounds how long a single search waits for a terminal state.
	PollBudget time.Duration `mapstructure:"poll_budget"`
	RetryMax   int           `mapstructure:"retry_max"`
}

// AssistantConfig holds the LLM completion API parameters.  The system prompt
// and model tuning live in the config/drroot document, not here; this section
// only carries connection material.
type AssistantConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// RateLimitConfig controls the per-client request rate limiter.
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerWindow int           `mapstructure:"requests_per_window"`
	Window            time.Duration `mapstructure:"window"`
}

// Config is the root configuration object.
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Firestore FirestoreConfig   `mapstructure:"firestore"`
	Redis     RedisConfig       `mapstructure:"redis"`
	Kafka     KafkaConfig       `mapstructure:"kafka"`
	SearchAPI SearchAPIConfig   `mapstructure:"search_api"`
	Assistant AssistantConfig   `mapstructure:"assistant"`
	Metrics   MetricsConfig     `mapstructure:"metrics"`
	RateLimit RateLimitConfig   `mapstructure:"rate_limit"`
	Log       logging.LogConfig `mapstructure:"log"`
}

// Validate checks cross-field constraints that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Firestore.ProjectID == "" && c.Firestore.CredentialsFile == "" && c.Firestore.CredentialsJSON == "" {
		return fmt.Errorf("firestore: project_id or credentials required")
	}
	if c.SearchAPI.BaseURL == "" {
		return fmt.Errorf("search_api.base_url required")
	}
	if c.SearchAPI.PollInterval <= 0 {
		return fmt.Errorf("search_api.poll_interval must be positive")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("rate_limit.requests_per_window must be positive when enabled")
	}
	return nil
}
