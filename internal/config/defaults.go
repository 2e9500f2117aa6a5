package config

import "time"

const (
	DefaultServerPort      = 8080
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultRedisAddr  = "localhost:6379"
	DefaultRedisTTL   = 15 * time.Minute
	DefaultKeyPrefix  = "pharmacliff:"
	DefaultKafkaTopic = "pharmacliff.billing.events"

	// DefaultPollInterval matches the fixed 20-second polling cadence of the
	// upstream search job API.
	DefaultPollInterval   = 20 * time.Second
	DefaultPollBudget     = 30 * time.Minute
	DefaultRequestTimeout = 30 * time.Second
	DefaultRetryMax       = 3

	DefaultAssistantCacheTTL = 24 * time.Hour

	DefaultMetricsPath = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with the platform default.
// Fields already set by the caller are left unchanged so that explicit
// configuration always wins.  Call after unmarshalling and before Validate.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = DefaultRedisTTL
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultKeyPrefix
	}

	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}

	if cfg.SearchAPI.PollInterval == 0 {
		cfg.SearchAPI.PollInterval = DefaultPollInterval
	}
	if cfg.SearchAPI.PollBudget == 0 {
		cfg.SearchAPI.PollBudget = DefaultPollBudget
	}
	if cfg.SearchAPI.RequestTimeout == 0 {
		cfg.SearchAPI.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.SearchAPI.RetryMax == 0 {
		cfg.SearchAPI.RetryMax = DefaultRetryMax
	}

	if cfg.Assistant.RequestTimeout == 0 {
		cfg.Assistant.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Assistant.CacheTTL == 0 {
		cfg.Assistant.CacheTTL = DefaultAssistantCacheTTL
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = time.Minute
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
