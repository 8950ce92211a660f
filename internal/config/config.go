// Package config loads the coordinator's runtime configuration from the
// environment. Invalid values fall back to defaults with a warning so a
// typo in one variable never keeps the service down.
package config

import (
	"sync"
	"time"

	"rss-coordinator/internal/infra/vectorstore"
	internalconfig "rss-coordinator/internal/pkg/config"
	"rss-coordinator/internal/usecase/feedsync"
	"rss-coordinator/pkg/config"
)

var (
	metricsOnce   sync.Once
	configMetrics *internalconfig.ConfigMetrics
)

// loadMetrics returns the process-wide config metrics. Prometheus panics on
// duplicate registration, so the collectors are created once.
func loadMetrics() *internalconfig.ConfigMetrics {
	metricsOnce.Do(func() {
		configMetrics = internalconfig.NewConfigMetrics("coordinator")
	})
	return configMetrics
}

// Config is the full runtime configuration of the coordinator process.
type Config struct {
	HTTPAddr string
	Version  string

	// AppKeys authorize worker and operator clients. Empty disables auth
	// (local development only).
	AppKeys []string

	CORSAllowedOrigins []string
	MaxBodyBytes       int64

	RateLimit RateLimitConfig

	// ProviderConfigPath points at the YAML provider registry.
	ProviderConfigPath string

	// Per-task model overrides. Empty selects the provider's default.
	SummaryModel   string
	DigestModel    string
	DigestProvider string
	TopicModel     string
	StreamModel    string
	EmbeddingModel string

	Collection string
	Dimension  int

	FeedSync feedsync.Config

	CrawlLeaseTimeout  time.Duration
	LeaseSweepInterval time.Duration

	DigestCron string
	TopicCron  string
	Timezone   string

	StreamMaxSessions int
	DigestConcurrency int

	SlackWebhookURL   string
	DiscordWebhookURL string
	WebhookTimeout    time.Duration
}

// RateLimitConfig carries the request limiter settings.
type RateLimitConfig struct {
	Enabled  bool
	Limit    int
	Window   time.Duration
	BlockFor time.Duration
	MaxKeys  int
}

// Load reads the configuration from environment variables. Cron schedules
// and the timezone are validated; invalid values fall back with a recorded
// warning so the maintenance jobs keep their defaults.
func Load() (*Config, []string) {
	metrics := loadMetrics()
	metrics.RecordLoadTimestamp()

	var warnings []string
	loadCron := func(key, fallback string) string {
		result := internalconfig.LoadEnvWithFallback(key, fallback, internalconfig.ValidateCronSchedule)
		if result.FallbackApplied {
			metrics.RecordFallback(key, "default")
			warnings = append(warnings, result.Warnings...)
		}
		return result.Value.(string)
	}

	tzResult := internalconfig.LoadEnvWithFallback("TIMEZONE", "UTC", internalconfig.ValidateTimezone)
	if tzResult.FallbackApplied {
		metrics.RecordFallback("TIMEZONE", "default")
		warnings = append(warnings, tzResult.Warnings...)
	}

	cfg := &Config{
		HTTPAddr: config.GetEnvString("HTTP_ADDR", ":8080"),
		Version:  config.GetEnvString("VERSION", "dev"),

		AppKeys:            config.GetEnvStringList("APP_KEYS", nil),
		CORSAllowedOrigins: config.GetEnvStringList("CORS_ALLOWED_ORIGINS", nil),
		MaxBodyBytes:       int64(config.GetEnvInt("MAX_BODY_BYTES", 10<<20)),

		RateLimit: RateLimitConfig{
			Enabled:  config.GetEnvBool("RATELIMIT_ENABLED", true),
			Limit:    config.GetEnvInt("RATELIMIT_LIMIT", 60),
			Window:   config.GetEnvDuration("RATELIMIT_WINDOW", time.Minute),
			BlockFor: config.GetEnvDuration("RATELIMIT_BLOCK_FOR", time.Minute),
			MaxKeys:  config.GetEnvInt("RATELIMIT_MAX_KEYS", 10000),
		},

		ProviderConfigPath: config.GetEnvString("PROVIDERS_CONFIG", "providers.yaml"),

		SummaryModel:   config.GetEnvString("SUMMARY_MODEL", ""),
		DigestModel:    config.GetEnvString("DIGEST_MODEL", ""),
		DigestProvider: config.GetEnvString("DIGEST_PROVIDER", ""),
		TopicModel:     config.GetEnvString("TOPIC_MODEL", ""),
		StreamModel:    config.GetEnvString("STREAM_MODEL", ""),
		EmbeddingModel: config.GetEnvString("EMBEDDING_MODEL", ""),

		Collection: config.GetEnvString("VECTOR_COLLECTION", vectorstore.DefaultCollection),
		Dimension:  config.GetEnvInt("EMBEDDING_DIMENSION", vectorstore.DefaultDimension),

		FeedSync: feedsync.Config{
			DisableThreshold: config.GetEnvInt("SYNC_DISABLE_THRESHOLD", feedsync.DefaultDisableThreshold),
			LeaseTimeout:     config.GetEnvDuration("SYNC_LEASE_TIMEOUT", feedsync.DefaultLeaseTimeout),
			SuccessInterval:  config.GetEnvDuration("SYNC_SUCCESS_INTERVAL", feedsync.DefaultSuccessInterval),
		},

		CrawlLeaseTimeout:  config.GetEnvDuration("CRAWL_LEASE_TIMEOUT", 30*time.Minute),
		LeaseSweepInterval: config.GetEnvDuration("LEASE_SWEEP_INTERVAL", 5*time.Minute),

		DigestCron: loadCron("DIGEST_CRON", "0 6 * * *"),
		TopicCron:  loadCron("TOPIC_CRON", "30 6 * * *"),
		Timezone:   tzResult.Value.(string),

		StreamMaxSessions: config.GetEnvInt("STREAM_MAX_SESSIONS", 8),
		DigestConcurrency: config.GetEnvInt("DIGEST_CONCURRENCY", 4),

		SlackWebhookURL:   config.GetEnvString("SLACK_WEBHOOK_URL", ""),
		DiscordWebhookURL: config.GetEnvString("DISCORD_WEBHOOK_URL", ""),
		WebhookTimeout:    config.GetEnvDuration("WEBHOOK_TIMEOUT", 10*time.Second),
	}

	return cfg, warnings
}
