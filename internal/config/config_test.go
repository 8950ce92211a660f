package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, warnings := Load()

	assert.Empty(t, warnings)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "dev", cfg.Version)
	assert.Empty(t, cfg.AppKeys)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 60, cfg.RateLimit.Limit)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "rss_articles", cfg.Collection)
	assert.Equal(t, 3072, cfg.Dimension)
	assert.Equal(t, "0 6 * * *", cfg.DigestCron)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, 20, cfg.FeedSync.DisableThreshold)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("APP_KEYS", "key-a,key-b")
	t.Setenv("RATELIMIT_LIMIT", "120")
	t.Setenv("SYNC_LEASE_TIMEOUT", "15m")
	t.Setenv("DIGEST_CRON", "0 7 * * *")

	cfg, warnings := Load()

	assert.Empty(t, warnings)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, []string{"key-a", "key-b"}, cfg.AppKeys)
	assert.Equal(t, 120, cfg.RateLimit.Limit)
	assert.Equal(t, 15*time.Minute, cfg.FeedSync.LeaseTimeout)
	assert.Equal(t, "0 7 * * *", cfg.DigestCron)
}

func TestLoad_InvalidCronFallsBack(t *testing.T) {
	t.Setenv("DIGEST_CRON", "not a schedule")

	cfg, warnings := Load()

	assert.Equal(t, "0 6 * * *", cfg.DigestCron)
	assert.NotEmpty(t, warnings)
}
