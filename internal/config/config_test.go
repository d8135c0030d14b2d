package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, BrokerMemory, cfg.RealtimeBroker)
	assert.Equal(t, 50, cfg.Notifications.SnapshotLimit)
	assert.Equal(t, 30*time.Second, cfg.Notifications.PriorityAlertInterval)
	assert.Equal(t, 10*time.Second, cfg.Notifications.FallbackPollInterval)
	assert.Equal(t, 60*time.Second, cfg.Notifications.FallbackWindow)
	assert.Equal(t, 720*time.Hour, cfg.Notifications.Retention)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NOTIFICATION_PRIORITY_ALERT_INTERVAL", "45s")
	t.Setenv("NOTIFICATION_SNAPSHOT_LIMIT", "20")
	t.Setenv("REALTIME_BROKER", "Redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Notifications.PriorityAlertInterval)
	assert.Equal(t, 20, cfg.Notifications.SnapshotLimit)
	assert.Equal(t, BrokerRedis, cfg.RealtimeBroker)
}

func TestLoadRejectsRedisBrokerWithoutAddr(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REALTIME_BROKER", "redis")

	_, err := Load("")
	assert.ErrorContains(t, err, "REDIS_ADDR")
}

func TestValidateConfigProdRequiresSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", "production")

	_, err := Load("")
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "a-real-secret")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestValidateConfigRejectsNonPositiveDurations(t *testing.T) {
	for _, key := range []string{
		"NOTIFICATION_FALLBACK_WINDOW",
		"NOTIFICATION_ADMIN_CACHE_TTL",
	} {
		for _, value := range []string{"0s", "-1m"} {
			t.Run(key+"="+value, func(t *testing.T) {
				t.Chdir(t.TempDir())
				t.Setenv(key, value)

				_, err := Load("")
				assert.ErrorContains(t, err, key)
			})
		}
	}
}
