package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("HRMS_BASE_URL", "https://hrms.example.com/")
	t.Setenv("JWT_SECRET_KEY", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "https://hrms.example.com", cfg.Upstream.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Upstream.PunchTimeout)
	assert.Equal(t, "mobile", cfg.Upstream.MarkedBy)
	assert.False(t, cfg.Database.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Liveness.EnforcePixel)
	assert.Equal(t, 90*time.Second, cfg.Punch.LockTTL)
	assert.GreaterOrEqual(t, cfg.Punch.LockTTL, cfg.MinPunchLockTTL())
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_PORT", "9090")
	t.Setenv("LIVENESS_ENFORCE_PIXEL", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("REDIS_ENABLED", "1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.True(t, cfg.Liveness.EnforcePixel)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.App.CORSAllowedOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"missing base url", map[string]string{"HRMS_BASE_URL": "", "JWT_SECRET_KEY": "s"}},
		{"bad scheme", map[string]string{"HRMS_BASE_URL": "ftp://x", "JWT_SECRET_KEY": "s"}},
		{"missing secret", map[string]string{"HRMS_BASE_URL": "https://x", "JWT_SECRET_KEY": ""}},
		{"bad port", map[string]string{"HRMS_BASE_URL": "https://x", "JWT_SECRET_KEY": "s", "APP_PORT": "abc"}},
		{"bad timezone", map[string]string{"HRMS_BASE_URL": "https://x", "JWT_SECRET_KEY": "s", "APP_TIMEZONE": "Mars/Base"}},
		{"db without password", map[string]string{"HRMS_BASE_URL": "https://x", "JWT_SECRET_KEY": "s", "DB_ENABLED": "true"}},
		{"lock shorter than punch", map[string]string{"HRMS_BASE_URL": "https://x", "JWT_SECRET_KEY": "s", "PUNCH_LOCK_TTL": "5s"}},
		{"lock expires before refetch", map[string]string{"HRMS_BASE_URL": "https://x", "JWT_SECRET_KEY": "s", "PUNCH_LOCK_TTL": "30s"}},
		{"lock ends with the last call", map[string]string{"HRMS_BASE_URL": "https://x", "JWT_SECRET_KEY": "s", "PUNCH_LOCK_TTL": "60s"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidate_PunchLockCoversWholeFlow(t *testing.T) {
	setRequired(t)
	t.Setenv("UPSTREAM_TIMEOUT", "5s")
	t.Setenv("UPSTREAM_PUNCH_TIMEOUT", "20s")

	t.Setenv("PUNCH_LOCK_TTL", "39s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PUNCH_LOCK_TTL must be at least 40s")

	t.Setenv("PUNCH_LOCK_TTL", "40s")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 40*time.Second, cfg.MinPunchLockTTL())
}
